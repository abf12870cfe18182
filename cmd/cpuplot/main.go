package main

import "github.com/aaronlmathis/cpuplot/internal/cmd"

func main() {
	cmd.Execute()
}
