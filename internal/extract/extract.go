// Package extract finds the "show clock" and control plane usage records in a
// device command-output log.
package extract

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Marker substrings that identify records in the log
const (
	ClockMarker = "show clock @"
	UsageMarker = "Current control plane usage versus the control plane cores elapsed for:"

	clockPrefix = "------------------ show clock @"
	clockRule   = "------------------"
)

// maxLineSize bounds how much of a single line is kept. The rest of a longer
// line is read and discarded; markers sit at the start of their lines.
const maxLineSize = 1024 * 1024

// ClockLine is a cleaned timestamp string taken from a "show clock @" line
type ClockLine struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// UsageLine is the data line that follows a control plane usage marker
type UsageLine struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Result holds everything Scan found, in file order
type Result struct {
	Lines  int         `json:"lines"`
	Clocks []ClockLine `json:"clocks"`
	Usages []UsageLine `json:"usages"`

	// Truncated lists the lines longer than maxLineSize
	Truncated []int `json:"truncated,omitempty"`

	// Order records the interleaving of clock (true) and usage (false)
	// entries so callers can pair them by position in the file.
	Order []Entry `json:"-"`
}

// Entry points at one element of Result.Clocks or Result.Usages
type Entry struct {
	Clock bool
	Index int
}

// FileAccessError reports a log file that could not be opened or read
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("cannot read log file %s: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error {
	return e.Err
}

// CleanClock strips the decorative dashes around a "show clock @" line
func CleanClock(line string) string {
	line = strings.ReplaceAll(line, clockPrefix, "")
	line = strings.ReplaceAll(line, clockRule, "")
	return strings.TrimSpace(line)
}

// ScanFile opens path and scans it. The file is always closed before returning.
func ScanFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileAccessError{Path: path, Err: err}
	}
	defer f.Close()

	res, err := Scan(ctx, f)
	if err != nil {
		return nil, &FileAccessError{Path: path, Err: err}
	}
	return res, nil
}

// Scan reads r line by line and collects clock and usage records.
// A usage marker on the last line has no data line and is skipped.
// Overlong lines are cut at maxLineSize and the scan carries on.
func Scan(ctx context.Context, r io.Reader) (*Result, error) {
	res := &Result{}
	br := bufio.NewReaderSize(r, 64*1024)

	pending := false
	for {
		line, truncated, err := readLine(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", res.Lines+1, err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res.Lines++
		if truncated {
			res.Truncated = append(res.Truncated, res.Lines)
		}

		// the line after a usage marker is data, whatever it contains
		if pending {
			res.Order = append(res.Order, Entry{Clock: false, Index: len(res.Usages)})
			res.Usages = append(res.Usages, UsageLine{Line: res.Lines, Text: strings.TrimSpace(line)})
			pending = false
		}

		if strings.Contains(line, ClockMarker) {
			res.Order = append(res.Order, Entry{Clock: true, Index: len(res.Clocks)})
			res.Clocks = append(res.Clocks, ClockLine{Line: res.Lines, Text: CleanClock(line)})
		}

		if strings.Contains(line, UsageMarker) {
			pending = true
		}
	}

	return res, nil
}

// readLine returns the next line without its line ending, keeping at most
// maxLineSize bytes of it. It returns io.EOF only when no line is left.
func readLine(br *bufio.Reader) (line string, truncated bool, err error) {
	var buf []byte
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if err == io.EOF && len(buf) > 0 {
				return string(buf), truncated, nil
			}
			return "", false, err
		}

		room := maxLineSize - len(buf)
		if len(chunk) > room {
			chunk = chunk[:room]
			truncated = true
		}
		buf = append(buf, chunk...)

		if !isPrefix {
			return string(buf), truncated, nil
		}
	}
}
