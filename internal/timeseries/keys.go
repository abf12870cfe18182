package timeseries

import (
	"fmt"
	"strings"
)

// Window identifies one of the rolling windows a device reports control
// plane usage over
type Window string

const (
	FiveSeconds Window = "5s"
	OneMinute   Window = "1m"
	FiveMinutes Window = "5m"
)

// Series key constants for control plane usage
const (
	CPUsage5sPercent = "cp.usage.5s.percent"
	CPUsage1mPercent = "cp.usage.1m.percent"
	CPUsage5mPercent = "cp.usage.5m.percent"
)

// AllWindows returns every window in report order
func AllWindows() []Window {
	return []Window{FiveSeconds, OneMinute, FiveMinutes}
}

// Key returns the store key for the window's series
func (w Window) Key() string {
	switch w {
	case FiveSeconds:
		return CPUsage5sPercent
	case OneMinute:
		return CPUsage1mPercent
	case FiveMinutes:
		return CPUsage5mPercent
	default:
		return "cp.usage." + string(w) + ".percent"
	}
}

// Label returns the wording the device uses for the window
func (w Window) Label() string {
	switch w {
	case FiveSeconds:
		return "5 seconds"
	case OneMinute:
		return "1 minute"
	case FiveMinutes:
		return "5 minutes"
	default:
		return string(w)
	}
}

// ParseWindow accepts the short form ("5s") or the device wording ("5 seconds")
func ParseWindow(s string) (Window, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for _, w := range AllWindows() {
		if norm == string(w) || norm == w.Label() {
			return w, nil
		}
	}
	return "", fmt.Errorf("unknown usage window %q (want 5s, 1m or 5m)", s)
}

// ParseWindows parses a list of windows, dropping duplicates.
// An empty list selects every window.
func ParseWindows(items []string) ([]Window, error) {
	if len(items) == 0 {
		return AllWindows(), nil
	}

	seen := make(map[Window]bool)
	var out []Window
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			w, err := ParseWindow(part)
			if err != nil {
				return nil, err
			}
			if !seen[w] {
				seen[w] = true
				out = append(out, w)
			}
		}
	}
	if len(out) == 0 {
		return AllWindows(), nil
	}
	return out, nil
}
