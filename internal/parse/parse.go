// Package parse turns the text pulled out of a device log into typed values.
package parse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the layout printed by "show clock" (YYYY/MM/DD HH:MM:SS)
const TimestampLayout = "2006/01/02 15:04:05"

// Anchors that delimit the three usage values on a data line
const (
	AnchorFiveSeconds    = "5 seconds ="
	AnchorValueEnd       = "%;"
	AnchorOneMinute      = "1 minute:"
	AnchorOneMinuteEnd   = "%; 5 minutes"
	AnchorFiveMinutes    = "5 minutes:"
	percentAndWhitespace = "% \t\r\n"
)

// Usage holds the three control plane usage windows reported on one data line
type Usage struct {
	FiveSeconds float64 `json:"five_seconds"`
	OneMinute   float64 `json:"one_minute"`
	FiveMinutes float64 `json:"five_minutes"`
}

// Policy decides what happens to a record that fails to parse
type Policy int

const (
	// SkipAndContinue drops the failing record, logs a warning and keeps going
	SkipAndContinue Policy = iota
	// FailFast aborts the run on the first failing record
	FailFast
)

// String returns the config spelling of the policy
func (p Policy) String() string {
	switch p {
	case FailFast:
		return "fail-fast"
	default:
		return "skip"
	}
}

// ParsePolicy maps a config/flag value to a Policy
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip", "skip-and-continue":
		return SkipAndContinue, nil
	case "fail-fast", "failfast", "strict":
		return FailFast, nil
	default:
		return SkipAndContinue, fmt.Errorf("unknown parse policy %q (want 'skip' or 'fail-fast')", s)
	}
}

// Timestamp parses a cleaned "show clock" string. A nil location means UTC.
func Timestamp(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, &ParseError{Field: FieldTimestamp, Raw: s, Reason: ReasonBadLayout, Err: err}
	}
	return t, nil
}

// UsageLine extracts the three usage values from a line of the form
//
//	<junk>5 seconds = <V1>%; 1 minute: <V2>%; 5 minutes: <V3>%
//
// Every anchor must be present in order; on failure no values are returned.
func UsageLine(line string) (Usage, error) {
	var u Usage

	start, err := after(line, 0, AnchorFiveSeconds, FieldFiveSeconds)
	if err != nil {
		return Usage{}, err
	}
	end, err := index(line, start, AnchorValueEnd, FieldFiveSeconds)
	if err != nil {
		return Usage{}, err
	}
	if u.FiveSeconds, err = number(line[start:end], FieldFiveSeconds); err != nil {
		return Usage{}, err
	}

	start, err = after(line, end, AnchorOneMinute, FieldOneMinute)
	if err != nil {
		return Usage{}, err
	}
	end, err = index(line, start, AnchorOneMinuteEnd, FieldOneMinute)
	if err != nil {
		return Usage{}, err
	}
	if u.OneMinute, err = number(line[start:end], FieldOneMinute); err != nil {
		return Usage{}, err
	}

	start, err = after(line, end, AnchorFiveMinutes, FieldFiveMinutes)
	if err != nil {
		return Usage{}, err
	}
	end = len(line)
	if i := strings.IndexByte(line[start:], '%'); i >= 0 {
		end = start + i
	}
	if u.FiveMinutes, err = number(line[start:end], FieldFiveMinutes); err != nil {
		return Usage{}, err
	}

	return u, nil
}

// index finds anchor in line at or after from
func index(line string, from int, anchor string, field Field) (int, error) {
	i := strings.Index(line[from:], anchor)
	if i < 0 {
		return 0, &ParseError{Field: field, Raw: line, Reason: ReasonMissingAnchor, Anchor: anchor}
	}
	return from + i, nil
}

// after returns the offset just past anchor
func after(line string, from int, anchor string, field Field) (int, error) {
	i, err := index(line, from, anchor, field)
	if err != nil {
		return 0, err
	}
	return i + len(anchor), nil
}

func number(raw string, field Field) (float64, error) {
	v, err := strconv.ParseFloat(strings.Trim(raw, percentAndWhitespace), 64)
	if err != nil {
		return 0, &ParseError{Field: field, Raw: raw, Reason: ReasonNotNumeric, Err: err}
	}
	return v, nil
}
