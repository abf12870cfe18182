package parse

import "fmt"

// Field names a value the parser tries to extract from a log line
type Field string

const (
	FieldTimestamp   Field = "timestamp"
	FieldFiveSeconds Field = "5 seconds"
	FieldOneMinute   Field = "1 minute"
	FieldFiveMinutes Field = "5 minutes"
)

// Reason classifies why a field could not be extracted
type Reason string

const (
	ReasonMissingAnchor Reason = "missing anchor"
	ReasonNotNumeric    Reason = "not numeric"
	ReasonBadLayout     Reason = "bad timestamp layout"
)

// ParseError reports a single field that could not be extracted from a line.
// Raw holds the offending substring (or the whole line when an anchor is missing).
type ParseError struct {
	Field  Field
	Raw    string
	Reason Reason
	Anchor string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Anchor != "" {
		return fmt.Sprintf("parse %s: %s %q in %q", e.Field, e.Reason, e.Anchor, e.Raw)
	}
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s %q: %v", e.Field, e.Reason, e.Raw, e.Err)
	}
	return fmt.Sprintf("parse %s: %s %q", e.Field, e.Reason, e.Raw)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
