package dump

import (
	"fmt"
)

// ParseError locates a failure inside one export file. Line is 1-based and
// zero when the failure is not tied to a line.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	switch {
	case e.Path != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// UnrecognizedFormatError means the first line matched none of the plots,
// world or BehaviorSpace signatures.
type UnrecognizedFormatError struct {
	FirstLine string
}

func (e *UnrecognizedFormatError) Error() string {
	return fmt.Sprintf("unrecognized export format: first line %q", e.FirstLine)
}

// MalformedCellError is a quoting violation in one line. Column is 1-based.
type MalformedCellError struct {
	Column int
	Reason string
}

func (e *MalformedCellError) Error() string {
	return fmt.Sprintf("malformed cell in column %d: %s", e.Column, e.Reason)
}

// MalformedHeaderError is a header row that does not have the expected shape.
type MalformedHeaderError struct {
	Expected string
	Found    string
}

func (e *MalformedHeaderError) Error() string {
	return fmt.Sprintf("malformed header: expected %s, found %q", e.Expected, e.Found)
}

// SectionNotFoundError means the input ended before a required marker.
type SectionNotFoundError struct {
	Marker string
}

func (e *SectionNotFoundError) Error() string {
	return fmt.Sprintf("section %q not found before end of file", e.Marker)
}

// MissingKeyColumnError is returned by the record helpers when the key
// column they index on is not in the table.
type MissingKeyColumnError struct {
	Column string
}

func (e *MissingKeyColumnError) Error() string {
	return fmt.Sprintf("missing key column %q", e.Column)
}

// TargetMismatchError means the requested extraction target cannot be
// produced from this kind of export.
type TargetMismatchError struct {
	Kind   Kind
	Target Target
}

func (e *TargetMismatchError) Error() string {
	return fmt.Sprintf("target %q is not available in a %s export", e.Target, e.Kind)
}
