package notes

import "fmt"

// FormatError reports a note file that does not follow the expected layout:
// missing or invalid BPM/GAP, a malformed numeric token, or a note line that
// precedes the complete header.
type FormatError struct {
	Path string
	Line int // 1-based, 0 when the error is not tied to a line
	Msg  string
	Err  error
}

func (e *FormatError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "note file"
	}
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, e.Line)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", loc, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", loc, e.Msg)
}

func (e *FormatError) Unwrap() error { return e.Err }

// EncodingError is returned when the file is neither valid UTF-8 nor decodable
// with the fallback encoding.
type EncodingError struct {
	Path     string
	Fallback string
	Err      error
}

func (e *EncodingError) Error() string {
	msg := fmt.Sprintf("%s: not valid UTF-8 and not decodable as %s", e.Path, e.Fallback)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EncodingError) Unwrap() error { return e.Err }

// SizeMismatchError means the corrected pitch sequence does not line up with
// the project's notes. It always points at a pipeline defect.
type SizeMismatchError struct {
	Want int
	Got  int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("pitches can't be updated: got %d pitches for %d notes", e.Got, e.Want)
}
