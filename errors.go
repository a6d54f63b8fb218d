package streamdec

import "fmt"

// InitError reports that a decoder for the given encoding could not be
// constructed. It terminates the subscription before any body data is
// forwarded.
type InitError struct {
	Encoding string
	Err      error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("streamdec: init %s decoder: %v", e.Encoding, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// CorruptInputError reports malformed or truncated compressed data. It is
// fatal for the subscription; no output follows it.
type CorruptInputError struct {
	Encoding string
	Err      error
}

func (e *CorruptInputError) Error() string {
	return fmt.Sprintf("streamdec: corrupt %s stream: %v", e.Encoding, e.Err)
}

func (e *CorruptInputError) Unwrap() error { return e.Err }
