package process

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidFormat is the sentinel wrapped by every FormatError.
var ErrInvalidFormat = errors.New("process: invalid response format")

// FormatError reports a payload whose required structure is missing or
// undecodable. Raw carries the offending payload for diagnostics.
type FormatError struct {
	Msg string
	Raw json.RawMessage
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("process: invalid response format: %s", e.Msg)
}

func (e *FormatError) Unwrap() error { return ErrInvalidFormat }

func formatErr(raw json.RawMessage, format string, args ...any) error {
	return &FormatError{Msg: fmt.Sprintf(format, args...), Raw: raw}
}
