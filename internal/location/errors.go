package location

import (
	"errors"
	"fmt"
)

// MsgInvalidStructure is reported when the document has no usable locations array.
const MsgInvalidStructure = "Invalid JSON structure: locations array not found"

// TransportError is a failed retrieval: a non-success status, or an I/O error
// when no status is available.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("Failed to load locations: %d", e.Status)
	}
	if e.Err != nil {
		return "Failed to load locations: " + e.Err.Error()
	}
	return "Failed to load locations"
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError wraps a malformed JSON document. Its message is the decoder's own.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError is a well-formed document that does not have the expected shape.
type SchemaError struct {
	Index   int
	Message string
}

func (e *SchemaError) Error() string { return e.Message }

func invalidStructure() error {
	return &SchemaError{Index: -1, Message: MsgInvalidStructure}
}

func invalidRecord(index int, reason string) error {
	return &SchemaError{
		Index:   index,
		Message: fmt.Sprintf("Invalid location at index %d: %s", index, reason),
	}
}

// Kind classifies a load error for logs and metrics.
func Kind(err error) string {
	var te *TransportError
	var pe *ParseError
	var se *SchemaError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &te):
		return "transport"
	case errors.As(err, &pe):
		return "parse"
	case errors.As(err, &se):
		return "schema"
	default:
		return "other"
	}
}
