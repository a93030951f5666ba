package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrFileTooLarge     = errors.New("file too large")
	ErrTemporary        = errors.New("temporary failure")
	ErrTimeout          = errors.New("timed out")
)

// Extraction phase.
var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrPDFParse        = errors.New("could not parse PDF file")
	ErrOCR             = errors.New("could not extract text from image")
	ErrEmptyText       = errors.New("could not read any text from the document")
)

// Completion and normalization phases.
var (
	ErrGateway           = errors.New("completion service failure")
	ErrEmptyCompletion   = errors.New("completion service returned no content")
	ErrMalformedResponse = errors.New("model did not return valid JSON")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// MalformedResponseError keeps the raw completion text so operators can see
// what the model actually returned.
type MalformedResponseError struct {
	Raw   string
	Cause error
}

func (e *MalformedResponseError) Error() string {
	if e.Cause == nil {
		return ErrMalformedResponse.Error()
	}
	return fmt.Sprintf("%s: %v", ErrMalformedResponse.Error(), e.Cause)
}

func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Cause
}

// RawResponse returns the raw model output carried by err, if any.
func RawResponse(err error) (string, bool) {
	var malformed *MalformedResponseError
	if errors.As(err, &malformed) {
		return malformed.Raw, true
	}
	return "", false
}
