package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput signals a missing or invalid request field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDecode signals malformed image data.
	ErrDecode = errors.New("image decode failed")
	// ErrNoSubjectDetected signals that the pose detector found nobody in the image.
	ErrNoSubjectDetected = errors.New("no person detected in image")
	// ErrTransport signals an unreachable, slow or failing remote inference service.
	ErrTransport = errors.New("inference service error")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrHydrationExhausted signals that no ranked result image could be loaded.
	ErrHydrationExhausted = errors.New("no result image could be loaded")
	// ErrEntryNotFound signals an unknown corpus identifier.
	ErrEntryNotFound = errors.New("corpus entry not found")

	// ErrCorpus is the parent of every corpus failure.
	ErrCorpus = errors.New("corpus error")
	// ErrCorpusNotFound signals a missing corpus file.
	ErrCorpusNotFound = fmt.Errorf("%w: corpus file not found", ErrCorpus)
	// ErrCorpusMalformed signals a corpus file with an unexpected structure.
	ErrCorpusMalformed = fmt.Errorf("%w: corpus file malformed", ErrCorpus)
	// ErrCorpusEmpty signals a corpus with no entries at all.
	ErrCorpusEmpty = fmt.Errorf("%w: corpus is empty", ErrCorpus)
	// ErrNoComparableEntries signals that every corpus entry lacks a pose or semantic vector.
	ErrNoComparableEntries = fmt.Errorf("%w: no comparable corpus entries", ErrCorpus)
)

// TransportError describes a failed call to a remote inference service.
// It matches both ErrTransport and the underlying cause with errors.Is.
type TransportError struct {
	Service    string // "pose" or "semantic"
	Op         string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Service, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }

// NewTransportError wraps err as a failure of service.op.
func NewTransportError(service, op string, status int, err error) error {
	return &TransportError{Service: service, Op: op, StatusCode: status, Err: err}
}

// DimMismatchError wraps ErrVectorDimMismatch with the offending dimensions.
type DimMismatchError struct {
	Kind     string // "pose" or "semantic"
	Expected int
	Got      int
}

func (e *DimMismatchError) Error() string {
	return fmt.Sprintf("%s: %s vector has %d dimensions, expected %d",
		ErrVectorDimMismatch.Error(), e.Kind, e.Got, e.Expected)
}

func (e *DimMismatchError) Unwrap() error { return ErrVectorDimMismatch }
