package posedex

import (
	"fmt"

	"github.com/kailas-cloud/posedex/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check an *APIError against them.
var (
	ErrInvalidInput        = domain.ErrInvalidInput
	ErrDecode              = domain.ErrDecode
	ErrNoSubjectDetected   = domain.ErrNoSubjectDetected
	ErrTransport           = domain.ErrTransport
	ErrVectorDimMismatch   = domain.ErrVectorDimMismatch
	ErrHydrationExhausted  = domain.ErrHydrationExhausted
	ErrEntryNotFound       = domain.ErrEntryNotFound
	ErrCorpus              = domain.ErrCorpus
	ErrNoComparableEntries = domain.ErrNoComparableEntries
)

// APIError is a failure envelope returned by the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("posedex: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("posedex: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

var codeSentinels = map[string]error{
	"invalid_input":         ErrInvalidInput,
	"decode_failed":         ErrDecode,
	"no_subject_detected":   ErrNoSubjectDetected,
	"inference_error":       ErrTransport,
	"vector_dim_mismatch":   ErrVectorDimMismatch,
	"hydration_exhausted":   ErrHydrationExhausted,
	"corpus_unavailable":    ErrCorpus,
	"no_comparable_entries": ErrNoComparableEntries,
}

// Is maps the error code onto the matching sentinel.
func (e *APIError) Is(target error) bool {
	if s, ok := codeSentinels[e.Code]; ok && s == target {
		return true
	}
	if e.Code == "not_found" && target == ErrEntryNotFound {
		return true
	}
	// no_comparable_entries is a corpus failure too.
	return e.Code == "no_comparable_entries" && target == ErrCorpus
}
