package engine

import (
	"context"
	"errors"

	"github.com/tunogya/subpattern/pkg/data"
	"github.com/tunogya/subpattern/pkg/model"
)

var (
	ErrInsufficientHistory = model.ErrInsufficientHistory
	ErrInvariantViolation  = model.ErrInvariantViolation
	ErrExternalProvider    = model.ErrExternalProvider

	// ErrPersist marks a stock whose results could not be appended to the sink
	ErrPersist = errors.New("persistence failure")

	// ErrNoInputs aborts a run in which every stock lost its inputs to provider failures
	ErrNoInputs = errors.New("no stock produced inputs")
)

// Kind classifies the outcome of one stock in a run
type Kind int

const (
	KindSuccess Kind = iota
	KindEmptyMatchSet
	KindInsufficientHistory
	KindExternalProvider
	KindInvariantViolation
	KindPersistFailure
	KindCancelled
	KindUnknown
)

// AllKinds lists every kind in report order
var AllKinds = []Kind{
	KindSuccess,
	KindEmptyMatchSet,
	KindInsufficientHistory,
	KindExternalProvider,
	KindInvariantViolation,
	KindPersistFailure,
	KindCancelled,
	KindUnknown,
}

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindEmptyMatchSet:
		return "empty_match_set"
	case KindInsufficientHistory:
		return "insufficient_history"
	case KindExternalProvider:
		return "external_provider_failure"
	case KindInvariantViolation:
		return "invariant_violation"
	case KindPersistFailure:
		return "persist_failure"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Predicted reports whether a stock with this kind produced a prediction
func (k Kind) Predicted() bool {
	return k == KindSuccess || k == KindEmptyMatchSet
}

// Classify maps a stock error onto its kind. A nil error is a success.
func Classify(err error) Kind {
	var pe *data.ProviderError
	switch {
	case err == nil:
		return KindSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.Is(err, ErrInvariantViolation):
		return KindInvariantViolation
	case errors.Is(err, ErrInsufficientHistory):
		return KindInsufficientHistory
	case errors.Is(err, ErrExternalProvider), errors.As(err, &pe):
		return KindExternalProvider
	case errors.Is(err, ErrPersist):
		return KindPersistFailure
	default:
		return KindUnknown
	}
}
