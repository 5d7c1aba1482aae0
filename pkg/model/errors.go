package model

import "errors"

var (
	// ErrInsufficientHistory marks a stock without enough B-points or bars to evaluate
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrInvariantViolation marks inconsistent input such as out-of-order B-points
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrExternalProvider marks a collaborator that stayed unavailable after retries
	ErrExternalProvider = errors.New("external provider failure")
)
