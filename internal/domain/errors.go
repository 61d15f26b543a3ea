// Package domain holds the error taxonomy shared by the personalization
// services. Every failure is terminal for the current request; nothing
// here is retried automatically.
package domain

import (
	"errors"
	"fmt"
)

// ErrInsufficientData signals that the learner has too little progress
// history to personalize. Recoverable by the caller showing alternative
// content.
var ErrInsufficientData = errors.New("not enough progress data to personalize")

// ProviderError wraps a failure of the external text generator. Nothing
// has been persisted when this surfaces.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("generation provider failed: %v", e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// InvalidGenerationError signals that the generator's output failed to
// parse, or contained zero usable tasks/days after validation. Nothing
// has been persisted; Raw carries the original text for diagnostics.
type InvalidGenerationError struct {
	Raw string
	Err error
}

func (e *InvalidGenerationError) Error() string {
	return fmt.Sprintf("unusable generated output: %v", e.Err)
}

func (e *InvalidGenerationError) Unwrap() error { return e.Err }

// ValidationError rejects caller-supplied input (empty or foreign ids)
// before any write happens.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }
