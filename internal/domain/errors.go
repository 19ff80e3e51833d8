package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport means the browser session itself is unusable. It aborts the run.
	ErrTransport = errors.New("transport error")
	// ErrLogin skips the candidate for this run.
	ErrLogin = errors.New("login failed")
	// ErrListingExhausted marks the normal end of a search listing.
	ErrListingExhausted = errors.New("listing exhausted")
	// ErrLedgerIO is logged and swallowed by the apply loop.
	ErrLedgerIO = errors.New("ledger io")
)

// StepError reports a failed form step.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("form step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Transport wraps err as a transport failure for op.
func Transport(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
}
