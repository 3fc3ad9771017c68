package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFreeAgent is returned when the engine attempts to mark an agent busy
	// while none are free. It means the transfer/queue/abandon policy is broken.
	ErrNoFreeAgent = errors.New("cannot make agent busy: none are free")

	// ErrUnknownOutcome marks a seed record whose outcome code is in neither the
	// answered nor the unanswered set. The call is left without a schedule.
	ErrUnknownOutcome = errors.New("unknown outcome code")

	// ErrInvalidTransition is returned when a call is asked to move to a state
	// that its current state does not lead to.
	ErrInvalidTransition = errors.New("invalid call state transition")

	// ErrInvalidConfig wraps every Config.Validate failure.
	ErrInvalidConfig = errors.New("invalid config")
)

// TransitionError records the offending call and states of a rejected transition.
type TransitionError struct {
	CallID string
	From   CallState
	To     CallState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("call %s: %s -> %s: %v", e.CallID, e.From, e.To, ErrInvalidTransition)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
