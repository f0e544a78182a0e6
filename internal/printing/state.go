package printing

import "fmt"

// SubmissionState is a step of a single dispatch.
type SubmissionState int

const (
	StateResolving SubmissionState = iota
	StateOpened
	StatePageStarted
	StateWriting
	StatePageEnded
	StateClosed
	StateFailed
	// StateReleased follows FAILED in a trace when the device handle was
	// closed after the failure. It is a marker, not a transition.
	StateReleased
)

func (s SubmissionState) String() string {
	switch s {
	case StateResolving:
		return "RESOLVING"
	case StateOpened:
		return "OPENED"
	case StatePageStarted:
		return "PAGE_STARTED"
	case StateWriting:
		return "WRITING"
	case StatePageEnded:
		return "PAGE_ENDED"
	case StateClosed:
		return "CLOSED"
	case StateFailed:
		return "FAILED"
	case StateReleased:
		return "RELEASED"
	default:
		return fmt.Sprintf("SubmissionState(%d)", int(s))
	}
}

// IsTerminal reports whether no further transition is possible from s.
func (s SubmissionState) IsTerminal() bool {
	return s == StateClosed || s == StateFailed || s == StateReleased
}

func isAllowedTransition(from, to SubmissionState) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	switch from {
	case StateResolving:
		return to == StateOpened
	case StateOpened:
		return to == StatePageStarted
	case StatePageStarted:
		return to == StateWriting
	case StateWriting:
		return to == StatePageEnded
	case StatePageEnded:
		return to == StateClosed
	default:
		return false
	}
}

// submission records the path a dispatch takes through the state machine.
type submission struct {
	state SubmissionState
	trace []SubmissionState
}

func newSubmission() *submission {
	return &submission{state: StateResolving, trace: []SubmissionState{StateResolving}}
}

func (s *submission) advance(to SubmissionState) error {
	if !isAllowedTransition(s.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrJobState, s.state, to)
	}
	s.state = to
	s.trace = append(s.trace, to)
	return nil
}

// fail moves the submission to FAILED. It is a no-op once terminal.
func (s *submission) fail() {
	if !s.state.IsTerminal() {
		s.state = StateFailed
		s.trace = append(s.trace, StateFailed)
	}
}

// released records that the handle of a failed submission was closed. A
// successful submission already ends at CLOSED.
func (s *submission) released() {
	if s.state != StateFailed {
		return
	}
	if s.trace[len(s.trace)-1] != StateReleased {
		s.trace = append(s.trace, StateReleased)
	}
}
