package types

import "time"

// EventType discriminates the events an operation subscription yields.
type EventType int

const (
	// EventStateChange reports a lifecycle transition.
	EventStateChange EventType = iota
	// EventOutputLine carries one line of tool output.
	EventOutputLine
)

// Event is one item in the ordered, finite event sequence a
// subscriber receives for an operation. The terminal state-change
// event is always last.
type Event struct {
	OperationID string
	Type        EventType
	Time        time.Time

	// State and Err are set for EventStateChange. Err is non-nil only
	// on StateFailed.
	State OperationState
	Err   error

	// Line is set for EventOutputLine. Step identifies which
	// sub-operation produced it in a multi-step plan.
	Line string
	Step int
}
