package types

// OperationState is one step in the per-operation lifecycle:
// Created → Validating → Building → Executing → terminal.
type OperationState int

const (
	StateCreated OperationState = iota
	StateValidating
	StateBuilding
	StateExecuting
	StateSucceeded
	StateFailed
	StateCancelled
)

var stateNames = map[OperationState]string{
	StateCreated:    "created",
	StateValidating: "validating",
	StateBuilding:   "building",
	StateExecuting:  "executing",
	StateSucceeded:  "succeeded",
	StateFailed:     "failed",
	StateCancelled:  "cancelled",
}

func (s OperationState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the state is final. No operation
// transitions out of a terminal state.
func (s OperationState) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle permits moving from s
// to next. Any non-terminal state may fail or be cancelled; forward
// progress is strictly ordered.
func (s OperationState) CanTransitionTo(next OperationState) bool {
	if s.Terminal() {
		return false
	}
	if next == StateFailed || next == StateCancelled {
		return true
	}
	switch s {
	case StateCreated:
		return next == StateValidating
	case StateValidating:
		return next == StateBuilding
	case StateBuilding:
		return next == StateExecuting
	case StateExecuting:
		return next == StateSucceeded
	}
	return false
}
