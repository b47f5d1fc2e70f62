package types

import "fmt"

// SessionOutcome is the coarse terminal outcome of an execution session.
type SessionOutcome int

const (
	OutcomeExited SessionOutcome = iota
	OutcomeCancelled
	OutcomeCrashed
)

// SessionStatus is the terminal status of one child process, delivered
// exactly once, after the last output line.
type SessionStatus struct {
	Outcome  SessionOutcome
	ExitCode int // meaningful only when Outcome == OutcomeExited
}

// ExitStatus builds a status for a process that exited normally.
func ExitStatus(code int) SessionStatus {
	return SessionStatus{Outcome: OutcomeExited, ExitCode: code}
}

// CancelledStatus builds a status for a cancelled session.
func CancelledStatus() SessionStatus {
	return SessionStatus{Outcome: OutcomeCancelled}
}

// CrashedStatus builds a status for a process terminated abnormally,
// e.g. by a signal.
func CrashedStatus() SessionStatus {
	return SessionStatus{Outcome: OutcomeCrashed}
}

// Success reports whether the session ended with exit code 0.
func (s SessionStatus) Success() bool {
	return s.Outcome == OutcomeExited && s.ExitCode == 0
}

// String renders the status for logs and user output.
func (s SessionStatus) String() string {
	switch s.Outcome {
	case OutcomeExited:
		return fmt.Sprintf("exit(%d)", s.ExitCode)
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeCrashed:
		return "crashed"
	}
	return "unknown"
}

// SessionResult is the complete record of a finished session: the
// terminal status plus every output line the process produced, in
// writer order.
type SessionResult struct {
	Status SessionStatus
	Lines  []string
}

// LastLine returns the final output line, or "" when the process wrote
// nothing. Tools like fastboot put their verdict on the last line.
func (r SessionResult) LastLine() string {
	if len(r.Lines) == 0 {
		return ""
	}
	return r.Lines[len(r.Lines)-1]
}
