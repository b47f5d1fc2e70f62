package types

// CommandSpec is a concrete external-process invocation produced by
// the command builder. Argv[0] is the absolute tool path.
type CommandSpec struct {
	Argv []string

	// RequiresElevation tells the execution engine to wrap the command
	// through the privilege-escalation helper instead of running it
	// directly.
	RequiresElevation bool
}

// Command returns the program to run.
func (s CommandSpec) Command() string {
	if len(s.Argv) == 0 {
		return ""
	}
	return s.Argv[0]
}

// Args returns the arguments after the program name.
func (s CommandSpec) Args() []string {
	if len(s.Argv) <= 1 {
		return nil
	}
	return s.Argv[1:]
}
