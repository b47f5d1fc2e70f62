package types

import "fmt"

// Tool identifies one of the external flashing tools this core
// orchestrates. The string form is the binary name.
type Tool string

const (
	ToolAdb      Tool = "adb"
	ToolFastboot Tool = "fastboot"
	ToolHeimdall Tool = "heimdall"
)

// AllTools lists every tool in a stable order.
func AllTools() []Tool {
	return []Tool{ToolAdb, ToolFastboot, ToolHeimdall}
}

// ParseTool converts a user-supplied tool name into a Tool.
func ParseTool(s string) (Tool, error) {
	switch Tool(s) {
	case ToolAdb, ToolFastboot, ToolHeimdall:
		return Tool(s), nil
	}
	return "", fmt.Errorf("unknown tool %q", s)
}

// String returns the binary name of the tool.
func (t Tool) String() string {
	return string(t)
}
