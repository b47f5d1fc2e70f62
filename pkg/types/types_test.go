package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTool(t *testing.T) {
	for _, name := range []string{"adb", "fastboot", "heimdall"} {
		tool, err := ParseTool(name)
		require.NoError(t, err)
		assert.Equal(t, name, tool.String())
	}

	_, err := ParseTool("odin")
	assert.Error(t, err)
}

func TestOperationKind_Predicates(t *testing.T) {
	tests := []struct {
		kind          OperationKind
		requiresImage bool
		isFlash       bool
		isDestructive bool
	}{
		{FlashRecovery, true, true, false},
		{FlashBoot, true, true, false},
		{FlashVbmeta, true, true, false},
		{SideloadRom, true, true, false},
		{Reboot, false, false, false},
		{BootloaderUnlock, false, false, true},
		{BootloaderLock, false, false, true},
		{BootloaderCheck, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.requiresImage, tt.kind.RequiresImage())
			assert.Equal(t, tt.isFlash, tt.kind.IsFlash())
			assert.Equal(t, tt.isDestructive, tt.kind.IsDestructive())
		})
	}
}

func TestOperationKind_RequiredImageKind(t *testing.T) {
	assert.Equal(t, ImageRecovery, FlashRecovery.RequiredImageKind())
	assert.Equal(t, ImageBoot, FlashBoot.RequiredImageKind())
	assert.Equal(t, ImageVbmeta, FlashVbmeta.RequiredImageKind())
	assert.Equal(t, ImageRomArchive, SideloadRom.RequiredImageKind())
	assert.Equal(t, ImageUnknown, Reboot.RequiredImageKind())
}

func TestNewOperation_AssignsUniqueIDs(t *testing.T) {
	a := NewOperation(Reboot, ToolAdb)
	b := NewOperation(Reboot, ToolAdb)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestDeviceProfile_Supports(t *testing.T) {
	profile := DeviceProfile{
		Codename: "starlte",
		Brand:    "Samsung",
		Model:    "Galaxy S9",
		SupportedTools: map[Tool][]ImageKind{
			ToolHeimdall: {ImageRecovery, ImageVbmeta},
			ToolAdb:      {ImageRomArchive},
		},
	}

	assert.True(t, profile.SupportsTool(ToolHeimdall))
	assert.False(t, profile.SupportsTool(ToolFastboot))
	assert.True(t, profile.SupportsImage(ToolHeimdall, ImageRecovery))
	assert.False(t, profile.SupportsImage(ToolHeimdall, ImageBoot))
	assert.False(t, profile.SupportsImage(ToolFastboot, ImageRecovery))
}

func TestSessionStatus(t *testing.T) {
	assert.True(t, ExitStatus(0).Success())
	assert.False(t, ExitStatus(1).Success())
	assert.False(t, CancelledStatus().Success())
	assert.False(t, CrashedStatus().Success())

	assert.Equal(t, "exit(0)", ExitStatus(0).String())
	assert.Equal(t, "cancelled", CancelledStatus().String())
	assert.Equal(t, "crashed", CrashedStatus().String())
}

func TestSessionResult_LastLine(t *testing.T) {
	assert.Equal(t, "", SessionResult{}.LastLine())
	assert.Equal(t, "OKAY", SessionResult{Lines: []string{"sending...", "OKAY"}}.LastLine())
}

func TestOperationState_Terminal(t *testing.T) {
	assert.False(t, StateCreated.Terminal())
	assert.False(t, StateExecuting.Terminal())
	assert.True(t, StateSucceeded.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateCancelled.Terminal())
}

func TestOperationState_Transitions(t *testing.T) {
	// forward progress is strictly ordered
	assert.True(t, StateCreated.CanTransitionTo(StateValidating))
	assert.True(t, StateValidating.CanTransitionTo(StateBuilding))
	assert.True(t, StateBuilding.CanTransitionTo(StateExecuting))
	assert.True(t, StateExecuting.CanTransitionTo(StateSucceeded))

	// no skipping
	assert.False(t, StateCreated.CanTransitionTo(StateExecuting))
	assert.False(t, StateValidating.CanTransitionTo(StateSucceeded))

	// any non-terminal state may fail or cancel
	assert.True(t, StateValidating.CanTransitionTo(StateFailed))
	assert.True(t, StateExecuting.CanTransitionTo(StateCancelled))

	// terminal states are final
	assert.False(t, StateSucceeded.CanTransitionTo(StateFailed))
	assert.False(t, StateFailed.CanTransitionTo(StateValidating))
	assert.False(t, StateCancelled.CanTransitionTo(StateExecuting))
}
