// Package command maps a validated operation to a concrete external
// process invocation. The mapping is an explicit rule table over the
// (tool, operation kind) pair; a missing rule is an
// UNSUPPORTED_COMBINATION fault, which means this table and the safety
// gate have drifted apart — a bug here, not a user error.
package command

import (
	"github.com/r0man1an/LibreFlash/pkg/errors"
	"github.com/r0man1an/LibreFlash/pkg/logging"
	"github.com/r0man1an/LibreFlash/pkg/types"
)

type ruleKey struct {
	tool types.Tool
	kind types.OperationKind
}

type rule func(op types.Operation, toolPath string) (types.CommandSpec, error)

// Fastboot talks to the device over raw USB and needs elevated
// device-node access on stock Linux udev setups; the original desktop
// app ran every fastboot call through pkexec. Heimdall has the same
// constraint. adb goes through its own server and runs unprivileged.
var rules = map[ruleKey]rule{
	{types.ToolFastboot, types.FlashRecovery}: flashRule("recovery"),
	{types.ToolFastboot, types.FlashBoot}:     flashRule("boot"),
	{types.ToolFastboot, types.FlashVbmeta}:   flashRule("vbmeta"),

	{types.ToolHeimdall, types.FlashRecovery}: heimdallFlashRule("--RECOVERY"),
	{types.ToolHeimdall, types.FlashVbmeta}:   heimdallFlashRule("--VBMETA"),

	{types.ToolAdb, types.SideloadRom}: func(op types.Operation, toolPath string) (types.CommandSpec, error) {
		return types.CommandSpec{Argv: []string{toolPath, "sideload", op.ImagePath}}, nil
	},

	{types.ToolAdb, types.Reboot}:      adbReboot,
	{types.ToolFastboot, types.Reboot}: fastbootReboot,

	{types.ToolFastboot, types.BootloaderUnlock}: func(op types.Operation, toolPath string) (types.CommandSpec, error) {
		return types.CommandSpec{Argv: []string{toolPath, "flashing", "unlock"}, RequiresElevation: true}, nil
	},
	{types.ToolFastboot, types.BootloaderLock}: func(op types.Operation, toolPath string) (types.CommandSpec, error) {
		return types.CommandSpec{Argv: []string{toolPath, "flashing", "lock"}, RequiresElevation: true}, nil
	},
	{types.ToolFastboot, types.BootloaderCheck}: func(op types.Operation, toolPath string) (types.CommandSpec, error) {
		return types.CommandSpec{Argv: []string{toolPath, "getvar", "unlocked"}, RequiresElevation: true}, nil
	},
}

// Build produces the invocation for an operation. toolPath is the
// absolute binary path resolved by the locator.
func Build(op types.Operation, toolPath string) (types.CommandSpec, error) {
	r, ok := rules[ruleKey{op.Tool, op.Kind}]
	if !ok {
		return types.CommandSpec{}, unsupported(op)
	}

	spec, err := r(op, toolPath)
	if err != nil {
		return types.CommandSpec{}, err
	}

	logger := logging.GetLogger("command")
	logger.Debug().
		Strs("argv", spec.Argv).
		Bool("elevated", spec.RequiresElevation).
		Msg("Command built")
	return spec, nil
}

// Supported reports whether a rule exists for the pair. The safety
// gate and CLI use it to keep their tables honest.
func Supported(tool types.Tool, kind types.OperationKind) bool {
	_, ok := rules[ruleKey{tool, kind}]
	return ok
}

func flashRule(partition string) rule {
	return func(op types.Operation, toolPath string) (types.CommandSpec, error) {
		return types.CommandSpec{
			Argv:              []string{toolPath, "flash", partition, op.ImagePath},
			RequiresElevation: true,
		}, nil
	}
}

func heimdallFlashRule(partitionFlag string) rule {
	return func(op types.Operation, toolPath string) (types.CommandSpec, error) {
		return types.CommandSpec{
			Argv:              []string{toolPath, "flash", partitionFlag, op.ImagePath, "--no-reboot"},
			RequiresElevation: true,
		}, nil
	}
}

func adbReboot(op types.Operation, toolPath string) (types.CommandSpec, error) {
	argv := []string{toolPath, "reboot"}
	switch op.RebootTarget {
	case types.RebootSystem, "":
		// plain "adb reboot" boots the system
	case types.RebootRecovery, types.RebootBootloader, types.RebootDownload:
		argv = append(argv, string(op.RebootTarget))
	default:
		return types.CommandSpec{}, unsupported(op)
	}
	return types.CommandSpec{Argv: argv}, nil
}

func fastbootReboot(op types.Operation, toolPath string) (types.CommandSpec, error) {
	argv := []string{toolPath, "reboot"}
	switch op.RebootTarget {
	case types.RebootSystem, "":
	case types.RebootRecovery, types.RebootBootloader:
		argv = append(argv, string(op.RebootTarget))
	default:
		// fastboot cannot reboot into Samsung download mode
		return types.CommandSpec{}, unsupported(op)
	}
	return types.CommandSpec{Argv: argv, RequiresElevation: true}, nil
}

func unsupported(op types.Operation) error {
	err := errors.Newf(errors.ErrUnsupportedCombination,
		"no rule for %s with %s", op.Kind, op.Tool).
		WithDetail("tool", op.Tool.String()).
		WithDetail("kind", op.Kind.String())
	// Surfaced distinctly from user-facing errors: if the gate allowed
	// the operation, this table is out of sync with it.
	logger := logging.GetLogger("command")
	logger.Error().
		Str("tool", op.Tool.String()).
		Str("kind", op.Kind.String()).
		Msg("Rule table has no entry for an operation that passed the gate")
	return err
}
