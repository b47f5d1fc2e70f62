// Package gate decides whether an operation may proceed to execution.
// It sits between user intent and the command builder: every denial
// happens here, before any process starts, so a denied operation never
// touches hardware.
//
// The device catalog never gates flashing eligibility. A nil profile
// (device not detected or not cataloged) only tightens nothing: the
// image kind must match the operation's generic requirement, and that
// is all. Profiles gate the tool choice for cataloged devices and
// device-specific conveniences elsewhere.
package gate

import (
	"github.com/r0man1an/LibreFlash/pkg/errors"
	"github.com/r0man1an/LibreFlash/pkg/logging"
	"github.com/r0man1an/LibreFlash/pkg/types"
)

// ToolChecker reports whether a tool binary can currently be resolved.
// *locate.Locator satisfies it.
type ToolChecker interface {
	Available(tool types.Tool) bool
}

// Gate validates operations against classification, tool availability
// and (when known) the device profile.
type Gate struct {
	tools ToolChecker
}

// New creates a Gate backed by the given tool checker.
func New(tools ToolChecker) *Gate {
	return &Gate{tools: tools}
}

// Check returns nil when the operation may proceed, or a structured
// deny error naming the first failed rule. profile is nil when the
// device is unknown or uncataloged.
func (g *Gate) Check(op types.Operation, classification types.ImageClassification, profile *types.DeviceProfile) error {
	logger := logging.GetLogger("gate")

	if op.Kind.IsDestructive() && !op.DestructiveAck {
		return errors.Newf(errors.ErrDestructiveWithoutAck,
			"%s requires an explicit acknowledgment", op.Kind)
	}

	if profile != nil && !profile.SupportsTool(op.Tool) {
		return errors.Newf(errors.ErrToolUnsupportedByDevice,
			"%s (%s %s) does not support %s", profile.Codename, profile.Brand, profile.Model, op.Tool)
	}

	// Cataloged devices also list which image kinds each tool may
	// flash; a Pixel-style device has no recovery partition to write.
	if profile != nil && op.Kind.RequiresImage() {
		required := op.Kind.RequiredImageKind()
		if !profile.SupportsImage(op.Tool, required) {
			return errors.Newf(errors.ErrToolUnsupportedByDevice,
				"%s does not flash %s images on %s", op.Tool, required, profile.Codename)
		}
	}

	if !g.tools.Available(op.Tool) {
		return errors.Newf(errors.ErrToolMissing, "%s is not installed", op.Tool)
	}

	if op.Kind.RequiresImage() {
		required := op.Kind.RequiredImageKind()
		if classification.Kind != required {
			return errors.Newf(errors.ErrImageKindMismatch,
				"%s requires a %s image, got %s", op.Kind, required, classification.Kind)
		}
	}

	logger.Debug().
		Str("operation", op.Kind.String()).
		Str("tool", op.Tool.String()).
		Bool("cataloged", profile != nil).
		Msg("Operation allowed")
	return nil
}
