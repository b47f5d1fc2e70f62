// Package detect asks a USB-connected device for its codename over
// adb. Detection is best effort: it reports what the tool reports and
// never guesses.
package detect

import (
	"context"
	"strings"

	"github.com/r0man1an/LibreFlash/pkg/errors"
	"github.com/r0man1an/LibreFlash/pkg/logging"
	"github.com/r0man1an/LibreFlash/pkg/types"
)

// Locator resolves the adb binary.
type Locator interface {
	Locate(tool types.Tool) (string, error)
}

// Session is the subset of an execution session detection needs.
type Session interface {
	Wait() types.SessionResult
	Err() error
}

// Engine starts adb invocations.
type Engine interface {
	Start(ctx context.Context, spec types.CommandSpec, deviceID string) (Session, error)
}

// codenameProps are queried in order; the first clean value wins.
// ro.build.product is what LineageOS builds key their artifacts on,
// ro.product.device covers devices that leave it unset.
var codenameProps = []string{"ro.build.product", "ro.product.device"}

// adb prints transport problems on the same stream as getprop output,
// so a "value" matching one of these is a status message, not a
// codename.
var absentMarkers = []string{"error:", "no devices", "device offline", "unauthorized"}

// Detector queries connected devices through the execution engine.
type Detector struct {
	locator Locator
	engine  Engine
}

// New creates a Detector.
func New(l Locator, e Engine) *Detector {
	return &Detector{locator: l, engine: e}
}

// Codename returns the codename of the connected device, or
// DeviceNotFound when no device answers with a usable value.
func (d *Detector) Codename(ctx context.Context) (string, error) {
	logger := logging.GetLogger("detect")

	adb, err := d.locator.Locate(types.ToolAdb)
	if err != nil {
		return "", err
	}

	for _, prop := range codenameProps {
		spec := types.CommandSpec{Argv: []string{adb, "shell", "getprop", prop}}
		session, err := d.engine.Start(ctx, spec, "")
		if err != nil {
			return "", err
		}

		result := session.Wait()
		if session.Err() != nil {
			logger.Debug().Str("prop", prop).Msg("getprop exited non-zero")
			continue
		}

		value := strings.TrimSpace(result.LastLine())
		if value == "" || looksLikeTransportError(value) {
			logger.Debug().Str("prop", prop).Str("value", value).Msg("No usable value")
			continue
		}

		logger.Info().Str("codename", value).Str("prop", prop).Msg("Detected device")
		return value, nil
	}

	return "", errors.New(errors.ErrDeviceNotFound, "no connected device reported a codename")
}

func looksLikeTransportError(value string) bool {
	lower := strings.ToLower(value)
	for _, marker := range absentMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
