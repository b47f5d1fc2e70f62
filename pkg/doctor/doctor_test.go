package doctor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r0man1an/LibreFlash/pkg/errors"
	"github.com/r0man1an/LibreFlash/pkg/types"
)

type fakeLocator struct {
	present map[string]string
}

func (l *fakeLocator) Locate(tool types.Tool) (string, error) {
	return l.LocateBinary(tool.String(), "")
}

func (l *fakeLocator) LocateBinary(name, override string) (string, error) {
	if path, ok := l.present[name]; ok {
		return path, nil
	}
	return "", errors.Newf(errors.ErrToolMissing, "%s not found", name)
}

func TestRun_AllPresent(t *testing.T) {
	locator := &fakeLocator{present: map[string]string{
		"adb":      "/usr/bin/adb",
		"fastboot": "/usr/bin/fastboot",
		"heimdall": "/usr/bin/heimdall",
		"pkexec":   "/usr/bin/pkexec",
	}}

	report := Run(locator, "pkexec")
	assert.True(t, report.Ok())
	require.Len(t, report.Checks, 4)
	for _, c := range report.Checks {
		assert.True(t, c.Found, c.Name)
		assert.NotEmpty(t, c.Path, c.Name)
	}
}

func TestRun_MissingHeimdallIsOptional(t *testing.T) {
	locator := &fakeLocator{present: map[string]string{
		"adb":      "/usr/bin/adb",
		"fastboot": "/usr/bin/fastboot",
		"pkexec":   "/usr/bin/pkexec",
	}}

	report := Run(locator, "pkexec")
	assert.True(t, report.Ok(), "heimdall is optional")

	var heimdall Check
	for _, c := range report.Checks {
		if c.Name == "heimdall" {
			heimdall = c
		}
	}
	assert.False(t, heimdall.Found)
	assert.False(t, heimdall.Required)
	assert.Contains(t, heimdall.Hint, "heimdall")
}

func TestRun_MissingFastbootFailsReport(t *testing.T) {
	locator := &fakeLocator{present: map[string]string{
		"adb":    "/usr/bin/adb",
		"pkexec": "/usr/bin/pkexec",
	}}

	report := Run(locator, "pkexec")
	assert.False(t, report.Ok())
}

func TestRun_NoElevationHelperConfigured(t *testing.T) {
	locator := &fakeLocator{present: map[string]string{}}
	report := Run(locator, "")
	assert.Len(t, report.Checks, 3)
}
