// Package doctor checks that the external tools this program drives
// are installed, and tells the user how to get the missing ones.
package doctor

import (
	"github.com/r0man1an/LibreFlash/pkg/types"
)

// Locator resolves binaries the way the flashing core does, so the
// report reflects what an actual flash would find.
type Locator interface {
	Locate(tool types.Tool) (string, error)
	LocateBinary(name, override string) (string, error)
}

// Check is the result for one binary.
type Check struct {
	Name     string
	Path     string
	Found    bool
	Required bool
	// Hint names the usual packages for the binary when it is missing.
	Hint string
}

// Report is the full dependency check.
type Report struct {
	Checks []Check
}

// Ok reports whether every required binary was found.
func (r Report) Ok() bool {
	for _, c := range r.Checks {
		if c.Required && !c.Found {
			return false
		}
	}
	return true
}

// installHints maps binaries to the packages that provide them on
// common distributions.
var installHints = map[string]string{
	"adb":      "android-tools (Arch, Fedora) / adb (Debian, Ubuntu)",
	"fastboot": "android-tools (Arch, Fedora) / fastboot (Debian, Ubuntu)",
	"heimdall": "heimdall (Arch) / heimdall-flash (Debian, Ubuntu)",
	"pkexec":   "polkit (preinstalled on most desktop systems)",
}

// Run resolves every known binary through the locator. adb, fastboot
// and the elevation helper are required; heimdall only matters for
// Samsung download mode and is reported as optional.
func Run(locator Locator, elevationHelper string) Report {
	var report Report

	for _, tool := range types.AllTools() {
		path, err := locator.Locate(tool)
		report.Checks = append(report.Checks, Check{
			Name:     tool.String(),
			Path:     path,
			Found:    err == nil,
			Required: tool != types.ToolHeimdall,
			Hint:     installHints[tool.String()],
		})
	}

	if elevationHelper != "" {
		path, err := locator.LocateBinary(elevationHelper, "")
		report.Checks = append(report.Checks, Check{
			Name:     elevationHelper,
			Path:     path,
			Found:    err == nil,
			Required: true,
			Hint:     installHints[elevationHelper],
		})
	}

	return report
}
