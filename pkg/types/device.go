package types

// DeviceProfile is one entry from the device target registry: which
// tools a device supports and which image kinds each tool may flash.
// Profiles are owned by the registry and read-only to this core. They
// gate downloads and device-specific conveniences only; flashing
// eligibility is image-kind-driven and works for uncataloged devices.
type DeviceProfile struct {
	Codename string
	Brand    string
	Model    string

	// SupportedTools maps each supported tool to the image kinds it
	// may flash on this device.
	SupportedTools map[Tool][]ImageKind
}

// SupportsTool reports whether the device lists the given tool.
func (p DeviceProfile) SupportsTool(tool Tool) bool {
	_, ok := p.SupportedTools[tool]
	return ok
}

// SupportsImage reports whether the device lists the image kind for
// the given tool.
func (p DeviceProfile) SupportsImage(tool Tool, kind ImageKind) bool {
	for _, k := range p.SupportedTools[tool] {
		if k == kind {
			return true
		}
	}
	return false
}
