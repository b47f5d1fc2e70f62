package types

import (
	"github.com/google/uuid"
)

// OperationKind enumerates the units of work the orchestrator accepts.
type OperationKind int

const (
	FlashRecovery OperationKind = iota
	FlashBoot
	FlashVbmeta
	SideloadRom
	Reboot
	BootloaderUnlock
	BootloaderLock
	BootloaderCheck
)

var operationKindNames = map[OperationKind]string{
	FlashRecovery:    "flash-recovery",
	FlashBoot:        "flash-boot",
	FlashVbmeta:      "flash-vbmeta",
	SideloadRom:      "sideload-rom",
	Reboot:           "reboot",
	BootloaderUnlock: "bootloader-unlock",
	BootloaderLock:   "bootloader-lock",
	BootloaderCheck:  "bootloader-check",
}

// String returns the kebab-case name of the kind.
func (k OperationKind) String() string {
	if name, ok := operationKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// RequiresImage reports whether operations of this kind need an input file.
func (k OperationKind) RequiresImage() bool {
	switch k {
	case FlashRecovery, FlashBoot, FlashVbmeta, SideloadRom:
		return true
	}
	return false
}

// IsFlash reports whether this kind writes an image to the device.
// Cancelling one of these mid-run leaves the device in an undefined
// state, which the engine must report as such.
func (k OperationKind) IsFlash() bool {
	switch k {
	case FlashRecovery, FlashBoot, FlashVbmeta, SideloadRom:
		return true
	}
	return false
}

// IsDestructive reports whether this kind requires an explicit user
// acknowledgment before it may run. Bootloader unlock typically wipes
// user data.
func (k OperationKind) IsDestructive() bool {
	return k == BootloaderUnlock || k == BootloaderLock
}

// RequiredImageKind returns the image kind an operation of this kind
// accepts, or ImageUnknown when no image is involved.
func (k OperationKind) RequiredImageKind() ImageKind {
	switch k {
	case FlashRecovery:
		return ImageRecovery
	case FlashBoot:
		return ImageBoot
	case FlashVbmeta:
		return ImageVbmeta
	case SideloadRom:
		return ImageRomArchive
	}
	return ImageUnknown
}

// RebootTarget names the mode a reboot operation should land in.
type RebootTarget string

const (
	RebootSystem     RebootTarget = "system"
	RebootRecovery   RebootTarget = "recovery"
	RebootBootloader RebootTarget = "bootloader"
	RebootDownload   RebootTarget = "download"
)

// Operation is one requested unit of work. It is created from a user
// action and must not be mutated once submitted for execution.
type Operation struct {
	ID        string
	Kind      OperationKind
	Tool      Tool
	DeviceID  string // empty until/unless a device has been detected
	ImagePath string // required for flash/sideload kinds

	// RebootTarget applies to Reboot operations only.
	RebootTarget RebootTarget

	// DestructiveAck carries the user's explicit acknowledgment for
	// destructive kinds. Its absence on those kinds is a deny, not a
	// silent default.
	DestructiveAck bool
}

// NewOperation creates an Operation with a fresh id.
func NewOperation(kind OperationKind, tool Tool) Operation {
	return Operation{
		ID:   uuid.NewString(),
		Kind: kind,
		Tool: tool,
	}
}
