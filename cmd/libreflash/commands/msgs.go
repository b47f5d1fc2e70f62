package commands

// User-facing command descriptions, collected in one place so the
// command constructors stay readable.
const (
	MsgRootShort = "Flash recoveries, ROMs and boot images on Android devices"
	MsgRootLong  = `libreflash orchestrates adb, fastboot and heimdall to flash custom
recoveries, sideload ROMs and manage the bootloader, with safety checks
before anything touches the device.

Flashing writes to the device. Make sure you picked the right image for
the right device; libreflash verifies what it can, but it cannot verify
intent.`

	MsgFlagVerbose = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagDevice  = "Device codename or serial (default: the only connected device)"

	MsgFlashShort = "Flash an image to a device partition"
	MsgFlashLong  = `Flash an image over fastboot or heimdall. The image is classified
before flashing and refused when it does not look like the kind of
image the target partition expects.`

	MsgSideloadShort = "Sideload a ROM zip over adb"
	MsgSideloadLong  = `Push a ROM zip to a device waiting in recovery sideload mode.
The zip is checked for ROM markers before the transfer starts.`

	MsgRebootShort = "Reboot the device into system, recovery, bootloader or download"

	MsgBootloaderShort  = "Inspect or change the bootloader lock state"
	MsgBootloaderDanger = `Unlocking or re-locking the bootloader WIPES ALL USER DATA on
virtually every device. There is no undo.`

	MsgDevicesShort = "List cataloged devices"
	MsgDetectShort  = "Detect the connected device's codename over adb"

	MsgDownloadShort = "Download LineageOS builds, images and Magisk"
	MsgDownloadLong  = `Resolve and download the newest artifact for a device: the nightly
ROM (with a fallback to the community archive for retired devices),
recovery/boot/vbmeta images from the mirror network, or the latest
Magisk APK.`

	MsgDoctorShort = "Check that adb, fastboot, heimdall and pkexec are installed"
)
