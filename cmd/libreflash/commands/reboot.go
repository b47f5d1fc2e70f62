package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/r0man1an/LibreFlash/pkg/orchestrator"
	"github.com/r0man1an/LibreFlash/pkg/types"
)

func newRebootCmd() *cobra.Command {
	var (
		device       string
		viaFastboot  bool
		validTargets = []string{"system", "recovery", "bootloader", "download"}
	)

	cmd := &cobra.Command{
		Use:       "reboot [system|recovery|bootloader|download]",
		Short:     MsgRebootShort,
		GroupID:   "flashing",
		ValidArgs: validTargets,
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := types.RebootSystem
			if len(args) == 1 {
				target = types.RebootTarget(args[0])
			}

			tool := types.ToolAdb
			if viaFastboot {
				tool = types.ToolFastboot
				if target == types.RebootDownload {
					return fmt.Errorf("fastboot cannot reboot into download mode; use adb")
				}
			}

			a, err := newApp()
			if err != nil {
				return err
			}

			op := types.NewOperation(types.Reboot, tool)
			op.DeviceID = device
			op.RebootTarget = target
			return runPlan(a, orchestrator.NewPlan(op))
		},
	}

	cmd.Flags().StringVarP(&device, "device", "d", "", MsgFlagDevice)
	cmd.Flags().BoolVar(&viaFastboot, "fastboot", false, "Reboot via fastboot instead of adb (device already in bootloader)")
	return cmd
}
