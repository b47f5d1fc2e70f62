package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/r0man1an/LibreFlash/pkg/command"
	"github.com/r0man1an/LibreFlash/pkg/orchestrator"
	"github.com/r0man1an/LibreFlash/pkg/types"
)

func newFlashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "flash",
		Short:   MsgFlashShort,
		Long:    MsgFlashLong,
		GroupID: "flashing",
	}

	cmd.AddCommand(newFlashPartitionCmd("recovery", types.FlashRecovery))
	cmd.AddCommand(newFlashPartitionCmd("boot", types.FlashBoot))
	cmd.AddCommand(newFlashPartitionCmd("vbmeta", types.FlashVbmeta))
	return cmd
}

func newFlashPartitionCmd(partition string, kind types.OperationKind) *cobra.Command {
	var (
		toolName  string
		device    string
		bootAfter bool
	)

	cmd := &cobra.Command{
		Use:   fmt.Sprintf("%s <image>", partition),
		Short: fmt.Sprintf("Flash a %s image", partition),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tool, err := types.ParseTool(toolName)
			if err != nil {
				return err
			}
			if !command.Supported(tool, kind) {
				return fmt.Errorf("%s cannot flash the %s partition", tool, partition)
			}

			a, err := newApp()
			if err != nil {
				return err
			}

			op := types.NewOperation(kind, tool)
			op.ImagePath = args[0]
			op.DeviceID = device

			var plan orchestrator.Plan
			if kind == types.FlashRecovery {
				plan = orchestrator.FlashRecoveryPlan(op, bootAfter)
			} else {
				plan = orchestrator.NewPlan(op)
			}
			return runPlan(a, plan)
		},
	}

	cmd.Flags().StringVar(&toolName, "tool", "fastboot", "Flashing tool (fastboot or heimdall)")
	cmd.Flags().StringVarP(&device, "device", "d", "", MsgFlagDevice)
	if kind == types.FlashRecovery {
		cmd.Flags().BoolVar(&bootAfter, "boot-after", false, "Reboot into the flashed recovery afterwards (fastboot only)")
	}
	return cmd
}
