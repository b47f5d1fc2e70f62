package commands

import (
	"github.com/spf13/cobra"

	"github.com/r0man1an/LibreFlash/pkg/orchestrator"
	"github.com/r0man1an/LibreFlash/pkg/types"
)

func newSideloadCmd() *cobra.Command {
	var device string

	cmd := &cobra.Command{
		Use:     "sideload <rom.zip>",
		Short:   MsgSideloadShort,
		Long:    MsgSideloadLong,
		GroupID: "flashing",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			op := types.NewOperation(types.SideloadRom, types.ToolAdb)
			op.ImagePath = args[0]
			op.DeviceID = device
			return runPlan(a, orchestrator.NewPlan(op))
		},
	}

	cmd.Flags().StringVarP(&device, "device", "d", "", MsgFlagDevice)
	return cmd
}
