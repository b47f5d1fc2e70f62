package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/r0man1an/LibreFlash/pkg/orchestrator"
	"github.com/r0man1an/LibreFlash/pkg/types"
)

func newBootloaderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bootloader",
		Short:   MsgBootloaderShort,
		Long:    MsgBootloaderShort + "\n\n" + MsgBootloaderDanger,
		GroupID: "flashing",
	}

	cmd.AddCommand(newBootloaderStatusCmd())
	cmd.AddCommand(newBootloaderToggleCmd("unlock", types.BootloaderUnlock))
	cmd.AddCommand(newBootloaderToggleCmd("lock", types.BootloaderLock))
	return cmd
}

func newBootloaderStatusCmd() *cobra.Command {
	var device string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether the bootloader is unlocked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			op := types.NewOperation(types.BootloaderCheck, types.ToolFastboot)
			op.DeviceID = device
			return runPlan(a, orchestrator.NewPlan(op))
		},
	}

	cmd.Flags().StringVarP(&device, "device", "d", "", MsgFlagDevice)
	return cmd
}

func newBootloaderToggleCmd(verb string, kind types.OperationKind) *cobra.Command {
	var (
		device string
		ack    bool
	)

	cmd := &cobra.Command{
		Use:   verb,
		Short: verb + " the bootloader (wipes all user data)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !ack {
				pterm.Warning.Println(MsgBootloaderDanger)
				pterm.Println("Re-run with --yes-i-know to proceed.")
				return nil
			}

			a, err := newApp()
			if err != nil {
				return err
			}

			op := types.NewOperation(kind, types.ToolFastboot)
			op.DeviceID = device
			op.DestructiveAck = true
			return runPlan(a, orchestrator.NewPlan(op))
		},
	}

	cmd.Flags().StringVarP(&device, "device", "d", "", MsgFlagDevice)
	cmd.Flags().BoolVar(&ack, "yes-i-know", false, "Acknowledge that this wipes all user data")
	return cmd
}
