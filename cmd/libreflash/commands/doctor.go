package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/r0man1an/LibreFlash/pkg/doctor"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "doctor",
		Short:   MsgDoctorShort,
		GroupID: "support",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			report := doctor.Run(a.locator, a.cfg.ElevationHelper())
			for _, check := range report.Checks {
				switch {
				case check.Found:
					pterm.Success.Println(check.Name, "→", check.Path)
				case check.Required:
					pterm.Error.Println(check.Name, "is missing. Install:", check.Hint)
				default:
					pterm.Warning.Println(check.Name, "is missing (only needed for Samsung download mode). Install:", check.Hint)
				}
			}

			if !report.Ok() {
				return fmt.Errorf("required tools are missing")
			}
			pterm.Success.Println("All required tools are available")
			return nil
		},
	}
}
