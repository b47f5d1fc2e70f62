package commands

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/r0man1an/LibreFlash/pkg/errors"
)

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "detect",
		Short:   MsgDetectShort,
		GroupID: "support",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			codename, err := a.detector.Codename(context.Background())
			if err != nil {
				printError(err)
				return err
			}

			profile, lookupErr := a.registry.Lookup(codename)
			if lookupErr != nil {
				if !errors.IsErrorCode(lookupErr, errors.ErrDeviceNotFound) {
					return lookupErr
				}
				pterm.Success.Println("Detected:", codename, "(not in the catalog; flashing still works)")
				return nil
			}

			pterm.Success.Println("Detected:", profile.Brand, profile.Model, "("+codename+")")
			return nil
		},
	}
}
