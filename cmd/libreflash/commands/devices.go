package commands

import (
	"sort"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/r0man1an/LibreFlash/pkg/types"
)

func newDevicesCmd() *cobra.Command {
	var brand string

	cmd := &cobra.Command{
		Use:     "devices",
		Short:   MsgDevicesShort,
		GroupID: "support",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			rows := pterm.TableData{{"BRAND", "MODEL", "CODENAME", "TOOLS"}}
			for _, profile := range a.registry.All() {
				if brand != "" && !strings.EqualFold(profile.Brand, brand) {
					continue
				}
				rows = append(rows, []string{
					profile.Brand,
					profile.Model,
					profile.Codename,
					toolList(profile),
				})
			}

			if len(rows) == 1 {
				pterm.Info.Println("No cataloged devices match. Uncataloged devices can still be flashed.")
				return nil
			}
			return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
		},
	}

	cmd.Flags().StringVar(&brand, "brand", "", "Only list devices of this brand")
	return cmd
}

func toolList(profile types.DeviceProfile) string {
	var tools []string
	for tool := range profile.SupportedTools {
		tools = append(tools, tool.String())
	}
	sort.Strings(tools)
	return strings.Join(tools, ", ")
}
