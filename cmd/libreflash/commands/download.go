package commands

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/r0man1an/LibreFlash/pkg/download"
)

func newDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "download",
		Short:   MsgDownloadShort,
		Long:    MsgDownloadLong,
		GroupID: "support",
	}

	cmd.AddCommand(newDownloadArtifactCmd("rom", "the newest nightly ROM (archive fallback)",
		func(ctx context.Context, c *download.Client, device string) (download.Artifact, error) {
			return c.LatestRom(ctx, device)
		}))
	cmd.AddCommand(newDownloadArtifactCmd("recovery", "the newest recovery image (boot.img fallback)",
		func(ctx context.Context, c *download.Client, device string) (download.Artifact, error) {
			return c.LatestRecoveryOrBoot(ctx, device, false)
		}))
	cmd.AddCommand(newDownloadArtifactCmd("boot", "the newest boot image",
		func(ctx context.Context, c *download.Client, device string) (download.Artifact, error) {
			return c.LatestArtifact(ctx, device, "boot.img")
		}))
	cmd.AddCommand(newDownloadArtifactCmd("vbmeta", "the newest vbmeta image",
		func(ctx context.Context, c *download.Client, device string) (download.Artifact, error) {
			return c.LatestArtifact(ctx, device, "vbmeta.img")
		}))
	cmd.AddCommand(newDownloadMagiskCmd())
	return cmd
}

type resolveFunc func(ctx context.Context, c *download.Client, device string) (download.Artifact, error)

func newDownloadArtifactCmd(name, what string, resolve resolveFunc) *cobra.Command {
	var (
		device string
		dest   string
	)

	cmd := &cobra.Command{
		Use:   name,
		Short: "Download " + what,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			codename := device
			if codename == "" {
				codename, err = a.detector.Codename(ctx)
				if err != nil {
					printError(err)
					return err
				}
				pterm.Info.Println("Using detected device:", codename)
			}

			client := a.downloads()
			artifact, err := resolve(ctx, client, codename)
			if err != nil {
				printError(err)
				return err
			}

			return fetchArtifact(ctx, client, artifact, destPath(a, dest, codename, artifact))
		},
	}

	cmd.Flags().StringVarP(&device, "device", "d", "", MsgFlagDevice)
	cmd.Flags().StringVarP(&dest, "dest", "o", "", "Destination file (default: the download directory)")
	return cmd
}

func newDownloadMagiskCmd() *cobra.Command {
	var dest string

	cmd := &cobra.Command{
		Use:   "magisk",
		Short: "Download the latest Magisk APK",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			client := a.downloads()
			artifact, err := client.LatestMagisk(ctx)
			if err != nil {
				printError(err)
				return err
			}

			return fetchArtifact(ctx, client, artifact, destPath(a, dest, "", artifact))
		},
	}

	cmd.Flags().StringVarP(&dest, "dest", "o", "", "Destination file (default: the download directory)")
	return cmd
}

func destPath(a *app, dest, codename string, artifact download.Artifact) string {
	if dest != "" {
		return dest
	}
	if codename != "" {
		return filepath.Join(a.cfg.DownloadDir(), codename, artifact.Filename)
	}
	return filepath.Join(a.cfg.DownloadDir(), artifact.Filename)
}

func fetchArtifact(ctx context.Context, client *download.Client, artifact download.Artifact, dest string) error {
	pterm.Info.Println("Resolved", artifact.String())

	var bar *progressbar.ProgressBar
	err := client.Fetch(ctx, artifact.URL, dest, func(done, total int64) {
		if bar == nil {
			bar = progressbar.DefaultBytes(total, artifact.Filename)
		}
		_ = bar.Set64(done)
	})
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		printError(err)
		return err
	}

	pterm.Success.Println("Saved to", dest)
	return nil
}
