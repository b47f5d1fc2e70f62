package main

import (
	"os"

	"github.com/r0man1an/LibreFlash/cmd/libreflash/commands"
)

func main() {
	rootCmd := commands.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
