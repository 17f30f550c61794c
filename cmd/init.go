package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kennyg/scribe/internal/ui"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the resource store directories",
	Long: `Create the resource store directory skeleton and the metadata root.

Safe to run repeatedly; existing directories and the manifest are left
untouched.`,
	Run: runInit,
}

func runInit(cmd *cobra.Command, args []string) {
	c, err := newCore()
	if err != nil {
		exitWithError(err.Error())
	}

	if err := c.resolver.EnsureDirectories(); err != nil {
		exitWithError(fmt.Sprintf("failed to create directories: %v", err))
	}

	m, recovered, err := c.store.Load()
	if err != nil {
		exitWithError(err.Error())
	}
	if recovered {
		fmt.Println(ui.Warning.Render("  Manifest was corrupted; the original was kept as manifest.json.bak"))
	}
	if err := c.store.Save(m); err != nil {
		exitWithError(err.Error())
	}

	fmt.Println()
	fmt.Println(ui.Success.Render("  Initialized."))
	fmt.Println(ui.Muted.Render("    resources: " + c.resolver.ResourceRoot()))
	fmt.Println(ui.Muted.Render("    metadata:  " + c.resolver.MetadataRoot()))
	fmt.Println()
}
