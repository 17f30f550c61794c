package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kennyg/scribe/internal/ui"
)

var removeCmd = &cobra.Command{
	Use:     "remove <type> <name>",
	Aliases: []string{"rm", "uninstall"},
	Short:   "Remove an installed resource",
	Long: `Remove a resource file and its manifest entry.

Examples:
  scribe remove agents zen
  scribe rm commands deploy`,
	Args: cobra.ExactArgs(2),
	Run:  runRemove,
}

func runRemove(cmd *cobra.Command, args []string) {
	t := parseTypeArg(args[0])
	name := args[1]

	c, err := newCore()
	if err != nil {
		exitWithError(err.Error())
	}

	res, err := c.store.GetResource(t, name)
	if err != nil {
		exitWithError(err.Error())
	}
	if res == nil {
		exitWithError(fmt.Sprintf("%s/%s is not installed", t, name))
	}

	fmt.Println()
	fmt.Printf("  %s %s\n", ui.Badge(t), ui.Highlight.Render(name))
	fmt.Println(ui.Muted.Render("    " + res.Path))

	if !c.installer.Remove(t, name) {
		exitWithError(fmt.Sprintf("failed to remove %s/%s", t, name))
	}

	fmt.Println(ui.Success.Render("  Removed."))
	fmt.Println()
}
