package cmd

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kennyg/scribe/internal/resource"
	"github.com/kennyg/scribe/internal/ui"
)

var listCmd = &cobra.Command{
	Use:     "list [type]",
	Aliases: []string{"ls"},
	Short:   "List resources",
	Long: `List installed resources, or the resources available on the remote
with --remote.

Examples:
  scribe list
  scribe list agents
  scribe list tools --remote`,
	Args: cobra.MaximumNArgs(1),
	Run:  runList,
}

var (
	listRemote bool
	listRef    string
)

func init() {
	listCmd.Flags().BoolVar(&listRemote, "remote", false, "List resources available on the remote")
	listCmd.Flags().StringVar(&listRef, "ref", "", "Remote branch or tag (with --remote)")
}

func runList(cmd *cobra.Command, args []string) {
	c, err := newCore()
	if err != nil {
		exitWithError(err.Error())
	}

	types := resource.Types()
	if len(args) == 1 {
		types = []resource.Type{parseTypeArg(args[0])}
	}

	if listRemote {
		listRemoteResources(c, types)
		return
	}

	fmt.Println()
	total := 0
	for _, t := range types {
		resources, err := c.store.ListResources(t)
		if err != nil {
			exitWithError(err.Error())
		}
		if len(resources) == 0 {
			continue
		}
		fmt.Printf("  %s\n", ui.Badge(t))
		for _, r := range resources {
			line := fmt.Sprintf("    %s  %s", ui.Highlight.Render(r.Name), ui.Muted.Render(r.Version))
			if !r.InstalledAt.IsZero() {
				line += ui.Muted.Render("  installed " + humanize.Time(r.InstalledAt))
			}
			fmt.Println(line)
			if desc := r.Metadata["description"]; desc != "" {
				fmt.Println(ui.Muted.Render("      " + desc))
			}
		}
		fmt.Println()
		total += len(resources)
	}

	if total == 0 {
		fmt.Println(ui.Muted.Render("  No resources installed."))
		fmt.Println()
	}
}

func listRemoteResources(c *core, types []resource.Type) {
	ref := listRef
	if ref == "" {
		ref = c.cfg.Remote.Ref
	}

	fmt.Println()
	fmt.Println(ui.Muted.Render("  Remote: " + c.cfg.Remote.Owner + "/" + c.cfg.Remote.Repo + "@" + ref))
	fmt.Println()

	for _, t := range types {
		names, err := c.client.List(context.Background(), t, ref)
		if err != nil {
			exitWithError(err.Error())
		}
		fmt.Printf("  %s\n", ui.Badge(t))
		if len(names) == 0 {
			fmt.Println(ui.Muted.Render("    (none)"))
		}
		for _, n := range names {
			fmt.Println("    " + n)
		}
		fmt.Println()
	}
}
