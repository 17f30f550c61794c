package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kennyg/scribe/internal/installer"
	"github.com/kennyg/scribe/internal/remote"
	"github.com/kennyg/scribe/internal/resource"
	"github.com/kennyg/scribe/internal/ui"
)

var updateCmd = &cobra.Command{
	Use:     "update [type] [name]",
	Aliases: []string{"sync"},
	Short:   "Update installed resources",
	Long: `Check installed resources against the remote and reinstall the ones
whose content changed upstream. With no arguments every installed
resource is checked.

Examples:
  scribe update
  scribe update agents zen
  scribe update --ref v2.0.0`,
	Args: cobra.RangeArgs(0, 2),
	Run:  runUpdate,
}

var updateRef string

func init() {
	updateCmd.Flags().StringVar(&updateRef, "ref", "", "Remote branch or tag (default: latest release, then configured ref)")
}

func runUpdate(cmd *cobra.Command, args []string) {
	if len(args) == 1 {
		exitWithError("update takes no arguments or both <type> and <name>")
	}

	c, err := newCore()
	if err != nil {
		exitWithError(err.Error())
	}

	ctx := context.Background()

	var targets []resource.Resource
	if len(args) == 2 {
		t := parseTypeArg(args[0])
		res, err := c.store.GetResource(t, args[1])
		if err != nil {
			exitWithError(err.Error())
		}
		if res == nil {
			exitWithError(fmt.Sprintf("%s/%s is not installed", t, args[1]))
		}
		targets = []resource.Resource{*res}
	} else {
		targets, err = c.store.ListAll()
		if err != nil {
			exitWithError(err.Error())
		}
	}

	if len(targets) == 0 {
		fmt.Println()
		fmt.Println(ui.Muted.Render("  Nothing installed. Nothing to update."))
		fmt.Println()
		return
	}

	ref := c.resolveUpdateRef(ctx)

	fmt.Println()
	fmt.Println(ui.Title.Render("  Checking for updates..."))
	fmt.Println(ui.Muted.Render("    ref: " + ref))
	fmt.Println()

	var updated, unchanged, failed int
	for _, res := range targets {
		fmt.Printf("  %s %s ", ui.Badge(res.Type), ui.Highlight.Render(res.Name))

		result, err := c.client.Fetch(ctx, res.Type, res.Name, ref)
		if err != nil {
			fmt.Println(ui.Warning.Render("⚠ fetch failed"))
			c.logger.Debug("update fetch failed", "type", res.Type, "name", res.Name, "cause", err)
			failed++
			continue
		}
		if !result.Found {
			fmt.Println(ui.Warning.Render("⚠ gone from remote"))
			failed++
			continue
		}

		id := remoteID(result)
		needs, err := c.store.NeedsUpdate(res.Type, res.Name, id)
		if err != nil {
			fmt.Println(ui.Warning.Render("⚠ " + err.Error()))
			failed++
			continue
		}
		if !needs {
			fmt.Println(ui.Muted.Render("✓ up to date"))
			unchanged++
			continue
		}

		opts := installer.Options{
			Content:  result.Content,
			RemoteID: id,
			Ref:      ref,
			Source:   "remote",
		}
		if strings.HasSuffix(result.Name, ".md") {
			fm, _ := remote.ParseFrontmatter(result.Content)
			opts.Version = fm.Version
			opts.Metadata = remote.MetadataFrom(fm)
		}

		if !c.installer.Install(res.Type, res.Name, opts) {
			fmt.Println(ui.Error.Render("✗ install failed"))
			failed++
			continue
		}
		fmt.Println(ui.Success.Render("↑ updated"))
		updated++
	}

	fmt.Println()
	fmt.Println(ui.Muted.Render(fmt.Sprintf("  %d updated, %d unchanged, %d failed", updated, unchanged, failed)))
	fmt.Println()
}

// resolveUpdateRef picks the ref to check against: the --ref flag, then
// the latest published release, then the configured default branch.
func (c *core) resolveUpdateRef(ctx context.Context) string {
	if updateRef != "" {
		return updateRef
	}
	tag, ok, err := c.client.LatestRelease(ctx)
	if err != nil {
		c.logger.Debug("latest release lookup failed", "cause", err)
	}
	if ok {
		return tag
	}
	return c.cfg.Remote.Ref
}
