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

var installCmd = &cobra.Command{
	Use:     "install <type> <name>",
	Aliases: []string{"add", "get"},
	Short:   "Install a resource",
	Long: `Install a resource from the remote repository, or from a local file
with --file.

Types: agents, tools, commands, mcp-servers

Examples:
  scribe install agents zen
  scribe install tools helper --ref v2.1.0
  scribe install commands deploy --file ./deploy.md`,
	Args: cobra.ExactArgs(2),
	Run:  runInstall,
}

var (
	installRef  string
	installFile string
)

func init() {
	installCmd.Flags().StringVar(&installRef, "ref", "", "Remote branch or tag (default: configured ref)")
	installCmd.Flags().StringVar(&installFile, "file", "", "Install from a local file instead of the remote")
}

func runInstall(cmd *cobra.Command, args []string) {
	t := parseTypeArg(args[0])
	name := args[1]

	c, err := newCore()
	if err != nil {
		exitWithError(err.Error())
	}
	if err := c.resolver.EnsureDirectories(); err != nil {
		exitWithError(fmt.Sprintf("failed to create directories: %v", err))
	}

	fmt.Println()
	fmt.Printf("  %s %s\n", ui.Badge(t), ui.Highlight.Render(name))

	if installFile != "" {
		if !c.installer.Install(t, name, installer.Options{
			SourcePath: installFile,
			Source:     "local",
		}) {
			exitWithError(fmt.Sprintf("failed to install %s/%s", t, name))
		}
		fmt.Println(ui.Success.Render("  Installed from " + installFile))
		fmt.Println()
		return
	}

	ref := installRef
	if ref == "" {
		ref = c.cfg.Remote.Ref
	}

	fmt.Println(ui.Muted.Render("    Fetching from " + c.cfg.Remote.Owner + "/" + c.cfg.Remote.Repo + "@" + ref))

	result, err := c.client.Fetch(context.Background(), t, name, ref)
	if err != nil {
		exitWithError(fmt.Sprintf("fetch failed: %v", err))
	}
	if !result.Found {
		exitWithError(fmt.Sprintf("%s/%s not found on the remote", t, name))
	}

	opts := installer.Options{
		Content:  result.Content,
		RemoteID: remoteID(result),
		Ref:      ref,
		Source:   "remote",
	}
	if strings.HasSuffix(result.Name, ".md") {
		fm, _ := remote.ParseFrontmatter(result.Content)
		opts.Version = fm.Version
		opts.Metadata = remote.MetadataFrom(fm)
	}

	if !c.installer.Install(t, installName(t, name, result.Name), opts) {
		exitWithError(fmt.Sprintf("failed to install %s/%s", t, name))
	}

	fmt.Println(ui.Success.Render("  Installed."))
	fmt.Println()
}

// remoteID picks the version signal for a fetched resource: the remote's
// own id when the API tier supplied one, otherwise the content hash.
func remoteID(r remote.FetchResult) string {
	if r.RemoteID != "" {
		return r.RemoteID
	}
	return r.Hash
}

// installName keeps the bare name when the remote resolved to the
// category's default filename, and the full resolved filename when a
// non-default extension matched (e.g. tools/helper resolved to helper.sh).
func installName(t resource.Type, name, resolved string) string {
	if resolved == name+t.DefaultExtension() {
		return name
	}
	return resolved
}
