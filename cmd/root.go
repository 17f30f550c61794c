package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/kennyg/scribe/internal/config"
	"github.com/kennyg/scribe/internal/installer"
	"github.com/kennyg/scribe/internal/manifest"
	"github.com/kennyg/scribe/internal/paths"
	"github.com/kennyg/scribe/internal/remote"
	"github.com/kennyg/scribe/internal/resource"
	"github.com/kennyg/scribe/internal/ui"
)

var (
	// Version is set at build time
	Version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "scribe",
	Short: "Agent Resource Manager",
	Long: `Keep your local agent resources in sync with a remote repository.

Manages agents, tools, commands, and MCP server definitions installed
under ~/.claude, tracked in a versioned manifest.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("scribe %s\n", Version)
	},
}

// core bundles the wired components shared by the commands.
type core struct {
	cfg       *config.Config
	logger    *log.Logger
	resolver  *paths.Resolver
	store     *manifest.Store
	client    *remote.Client
	installer *installer.Installer
}

// newCore wires the component graph from configuration. Each component
// gets its own prefixed logger so failures identify their origin.
func newCore() (*core, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})
	if lvl, err := log.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(lvl)
	}

	resolver, err := paths.Default()
	if err != nil {
		return nil, err
	}

	store := manifest.NewStore(resolver, logger.WithPrefix("manifest"), Version)
	client := remote.NewClient(remote.Options{
		Owner:          cfg.Remote.Owner,
		Repo:           cfg.Remote.Repo,
		BasePath:       cfg.Remote.BasePath,
		MaxRetries:     cfg.Retry.MaxRetries,
		BackoffBase:    cfg.Retry.BackoffBase,
		BackoffMax:     cfg.Retry.BackoffMax,
		RequestTimeout: cfg.Retry.RequestTimeout,
	}, nil, logger.WithPrefix("remote"))
	inst := installer.New(resolver, store, logger.WithPrefix("install"))

	return &core{
		cfg:       cfg,
		logger:    logger,
		resolver:  resolver,
		store:     store,
		client:    client,
		installer: inst,
	}, nil
}

// parseTypeArg converts a CLI type argument, exiting on unknown values.
func parseTypeArg(s string) resource.Type {
	t, err := resource.ParseType(s)
	if err != nil {
		exitWithError(err.Error())
	}
	return t
}

// exitWithError prints an error and exits
func exitWithError(msg string) {
	fmt.Fprintln(os.Stderr, ui.Error.Render("Error: "+msg))
	os.Exit(1)
}
