// Command triagebot closes stale issues and pull requests and locks old
// closed issues on a GitHub repository.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/ericfisherdev/triagebot/internal/adapter/driven/github"
	"github.com/ericfisherdev/triagebot/internal/config"
	"github.com/ericfisherdev/triagebot/internal/telemetry"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(context.Background())

	// Shutdown runs even when the command failed so a failed run still
	// reports its counters.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if serr := telemetry.Shutdown(ctx); serr != nil {
		slog.Warn("telemetry shutdown failed", "error", serr)
	}
	cancel()

	if err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

// cli holds the global flags shared by every subcommand.
type cli struct {
	configPath string
	repo       string
	dry        bool
	debug      bool

	out    io.Writer
	errOut io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "triagebot",
		Short: "Repository maintenance bot for GitHub issues and pull requests",
		Long: `triagebot scans a GitHub repository and closes stale issues, closes stale
pull requests or locks old closed issues. Runs are dry unless --dry=false is
given or the settings file sets dry: false.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return telemetry.Init(cmd.Context(), "triagebot", version)
		},
	}

	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "Settings file (default "+config.DefaultPath+")")
	flags.StringVarP(&c.repo, "repo", "R", "", "Repository as owner/repo, overriding the settings file")
	flags.BoolVar(&c.dry, "dry", true, "Log what would change without touching the repository")
	flags.BoolVar(&c.debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		c.newTriageCmd(policyCloseIssues),
		c.newTriageCmd(policyClosePRs),
		c.newTriageCmd(policyLockIssues),
		c.newRunsCmd(),
		c.newServeCmd(),
	)

	return root
}

// loadConfig reads the settings file and applies the global flags on top.
// Flags win over the file and the environment only when given explicitly.
func (c *cli) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, explicit := c.configPath, c.configPath != ""
	if !explicit {
		path = config.DefaultPath
	}

	cfg, err := config.Load(path, explicit)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("dry") {
		cfg.DryRun = c.dry
	}
	if flags.Changed("debug") {
		cfg.Debug = c.debug
	}
	if c.repo != "" {
		owner, repo, err := githubadapter.SplitRepo(c.repo)
		if err != nil {
			return nil, err
		}
		cfg.Owner, cfg.Repo = owner, repo
	}

	c.setupLogging(cfg.Debug)
	return cfg, nil
}

func (c *cli) setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(c.errOut, &slog.HandlerOptions{Level: level})))
}

func closeQuietly(name string, fn func() error) {
	if err := fn(); err != nil {
		slog.Error(fmt.Sprintf("error closing %s", name), "error", err)
	}
}
