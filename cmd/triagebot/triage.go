package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	githubadapter "github.com/ericfisherdev/triagebot/internal/adapter/driven/github"
	"github.com/ericfisherdev/triagebot/internal/adapter/driven/logdir"
	sqliteadapter "github.com/ericfisherdev/triagebot/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/triagebot/internal/application"
	"github.com/ericfisherdev/triagebot/internal/config"
	"github.com/ericfisherdev/triagebot/internal/domain/model"
	"github.com/ericfisherdev/triagebot/internal/domain/port/driven"
)

type policyCommand struct {
	kind  model.PolicyKind
	short string
	long  string
}

var (
	policyCloseIssues = policyCommand{
		kind:  model.PolicyCloseIssues,
		short: "Close stale open issues whose labels are all close-eligible",
		long: `Scan open issues and close every one that is unassigned, has not been
updated within days_since_last_edit, and carries only labels listed in
labels_to_close. close_message, when set, is posted before closing.`,
	}
	policyClosePRs = policyCommand{
		kind:  model.PolicyClosePRs,
		short: "Close stale pull requests that no longer merge cleanly",
		long: `Scan open pull requests and close every one that does not merge cleanly
and has not been updated within pr.days_since_last_edit. pr.close_message,
when set, is posted before closing.`,
	}
	policyLockIssues = policyCommand{
		kind:  model.PolicyLockIssues,
		short: "Lock closed issues that have been quiet for a long time",
		long: `Scan closed issues oldest first, starting at lock.first_page, and lock
every one numbered above lock.first_issue that has not been updated within
lock.days_since_last_edit.`,
	}
)

func (c *cli) newTriageCmd(p policyCommand) *cobra.Command {
	return &cobra.Command{
		Use:   string(p.kind),
		Short: p.short,
		Long:  p.long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			return c.runPolicy(cmd.Context(), cfg, p.kind)
		},
	}
}

func (c *cli) runPolicy(ctx context.Context, cfg *config.Config, kind model.PolicyKind) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	policy, err := cfg.Policy(kind)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("config loaded",
		"repo", cfg.Owner+"/"+cfg.Repo,
		"token_source", cfg.TokenSource,
		"dry_run", cfg.DryRun,
		"log_dir", cfg.LogDir,
		"db_path", cfg.DBPath,
	)

	sinks := []driven.RunLogSink{logdir.NewSink(cfg.LogDir)}
	if cfg.DBPath != "" {
		db, err := sqliteadapter.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer closeQuietly("database", db.Close)
		sinks = append(sinks, sqliteadapter.NewRunRepo(db))
	}

	tracker := githubadapter.NewClient(cfg.GitHubToken, cfg.Owner, cfg.Repo, cfg.RequestTimeout)
	svc := application.NewTriageService(tracker, sinks,
		application.WithSummaryWriter(c.out),
		application.WithLogger(slog.Default()),
	)

	_, err = svc.Run(ctx, policy)
	return err
}
