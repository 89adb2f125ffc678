package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	sqliteadapter "github.com/ericfisherdev/triagebot/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/triagebot/internal/domain/model"
	"github.com/ericfisherdev/triagebot/internal/domain/port/driven"
	"github.com/ericfisherdev/triagebot/internal/report"
)

func (c *cli) newRunsCmd() *cobra.Command {
	var (
		policy string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "runs [id]",
		Short: "List recorded runs, or show one run",
		Long: `Without arguments, list the most recent runs recorded in the run ledger.
With a run ID, print that run's digest including every item it acted on.

Examples:
  triagebot runs
  triagebot runs --policy lock-issues --limit 5
  triagebot runs 5b0c7f0e-8a4e-4e4b-9d1b-3f1f1c2d7a10`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.DBPath == "" {
				return errors.New("run ledger disabled: db_path is empty")
			}

			db, err := sqliteadapter.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer closeQuietly("database", db.Close)
			store := sqliteadapter.NewRunRepo(db)

			if len(args) == 1 {
				run, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("run %s: %w", args[0], err)
				}
				_, err = io.WriteString(c.out, report.Markdown(run))
				return err
			}

			runs, err := store.List(cmd.Context(), driven.RunFilter{
				Policy: model.PolicyKind(policy),
				Limit:  limit,
			})
			if err != nil {
				return err
			}
			return writeRunTable(c.out, runs)
		},
	}

	cmd.Flags().StringVar(&policy, "policy", "", "Only show runs of this policy (close-issues, close-prs, lock-issues)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show (0 for all)")

	return cmd
}

func writeRunTable(w io.Writer, runs []model.RunResult) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPOLICY\tSTARTED\tENDED\tPROCESSED\tACTED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			r.ID, r.Policy, r.StartedAt.Local().Format(time.DateTime), r.Termination, r.Processed, r.Acted)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	// Style after alignment; tabwriter counts escape sequences as width.
	header, rows, _ := strings.Cut(buf.String(), "\n")
	bold := lipgloss.NewRenderer(w).NewStyle().Bold(true)
	_, err := fmt.Fprintf(w, "%s\n%s", bold.Render(header), rows)
	return err
}
