package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
	"github.com/ericfisherdev/triagebot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RunStore = (*RunRepo)(nil)

// RunRepo is the SQLite implementation of the RunStore port interface.
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a new RunRepo backed by the given DB.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// Flush records a finished run with its acted items, comments and label
// counts in a single transaction. Flushing the same run again replaces it.
func (r *RunRepo) Flush(ctx context.Context, result *model.RunResult) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, result.ID); err != nil {
		return fmt.Errorf("delete run %s: %w", result.ID, err)
	}

	const runQuery = `
		INSERT INTO runs (id, policy, dry_run, started_at, finished_at, state, termination, error, processed, acted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, runQuery,
		result.ID, string(result.Policy), boolInt(result.DryRun),
		formatTime(result.StartedAt), nullTime(result.FinishedAt),
		string(result.State), string(result.Termination), result.Error,
		result.Processed, result.Acted,
	); err != nil {
		return fmt.Errorf("insert run %s: %w", result.ID, err)
	}

	const itemQuery = `
		INSERT INTO run_items (run_id, seq, number, kind, title, url, state, locked, assignee, labels, base_ref, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for seq, item := range result.ActedItems {
		labelsJSON, err := json.Marshal(labelNames(item.Labels))
		if err != nil {
			return fmt.Errorf("marshal labels for #%d: %w", item.Number, err)
		}

		if _, err := tx.ExecContext(ctx, itemQuery,
			result.ID, seq, item.Number, string(item.Kind), item.Title, item.URL,
			string(item.State), boolInt(item.Locked), item.Assignee, string(labelsJSON),
			item.BaseRef, nullTime(item.CreatedAt), nullTime(item.UpdatedAt),
		); err != nil {
			return fmt.Errorf("insert item #%d for run %s: %w", item.Number, result.ID, err)
		}
	}

	const commentQuery = `
		INSERT INTO run_comments (run_id, seq, comment_id, item_number, author, body, url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	for seq, c := range result.Comments {
		if _, err := tx.ExecContext(ctx, commentQuery,
			result.ID, seq, c.ID, c.ItemNumber, c.Author, c.Body, c.URL, nullTime(c.CreatedAt),
		); err != nil {
			return fmt.Errorf("insert comment %d for run %s: %w", c.ID, result.ID, err)
		}
	}

	const labelQuery = `INSERT INTO run_labels (run_id, label, count) VALUES (?, ?, ?)`
	for label, count := range result.ByLabel {
		if _, err := tx.ExecContext(ctx, labelQuery, result.ID, label, count); err != nil {
			return fmt.Errorf("insert label %q for run %s: %w", label, result.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", result.ID, err)
	}

	return nil
}

// List returns runs newest first, optionally filtered by policy. Label counts
// are included; acted items and comments are not.
func (r *RunRepo) List(ctx context.Context, filter driven.RunFilter) ([]model.RunResult, error) {
	var (
		where []string
		args  []any
	)
	if filter.Policy != "" {
		where = append(where, "policy = ?")
		args = append(args, string(filter.Policy))
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []model.RunResult
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range runs {
		if err := r.loadLabels(ctx, &runs[i]); err != nil {
			return nil, err
		}
	}

	return runs, nil
}

// Get returns a run with everything recorded for it.
// Returns driven.ErrRunNotFound if no run has the given ID.
func (r *RunRepo) Get(ctx context.Context, id string) (*model.RunResult, error) {
	row := r.db.Reader.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, driven.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	if err := r.loadLabels(ctx, run); err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, run); err != nil {
		return nil, err
	}
	if err := r.loadComments(ctx, run); err != nil {
		return nil, err
	}

	return run, nil
}

func (r *RunRepo) loadLabels(ctx context.Context, run *model.RunResult) error {
	rows, err := r.db.Reader.QueryContext(ctx, `SELECT label, count FROM run_labels WHERE run_id = ?`, run.ID)
	if err != nil {
		return fmt.Errorf("query labels for run %s: %w", run.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return fmt.Errorf("scan label: %w", err)
		}
		run.ByLabel[label] = count
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate labels: %w", err)
	}
	return nil
}

func (r *RunRepo) loadItems(ctx context.Context, run *model.RunResult) error {
	const query = `
		SELECT number, kind, title, url, state, locked, assignee, labels, base_ref, created_at, updated_at
		FROM run_items
		WHERE run_id = ?
		ORDER BY seq
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, run.ID)
	if err != nil {
		return fmt.Errorf("query items for run %s: %w", run.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.Item
		var kind, state, labelsJSON string
		var locked int
		var createdAt, updatedAt sql.NullString

		if err := rows.Scan(
			&item.Number, &kind, &item.Title, &item.URL, &state, &locked,
			&item.Assignee, &labelsJSON, &item.BaseRef, &createdAt, &updatedAt,
		); err != nil {
			return fmt.Errorf("scan item: %w", err)
		}

		item.Kind = model.ItemKind(kind)
		item.State = model.ItemState(state)
		item.Locked = locked != 0

		var names []string
		if err := json.Unmarshal([]byte(labelsJSON), &names); err != nil {
			return fmt.Errorf("unmarshal labels: %w", err)
		}
		for _, name := range names {
			item.Labels = append(item.Labels, model.Label{Name: name})
		}

		if item.CreatedAt, err = parseNullTime(createdAt); err != nil {
			return fmt.Errorf("parse created_at: %w", err)
		}
		if item.UpdatedAt, err = parseNullTime(updatedAt); err != nil {
			return fmt.Errorf("parse updated_at: %w", err)
		}

		run.ActedItems = append(run.ActedItems, item)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate items: %w", err)
	}
	return nil
}

func (r *RunRepo) loadComments(ctx context.Context, run *model.RunResult) error {
	const query = `
		SELECT comment_id, item_number, author, body, url, created_at
		FROM run_comments
		WHERE run_id = ?
		ORDER BY seq
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, run.ID)
	if err != nil {
		return fmt.Errorf("query comments for run %s: %w", run.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var c model.Comment
		var createdAt sql.NullString

		if err := rows.Scan(&c.ID, &c.ItemNumber, &c.Author, &c.Body, &c.URL, &createdAt); err != nil {
			return fmt.Errorf("scan comment: %w", err)
		}
		if c.CreatedAt, err = parseNullTime(createdAt); err != nil {
			return fmt.Errorf("parse created_at: %w", err)
		}

		run.Comments = append(run.Comments, c)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate comments: %w", err)
	}
	return nil
}

const runColumns = `id, policy, dry_run, started_at, finished_at, state, termination, error, processed, acted`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*model.RunResult, error) {
	var run model.RunResult
	var policy, state, termination, startedAt string
	var finishedAt sql.NullString
	var dryRun int

	err := s.Scan(
		&run.ID, &policy, &dryRun, &startedAt, &finishedAt,
		&state, &termination, &run.Error, &run.Processed, &run.Acted,
	)
	if err != nil {
		return nil, err
	}

	run.Policy = model.PolicyKind(policy)
	run.DryRun = dryRun != 0
	run.State = model.RunState(state)
	run.Termination = model.RunState(termination)
	run.ByLabel = map[string]int{}

	run.StartedAt, err = parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}

	run.FinishedAt, err = parseNullTime(finishedAt)
	if err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}

	return &run, nil
}

func labelNames(labels []model.Label) []string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}
	return names
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// nullTime stores zero times as NULL.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func parseNullTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	return parseTime(s.String)
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
