// Package logdir implements the RunLogSink port by writing each run to a
// timestamped directory of JSON files.
package logdir

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
	"github.com/ericfisherdev/triagebot/internal/domain/port/driven"
	"github.com/ericfisherdev/triagebot/internal/report"
)

// Compile-time interface satisfaction check.
var _ driven.RunLogSink = (*Sink)(nil)

// File names inside a run directory.
const (
	issuesClosedFile = "issuesClosed.json"
	prsClosedFile    = "closed.json"
	issuesLockedFile = "issuesLocked.json"
	commentsFile     = "commentsAdded.json"
	summaryMDFile    = "summary.md"
	summaryHTMLFile  = "summary.html"
)

// Sink writes runs under a root directory:
//
//	<root>/<unix-millis>/       close-issues
//	<root>/pr/<unix-millis>/    close-prs
//	<root>/lock/<unix-millis>/  lock-issues
type Sink struct {
	root string
}

// NewSink creates a Sink rooted at root. The directory is created on first
// flush.
func NewSink(root string) *Sink {
	return &Sink{root: root}
}

// Dir returns the directory a run is written to.
func (s *Sink) Dir(result *model.RunResult) string {
	stamp := strconv.FormatInt(result.StartedAt.UnixMilli(), 10)
	switch result.Policy {
	case model.PolicyClosePRs:
		return filepath.Join(s.root, "pr", stamp)
	case model.PolicyLockIssues:
		return filepath.Join(s.root, "lock", stamp)
	default:
		return filepath.Join(s.root, stamp)
	}
}

// Flush writes the acted items, the comments (for close policies) and a
// Markdown/HTML digest of the run.
func (s *Sink) Flush(_ context.Context, result *model.RunResult) error {
	dir := s.Dir(result)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating log directory %s: %w", dir, err)
	}

	items := make([]itemRecord, 0, len(result.ActedItems))
	for _, item := range result.ActedItems {
		items = append(items, toItemRecord(item))
	}

	switch result.Policy {
	case model.PolicyLockIssues:
		if err := writeJSON(filepath.Join(dir, issuesLockedFile), items); err != nil {
			return err
		}
	default:
		name := issuesClosedFile
		if result.Policy == model.PolicyClosePRs {
			name = prsClosedFile
		}
		if err := writeJSON(filepath.Join(dir, name), items); err != nil {
			return err
		}

		comments := make([]commentRecord, 0, len(result.Comments))
		for _, c := range result.Comments {
			comments = append(comments, toCommentRecord(c))
		}
		if err := writeJSON(filepath.Join(dir, commentsFile), comments); err != nil {
			return err
		}
	}

	if err := writeFile(filepath.Join(dir, summaryMDFile), []byte(report.Markdown(result))); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, summaryHTMLFile), []byte(report.HTML(result))); err != nil {
		return err
	}

	slog.Info("run log written", "dir", dir, "items", len(items), "comments", len(result.Comments))
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	return writeFile(path, append(data, '\n'))
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// itemRecord is the on-disk shape of an acted item.
type itemRecord struct {
	Number    int           `json:"number"`
	Kind      string        `json:"kind"`
	Title     string        `json:"title"`
	URL       string        `json:"html_url"`
	State     string        `json:"state"`
	Locked    bool          `json:"locked"`
	Assignee  string        `json:"assignee,omitempty"`
	Labels    []labelRecord `json:"labels"`
	BaseRef   string        `json:"base_ref,omitempty"`
	CreatedAt *time.Time    `json:"created_at,omitempty"`
	UpdatedAt *time.Time    `json:"updated_at,omitempty"`
}

type labelRecord struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type commentRecord struct {
	ID         int64      `json:"id"`
	ItemNumber int        `json:"issue_number"`
	Author     string     `json:"user,omitempty"`
	Body       string     `json:"body"`
	URL        string     `json:"html_url"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

func toItemRecord(item model.Item) itemRecord {
	labels := make([]labelRecord, 0, len(item.Labels))
	for _, l := range item.Labels {
		labels = append(labels, labelRecord{ID: l.ID, Name: l.Name, Color: l.Color})
	}
	return itemRecord{
		Number:    item.Number,
		Kind:      string(item.Kind),
		Title:     item.Title,
		URL:       item.URL,
		State:     string(item.State),
		Locked:    item.Locked,
		Assignee:  item.Assignee,
		Labels:    labels,
		BaseRef:   item.BaseRef,
		CreatedAt: timePtr(item.CreatedAt),
		UpdatedAt: timePtr(item.UpdatedAt),
	}
}

func toCommentRecord(c model.Comment) commentRecord {
	return commentRecord{
		ID:         c.ID,
		ItemNumber: c.ItemNumber,
		Author:     c.Author,
		Body:       c.Body,
		URL:        c.URL,
		CreatedAt:  timePtr(c.CreatedAt),
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
