// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
	"github.com/ericfisherdev/triagebot/internal/domain/port/driven"
	"github.com/ericfisherdev/triagebot/internal/report"
)

// TriageService runs one policy end to end: it scans the tracker page by
// page, decides per item, performs the resulting actions and flushes the
// run log. Runs are strictly sequential and a service must not run two
// policies concurrently against the same repository.
type TriageService struct {
	tracker  driven.Tracker
	sinks    []driven.RunLogSink
	out      io.Writer
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	attempts int
}

// Option customises a TriageService.
type Option func(*TriageService)

// WithClock overrides the time source used for staleness cutoffs and run
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *TriageService) { s.now = now }
}

// WithSummaryWriter sets where the console summary is printed. Defaults to
// os.Stdout.
func WithSummaryWriter(w io.Writer) Option {
	return func(s *TriageService) { s.out = w }
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *TriageService) { s.logger = logger }
}

// WithRunIDs overrides run ID generation.
func WithRunIDs(newID func() string) Option {
	return func(s *TriageService) { s.newID = newID }
}

// NewTriageService creates a TriageService. sinks receive every non-dry run
// at finalization, in order.
func NewTriageService(tracker driven.Tracker, sinks []driven.RunLogSink, opts ...Option) *TriageService {
	s := &TriageService{
		tracker:  tracker,
		sinks:    sinks,
		out:      os.Stdout,
		logger:   slog.Default(),
		now:      time.Now,
		newID:    uuid.NewString,
		attempts: DefaultAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes policy and returns the finalized result. The result is
// flushed and summarised on every path, including failure; a scan failure is
// returned after finalization, joined with any flush error.
func (s *TriageService) Run(ctx context.Context, policy model.Policy) (*model.RunResult, error) {
	result := model.NewRunResult(s.newID(), policy, s.now())
	r := &run{
		svc:    s,
		policy: policy,
		result: result,
		now:    result.StartedAt,
		logger: s.logger.With("policy", string(policy.Kind), "run_id", result.ID),
		attr:   attribute.String("policy", string(policy.Kind)),
	}

	r.logger.Info("run starting",
		"dry_run", policy.DryRun,
		"stale_after", policy.StaleAfter,
		"cutoff", policy.Cutoff(r.now).Format(time.RFC3339),
		"max_processed", policy.MaxProcessed,
		"max_acted", policy.MaxActed,
	)

	result.State = model.RunScanning
	state, scanErr := r.scan(ctx)
	switch {
	case scanErr != nil:
		state = model.RunFailed
		r.logger.Error("run failed", "processed", result.Processed, "acted", result.Acted, "error", scanErr)
	case state == model.RunCapped:
		r.logger.Info("run capped", "processed", result.Processed, "acted", result.Acted)
	default:
		r.logger.Info("run exhausted listing", "processed", result.Processed, "acted", result.Acted)
	}
	result.Terminate(state, scanErr)

	finalizeErr := s.finalize(ctx, r.logger, result)
	if scanErr == nil {
		return result, finalizeErr
	}
	if finalizeErr != nil {
		return result, errors.Join(scanErr, finalizeErr)
	}
	return result, scanErr
}

// finalize flushes durable sinks (never for a dry run) and prints the
// summary. Flushing ignores cancellation of ctx so partial results of a
// failed run still land.
func (s *TriageService) finalize(ctx context.Context, logger *slog.Logger, result *model.RunResult) error {
	ctx = context.WithoutCancel(ctx)
	result.Finalize(s.now())

	var errs []error
	if result.DryRun {
		logger.Info("dry run, run log not written")
	} else {
		for _, sink := range s.sinks {
			if err := sink.Flush(ctx, result); err != nil {
				logger.Error("flushing run log failed", "error", err)
				errs = append(errs, err)
			}
		}
	}

	if err := report.WriteSummary(s.out, result); err != nil {
		logger.Error("printing summary failed", "error", err)
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// run carries the mutable state of a single Run call.
type run struct {
	svc    *TriageService
	policy model.Policy
	result *model.RunResult
	now    time.Time
	logger *slog.Logger
	attr   attribute.KeyValue
}

func (r *run) listQuery() model.ListQuery {
	switch r.policy.Kind {
	case model.PolicyClosePRs:
		return model.ListQuery{Kind: model.ItemKindPullRequest, State: model.ItemStateOpen}
	case model.PolicyLockIssues:
		// Oldest first so a saved watermark can resume a long sweep.
		return model.ListQuery{
			Kind:      model.ItemKindIssue,
			State:     model.ItemStateClosed,
			Sort:      "created",
			Direction: "asc",
			Page:      max(r.policy.FirstPage, 0),
		}
	default:
		return model.ListQuery{Kind: model.ItemKindIssue, State: model.ItemStateOpen}
	}
}

func (r *run) scan(ctx context.Context) (model.RunState, error) {
	tracker := r.svc.tracker
	attempts := r.svc.attempts
	query := r.listQuery()

	return Scan(ctx,
		func(ctx context.Context) (model.Page, error) {
			return WithRetry(ctx, "list items", attempts, func(ctx context.Context) (model.Page, error) {
				return tracker.ListItems(ctx, query)
			})
		},
		func(ctx context.Context, prev model.Page) (model.Page, error) {
			return WithRetry(ctx, "next page", attempts, func(ctx context.Context) (model.Page, error) {
				return tracker.NextPage(ctx, prev.Cursor)
			})
		},
		func(p model.Page) bool { return p.Cursor.HasNext() },
		r.processPage,
	)
}

func (r *run) processPage(ctx context.Context, items []model.Item) (bool, error) {
	for _, item := range items {
		r.result.Processed++
		processedCounter.Add(ctx, 1, metric.WithAttributes(r.attr))

		if r.policy.ProcessedCapReached(r.result.Processed) {
			r.logger.Info("reached maximum processed items",
				"processed", r.result.Processed, "max", r.policy.MaxProcessed)
			return true, nil
		}
		if r.policy.ActedCapReached(r.result.Acted) {
			r.logger.Info("reached maximum acted items",
				"acted", r.result.Acted, "max", r.policy.MaxActed)
			return true, nil
		}

		if err := r.processItem(ctx, item); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (r *run) processItem(ctx context.Context, item model.Item) error {
	r.logger.Debug("processing item", "seq", r.result.Processed, "number", item.Number)

	if r.policy.Kind == model.PolicyClosePRs {
		detail, err := WithRetry(ctx, "get pull request", r.svc.attempts, func(ctx context.Context) (model.Item, error) {
			return r.svc.tracker.GetPullRequest(ctx, item.Number)
		})
		if err != nil {
			return fmt.Errorf("fetching detail for #%d: %w", item.Number, err)
		}
		item.Mergeable = detail.Mergeable
	}

	decision := Decide(r.policy, item, r.now)
	if decision.IsSkip() {
		r.logger.Debug("skipping item", "number", item.Number, "reason", string(decision.Reason))
		skippedCounter.Add(ctx, 1, metric.WithAttributes(r.attr, attribute.String("reason", string(decision.Reason))))
		return nil
	}

	return r.execute(ctx, item, decision.Actions)
}

// execute performs actions in order. A comment the tracker did not confirm
// aborts the item before its terminal action; a terminal action the tracker
// did not confirm leaves the item uncounted. Neither is a run failure.
// A confirmed comment stays posted even when the terminal action fails.
func (r *run) execute(ctx context.Context, item model.Item, actions []model.Action) error {
	snapshot := item
	dry := r.policy.DryRun

	for _, action := range actions {
		switch action.Kind {
		case model.ActionComment:
			r.logger.Info("adding comment", "number", item.Number, "dry_run", dry)
			if dry {
				continue
			}

			res, err := WithRetry(ctx, "create comment", r.svc.attempts, func(ctx context.Context) (model.CommentResult, error) {
				return r.svc.tracker.CreateComment(ctx, item.Number, action.Body)
			})
			if err != nil {
				return fmt.Errorf("commenting on #%d: %w", item.Number, err)
			}
			if res.Status != model.ExpectedStatus(action.Kind) {
				r.logger.Warn("failed to add comment, skipping item", "number", item.Number, "status", string(res.Status))
				return nil
			}
			r.result.RecordComment(res.Comment)

		case model.ActionClose, model.ActionLock:
			r.logger.Info(string(action.Kind)+" item", "number", item.Number, "dry_run", dry)
			if dry {
				continue
			}

			update := stateUpdate(item, action)
			res, err := WithRetry(ctx, "update item state", r.svc.attempts, func(ctx context.Context) (model.UpdateResult, error) {
				return r.svc.tracker.UpdateItemState(ctx, item.Number, update)
			})
			if err != nil {
				return fmt.Errorf("updating #%d: %w", item.Number, err)
			}
			if res.Status != model.ExpectedStatus(action.Kind) {
				r.logger.Warn(string(action.Kind)+" failed", "number", item.Number, "status", string(res.Status))
				return nil
			}
			if action.Kind == model.ActionLock {
				// Locks come back without a snapshot.
				snapshot = item
				snapshot.Locked = true
			} else {
				snapshot = res.Item
			}
		}
	}

	r.result.RecordActed(snapshot)
	if r.policy.CountsLabels() {
		r.result.CountLabels(item.Labels)
	}
	actedCounter.Add(ctx, 1, metric.WithAttributes(r.attr))
	r.logger.Debug("item done", "number", item.Number)
	return nil
}

func stateUpdate(item model.Item, action model.Action) model.StateUpdate {
	if action.Kind == model.ActionLock {
		return model.StateUpdate{Kind: item.Kind, Lock: true}
	}
	return model.StateUpdate{Kind: item.Kind, State: model.ItemStateClosed, BaseRef: action.BaseRef}
}
