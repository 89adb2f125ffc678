package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
)

// ErrRunNotFound indicates the requested run is not in the ledger.
var ErrRunNotFound = errors.New("run not found")

// RunLogSink receives a finished run exactly once, at finalization.
type RunLogSink interface {
	Flush(ctx context.Context, result *model.RunResult) error
}

// RunFilter narrows a ledger listing. Zero values mean no filtering.
type RunFilter struct {
	Policy model.PolicyKind
	Limit  int
}

// RunStore is the durable run ledger. It is a RunLogSink that can also be
// queried for past runs.
type RunStore interface {
	RunLogSink
	// List returns runs newest first without their item and comment lists.
	List(ctx context.Context, filter RunFilter) ([]model.RunResult, error)
	// Get returns a single run with all recorded items and comments.
	// Returns ErrRunNotFound if no run has the given ID.
	Get(ctx context.Context, id string) (*model.RunResult, error)
}
