// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
)

//go:generate go tool mockgen -source=tracker.go -destination=mocks/tracker.gen.go -package=mocks

// Tracker defines the driven port for the issue tracker API. Implementations
// own transport, authentication and page-size policy; callers own retries.
type Tracker interface {
	// ListItems fetches the first page of the listing selected by query.
	ListItems(ctx context.Context, query model.ListQuery) (model.Page, error)
	// NextPage fetches the page the cursor points at.
	NextPage(ctx context.Context, cursor model.Cursor) (model.Page, error)
	// GetPullRequest returns full pull request detail, including mergeability
	// which list payloads omit.
	GetPullRequest(ctx context.Context, number int) (model.Item, error)

	// CreateComment posts a comment. A non-nil error means the call failed in
	// transport; a reported status other than 201 Created means the tracker
	// rejected it.
	CreateComment(ctx context.Context, number int, body string) (model.CommentResult, error)
	// UpdateItemState closes or locks an item.
	UpdateItemState(ctx context.Context, number int, update model.StateUpdate) (model.UpdateResult, error)
}
