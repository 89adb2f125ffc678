package model

import "time"

// ResultStatus is the status a tracker reports for a mutating call. The string
// values are the exact status lines the tracker contract promises.
type ResultStatus string

const (
	StatusCreated   ResultStatus = "201 Created"
	StatusOK        ResultStatus = "200 OK"
	StatusNoContent ResultStatus = "204 No Content"
)

// ExpectedStatus returns the status that verifies a successful action.
func ExpectedStatus(kind ActionKind) ResultStatus {
	switch kind {
	case ActionComment:
		return StatusCreated
	case ActionLock:
		return StatusNoContent
	default:
		return StatusOK
	}
}

// Comment is a snapshot of a comment created on an item.
type Comment struct {
	ID         int64
	ItemNumber int
	Author     string
	Body       string
	URL        string
	CreatedAt  time.Time
}

// CommentResult is returned by the tracker when a comment is posted.
type CommentResult struct {
	Status  ResultStatus
	Comment Comment
}

// UpdateResult is returned by the tracker when an item's state is updated.
type UpdateResult struct {
	Status ResultStatus
	// Item is the post-update snapshot. It is zero when the tracker returned
	// no body, as for locks and rejected requests.
	Item Item
}

// StateUpdate describes a requested change to an item.
type StateUpdate struct {
	Kind    ItemKind
	State   ItemState // Empty leaves the state unchanged.
	Lock    bool
	BaseRef string // Pull requests only.
}

// ListQuery selects the items a run scans.
type ListQuery struct {
	Kind      ItemKind
	State     ItemState
	Sort      string // Tracker default when empty.
	Direction string // Tracker default when empty.
	Page      int    // First page when zero.
}

// Cursor is the opaque pagination token a tracker hands back with each page.
type Cursor struct {
	query ListQuery
	next  int
}

// NewCursor returns a cursor that resumes query at page next. A non-positive
// next marks the listing as exhausted.
func NewCursor(query ListQuery, next int) Cursor {
	return Cursor{query: query, next: next}
}

// HasNext reports whether another page can be fetched.
func (c Cursor) HasNext() bool {
	return c.next > 0
}

// NextQuery returns the query for the following page.
func (c Cursor) NextQuery() ListQuery {
	q := c.query
	q.Page = c.next
	return q
}

// Page is one page of a listing.
type Page struct {
	Items  []Item
	Cursor Cursor
}
