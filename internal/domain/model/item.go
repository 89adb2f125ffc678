package model

import "time"

// ItemKind distinguishes issues from pull requests. The GitHub issues listing
// returns both, so every Item records which one it is.
type ItemKind string

const (
	ItemKindIssue       ItemKind = "issue"
	ItemKindPullRequest ItemKind = "pull_request"
)

// ItemState represents the lifecycle state of an issue or pull request.
type ItemState string

const (
	ItemStateOpen   ItemState = "open"
	ItemStateClosed ItemState = "closed"
	ItemStateAll    ItemState = "all"
)

// MergeableStatus represents the mergeability state of a pull request.
type MergeableStatus string

const (
	MergeableMergeable  MergeableStatus = "mergeable"
	MergeableConflicted MergeableStatus = "conflicted"
	MergeableUnknown    MergeableStatus = "unknown"
)

// Label is an issue label. Only Name takes part in triage decisions.
type Label struct {
	ID    int64
	Name  string
	Color string
}

// Item is an immutable snapshot of an issue or pull request as returned by the
// tracker. Triage never mutates an Item; it issues remote updates and records
// the snapshot the tracker returns.
type Item struct {
	Number    int
	Kind      ItemKind
	Title     string
	URL       string
	State     ItemState
	Locked    bool
	Assignee  string // Login of the primary assignee; empty when unassigned.
	Labels    []Label
	BaseRef   string          // Pull requests only.
	Mergeable MergeableStatus // Pull requests only; populated by detail fetches.
	CreatedAt time.Time
	UpdatedAt time.Time // Zero when the tracker omitted it.
}

// IsAssigned reports whether the item has an assignee.
func (i Item) IsAssigned() bool {
	return i.Assignee != ""
}

// LabelNames returns the label names in tracker order.
func (i Item) LabelNames() []string {
	names := make([]string, 0, len(i.Labels))
	for _, l := range i.Labels {
		names = append(names, l.Name)
	}
	return names
}

// UpdatedSince reports whether the item was touched strictly after cutoff.
// Items without an update timestamp are never considered recent.
func (i Item) UpdatedSince(cutoff time.Time) bool {
	return !i.UpdatedAt.IsZero() && i.UpdatedAt.After(cutoff)
}
