package model

import (
	"slices"
	"time"
)

// PolicyKind identifies one of the three run types.
type PolicyKind string

const (
	PolicyCloseIssues PolicyKind = "close-issues"
	PolicyClosePRs    PolicyKind = "close-prs"
	PolicyLockIssues  PolicyKind = "lock-issues"
)

// Policy is the immutable bundle of thresholds governing one run. It is built
// once from configuration at run start; use NewPolicy so the label allow-list
// is copied rather than shared with the caller.
type Policy struct {
	Kind          PolicyKind
	StaleAfter    time.Duration
	MaxProcessed  int // Non-positive means unbounded.
	MaxActed      int // Non-positive means unbounded.
	ActionMessage string
	DryRun        bool

	// Close-issues only: an issue qualifies only when every label is listed here.
	CloseLabels []string

	// Lock-issues only: resume watermark for long sweeps over closed issues.
	FirstItemNumber int
	FirstPage       int
}

// NewPolicy returns a copy of p whose slices are owned by the policy.
func NewPolicy(p Policy) Policy {
	p.CloseLabels = slices.Clone(p.CloseLabels)
	return p
}

// Cutoff returns the instant before which an item counts as stale.
func (p Policy) Cutoff(now time.Time) time.Time {
	return now.Add(-p.StaleAfter)
}

// AllowsLabel reports whether name is in the close-eligible allow-list.
func (p Policy) AllowsLabel(name string) bool {
	return slices.Contains(p.CloseLabels, name)
}

// ProcessedCapReached reports whether processed has hit MaxProcessed.
func (p Policy) ProcessedCapReached(processed int) bool {
	return p.MaxProcessed > 0 && processed >= p.MaxProcessed
}

// ActedCapReached reports whether acted has hit MaxActed.
func (p Policy) ActedCapReached(acted int) bool {
	return p.MaxActed > 0 && acted >= p.MaxActed
}

// CountsLabels reports whether runs under this policy keep per-label statistics.
func (p Policy) CountsLabels() bool {
	return p.Kind == PolicyCloseIssues
}
