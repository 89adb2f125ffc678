package model

import (
	"maps"
	"slices"
	"time"
)

// RunState tracks a run through Idle -> Scanning -> {Capped, Exhausted,
// Failed} -> Finalized.
type RunState string

const (
	RunIdle      RunState = "idle"
	RunScanning  RunState = "scanning"
	RunCapped    RunState = "capped"
	RunExhausted RunState = "exhausted"
	RunFailed    RunState = "failed"
	RunFinalized RunState = "finalized"
)

// RunResult accumulates the outcome of one run. It is created empty at run
// start, appended to while scanning and flushed once at finalization.
type RunResult struct {
	ID         string
	Policy     PolicyKind
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	State      RunState
	// Termination is the state the scan ended in before finalization.
	Termination RunState
	Error       string

	Processed int
	Acted     int
	ByLabel   map[string]int

	ActedItems []Item
	Comments   []Comment
}

// NewRunResult returns an empty result in the Idle state.
func NewRunResult(id string, policy Policy, startedAt time.Time) *RunResult {
	return &RunResult{
		ID:        id,
		Policy:    policy.Kind,
		DryRun:    policy.DryRun,
		StartedAt: startedAt,
		State:     RunIdle,
		ByLabel:   map[string]int{},
	}
}

// RecordComment appends a created comment.
func (r *RunResult) RecordComment(c Comment) {
	r.Comments = append(r.Comments, c)
}

// RecordActed counts item as acted upon and appends its snapshot.
func (r *RunResult) RecordActed(item Item) {
	r.Acted++
	r.ActedItems = append(r.ActedItems, item)
}

// CountLabels increments the per-label counter for every label given.
func (r *RunResult) CountLabels(labels []Label) {
	for _, l := range labels {
		r.ByLabel[l.Name]++
	}
}

// LabelsByName returns the per-label counters sorted by label name.
func (r *RunResult) LabelsByName() []string {
	return slices.Sorted(maps.Keys(r.ByLabel))
}

// Terminate moves the run into a terminal scanning state.
func (r *RunResult) Terminate(state RunState, err error) {
	r.Termination = state
	r.State = state
	if err != nil {
		r.Error = err.Error()
	}
}

// Finalize marks the run finished.
func (r *RunResult) Finalize(at time.Time) {
	r.State = RunFinalized
	r.FinishedAt = at
}
