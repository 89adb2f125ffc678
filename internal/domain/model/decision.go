package model

// SkipReason explains why triage left an item alone.
type SkipReason string

const (
	SkipAssigned        SkipReason = "assigned"
	SkipRecentlyUpdated SkipReason = "recently updated"
	SkipNoLabels        SkipReason = "no labels"
	SkipUnknownLabels   SkipReason = "unknown labels"
	SkipMergeable       SkipReason = "mergeable"
	SkipBeforeWatermark SkipReason = "before watermark"
	SkipAlreadyLocked   SkipReason = "already locked"
)

// ActionKind is one remote mutation triage may request.
type ActionKind string

const (
	ActionComment ActionKind = "comment"
	ActionClose   ActionKind = "close"
	ActionLock    ActionKind = "lock"
)

// Action is a single step of an Act decision.
type Action struct {
	Kind    ActionKind
	Body    string // Comment only.
	BaseRef string // Close of a pull request only; preserved on the update.
}

// IsTerminal reports whether the action changes the item's state rather than
// annotating it.
func (a Action) IsTerminal() bool {
	return a.Kind == ActionClose || a.Kind == ActionLock
}

// Decision is the outcome of evaluating one item: either Skip with a reason
// or Act with an ordered list of actions.
type Decision struct {
	Reason  SkipReason
	Actions []Action
}

// Skip returns a decision to leave the item untouched.
func Skip(reason SkipReason) Decision {
	return Decision{Reason: reason}
}

// Act returns a decision to perform actions in order.
func Act(actions ...Action) Decision {
	return Decision{Actions: actions}
}

// IsSkip reports whether the decision is Skip.
func (d Decision) IsSkip() bool {
	return len(d.Actions) == 0
}
