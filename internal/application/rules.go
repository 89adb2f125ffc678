package application

import (
	"time"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
)

// Decide routes item to the rule set for policy.Kind.
func Decide(policy model.Policy, item model.Item, now time.Time) model.Decision {
	switch policy.Kind {
	case model.PolicyClosePRs:
		return DecideClosePullRequest(item, policy, now)
	case model.PolicyLockIssues:
		return DecideLockIssue(item, policy, now)
	default:
		return DecideCloseIssue(item, policy, now)
	}
}

// DecideCloseIssue closes unassigned, stale issues whose labels all appear in
// the policy allow-list. A single unrecognised label exempts the issue.
// Checks run cheapest first and the first failing check names the skip.
func DecideCloseIssue(item model.Item, policy model.Policy, now time.Time) model.Decision {
	if item.IsAssigned() {
		return model.Skip(model.SkipAssigned)
	}
	if item.UpdatedSince(policy.Cutoff(now)) {
		return model.Skip(model.SkipRecentlyUpdated)
	}
	if len(item.Labels) == 0 {
		return model.Skip(model.SkipNoLabels)
	}
	for _, l := range item.Labels {
		if !policy.AllowsLabel(l.Name) {
			return model.Skip(model.SkipUnknownLabels)
		}
	}

	return model.Act(closeActions(policy, model.Action{Kind: model.ActionClose})...)
}

// DecideClosePullRequest closes stale pull requests that are not known to be
// mergeable. item must carry the mergeability from a detail fetch; conflicted
// and not-yet-computed both count as not mergeable.
func DecideClosePullRequest(item model.Item, policy model.Policy, now time.Time) model.Decision {
	if item.Mergeable == model.MergeableMergeable {
		return model.Skip(model.SkipMergeable)
	}
	if item.UpdatedSince(policy.Cutoff(now)) {
		return model.Skip(model.SkipRecentlyUpdated)
	}

	return model.Act(closeActions(policy, model.Action{Kind: model.ActionClose, BaseRef: item.BaseRef})...)
}

// DecideLockIssue locks stale closed issues past the resume watermark.
// Locking is never requested for an item that is already locked.
func DecideLockIssue(item model.Item, policy model.Policy, now time.Time) model.Decision {
	if item.Number <= policy.FirstItemNumber {
		return model.Skip(model.SkipBeforeWatermark)
	}
	if item.UpdatedSince(policy.Cutoff(now)) {
		return model.Skip(model.SkipRecentlyUpdated)
	}
	if item.Locked {
		return model.Skip(model.SkipAlreadyLocked)
	}

	return model.Act(model.Action{Kind: model.ActionLock})
}

func closeActions(policy model.Policy, terminal model.Action) []model.Action {
	if policy.ActionMessage == "" {
		return []model.Action{terminal}
	}
	return []model.Action{
		{Kind: model.ActionComment, Body: policy.ActionMessage},
		terminal,
	}
}
