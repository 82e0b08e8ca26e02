// Package workflow holds the issue status state machine. The transition set
// is data, not control flow, so the whole table is checkable in isolation.
package workflow

import (
	"github.com/taskflowhq/taskflow-backend/internal/apierr"
	"github.com/taskflowhq/taskflow-backend/internal/types"
)

// transitions lists the forward edges of the status graph. DONE has no
// entry: it is only left through Reopen.
var transitions = map[types.IssueStatus][]types.IssueStatus{
	types.StatusToDo:       {types.StatusInProgress},
	types.StatusInProgress: {types.StatusInReview, types.StatusToDo},
	types.StatusInReview:   {types.StatusDone, types.StatusInProgress},
	types.StatusDone:       {},
}

// ReopenTarget is the status a reopened issue lands in.
const ReopenTarget = types.StatusInProgress

// CanTransition reports whether from→to is in the table. Same-state is
// always a permitted no-op.
func CanTransition(from, to types.IssueStatus) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition checks a requested status change against the table and
// the done-gate, returning an invalid-state error when it is not legal.
// subtasks are the issue's current direct subtasks; they gate entry into
// DONE only.
func ValidateTransition(from, to types.IssueStatus, subtasks []*types.Issue) error {
	if !to.Valid() {
		return apierr.InvalidInput("unknown status %q", string(to))
	}
	if from == types.StatusDone && to != types.StatusDone {
		return apierr.InvalidState("issues in DONE can only be reopened using the reopen action")
	}
	if to == types.StatusDone {
		for _, sub := range subtasks {
			if sub.Status != types.StatusDone {
				return apierr.InvalidState("cannot move issue to DONE while subtask %s is %s", sub.ID, sub.Status)
			}
		}
	}
	if !CanTransition(from, to) {
		return apierr.InvalidState("invalid status transition: %s -> %s", from, to)
	}
	return nil
}

// ValidateReopen permits reopening only from DONE.
func ValidateReopen(current types.IssueStatus) error {
	if current != types.StatusDone {
		return apierr.InvalidState("only issues in DONE can be reopened")
	}
	return nil
}
