package workflow

import (
	"testing"

	"github.com/google/uuid"

	"github.com/taskflowhq/taskflow-backend/internal/apierr"
	"github.com/taskflowhq/taskflow-backend/internal/types"
)

func TestCanTransitionMatrix(t *testing.T) {
	allowed := map[[2]types.IssueStatus]bool{
		{types.StatusToDo, types.StatusInProgress}:     true,
		{types.StatusInProgress, types.StatusToDo}:     true,
		{types.StatusInProgress, types.StatusInReview}: true,
		{types.StatusInReview, types.StatusInProgress}: true,
		{types.StatusInReview, types.StatusDone}:       true,
	}
	all := []types.IssueStatus{
		types.StatusToDo, types.StatusInProgress, types.StatusInReview, types.StatusDone,
	}

	for _, from := range all {
		for _, to := range all {
			want := from == to || allowed[[2]types.IssueStatus{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestValidateTransitionSameStateIsNoOp(t *testing.T) {
	for _, s := range []types.IssueStatus{
		types.StatusToDo, types.StatusInProgress, types.StatusInReview, types.StatusDone,
	} {
		if err := ValidateTransition(s, s, nil); err != nil {
			t.Errorf("ValidateTransition(%s, %s) = %v, want nil", s, s, err)
		}
	}
}

func TestValidateTransitionDoneIsTerminal(t *testing.T) {
	for _, to := range []types.IssueStatus{
		types.StatusToDo, types.StatusInProgress, types.StatusInReview,
	} {
		err := ValidateTransition(types.StatusDone, to, nil)
		if err == nil {
			t.Fatalf("ValidateTransition(DONE, %s) succeeded, want invalid_state", to)
		}
		if apierr.CodeOf(err) != apierr.CodeInvalidState {
			t.Errorf("ValidateTransition(DONE, %s) code = %q, want %q", to, apierr.CodeOf(err), apierr.CodeInvalidState)
		}
	}
}

func TestValidateTransitionUnknownStatus(t *testing.T) {
	err := ValidateTransition(types.StatusToDo, types.IssueStatus("PAUSED"), nil)
	if apierr.CodeOf(err) != apierr.CodeInvalidInput {
		t.Fatalf("code = %q, want %q (err=%v)", apierr.CodeOf(err), apierr.CodeInvalidInput, err)
	}
}

func TestValidateTransitionDoneGate(t *testing.T) {
	open := &types.Issue{ID: uuid.New(), Status: types.StatusInProgress}
	closed := &types.Issue{ID: uuid.New(), Status: types.StatusDone}

	err := ValidateTransition(types.StatusInReview, types.StatusDone, []*types.Issue{closed, open})
	if apierr.CodeOf(err) != apierr.CodeInvalidState {
		t.Fatalf("done with open subtask: code = %q, want %q (err=%v)", apierr.CodeOf(err), apierr.CodeInvalidState, err)
	}

	if err := ValidateTransition(types.StatusInReview, types.StatusDone, []*types.Issue{closed}); err != nil {
		t.Fatalf("done with all subtasks closed: %v", err)
	}
	if err := ValidateTransition(types.StatusInReview, types.StatusDone, nil); err != nil {
		t.Fatalf("done with no subtasks: %v", err)
	}
}

func TestValidateTransitionSkipsAreRejected(t *testing.T) {
	err := ValidateTransition(types.StatusToDo, types.StatusDone, nil)
	if apierr.CodeOf(err) != apierr.CodeInvalidState {
		t.Fatalf("TO_DO -> DONE: code = %q, want %q (err=%v)", apierr.CodeOf(err), apierr.CodeInvalidState, err)
	}
	err = ValidateTransition(types.StatusToDo, types.StatusInReview, nil)
	if apierr.CodeOf(err) != apierr.CodeInvalidState {
		t.Fatalf("TO_DO -> IN_REVIEW: code = %q, want %q (err=%v)", apierr.CodeOf(err), apierr.CodeInvalidState, err)
	}
}

func TestValidateReopen(t *testing.T) {
	if err := ValidateReopen(types.StatusDone); err != nil {
		t.Fatalf("reopen from DONE: %v", err)
	}
	for _, s := range []types.IssueStatus{
		types.StatusToDo, types.StatusInProgress, types.StatusInReview,
	} {
		err := ValidateReopen(s)
		if apierr.CodeOf(err) != apierr.CodeInvalidState {
			t.Errorf("reopen from %s: code = %q, want %q", s, apierr.CodeOf(err), apierr.CodeInvalidState)
		}
	}
	if ReopenTarget != types.StatusInProgress {
		t.Fatalf("ReopenTarget = %s, want IN_PROGRESS", ReopenTarget)
	}
}
