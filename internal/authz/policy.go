package authz

import (
	"github.com/taskflowhq/taskflow-backend/internal/apierr"
	"github.com/taskflowhq/taskflow-backend/internal/types"
)

// IssueFacts captures the actor's relationship to a specific issue.
type IssueFacts struct {
	IsReporter bool
	IsAssignee bool
}

// Each predicate returns nil on allow or a not-authorized error carrying the
// deny reason. Denials are surfaced, never silently swallowed.

func CanCreateIssue(m Membership) error {
	if !m.MemberOrOwner() {
		return apierr.NotAuthorized("not a member of this project")
	}
	return nil
}

func CanViewIssues(m Membership) error {
	if !m.MemberOrOwner() {
		return apierr.NotAuthorized("not a member of this project")
	}
	return nil
}

func CanUpdateIssue(m Membership, f IssueFacts) error {
	if m.Has(types.RoleProjectManager) {
		return nil
	}
	if m.Has(types.RoleDeveloper) {
		if f.IsReporter || f.IsAssignee {
			return nil
		}
		return apierr.NotAuthorized("developers can only update issues they reported or are assigned to")
	}
	return apierr.NotAuthorized("not authorized to update this issue")
}

func CanDeleteIssue(m Membership, f IssueFacts) error {
	if m.Has(types.RoleProjectManager) || f.IsReporter {
		return nil
	}
	return apierr.NotAuthorized("only project managers or the issue reporter may delete an issue")
}

func CanAssignSelf(m Membership) error {
	if m.Has(types.RoleProjectManager, types.RoleDeveloper) {
		return nil
	}
	return apierr.NotAuthorized("not allowed to assign issues in this project")
}

func CanChangeStatus(m Membership, f IssueFacts) error {
	if m.Has(types.RoleProjectManager) {
		return nil
	}
	if m.Has(types.RoleDeveloper) {
		if f.IsAssignee {
			return nil
		}
		return apierr.NotAuthorized("developers can only change status for issues assigned to them")
	}
	return apierr.NotAuthorized("not authorized to change status for this issue")
}

func CanUnassign(m Membership, f IssueFacts) error {
	if m.Has(types.RoleProjectManager) {
		return nil
	}
	if m.Has(types.RoleDeveloper) {
		if f.IsReporter || f.IsAssignee {
			return nil
		}
		return apierr.NotAuthorized("developers can only unassign issues they reported or are assigned to")
	}
	return apierr.NotAuthorized("not authorized to unassign this issue")
}

func CanInvite(m Membership) error {
	if m.Has(types.RoleProjectManager) {
		return nil
	}
	return apierr.NotAuthorized("not authorized to invite users to this project")
}

func CanManageProject(m Membership) error {
	if m.Has(types.RoleProjectManager) {
		return nil
	}
	return apierr.NotAuthorized("not authorized to manage this project")
}
