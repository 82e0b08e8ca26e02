package authz

import (
	"testing"

	"github.com/taskflowhq/taskflow-backend/internal/types"
)

var (
	owner     = Membership{IsOwner: true}
	manager   = Membership{HasRole: true, Role: types.RoleProjectManager}
	developer = Membership{HasRole: true, Role: types.RoleDeveloper}
	viewer    = Membership{HasRole: true, Role: types.RoleViewer}
	outsider  = Membership{}
)

func TestMembershipHas(t *testing.T) {
	if !owner.Has(types.RoleViewer) {
		t.Fatal("owner should satisfy any role set")
	}
	if !manager.Has(types.RoleProjectManager, types.RoleDeveloper) {
		t.Fatal("manager should satisfy a set containing its role")
	}
	if developer.Has(types.RoleProjectManager) {
		t.Fatal("developer should not satisfy a manager-only set")
	}
	if outsider.Has(types.RoleViewer) {
		t.Fatal("non-member should satisfy nothing")
	}
}

func TestCreateAndViewRequireMembership(t *testing.T) {
	for _, m := range []Membership{owner, manager, developer, viewer} {
		if err := CanCreateIssue(m); err != nil {
			t.Errorf("CanCreateIssue(%+v) = %v, want nil", m, err)
		}
		if err := CanViewIssues(m); err != nil {
			t.Errorf("CanViewIssues(%+v) = %v, want nil", m, err)
		}
	}
	if err := CanCreateIssue(outsider); err == nil {
		t.Fatal("non-member create allowed")
	}
	if err := CanViewIssues(outsider); err == nil {
		t.Fatal("non-member view allowed")
	}
}

func TestCanUpdateIssue(t *testing.T) {
	tests := []struct {
		name  string
		m     Membership
		facts IssueFacts
		allow bool
	}{
		{"owner unrelated", owner, IssueFacts{}, true},
		{"manager unrelated", manager, IssueFacts{}, true},
		{"developer reporter", developer, IssueFacts{IsReporter: true}, true},
		{"developer assignee", developer, IssueFacts{IsAssignee: true}, true},
		{"developer unrelated", developer, IssueFacts{}, false},
		{"viewer reporter", viewer, IssueFacts{IsReporter: true}, false},
		{"viewer assignee", viewer, IssueFacts{IsAssignee: true}, false},
		{"outsider", outsider, IssueFacts{IsReporter: true}, false},
	}
	for _, tt := range tests {
		err := CanUpdateIssue(tt.m, tt.facts)
		if (err == nil) != tt.allow {
			t.Errorf("%s: CanUpdateIssue = %v, want allow=%v", tt.name, err, tt.allow)
		}
	}
}

func TestCanDeleteIssue(t *testing.T) {
	tests := []struct {
		name  string
		m     Membership
		facts IssueFacts
		allow bool
	}{
		{"manager unrelated", manager, IssueFacts{}, true},
		{"developer reporter", developer, IssueFacts{IsReporter: true}, true},
		{"viewer reporter", viewer, IssueFacts{IsReporter: true}, true},
		{"developer assignee only", developer, IssueFacts{IsAssignee: true}, false},
		{"viewer unrelated", viewer, IssueFacts{}, false},
	}
	for _, tt := range tests {
		err := CanDeleteIssue(tt.m, tt.facts)
		if (err == nil) != tt.allow {
			t.Errorf("%s: CanDeleteIssue = %v, want allow=%v", tt.name, err, tt.allow)
		}
	}
}

func TestCanAssignSelf(t *testing.T) {
	for _, m := range []Membership{owner, manager, developer} {
		if err := CanAssignSelf(m); err != nil {
			t.Errorf("CanAssignSelf(%+v) = %v, want nil", m, err)
		}
	}
	if err := CanAssignSelf(viewer); err == nil {
		t.Fatal("viewer self-assign allowed")
	}
}

func TestCanChangeStatus(t *testing.T) {
	tests := []struct {
		name  string
		m     Membership
		facts IssueFacts
		allow bool
	}{
		{"manager unrelated", manager, IssueFacts{}, true},
		{"developer assignee", developer, IssueFacts{IsAssignee: true}, true},
		{"developer reporter only", developer, IssueFacts{IsReporter: true}, false},
		{"viewer assignee", viewer, IssueFacts{IsAssignee: true}, false},
	}
	for _, tt := range tests {
		err := CanChangeStatus(tt.m, tt.facts)
		if (err == nil) != tt.allow {
			t.Errorf("%s: CanChangeStatus = %v, want allow=%v", tt.name, err, tt.allow)
		}
	}
}

func TestCanUnassign(t *testing.T) {
	tests := []struct {
		name  string
		m     Membership
		facts IssueFacts
		allow bool
	}{
		{"manager unrelated", manager, IssueFacts{}, true},
		{"developer reporter", developer, IssueFacts{IsReporter: true}, true},
		{"developer assignee", developer, IssueFacts{IsAssignee: true}, true},
		{"developer unrelated", developer, IssueFacts{}, false},
		{"viewer assignee", viewer, IssueFacts{IsAssignee: true}, false},
	}
	for _, tt := range tests {
		err := CanUnassign(tt.m, tt.facts)
		if (err == nil) != tt.allow {
			t.Errorf("%s: CanUnassign = %v, want allow=%v", tt.name, err, tt.allow)
		}
	}
}

func TestManagerOnlyOperations(t *testing.T) {
	for _, m := range []Membership{owner, manager} {
		if err := CanInvite(m); err != nil {
			t.Errorf("CanInvite(%+v) = %v, want nil", m, err)
		}
		if err := CanManageProject(m); err != nil {
			t.Errorf("CanManageProject(%+v) = %v, want nil", m, err)
		}
	}
	for _, m := range []Membership{developer, viewer, outsider} {
		if err := CanInvite(m); err == nil {
			t.Errorf("CanInvite(%+v) allowed", m)
		}
		if err := CanManageProject(m); err == nil {
			t.Errorf("CanManageProject(%+v) allowed", m)
		}
	}
}
