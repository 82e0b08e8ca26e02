package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/taskflowhq/taskflow-backend/internal/apierr"
	"github.com/taskflowhq/taskflow-backend/internal/types"
)

func TestInviteAcceptFlow(t *testing.T) {
	env := newTestEnv(t)
	owner := env.mustUser(t, "owner")
	guest := env.mustUser(t, "guest")
	project := env.mustProject(t, "FLOW", owner)

	invitation, err := env.invitations.Invite(asUser(owner), project.ID, "guest", types.RoleDeveloper)
	if err != nil {
		t.Fatalf("inviting: %v", err)
	}
	if invitation.Status != types.InvitationPending {
		t.Fatalf("new invitation status = %s, want PENDING", invitation.Status)
	}
	if invitation.InvitedUserID != guest.ID {
		t.Fatalf("invited user = %s, want guest", invitation.InvitedUserID)
	}
	if env.notifier.count() != 1 {
		t.Fatalf("notifier called %d times, want 1", env.notifier.count())
	}

	pending, err := env.invitations.ListMyPending(asUser(guest))
	if err != nil {
		t.Fatalf("listing pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != invitation.ID {
		t.Fatalf("pending list wrong: %+v", pending)
	}

	if err := env.invitations.Accept(asUser(guest), invitation.ID); err != nil {
		t.Fatalf("accepting: %v", err)
	}
	member, err := env.memberRepo.GetByProjectAndUser(context.Background(), nil, project.ID, guest.ID)
	if err != nil {
		t.Fatalf("fetching membership: %v", err)
	}
	if member == nil || member.Role != types.RoleDeveloper {
		t.Fatalf("membership after accept: %+v", member)
	}

	// The pending->accepted transition happens exactly once.
	err = env.invitations.Accept(asUser(guest), invitation.ID)
	if apierr.CodeOf(err) != apierr.CodeConflict {
		t.Fatalf("second accept: code = %q, want conflict (err=%v)", apierr.CodeOf(err), err)
	}
}

func TestInviteByEmail(t *testing.T) {
	env := newTestEnv(t)
	owner := env.mustUser(t, "owner")
	guest := env.mustUser(t, "guest")
	project := env.mustProject(t, "MAIL", owner)

	invitation, err := env.invitations.Invite(asUser(owner), project.ID, "guest@example.com", types.RoleViewer)
	if err != nil {
		t.Fatalf("inviting by email: %v", err)
	}
	if invitation.InvitedUserID != guest.ID {
		t.Fatalf("invited user = %s, want guest", invitation.InvitedUserID)
	}
}

func TestInviteRejections(t *testing.T) {
	env := newTestEnv(t)
	owner := env.mustUser(t, "owner")
	dev := env.mustUser(t, "dev")
	env.mustUser(t, "guest")
	project := env.mustProject(t, "REJ", owner)
	env.mustMember(t, project, dev, types.RoleDeveloper)

	// Only managers invite.
	_, err := env.invitations.Invite(asUser(dev), project.ID, "guest", types.RoleViewer)
	if apierr.CodeOf(err) != apierr.CodeNotAuthorized {
		t.Fatalf("developer invite: code = %q, want not_authorized", apierr.CodeOf(err))
	}

	// Existing members and the owner cannot be re-invited.
	_, err = env.invitations.Invite(asUser(owner), project.ID, "dev", types.RoleViewer)
	if apierr.CodeOf(err) != apierr.CodeConflict {
		t.Fatalf("inviting member: code = %q, want conflict", apierr.CodeOf(err))
	}
	_, err = env.invitations.Invite(asUser(owner), project.ID, "owner", types.RoleViewer)
	if apierr.CodeOf(err) != apierr.CodeConflict {
		t.Fatalf("inviting owner: code = %q, want conflict", apierr.CodeOf(err))
	}

	_, err = env.invitations.Invite(asUser(owner), project.ID, "nobody", types.RoleViewer)
	if apierr.CodeOf(err) != apierr.CodeNotFound {
		t.Fatalf("inviting unknown user: code = %q, want not_found", apierr.CodeOf(err))
	}
	_, err = env.invitations.Invite(asUser(owner), project.ID, "guest", types.ProjectRole("SUPERUSER"))
	if apierr.CodeOf(err) != apierr.CodeInvalidInput {
		t.Fatalf("unknown role: code = %q, want invalid_input", apierr.CodeOf(err))
	}
	_, err = env.invitations.Invite(asUser(owner), uuid.New(), "guest", types.RoleViewer)
	if apierr.CodeOf(err) != apierr.CodeNotFound {
		t.Fatalf("unknown project: code = %q, want not_found", apierr.CodeOf(err))
	}
}

func TestInvitationOnlyTargetMayAnswer(t *testing.T) {
	env := newTestEnv(t)
	owner := env.mustUser(t, "owner")
	guest := env.mustUser(t, "guest")
	bystander := env.mustUser(t, "bystander")
	project := env.mustProject(t, "TGT", owner)

	invitation, err := env.invitations.Invite(asUser(owner), project.ID, "guest", types.RoleDeveloper)
	if err != nil {
		t.Fatalf("inviting: %v", err)
	}

	err = env.invitations.Accept(asUser(bystander), invitation.ID)
	if apierr.CodeOf(err) != apierr.CodeNotAuthorized {
		t.Fatalf("bystander accept: code = %q, want not_authorized", apierr.CodeOf(err))
	}
	err = env.invitations.Decline(asUser(bystander), invitation.ID)
	if apierr.CodeOf(err) != apierr.CodeNotAuthorized {
		t.Fatalf("bystander decline: code = %q, want not_authorized", apierr.CodeOf(err))
	}

	if err := env.invitations.Decline(asUser(guest), invitation.ID); err != nil {
		t.Fatalf("guest decline: %v", err)
	}

	// Declining is terminal too.
	err = env.invitations.Accept(asUser(guest), invitation.ID)
	if apierr.CodeOf(err) != apierr.CodeConflict {
		t.Fatalf("accept after decline: code = %q, want conflict", apierr.CodeOf(err))
	}

	member, err := env.memberRepo.GetByProjectAndUser(context.Background(), nil, project.ID, guest.ID)
	if err != nil {
		t.Fatalf("fetching membership: %v", err)
	}
	if member != nil {
		t.Fatalf("declined invitation still produced a membership: %+v", member)
	}
}
