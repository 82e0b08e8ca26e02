package services

import (
	"context"
	"testing"

	"github.com/taskflowhq/taskflow-backend/internal/apierr"
)

func TestGetMeAndUpdateName(t *testing.T) {
	env := newTestEnv(t)
	user := env.mustUser(t, "grace")

	me, err := env.users.GetMe(asUser(user))
	if err != nil {
		t.Fatalf("GetMe: %v", err)
	}
	if me.ID != user.ID {
		t.Fatalf("GetMe returned %s, want %s", me.ID, user.ID)
	}

	updated, err := env.users.UpdateName(asUser(user), "Grace", "Hopper")
	if err != nil {
		t.Fatalf("UpdateName: %v", err)
	}
	if updated.FirstName != "Grace" || updated.LastName != "Hopper" {
		t.Fatalf("name = %q %q", updated.FirstName, updated.LastName)
	}

	_, err = env.users.UpdateName(asUser(user), "", "Hopper")
	if apierr.CodeOf(err) != apierr.CodeInvalidInput {
		t.Fatalf("blank first name: code = %q, want invalid_input", apierr.CodeOf(err))
	}

	_, err = env.users.GetMe(context.Background())
	if apierr.CodeOf(err) != apierr.CodeUnauthorized {
		t.Fatalf("anonymous GetMe: code = %q, want unauthorized", apierr.CodeOf(err))
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	user := env.mustUser(t, "heidi")

	err := env.users.ChangePassword(asUser(user), "wrong-old", "newpassword1")
	if apierr.CodeOf(err) != apierr.CodeUnauthorized {
		t.Fatalf("wrong old password: code = %q, want unauthorized", apierr.CodeOf(err))
	}
	err = env.users.ChangePassword(asUser(user), "password123", "short")
	if apierr.CodeOf(err) != apierr.CodeInvalidInput {
		t.Fatalf("short new password: code = %q, want invalid_input", apierr.CodeOf(err))
	}
	if err := env.users.ChangePassword(asUser(user), "password123", "newpassword1"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := env.auth.Login(context.Background(), "heidi", "newpassword1"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestSearchByName(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustUser(t, "asearch")
	alice.FirstName = "Alice"
	alice.LastName = "Walker"
	if _, err := env.userRepo.Save(context.Background(), nil, alice); err != nil {
		t.Fatalf("saving user: %v", err)
	}
	env.mustUser(t, "bsearch")

	matches, err := env.users.SearchByName(asUser(alice), "alice wal")
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != alice.ID {
		t.Fatalf("search returned %d users", len(matches))
	}

	empty, err := env.users.SearchByName(asUser(alice), "   ")
	if err != nil {
		t.Fatalf("blank search: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("blank search returned %d users", len(empty))
	}
}
