package services

import (
	"context"
	"testing"

	"github.com/taskflowhq/taskflow-backend/internal/apierr"
	"github.com/taskflowhq/taskflow-backend/internal/requestdata"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.auth.Register(context.Background(), RegisterInput{
		Username:  "Carol",
		Email:     "Carol@Example.com",
		Password:  "hunter2hunter2",
		FirstName: "Carol",
		LastName:  "Jones",
	})
	if err != nil {
		t.Fatalf("registering: %v", err)
	}
	if user.Username != "carol" || user.Email != "carol@example.com" {
		t.Fatalf("identifiers not normalized: %q %q", user.Username, user.Email)
	}
	if user.Password == "hunter2hunter2" {
		t.Fatal("password stored in the clear")
	}

	// Login works by username, by email, and is case-insensitive.
	for _, identifier := range []string{"carol", "CAROL", "carol@example.com"} {
		if _, err := env.auth.Login(context.Background(), identifier, "hunter2hunter2"); err != nil {
			t.Errorf("login as %q: %v", identifier, err)
		}
	}

	_, err = env.auth.Login(context.Background(), "carol", "wrong-password")
	if apierr.CodeOf(err) != apierr.CodeUnauthorized {
		t.Fatalf("wrong password: code = %q, want unauthorized", apierr.CodeOf(err))
	}
	_, err = env.auth.Login(context.Background(), "nobody", "hunter2hunter2")
	if apierr.CodeOf(err) != apierr.CodeUnauthorized {
		t.Fatalf("unknown user: code = %q, want unauthorized", apierr.CodeOf(err))
	}
}

func TestRegisterRejections(t *testing.T) {
	env := newTestEnv(t)
	base := RegisterInput{
		Username:  "dave",
		Email:     "dave@example.com",
		Password:  "longenough",
		FirstName: "Dave",
		LastName:  "Smith",
	}
	if _, err := env.auth.Register(context.Background(), base); err != nil {
		t.Fatalf("registering: %v", err)
	}

	dup := base
	dup.Email = "other@example.com"
	_, err := env.auth.Register(context.Background(), dup)
	if apierr.CodeOf(err) != apierr.CodeConflict {
		t.Fatalf("duplicate username: code = %q, want conflict", apierr.CodeOf(err))
	}

	dup = base
	dup.Username = "dave2"
	_, err = env.auth.Register(context.Background(), dup)
	if apierr.CodeOf(err) != apierr.CodeConflict {
		t.Fatalf("duplicate email: code = %q, want conflict", apierr.CodeOf(err))
	}

	short := base
	short.Username = "dave3"
	short.Email = "dave3@example.com"
	short.Password = "short"
	_, err = env.auth.Register(context.Background(), short)
	if apierr.CodeOf(err) != apierr.CodeInvalidInput {
		t.Fatalf("short password: code = %q, want invalid_input", apierr.CodeOf(err))
	}

	bad := base
	bad.Username = "dave4"
	bad.Email = "not-an-email"
	_, err = env.auth.Register(context.Background(), bad)
	if apierr.CodeOf(err) != apierr.CodeInvalidInput {
		t.Fatalf("bad email: code = %q, want invalid_input", apierr.CodeOf(err))
	}
}

func TestRefreshRotation(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.auth.Register(context.Background(), RegisterInput{
		Username:  "erin",
		Email:     "erin@example.com",
		Password:  "password123",
		FirstName: "Erin",
		LastName:  "Brown",
	}); err != nil {
		t.Fatalf("registering: %v", err)
	}
	pair, err := env.auth.Login(context.Background(), "erin", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	next, err := env.auth.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	// The old token is dead after rotation.
	_, err = env.auth.Refresh(context.Background(), pair.RefreshToken)
	if apierr.CodeOf(err) != apierr.CodeUnauthorized {
		t.Fatalf("replayed refresh: code = %q, want unauthorized", apierr.CodeOf(err))
	}
}

func TestTokenRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	user, err := env.auth.Register(context.Background(), RegisterInput{
		Username:  "frank",
		Email:     "frank@example.com",
		Password:  "password123",
		FirstName: "Frank",
		LastName:  "Green",
	})
	if err != nil {
		t.Fatalf("registering: %v", err)
	}
	pair, err := env.auth.Login(context.Background(), "frank", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	ctx, err := env.auth.ContextFromToken(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("validating token: %v", err)
	}
	if got := requestdata.UserID(ctx); got != user.ID {
		t.Fatalf("context user = %s, want %s", got, user.ID)
	}

	if _, err := env.auth.ContextFromToken(context.Background(), "garbage.token.here"); err == nil {
		t.Fatal("garbage token accepted")
	}

	// Logout invalidates all refresh tokens.
	if err := env.auth.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	_, err = env.auth.Refresh(context.Background(), pair.RefreshToken)
	if apierr.CodeOf(err) != apierr.CodeUnauthorized {
		t.Fatalf("refresh after logout: code = %q, want unauthorized", apierr.CodeOf(err))
	}
}
