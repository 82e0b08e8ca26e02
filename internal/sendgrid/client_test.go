package sendgrid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/taskflowhq/taskflow-backend/internal/logger"
)

func testClient(t *testing.T, baseURL string) Client {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("creating logger: %v", err)
	}
	c, err := New(log, Config{
		APIKey:           "test-key",
		BaseURL:          baseURL,
		DefaultFromEmail: "noreply@example.com",
		DefaultFromName:  "TaskFlow",
	})
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}
	return c
}

func TestSendBuildsMailSendRequest(t *testing.T) {
	var got mailSendRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if r.URL.Path != "/v3/mail/send" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.Header().Set("X-Message-Id", "msg-123")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	res, err := c.Send(context.Background(), SendEmailRequest{
		To:      []EmailAddress{{Email: "dev@example.com"}},
		Subject: "Invitation",
		Text:    "You have been invited.",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if auth != "Bearer test-key" {
		t.Errorf("authorization = %q", auth)
	}
	if res.MessageID != "msg-123" || res.StatusCode != http.StatusAccepted {
		t.Errorf("result = %+v", res)
	}
	if got.From.Email != "noreply@example.com" {
		t.Errorf("default from not applied: %+v", got.From)
	}
	if len(got.Personalizations) != 1 || got.Personalizations[0].To[0].Email != "dev@example.com" {
		t.Errorf("personalizations = %+v", got.Personalizations)
	}
	if len(got.Content) != 1 || got.Content[0].Type != "text/plain" {
		t.Errorf("content = %+v", got.Content)
	}
}

func TestSendSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"message":"bad key"}]}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.Send(context.Background(), SendEmailRequest{
		To:      []EmailAddress{{Email: "dev@example.com"}},
		Subject: "Invitation",
		Text:    "body",
	})
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestSendValidatesInput(t *testing.T) {
	c := testClient(t, "http://localhost:1")
	if _, err := c.Send(context.Background(), SendEmailRequest{
		Subject: "no recipients", Text: "body",
	}); err == nil {
		t.Fatal("missing To accepted")
	}
	if _, err := c.Send(context.Background(), SendEmailRequest{
		To: []EmailAddress{{Email: "a@b.co"}}, Text: "body",
	}); err == nil {
		t.Fatal("missing Subject accepted")
	}
}
