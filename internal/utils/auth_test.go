package utils

import "testing"

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash equals plaintext")
	}
	if !CheckPassword(hash, "correct horse battery staple") {
		t.Fatal("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatal("wrong password accepted")
	}
}

func TestNormalize(t *testing.T) {
	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Fatalf("NormalizeEmail = %q", got)
	}
	if got := NormalizeUsername(" Alice "); got != "alice" {
		t.Fatalf("NormalizeUsername = %q", got)
	}
}

func TestValidEmail(t *testing.T) {
	valid := []string{"a@b.co", "first.last@example.com"}
	invalid := []string{"", "no-at-sign", "@example.com", "spaces in@example.com"}
	for _, e := range valid {
		if !ValidEmail(e) {
			t.Errorf("ValidEmail(%q) = false", e)
		}
	}
	for _, e := range invalid {
		if ValidEmail(e) {
			t.Errorf("ValidEmail(%q) = true", e)
		}
	}
}

func TestValidPassword(t *testing.T) {
	if ValidPassword("short") {
		t.Fatal("7-char password accepted")
	}
	if !ValidPassword("12345678") {
		t.Fatal("8-char password rejected")
	}
}
