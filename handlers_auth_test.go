package main

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizeEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"User@Example.COM", "user@example.com", true},
		{"  a@b.co  ", "a@b.co", true},
		{"", "", false},
		{"no-at-sign", "", false},
		{"@nothing", "", false},
		{"trailing@", "", false},
		{"two@@ats", "", false},
	}
	for _, tc := range cases {
		got, ok := normalizeEmail(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("normalizeEmail(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestCheckPasswordPair(t *testing.T) {
	if problem := checkPasswordPair("short", "short"); problem == "" {
		t.Error("short password accepted")
	}
	if problem := checkPasswordPair("longenough", "different"); problem == "" {
		t.Error("mismatched confirmation accepted")
	}
	if problem := checkPasswordPair("longenough", "longenough"); problem != "" {
		t.Errorf("valid pair rejected: %s", problem)
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := hashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	if !checkPasswordHash("correct horse battery", hash) {
		t.Error("correct password rejected")
	}
	if checkPasswordHash("wrong password", hash) {
		t.Error("wrong password accepted")
	}
}

func TestCSRFTokenRoundTrip(t *testing.T) {
	const key = "test-csrf-key"
	token := generateCSRFToken(42, key)
	if !validateCSRFToken(token, 42, key) {
		t.Error("freshly generated token rejected")
	}
	if validateCSRFToken(token, 43, key) {
		t.Error("token accepted for another user")
	}
	if validateCSRFToken(token, 42, "other-key") {
		t.Error("token accepted under a different key")
	}
}

func TestSessionCookieLifecycle(t *testing.T) {
	app := &App{sessionKey: "session-secret"}

	rec := httptest.NewRecorder()
	app.setSessionCookie(rec, 7)
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != "session" || c.Value != "7:session-secret" {
		t.Errorf("cookie = %s=%s, want session=7:session-secret", c.Name, c.Value)
	}
	if !c.HttpOnly || !c.Secure {
		t.Error("session cookie must be HttpOnly and Secure")
	}
	parts := strings.Split(c.Value, ":")
	if len(parts) != 2 || parts[1] != app.sessionKey {
		t.Errorf("cookie value %q does not carry the session key", c.Value)
	}

	rec = httptest.NewRecorder()
	clearSessionCookie(rec)
	cookies = rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge != -1 {
		t.Error("clearSessionCookie did not expire the cookie")
	}
}
