package main

import (
	"strings"
	"testing"
)

func TestRegisterAndLogin(t *testing.T) {
	db := testDB(t)
	auth := NewAuth(db)

	id, token, err := auth.Register("alice", "secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id == 0 || token == "" {
		t.Fatal("register returned empty identity")
	}

	// The token round-trips
	gotID, gotName, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if gotID != id || gotName != "alice" {
		t.Errorf("token claims = %d/%q, want %d/alice", gotID, gotName, id)
	}

	// Credentials log in
	loginID, loginToken, err := auth.Login("alice", "secret", "1.2.3.4")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if loginID != id || loginToken == "" {
		t.Error("login returned wrong identity")
	}

	if _, _, err := auth.Login("alice", "wrong", "1.2.3.4"); err == nil {
		t.Error("wrong password should fail")
	}
	if _, _, err := auth.Login("nobody", "secret", "1.2.3.4"); err == nil {
		t.Error("unknown user should fail")
	}
}

func TestRegisterValidation(t *testing.T) {
	db := testDB(t)
	auth := NewAuth(db)

	if _, _, err := auth.Register("a", "secret"); err == nil {
		t.Error("too-short username should fail")
	}
	if _, _, err := auth.Register(strings.Repeat("x", 40), "secret"); err == nil {
		t.Error("too-long username should fail")
	}
	if _, _, err := auth.Register("alice", "abc"); err == nil {
		t.Error("too-short password should fail")
	}

	if _, _, err := auth.Register("alice", "secret"); err != nil {
		t.Fatalf("valid register: %v", err)
	}
	if _, _, err := auth.Register("alice", "other"); err == nil {
		t.Error("duplicate username should fail")
	}
}

func TestTokenTamperRejected(t *testing.T) {
	db := testDB(t)
	auth := NewAuth(db)

	_, token, err := auth.Register("alice", "secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, _, err := auth.ValidateToken(tampered); err == nil {
		t.Error("tampered token should be rejected")
	}
	if _, _, err := auth.ValidateToken("not.a.jwt"); err == nil {
		t.Error("garbage token should be rejected")
	}
}

func TestJWTSecretPersists(t *testing.T) {
	db := testDB(t)

	first := NewAuth(db)
	_, token, err := first.Register("alice", "secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// A second Auth over the same database shares the stored secret
	second := NewAuth(db)
	if _, _, err := second.ValidateToken(token); err != nil {
		t.Errorf("token issued before restart no longer validates: %v", err)
	}
}

func TestLoginRateLimit(t *testing.T) {
	db := testDB(t)
	auth := NewAuth(db)
	auth.Register("alice", "secret")

	for i := 0; i < maxLoginAttempts; i++ {
		auth.Login("alice", "wrong", "9.9.9.9")
	}
	_, _, err := auth.Login("alice", "secret", "9.9.9.9")
	if err == nil {
		t.Error("rate limit should block further attempts from the same IP")
	}

	// Other IPs are unaffected
	if _, _, err := auth.Login("alice", "secret", "8.8.8.8"); err != nil {
		t.Errorf("unrelated IP blocked: %v", err)
	}
}

func TestGuestNames(t *testing.T) {
	a, b := GenerateGuestName(), GenerateGuestName()
	if !strings.HasPrefix(a, "Guest_") {
		t.Errorf("guest name %q missing prefix", a)
	}
	if a == b {
		t.Error("consecutive guest names collided")
	}
}
