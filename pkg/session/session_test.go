package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vanderheijden86/coursework/pkg/model"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestLoadMissingIsNoSession(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "session.json"))
	if _, err := s.Load(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestSaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.json")
	s := NewStore(path)

	cred := Credential{
		Token: "abc",
		User:  model.User{ID: "u1", Name: "Ada", Email: "ada@example.com", Role: model.RoleStudent},
	}
	if err := s.Save(cred); err != nil {
		t.Fatalf("save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected 0600, got %o", perm)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Token != "abc" || got.User.Name != "Ada" || got.User.Role != model.RoleStudent {
		t.Errorf("unexpected credential %+v", got)
	}
	if got.SavedAt.IsZero() {
		t.Error("expected SavedAt to be stamped")
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := s.Load(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after clear, got %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Errorf("second clear should be a no-op, got %v", err)
	}
}

func TestSaveRejectsEmpty(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "session.json"))
	if err := s.Save(Credential{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := NewStore(path).Load()
	if err == nil || errors.Is(err, ErrNoSession) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestDefaultPathUsesStateHome(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/state-home")
	if got := NewStore("").Path(); got != "/tmp/state-home/coursework/session.json" {
		t.Errorf("unexpected path %q", got)
	}
}

func TestExpiryAndValidity(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	live := Credential{Token: signed(t, jwt.MapClaims{"id": "u1", "exp": now.Add(time.Hour).Unix()})}
	exp, ok := live.ExpiresAt()
	if !ok || !exp.Equal(now.Add(time.Hour)) {
		t.Errorf("unexpected exp %v ok=%v", exp, ok)
	}
	if !live.Valid(now) {
		t.Error("unexpired token should be valid")
	}

	expired := Credential{Token: signed(t, jwt.MapClaims{"exp": now.Add(-time.Minute).Unix()})}
	if expired.Valid(now) {
		t.Error("expired token should be invalid")
	}

	noExp := Credential{Token: signed(t, jwt.MapClaims{"id": "u1"})}
	if _, ok := noExp.ExpiresAt(); ok {
		t.Error("expected no exp claim")
	}
	if !noExp.Valid(now) {
		t.Error("token without exp is trusted")
	}

	opaque := Credential{Token: "opaque-session-token"}
	if !opaque.Valid(now) {
		t.Error("opaque token is trusted until the server rejects it")
	}

	if (Credential{}).Valid(now) {
		t.Error("empty credential is never valid")
	}
}
