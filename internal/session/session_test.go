package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/poskit/backoffice/internal/catalog"
)

func TestLoad_MissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := s.Token(); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("empty session Token() error = %v, want ErrNotAuthenticated", err)
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	s := New()
	s.SetUser(catalog.User{ID: "u1", Name: "Ada Admin", Email: "ada@shop.test", Role: "admin"})
	s.SetToken("tok-123")

	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tok, err := loaded.Token()
	if err != nil || tok != "tok-123" {
		t.Errorf("Token() = %q, %v", tok, err)
	}
	if loaded.User().Email != "ada@shop.test" {
		t.Errorf("User().Email = %q", loaded.User().Email)
	}
}

func TestSave_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := New()
	s.SetToken("secret")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("session file mode = %o, want 600", perm)
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() should fail on a corrupt session file")
	}
}

func TestClear(t *testing.T) {
	s := New()
	s.SetUser(catalog.User{ID: "u1"})
	s.SetToken("tok")
	s.Clear()

	if _, err := s.Token(); !errors.Is(err, ErrNotAuthenticated) {
		t.Error("Clear() should drop the token")
	}
	if s.User().ID != "" {
		t.Error("Clear() should drop the user")
	}
}
