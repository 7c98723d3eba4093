package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.txt")
	storage, err := NewStorage(path)
	if err != nil {
		t.Fatal(err)
	}

	if storage.Exists() {
		t.Error("expected no session file initially")
	}
	blob, err := storage.Load()
	if err != nil {
		t.Fatalf("load of absent file failed: %v", err)
	}
	if blob != "" {
		t.Error("expected empty blob for absent file")
	}

	if err := storage.Save("7\ncontent"); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !storage.Exists() {
		t.Error("expected session file to exist")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	blob, err = storage.Load()
	if err != nil {
		t.Fatal(err)
	}
	if blob != "7\ncontent" {
		t.Errorf("unexpected blob %q", blob)
	}

	if err := storage.Delete(); err != nil {
		t.Fatal(err)
	}
	if storage.Exists() {
		t.Error("expected session file removed")
	}
	// deleting again is not an error
	if err := storage.Delete(); err != nil {
		t.Errorf("second delete failed: %v", err)
	}
}
