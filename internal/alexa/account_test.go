package alexa

import (
	"context"
	"path/filepath"
	"testing"
)

func TestLogoutStopsDispatcher(t *testing.T) {
	account, err := NewAccount(filepath.Join(t.TempDir(), "session"))
	if err != nil {
		t.Fatal(err)
	}
	account.Start(context.Background())

	if err := account.Logout(); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if !account.dispatcher.Stopped() {
		t.Error("expected dispatch loop halted after logout")
	}
	if account.dispatcher.Pending() != 0 {
		t.Error("expected queues cleared after logout")
	}
	if account.manager.IsLoggedIn() {
		t.Error("expected session cleared after logout")
	}
	if account.storage.Exists() {
		t.Error("expected session file removed after logout")
	}
}
