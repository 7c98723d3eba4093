package session

import (
	"strings"
	"testing"
	"time"
)

func loggedInState() *State {
	s := NewState()
	s.RefreshToken = "Atnr|refresh-token-value"
	s.Site = "amazon.de"
	s.DeviceName = "echoctl"
	s.AccountCustomerID = "A123CUSTOMER"
	loginTime := time.UnixMilli(1720000000000)
	s.LoginTime = &loginTime
	s.Jar.Add(&Cookie{Name: "at-main", Value: "token", Domain: ".amazon.de", Path: "/", Secure: true})
	s.Jar.Add(&Cookie{Name: "session-id", Value: "sid", Domain: "www.amazon.de", Path: "/", MaxAge: 3600})
	return s
}

func TestSerializeRoundTrip(t *testing.T) {
	original := loggedInState()
	blob := original.Serialize()
	if blob == "" {
		t.Fatal("expected non-empty blob for logged-in state")
	}

	restored := NewState()
	if err := restored.Deserialize(blob); err != nil {
		t.Fatalf("deserialize failed: %v", err)
	}

	if restored.Serialize() != blob {
		t.Error("round-tripped blob differs from original")
	}
	if restored.FRC != original.FRC {
		t.Error("frc not preserved")
	}
	if restored.RefreshToken != original.RefreshToken {
		t.Error("refresh token not preserved")
	}
	if restored.Site != "amazon.de" {
		t.Errorf("site not preserved, got %q", restored.Site)
	}
	if !restored.LoginTime.Equal(*original.LoginTime) {
		t.Error("login time not preserved")
	}

	cookies := restored.Jar.All()
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}
	if !cookies[0].Secure {
		t.Error("secure flag not preserved")
	}
	if cookies[1].MaxAge != 3600 {
		t.Errorf("max age not preserved, got %d", cookies[1].MaxAge)
	}
}

func TestSerializeNotLoggedIn(t *testing.T) {
	s := NewState()
	if blob := s.Serialize(); blob != "" {
		t.Errorf("expected empty blob for fresh state, got %d bytes", len(blob))
	}

	s.RefreshToken = "token-but-no-login-time"
	if blob := s.Serialize(); blob != "" {
		t.Error("expected empty blob without login time")
	}
}

func TestDeserializeUnknownVersion(t *testing.T) {
	s := loggedInState()
	blob := s.Serialize()
	bad := "6" + blob[1:]

	restored := NewState()
	originalFRC := restored.FRC
	if err := restored.Deserialize(bad); err == nil {
		t.Fatal("expected error for unknown version")
	}
	// fails closed, state unchanged
	if restored.FRC != originalFRC {
		t.Error("state mutated by failed deserialize")
	}
}

func TestDeserializeTruncated(t *testing.T) {
	blob := loggedInState().Serialize()
	lines := strings.Split(blob, "\n")
	truncated := strings.Join(lines[:len(lines)/2], "\n")

	restored := NewState()
	before := restored.Serialize()
	if err := restored.Deserialize(truncated); err == nil {
		t.Fatal("expected error for truncated blob")
	}
	if restored.Serialize() != before {
		t.Error("state mutated by failed deserialize")
	}
}

func TestDeserializeGarbage(t *testing.T) {
	restored := NewState()
	if err := restored.Deserialize("not a session blob"); err == nil {
		t.Fatal("expected error for garbage input")
	}
}

func TestNewStateIdentity(t *testing.T) {
	s := NewState()

	if len(s.Serial) != 32 {
		t.Errorf("expected 32 hex chars of serial, got %d", len(s.Serial))
	}
	if s.FRC == "" {
		t.Error("expected non-empty install fingerprint")
	}
	if s.DeviceID == "" {
		t.Error("expected non-empty device id")
	}
	if s.Site != "amazon.com" {
		t.Errorf("expected default site, got %q", s.Site)
	}

	other := NewState()
	if other.Serial == s.Serial {
		t.Error("expected distinct serials per state")
	}
}
