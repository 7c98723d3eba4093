package core

import (
	"encoding/json"
	"testing"
)

func TestDeviceJSONMapping(t *testing.T) {
	raw := `{
		"serialNumber": "G09XXXXXXXX",
		"deviceType": "A2TYPE",
		"accountName": "Kitchen",
		"deviceFamily": "ECHO",
		"deviceOwnerCustomerId": "A1CUSTOMER",
		"softwareVersion": "12345",
		"online": true,
		"capabilities": ["AUDIO_PLAYER", "VOLUME_SETTING"]
	}`

	var d Device
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if d.Serial != "G09XXXXXXXX" {
		t.Errorf("serial = %q", d.Serial)
	}
	if d.Family != FamilyEcho {
		t.Errorf("family = %q", d.Family)
	}
	if d.OwnerCustomerID != "A1CUSTOMER" {
		t.Errorf("owner = %q", d.OwnerCustomerID)
	}
	if !d.Online {
		t.Error("expected online")
	}
}

func TestHasCapability(t *testing.T) {
	d := Device{Capabilities: []string{"AUDIO_PLAYER", "VOLUME_SETTING"}}
	if !d.HasCapability("VOLUME_SETTING") {
		t.Error("expected capability present")
	}
	if d.HasCapability("BLUETOOTH") {
		t.Error("expected capability absent")
	}
	empty := Device{}
	if empty.HasCapability("AUDIO_PLAYER") {
		t.Error("expected no capabilities")
	}
}
