package behavior

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echoctl/echoctl/internal/core"
)

func testDevice(serial, name string) *core.Device {
	return &core.Device{
		Serial:          serial,
		Type:            "A2TYPE",
		Name:            name,
		OwnerCustomerID: "OWNER",
	}
}

func TestSequenceJSONWireFormat(t *testing.T) {
	root := Serial(Parallel(SpeakNode(testDevice("S1", "Kitchen"), "CUST", "hello")))
	out, err := SequenceJSON(root)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "com.amazon.alexa.behaviors.model.Sequence", doc["@type"])

	start := doc["startNode"].(map[string]any)
	assert.Equal(t, "com.amazon.alexa.behaviors.model.SerialNode", start["@type"])

	parallel := start["nodesToExecute"].([]any)[0].(map[string]any)
	assert.Equal(t, "com.amazon.alexa.behaviors.model.ParallelNode", parallel["@type"])

	leaf := parallel["nodesToExecute"].([]any)[0].(map[string]any)
	assert.Equal(t, "com.amazon.alexa.behaviors.model.OpaquePayloadOperationNode", leaf["@type"])
	assert.Equal(t, "Alexa.Speak", leaf["type"])

	payload := leaf["operationPayload"].(map[string]any)
	assert.Equal(t, "S1", payload["deviceSerialNumber"])
	assert.Equal(t, "A2TYPE", payload["deviceType"])
	assert.Equal(t, "CUST", payload["customerId"])
	assert.Equal(t, "hello", payload["textToSpeak"])
}

func TestTextCommandNodeCarriesSkill(t *testing.T) {
	node := TextCommandNode(testDevice("S1", "Kitchen"), "CUST", "play jazz")
	data, err := json.Marshal(node)
	require.NoError(t, err)

	var leaf map[string]any
	require.NoError(t, json.Unmarshal(data, &leaf))
	payload := leaf["operationPayload"].(map[string]any)
	assert.Equal(t, "play jazz", payload["text"])
	assert.Equal(t, "amzn1.ask.1p.tellalexa", payload["skillId"])
}

func TestAnnouncementNodeTargetsAllDevices(t *testing.T) {
	devices := []*core.Device{testDevice("S1", "Kitchen"), testDevice("S2", "Bedroom")}
	node := AnnouncementNode(devices, "CUST", "Dinner", "food is ready")
	data, err := json.Marshal(node)
	require.NoError(t, err)

	var leaf map[string]any
	require.NoError(t, json.Unmarshal(data, &leaf))
	payload := leaf["operationPayload"].(map[string]any)
	target := payload["target"].(map[string]any)
	assert.Len(t, target["devices"], 2)
	assert.Equal(t, "PT5S", payload["expireAfter"])

	content := payload["content"].([]any)[0].(map[string]any)
	speak := content["speak"].(map[string]any)
	assert.Equal(t, "text", speak["type"])
}

func TestAnnouncementNodeDetectsSSML(t *testing.T) {
	node := AnnouncementNode([]*core.Device{testDevice("S1", "")}, "CUST", "", "<speak>hi</speak>")
	data, err := json.Marshal(node)
	require.NoError(t, err)

	var leaf map[string]any
	require.NoError(t, json.Unmarshal(data, &leaf))
	payload := leaf["operationPayload"].(map[string]any)
	content := payload["content"].([]any)[0].(map[string]any)
	speak := content["speak"].(map[string]any)
	assert.Equal(t, "ssml", speak["type"])
	display := content["display"].(map[string]any)
	assert.Equal(t, "hi", display["body"])
}

func TestBuildBatchVolumeRolls(t *testing.T) {
	targets := []Target{
		{Device: testDevice("S1", "Kitchen"), TTSVolume: 60, StandardVolume: 30},
		{Device: testDevice("S2", "Bedroom"), TTSVolume: -1, StandardVolume: -1},
	}
	main, deferred := BuildBatch(KindSpeak, "hello", "", 0, targets, "CUST")
	require.NotNil(t, main)
	assert.Nil(t, deferred)

	// pre-roll, payload, post-roll
	phases := main.Children()
	require.Len(t, phases, 3)
	assert.Len(t, phases[0].Children(), 1)
	assert.Equal(t, CommandVolume, phases[0].Children()[0].Command())
	assert.Len(t, phases[1].Children(), 2)
	assert.Equal(t, CommandSpeak, phases[1].Children()[0].Command())
	assert.Len(t, phases[2].Children(), 1)

	assert.True(t, main.ContainsCommand(CommandVolume))
	assert.True(t, main.ContainsCommand(CommandSpeak))
	assert.False(t, main.ContainsCommand(CommandAnnouncement))
}

func TestBuildBatchNoVolumes(t *testing.T) {
	targets := []Target{{Device: testDevice("S1", "Kitchen"), TTSVolume: -1, StandardVolume: -1}}
	main, deferred := BuildBatch(KindSpeak, "hello", "", 0, targets, "CUST")
	require.NotNil(t, main)
	assert.Nil(t, deferred)
	require.Len(t, main.Children(), 1)
	assert.False(t, main.ContainsCommand(CommandVolume))
}

func TestBuildBatchAnnouncementDefersPostRoll(t *testing.T) {
	targets := []Target{{Device: testDevice("S1", "Kitchen"), TTSVolume: 80, StandardVolume: 40}}
	main, deferred := BuildBatch(KindAnnouncement, "dinner is ready", "Dinner", 0, targets, "CUST")
	require.NotNil(t, main)
	require.NotNil(t, deferred)

	// main carries pre-roll + announcement, restore is deferred
	require.Len(t, main.Children(), 2)
	assert.True(t, main.ContainsCommand(CommandAnnouncement))
	assert.True(t, deferred.ContainsCommand(CommandVolume))
	assert.False(t, deferred.ContainsCommand(CommandAnnouncement))
}

func TestBuildBatchVolumeKind(t *testing.T) {
	targets := []Target{
		{Device: testDevice("S1", ""), TTSVolume: -1, StandardVolume: -1},
		{Device: testDevice("S2", ""), TTSVolume: -1, StandardVolume: -1},
	}
	main, deferred := BuildBatch(KindVolume, "", "", 45, targets, "CUST")
	require.NotNil(t, main)
	assert.Nil(t, deferred)
	require.Len(t, main.Children(), 1)
	assert.Len(t, main.Children()[0].Children(), 2)
}

func TestSpokenText(t *testing.T) {
	root := Serial(Parallel(
		SpeakNode(testDevice("S1", ""), "CUST", "<speak>Hello   World</speak>"),
	))
	assert.Equal(t, "Hello World", root.SpokenText())
}
