// Package behavior turns command requests into the hierarchical
// execution-node documents the remote automation API expects, batches
// near-simultaneous requests and serializes execution per device.
package behavior

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/echoctl/echoctl/internal/core"
)

// Wire type tags of the execution-node tree.
const (
	typeSequence = "com.amazon.alexa.behaviors.model.Sequence"
	typeOpaque   = "com.amazon.alexa.behaviors.model.OpaquePayloadOperationNode"
	typeParallel = "com.amazon.alexa.behaviors.model.ParallelNode"
	typeSerial   = "com.amazon.alexa.behaviors.model.SerialNode"
)

// Leaf command types.
const (
	CommandSpeak        = "Alexa.Speak"
	CommandTextCommand  = "Alexa.TextCommand"
	CommandVolume       = "Alexa.DeviceControls.Volume"
	CommandAnnouncement = "AlexaAnnouncement"

	textCommandSkillID = "amzn1.ask.1p.tellalexa"
)

type nodeKind int

const (
	kindOpaque nodeKind = iota
	kindParallel
	kindSerial
)

// Node is one element of the execution tree: an opaque leaf command or
// a parallel/serial combinator. Immutable once constructed.
type Node struct {
	kind     nodeKind
	command  string
	payload  map[string]any
	children []*Node
}

// Opaque creates a leaf node carrying one remote command.
func Opaque(command string, payload map[string]any) *Node {
	return &Node{kind: kindOpaque, command: command, payload: payload}
}

// Parallel wraps nodes for concurrent execution.
func Parallel(children ...*Node) *Node {
	return &Node{kind: kindParallel, children: children}
}

// Serial wraps nodes for ordered execution.
func Serial(children ...*Node) *Node {
	return &Node{kind: kindSerial, children: children}
}

// Command returns the leaf command type, or "" for combinators.
func (n *Node) Command() string {
	return n.command
}

// Children returns the combinator children, nil for leaves.
func (n *Node) Children() []*Node {
	return n.children
}

func (n *Node) MarshalJSON() ([]byte, error) {
	switch n.kind {
	case kindOpaque:
		return json.Marshal(map[string]any{
			"@type":            typeOpaque,
			"type":             n.command,
			"operationPayload": n.payload,
		})
	case kindParallel:
		return json.Marshal(map[string]any{
			"@type":          typeParallel,
			"nodesToExecute": n.children,
		})
	case kindSerial:
		return json.Marshal(map[string]any{
			"@type":          typeSerial,
			"nodesToExecute": n.children,
		})
	}
	return nil, fmt.Errorf("unknown node kind %d", n.kind)
}

// ContainsCommand reports whether any leaf in the tree carries the
// given command type.
func (n *Node) ContainsCommand(command string) bool {
	if n == nil {
		return false
	}
	if n.kind == kindOpaque {
		return n.command == command
	}
	for _, child := range n.children {
		if child.ContainsCommand(command) {
			return true
		}
	}
	return false
}

// SpokenText concatenates the plain spoken text of all leaves, used to
// estimate playback duration.
func (n *Node) SpokenText() string {
	if n == nil {
		return ""
	}
	if n.kind != kindOpaque {
		var b strings.Builder
		for _, child := range n.children {
			b.WriteString(child.SpokenText())
		}
		return b.String()
	}
	switch n.command {
	case CommandSpeak:
		if text, ok := n.payload["textToSpeak"].(string); ok {
			return PlainText(text)
		}
	case CommandTextCommand:
		if text, ok := n.payload["text"].(string); ok {
			return PlainText(text)
		}
	case CommandAnnouncement:
		if content, ok := n.payload["content"].([]map[string]any); ok {
			var b strings.Builder
			for _, entry := range content {
				if display, ok := entry["display"].(map[string]any); ok {
					if body, ok := display["body"].(string); ok {
						b.WriteString(PlainText(body))
					}
				}
			}
			return b.String()
		}
	}
	return ""
}

// SequenceJSON serializes a node tree into the sequence document the
// preview endpoint accepts.
func SequenceJSON(root *Node) (string, error) {
	doc := map[string]any{
		"@type":     typeSequence,
		"startNode": root,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal sequence: %w", err)
	}
	return string(data), nil
}

func deviceTarget(d *core.Device, customerID string) map[string]any {
	return map[string]any{
		"deviceType":         d.Type,
		"deviceSerialNumber": d.Serial,
		"locale":             "en-US",
		"customerId":         customerID,
	}
}

// SpeakNode builds a text-to-speech leaf for one device.
func SpeakNode(d *core.Device, customerID, text string) *Node {
	payload := deviceTarget(d, customerID)
	payload["textToSpeak"] = text
	return Opaque(CommandSpeak, payload)
}

// TextCommandNode builds a typed-utterance leaf for one device.
func TextCommandNode(d *core.Device, customerID, text string) *Node {
	payload := deviceTarget(d, customerID)
	payload["text"] = text
	payload["skillId"] = textCommandSkillID
	return Opaque(CommandTextCommand, payload)
}

// VolumeNode builds a volume-set leaf for one device.
func VolumeNode(d *core.Device, customerID string, volume int) *Node {
	payload := deviceTarget(d, customerID)
	payload["value"] = volume
	return Opaque(CommandVolume, payload)
}

// AnnouncementNode builds a single announcement leaf addressing every
// given device at once.
func AnnouncementNode(devices []*core.Device, customerID, title, body string) *Node {
	if title == "" {
		title = "Announcement"
	}
	targets := make([]map[string]any, 0, len(devices))
	for _, d := range devices {
		targets = append(targets, map[string]any{
			"deviceSerialNumber": d.Serial,
			"deviceTypeId":       d.Type,
		})
	}
	speak := map[string]any{"type": "text", "value": body}
	if strings.HasPrefix(strings.TrimSpace(body), "<speak>") {
		speak = map[string]any{"type": "ssml", "value": body}
	}
	return Opaque(CommandAnnouncement, map[string]any{
		"expireAfter": "PT5S",
		"content": []map[string]any{
			{
				"locale": "en-US",
				"display": map[string]any{
					"title": title,
					"body":  PlainText(body),
				},
				"speak": speak,
			},
		},
		"target": map[string]any{
			"customerId": customerID,
			"devices":    targets,
		},
		"customerId": customerID,
	})
}

// Target pairs a device with the volume levels requested for it. A
// negative volume means "leave unchanged".
type Target struct {
	Device         *core.Device
	TTSVolume      int
	StandardVolume int
}

// BuildBatch assembles the execution tree for one flushed batch:
// volume pre-roll, the payload phase, and a volume post-roll restoring
// each device's standard volume. For announcements the post-roll is
// returned separately so it can be dispatched as its own unit after
// the announcement has played.
func BuildBatch(kind Kind, text, title string, volume int, targets []Target, customerID string) (main, deferred *Node) {
	var preRoll, payload, postRoll []*Node

	for _, t := range targets {
		if t.TTSVolume >= 0 && t.TTSVolume != t.StandardVolume {
			preRoll = append(preRoll, VolumeNode(t.Device, customerID, t.TTSVolume))
			if t.StandardVolume >= 0 {
				postRoll = append(postRoll, VolumeNode(t.Device, customerID, t.StandardVolume))
			}
		}
	}

	switch kind {
	case KindSpeak:
		for _, t := range targets {
			payload = append(payload, SpeakNode(t.Device, customerID, text))
		}
	case KindTextCommand:
		for _, t := range targets {
			payload = append(payload, TextCommandNode(t.Device, customerID, text))
		}
	case KindVolume:
		for _, t := range targets {
			payload = append(payload, VolumeNode(t.Device, customerID, volume))
		}
	case KindAnnouncement:
		devices := make([]*core.Device, 0, len(targets))
		for _, t := range targets {
			devices = append(devices, t.Device)
		}
		payload = append(payload, AnnouncementNode(devices, customerID, title, text))
	}

	var phases []*Node
	if len(preRoll) > 0 {
		phases = append(phases, Parallel(preRoll...))
	}
	if len(payload) > 0 {
		phases = append(phases, Parallel(payload...))
	}

	if len(postRoll) > 0 {
		if kind == KindAnnouncement {
			deferred = Serial(Parallel(postRoll...))
		} else {
			phases = append(phases, Parallel(postRoll...))
		}
	}

	if len(phases) == 0 {
		return nil, deferred
	}
	return Serial(phases...), deferred
}
