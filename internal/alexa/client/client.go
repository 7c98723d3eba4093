// Package client implements the typed API surface of the remote speaker
// service on top of the session and transport layers.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/echoctl/echoctl/internal/alexa/session"
	"github.com/echoctl/echoctl/internal/alexa/transport"
	"github.com/echoctl/echoctl/internal/core"
	ctlerrors "github.com/echoctl/echoctl/internal/errors"
)

// Client issues API calls against the regional service endpoint. All
// calls renew the session first when the renewal watermark has passed.
type Client struct {
	manager *session.Manager
	exec    *transport.Executor
	logf    func(format string, args ...any)
}

// New creates a Client bound to the given session manager.
func New(manager *session.Manager) *Client {
	return &Client{
		manager: manager,
		exec:    manager.Executor(),
	}
}

// SetLogFunc installs a verbose logging hook.
func (c *Client) SetLogFunc(logf func(format string, args ...any)) {
	c.logf = logf
}

func (c *Client) log(format string, args ...any) {
	if c.logf != nil {
		c.logf(format, args...)
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	// Reads proceed on renewal failure; the verified cookie set may
	// outlive the watermark.
	if _, err := c.manager.EnsureFresh(ctx); err != nil {
		c.log("[client] session renewal failed: %v", err)
	}
	body, err := c.exec.Get(ctx, c.manager.APIBase()+path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return &ctlerrors.MalformedResponse{URL: path, Err: err}
	}
	return nil
}

func (c *Client) sendJSON(ctx context.Context, method, path string, payload any) error {
	if _, err := c.manager.EnsureFresh(ctx); err != nil {
		return fmt.Errorf("session renewal failed: %w", err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	_, err = c.exec.SendString(ctx, method, c.manager.APIBase()+path, string(body), true, nil)
	return err
}

// DeviceList fetches all devices of the account, deduplicated by
// serial number. The service occasionally reports a device twice.
func (c *Client) DeviceList(ctx context.Context) ([]core.Device, error) {
	var resp deviceListResponse
	if err := c.getJSON(ctx, "/api/devices-v2/device?cached=false", &resp); err != nil {
		return nil, err
	}

	return dedupBySerial(resp.Devices), nil
}

func dedupBySerial(devices []core.Device) []core.Device {
	seen := make(map[string]bool, len(devices))
	out := make([]core.Device, 0, len(devices))
	for _, d := range devices {
		if seen[d.Serial] {
			continue
		}
		seen[d.Serial] = true
		out = append(out, d)
	}
	return out
}

// FindDevice resolves a device by serial number or name (case
// insensitive).
func (c *Client) FindDevice(ctx context.Context, key string) (*core.Device, error) {
	devices, err := c.DeviceList(ctx)
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if devices[i].Serial == key || strings.EqualFold(devices[i].Name, key) {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ctlerrors.ErrDeviceNotFound, key)
}

// PlayerState fetches the playback state of a device.
func (c *Client) PlayerState(ctx context.Context, device *core.Device) (*PlayerState, error) {
	path := "/api/np/player?deviceSerialNumber=" + url.QueryEscape(device.Serial) +
		"&deviceType=" + url.QueryEscape(device.Type) +
		"&screenWidth=1440"
	var resp playerStateResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	if resp.PlayerInfo == nil {
		return &PlayerState{}, nil
	}
	return resp.PlayerInfo, nil
}

// MediaState fetches the media session state of a device.
func (c *Client) MediaState(ctx context.Context, device *core.Device) (*MediaState, error) {
	path := "/api/media/state?deviceSerialNumber=" + url.QueryEscape(device.Serial) +
		"&deviceType=" + url.QueryEscape(device.Type)
	var state MediaState
	if err := c.getJSON(ctx, path, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// WakeWords lists the configured wake words. It degrades to an empty
// list on error.
func (c *Client) WakeWords(ctx context.Context) []WakeWord {
	var resp wakeWordsResponse
	if err := c.getJSON(ctx, "/api/wake-word?cached=true", &resp); err != nil {
		c.log("[client] wake words unavailable: %v", err)
		return nil
	}
	return resp.WakeWords
}

// Notifications lists timers, alarms and reminders across devices. It
// degrades to an empty list on error.
func (c *Client) Notifications(ctx context.Context) []Notification {
	var resp notificationsResponse
	if err := c.getJSON(ctx, "/api/notifications?cached=true", &resp); err != nil {
		c.log("[client] notifications unavailable: %v", err)
		return nil
	}
	return resp.Notifications
}

// Activities fetches the most recent customer interaction records. It
// degrades to an empty list on error.
func (c *Client) Activities(ctx context.Context, limit int) []Activity {
	if limit <= 0 {
		limit = 10
	}
	path := fmt.Sprintf("/api/activities?startTime=&size=%d&offset=1", limit)
	var resp activitiesResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		c.log("[client] activities unavailable: %v", err)
		return nil
	}
	return resp.Activities
}

// DoNotDisturb lists the do-not-disturb state per device. It degrades
// to an empty list on error.
func (c *Client) DoNotDisturb(ctx context.Context) []DoNotDisturbState {
	var resp doNotDisturbResponse
	if err := c.getJSON(ctx, "/api/dnd/device-status-list", &resp); err != nil {
		c.log("[client] do-not-disturb status unavailable: %v", err)
		return nil
	}
	return resp.DoNotDisturbDeviceStatusList
}

// Routines lists the stored automations.
func (c *Client) Routines(ctx context.Context) ([]Routine, error) {
	var routines []Routine
	if err := c.getJSON(ctx, "/api/behaviors/v2/automations?limit=2000", &routines); err != nil {
		return nil, err
	}
	return routines, nil
}

// StartRoutine finds the enabled automation whose trigger utterance
// matches (case insensitive) and posts it for execution on the given
// device. Placeholder tokens in the stored sequence are rewritten to
// target that device.
func (c *Client) StartRoutine(ctx context.Context, device *core.Device, utterance string) error {
	routines, err := c.Routines(ctx)
	if err != nil {
		return err
	}

	var match *Routine
	for i := range routines {
		if routines[i].Status != "ENABLED" {
			continue
		}
		for _, u := range routines[i].Utterances() {
			if strings.EqualFold(u, utterance) {
				match = &routines[i]
				break
			}
		}
		if match != nil {
			break
		}
	}
	if match == nil {
		return fmt.Errorf("%w: no routine triggered by %q", ctlerrors.ErrRoutineNotFound, utterance)
	}
	if len(match.Sequence) == 0 {
		return fmt.Errorf("%w: routine %q has no sequence", ctlerrors.ErrRoutineNotFound, match.AutomationID)
	}

	sequenceJSON := substituteRoutineTokens(string(match.Sequence), device,
		c.manager.CustomerID(device.OwnerCustomerID))

	return c.sendJSON(ctx, http.MethodPost, "/api/behaviors/preview", startRoutineRequest{
		BehaviorID:   match.AutomationID,
		SequenceJSON: sequenceJSON,
		Status:       "ENABLED",
	})
}

// substituteRoutineTokens rewrites the placeholder tokens of a stored
// sequence so it targets the given device.
func substituteRoutineTokens(sequenceJSON string, device *core.Device, customerID string) string {
	sequenceJSON = strings.ReplaceAll(sequenceJSON, `"deviceType":"ALEXA_CURRENT_DEVICE_TYPE"`,
		`"deviceType":"`+device.Type+`"`)
	sequenceJSON = strings.ReplaceAll(sequenceJSON, `"deviceSerialNumber":"ALEXA_CURRENT_DSN"`,
		`"deviceSerialNumber":"`+device.Serial+`"`)
	sequenceJSON = strings.ReplaceAll(sequenceJSON, `"customerId":"ALEXA_CUSTOMER_ID"`,
		`"customerId":"`+customerID+`"`)
	sequenceJSON = strings.ReplaceAll(sequenceJSON, `"locale":"ALEXA_CURRENT_LOCALE"`,
		`"locale":"en-US"`)
	return sequenceJSON
}

// NotificationVolume sets the alarm and notification volume of a
// device.
func (c *Client) NotificationVolume(ctx context.Context, device *core.Device, volume int) error {
	path := "/api/device-notification-state/" + url.PathEscape(device.Type) +
		"/" + url.PathEscape(device.SoftwareVersion) +
		"/" + url.PathEscape(device.Serial)
	return c.sendJSON(ctx, http.MethodPut, path, notificationVolumeRequest{
		DeviceSerial:    device.Serial,
		DeviceType:      device.Type,
		SoftwareVersion: device.SoftwareVersion,
		VolumeLevel:     volume,
	})
}

// SendSequence posts a prepared sequence document for execution. The
// dispatcher calls this with the serialized node tree; retries and the
// queue-expired signal are handled by the transport layer.
func (c *Client) SendSequence(ctx context.Context, sequenceJSON string) error {
	return c.sendJSON(ctx, http.MethodPost, "/api/behaviors/preview", behaviorPreviewRequest{
		BehaviorID:   "PREVIEW",
		SequenceJSON: sequenceJSON,
		Status:       "ENABLED",
	})
}
