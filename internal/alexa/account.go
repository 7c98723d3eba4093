// Package alexa ties the session, transport, client and behavior
// layers together into one account-level facade.
package alexa

import (
	"context"
	"fmt"
	"time"

	"github.com/echoctl/echoctl/internal/alexa/behavior"
	"github.com/echoctl/echoctl/internal/alexa/client"
	"github.com/echoctl/echoctl/internal/alexa/session"
	"github.com/echoctl/echoctl/internal/core"
	ctlerrors "github.com/echoctl/echoctl/internal/errors"
)

// Account is one authenticated account and its command pipeline.
// Commands are fire-and-forget: they enter the coalescer or the
// dispatcher and outcomes are logged, not returned.
type Account struct {
	manager    *session.Manager
	storage    *session.Storage
	client     *client.Client
	dispatcher *behavior.Dispatcher
	coalescer  *behavior.Coalescer
	logf       func(format string, args ...any)
}

// NewAccount assembles an account with a fresh session identity.
// sessionPath overrides the session file location when non-empty.
func NewAccount(sessionPath string) (*Account, error) {
	storage, err := session.NewStorage(sessionPath)
	if err != nil {
		return nil, err
	}

	manager := session.NewManager()
	apiClient := client.New(manager)
	dispatcher := behavior.NewDispatcher(apiClient)
	coalescer := behavior.NewCoalescer(dispatcher, manager.CustomerID)

	return &Account{
		manager:    manager,
		storage:    storage,
		client:     apiClient,
		dispatcher: dispatcher,
		coalescer:  coalescer,
	}, nil
}

// SetLogFunc installs a verbose logging hook on every layer.
func (a *Account) SetLogFunc(logf func(format string, args ...any)) {
	a.logf = logf
	a.manager.SetLogFunc(logf)
	a.client.SetLogFunc(logf)
	a.dispatcher.SetLogFunc(logf)
	a.coalescer.SetLogFunc(logf)
}

func (a *Account) log(format string, args ...any) {
	if a.logf != nil {
		a.logf(format, args...)
	}
}

// Session returns the session manager.
func (a *Account) Session() *session.Manager {
	return a.manager
}

// Client returns the API client.
func (a *Account) Client() *client.Client {
	return a.client
}

// Storage returns the session persistence layer.
func (a *Account) Storage() *session.Storage {
	return a.storage
}

// Start launches the dispatch loop.
func (a *Account) Start(ctx context.Context) {
	a.dispatcher.Start(ctx)
}

// RestoreSession loads and restores the persisted session. When the
// blob carries no account customer id (older session files), it is
// repaired from the device list: the record matching this client's
// serial wins, falling back to the device named "This Device", whose
// serial is then adopted.
func (a *Account) RestoreSession(ctx context.Context, overrideSite string) (bool, error) {
	blob, err := a.storage.Load()
	if err != nil {
		return false, err
	}
	if blob == "" {
		return false, nil
	}
	if !a.manager.Restore(ctx, blob, overrideSite) {
		return false, nil
	}
	if !a.manager.Verify(ctx) {
		return false, nil
	}

	if a.manager.CustomerID("") == "" {
		a.repairCustomerID(ctx)
	}
	return true, nil
}

// repairCustomerID resolves the account customer id from the device
// list when the session predates that field.
func (a *Account) repairCustomerID(ctx context.Context) {
	devices, err := a.client.DeviceList(ctx)
	if err != nil {
		a.log("[account] customer id repair failed: %v", err)
		return
	}
	for i := range devices {
		if devices[i].Serial == a.manager.Serial() {
			a.manager.SetAccountCustomerID(devices[i].OwnerCustomerID)
			return
		}
	}
	for i := range devices {
		if devices[i].Name == "This Device" {
			a.manager.AdoptSerial(devices[i].Serial)
			a.manager.SetAccountCustomerID(devices[i].OwnerCustomerID)
			return
		}
	}
}

// SaveSession persists the current session blob. A session that is not
// logged in serializes to the empty string and removes the file.
func (a *Account) SaveSession() error {
	blob := a.manager.Serialize()
	if blob == "" {
		return a.storage.Delete()
	}
	return a.storage.Save(blob)
}

// BeginLogin starts a fresh login flow and returns the URL the user
// must open in a browser.
func (a *Account) BeginLogin(ctx context.Context) (string, error) {
	if _, err := a.manager.BeginLogin(ctx); err != nil {
		return "", err
	}
	return a.manager.SignInURL(), nil
}

// CompleteLogin finishes the login flow from the pasted redirect URL
// and persists the session.
func (a *Account) CompleteLogin(ctx context.Context, redirectURL string) error {
	if err := a.manager.CompleteLogin(ctx, redirectURL); err != nil {
		return ctlerrors.WithSuggestion(err,
			"Paste the full URL of the page you landed on after signing in")
	}
	return a.SaveSession()
}

// Logout tears the account down: the dispatch loop is halted, pending
// batches are dropped, queued and in-flight work is cleared, the
// session is cleared and the stored blob removed.
func (a *Account) Logout() error {
	a.coalescer.Reset()
	a.dispatcher.Stop()
	a.manager.Logout()
	return a.storage.Delete()
}

// Stop halts the dispatch loop, for process teardown.
func (a *Account) Stop() {
	a.dispatcher.Stop()
}

// Drain blocks until all pending batches have flushed and all queued
// entries have executed, or the context expires. A CLI invocation uses
// this so fire-and-forget commands still leave the process.
func (a *Account) Drain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if a.coalescer.Pending() == 0 && a.dispatcher.Pending() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (a *Account) requireLogin() error {
	if !a.manager.IsLoggedIn() {
		return ctlerrors.ErrNotLoggedIn
	}
	return nil
}

// Speak batches a text-to-speech command for the device. Volumes below
// zero leave the device volume untouched.
func (a *Account) Speak(device *core.Device, text string, ttsVolume, standardVolume int) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	a.coalescer.Speak(device, text, ttsVolume, standardVolume)
	return nil
}

// Announce batches an announcement for the device.
func (a *Account) Announce(device *core.Device, title, body string, ttsVolume, standardVolume int) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	a.coalescer.Announce(device, title, body, ttsVolume, standardVolume)
	return nil
}

// TextCommand batches a typed utterance for the device.
func (a *Account) TextCommand(device *core.Device, text string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	a.coalescer.TextCommand(device, text, -1, -1)
	return nil
}

// SetVolume batches a volume change for the device.
func (a *Account) SetVolume(device *core.Device, volume int) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	if volume < 0 || volume > 100 {
		return fmt.Errorf("volume %d out of range 0-100", volume)
	}
	a.coalescer.Volume(device, volume)
	return nil
}

// ExecuteSequenceCommand enqueues a single-leaf sequence directly,
// bypassing the coalescer. Used for device actions that never batch.
func (a *Account) ExecuteSequenceCommand(device *core.Device, command string, payload map[string]any) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	if payload == nil {
		payload = map[string]any{}
	}
	payload["deviceType"] = device.Type
	payload["deviceSerialNumber"] = device.Serial
	payload["locale"] = "en-US"
	payload["customerId"] = a.manager.CustomerID(device.OwnerCustomerID)

	root := behavior.Serial(behavior.Parallel(behavior.Opaque(command, payload)))
	a.dispatcher.Enqueue(behavior.NewEntry([]*core.Device{device}, root))
	return nil
}
