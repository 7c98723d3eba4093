package behavior

import (
	"sync"
	"time"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/echoctl/echoctl/internal/core"
)

// flushWindow is how long a batch stays open for more devices to join.
const flushWindow = 500 * time.Millisecond

// Kind identifies a batchable command kind.
type Kind int

const (
	KindAnnouncement Kind = iota
	KindSpeak
	KindTextCommand
	KindVolume
	kindCount
)

func (k Kind) String() string {
	switch k {
	case KindAnnouncement:
		return "announcement"
	case KindSpeak:
		return "speak"
	case KindTextCommand:
		return "text-command"
	case KindVolume:
		return "volume"
	}
	return "unknown"
}

// batch accumulates targets for one distinct payload.
type batch struct {
	kind    Kind
	text    string
	title   string
	volume  int
	targets []Target
}

// fingerprintKey is the content identity of a batch. Two commands with
// the same key merge into one remote call.
type fingerprintKey struct {
	Kind   Kind
	Text   string
	Title  string
	Volume int
}

func fingerprint(key fingerprintKey) uint64 {
	h, err := hashstructure.Hash(key, hashstructure.FormatV2, nil)
	if err != nil {
		return 0
	}
	return h
}

// kindState holds the pending batches of one kind. The lock makes
// "add device to batch" and "flush all batches" mutually exclusive.
type kindState struct {
	mu       sync.Mutex
	batches  map[uint64]*batch
	timerSet bool
}

// Coalescer merges near-simultaneous identical commands into single
// batched entries before handing them to the dispatcher. Each kind has
// its own lock so unrelated kinds never contend.
type Coalescer struct {
	dispatcher *Dispatcher
	customerID func(defaultID string) string
	window     time.Duration
	kinds      [kindCount]kindState

	logf func(format string, args ...any)
}

// NewCoalescer creates a coalescer feeding the given dispatcher.
// customerID resolves the account customer id, falling back to the
// passed device-owner id.
func NewCoalescer(dispatcher *Dispatcher, customerID func(defaultID string) string) *Coalescer {
	c := &Coalescer{
		dispatcher: dispatcher,
		customerID: customerID,
		window:     flushWindow,
	}
	for i := range c.kinds {
		c.kinds[i].batches = make(map[uint64]*batch)
	}
	return c
}

// SetLogFunc installs a verbose logging hook.
func (c *Coalescer) SetLogFunc(logf func(format string, args ...any)) {
	c.logf = logf
}

func (c *Coalescer) log(format string, args ...any) {
	if c.logf != nil {
		c.logf(format, args...)
	}
}

// Speak schedules a text-to-speech command. Texts differing only in
// whitespace or markup merge into one call.
func (c *Coalescer) Speak(device *core.Device, text string, ttsVolume, standardVolume int) {
	c.add(KindSpeak, Normalize(text), "", 0, Target{
		Device:         device,
		TTSVolume:      ttsVolume,
		StandardVolume: standardVolume,
	})
}

// Announce schedules an announcement.
func (c *Coalescer) Announce(device *core.Device, title, body string, ttsVolume, standardVolume int) {
	c.add(KindAnnouncement, Normalize(body), Normalize(title), 0, Target{
		Device:         device,
		TTSVolume:      ttsVolume,
		StandardVolume: standardVolume,
	})
}

// TextCommand schedules a typed utterance.
func (c *Coalescer) TextCommand(device *core.Device, text string, ttsVolume, standardVolume int) {
	c.add(KindTextCommand, Normalize(text), "", 0, Target{
		Device:         device,
		TTSVolume:      ttsVolume,
		StandardVolume: standardVolume,
	})
}

// Volume schedules a volume change. Only calls requesting the same
// level merge.
func (c *Coalescer) Volume(device *core.Device, volume int) {
	c.add(KindVolume, "", "", volume, Target{
		Device:         device,
		TTSVolume:      -1,
		StandardVolume: -1,
	})
}

func (c *Coalescer) add(kind Kind, text, title string, volume int, target Target) {
	key := fingerprint(fingerprintKey{Kind: kind, Text: text, Title: title, Volume: volume})
	state := &c.kinds[kind]

	state.mu.Lock()
	defer state.mu.Unlock()

	b, ok := state.batches[key]
	if !ok {
		b = &batch{kind: kind, text: text, title: title, volume: volume}
		state.batches[key] = b
	}
	for _, t := range b.targets {
		if t.Device.Serial == target.Device.Serial {
			return
		}
	}
	b.targets = append(b.targets, target)

	if !state.timerSet {
		state.timerSet = true
		time.AfterFunc(c.window, func() { c.flush(kind) })
	}
}

// flush builds one dispatcher entry per pending batch of the kind and
// clears the scheduled-timer marker so the next add opens a new window.
func (c *Coalescer) flush(kind Kind) {
	state := &c.kinds[kind]
	state.mu.Lock()
	defer state.mu.Unlock()

	for key, b := range state.batches {
		delete(state.batches, key)
		if len(b.targets) == 0 {
			continue
		}
		customerID := c.customerID(b.targets[0].Device.OwnerCustomerID)
		main, deferred := BuildBatch(b.kind, b.text, b.title, b.volume, b.targets, customerID)

		devices := make([]*core.Device, 0, len(b.targets))
		for _, t := range b.targets {
			devices = append(devices, t.Device)
		}
		if main != nil {
			c.log("[coalesce] flushing %s batch for %d device(s)", kind, len(devices))
			c.dispatcher.Enqueue(NewEntry(devices, main))
		}
		if deferred != nil {
			c.dispatcher.Enqueue(NewEntry(devices, deferred))
		}
	}
	state.timerSet = false
}

// Pending reports the number of open batches across all kinds.
func (c *Coalescer) Pending() int {
	total := 0
	for i := range c.kinds {
		state := &c.kinds[i]
		state.mu.Lock()
		total += len(state.batches)
		state.mu.Unlock()
	}
	return total
}

// Reset drops all pending batches, used on logout.
func (c *Coalescer) Reset() {
	for i := range c.kinds {
		state := &c.kinds[i]
		state.mu.Lock()
		state.batches = make(map[uint64]*batch)
		state.mu.Unlock()
	}
}
