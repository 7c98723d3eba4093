package behavior

import (
	"context"
	"sync"
	"time"

	"github.com/echoctl/echoctl/internal/core"
)

const (
	// tickInterval drives the dispatch scan.
	tickInterval = 500 * time.Millisecond

	// Settle-delay components, sized to let spoken and volume content
	// finish before another command reaches the same device.
	settleFloor             = 2 * time.Second
	settleFloorAnnouncement = 3 * time.Second
	settleVolumeExtra       = 2 * time.Second
	settlePerCharacter      = 150 * time.Millisecond

	maxWorkers = 8
)

// Sender delivers one serialized sequence document to the remote
// service. Implemented by the API client.
type Sender interface {
	SendSequence(ctx context.Context, sequenceJSON string) error
}

// Entry is one dispatchable execution unit targeting one or more
// devices. The node tree is immutable; the in-flight flag is guarded
// by the dispatcher lock.
type Entry struct {
	devices  []*core.Device
	root     *Node
	inFlight bool
}

// NewEntry creates an entry for the given devices and node tree.
func NewEntry(devices []*core.Device, root *Node) *Entry {
	return &Entry{devices: devices, root: root}
}

// Devices returns the devices this entry targets.
func (e *Entry) Devices() []*core.Device {
	return e.devices
}

// settleDelay estimates how long to wait after sending an entry before
// the next command may reach its devices.
func settleDelay(root *Node) time.Duration {
	delay := settleFloor
	if root.ContainsCommand(CommandAnnouncement) {
		delay = settleFloorAnnouncement
	}
	if root.ContainsCommand(CommandVolume) {
		delay += settleVolumeExtra
	}
	delay += time.Duration(len(root.SpokenText())) * settlePerCharacter
	return delay
}

// Dispatcher keeps one FIFO queue of entries per device serial and
// guarantees at most one in-flight execution per device. A periodic
// tick scans the queues; a multi-device entry is dispatched only when
// it is at the head of every queue it touches.
type Dispatcher struct {
	mu      sync.Mutex
	queues  map[string][]*Entry
	sender  Sender
	workers chan struct{}

	interval    time.Duration
	settleScale float64

	stop     chan struct{}
	stopOnce sync.Once
	started  bool

	logf func(format string, args ...any)
}

// NewDispatcher creates a stopped dispatcher delivering through the
// given sender. Call Start to begin the tick loop.
func NewDispatcher(sender Sender) *Dispatcher {
	return &Dispatcher{
		queues:      make(map[string][]*Entry),
		sender:      sender,
		workers:     make(chan struct{}, maxWorkers),
		interval:    tickInterval,
		settleScale: 1,
		stop:        make(chan struct{}),
	}
}

// SetLogFunc installs a verbose logging hook.
func (d *Dispatcher) SetLogFunc(logf func(format string, args ...any)) {
	d.logf = logf
}

func (d *Dispatcher) log(format string, args ...any) {
	if d.logf != nil {
		d.logf(format, args...)
	}
}

// Start launches the periodic dispatch tick.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.mu.Unlock()

	go func() {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-d.stop:
				return
			case <-ticker.C:
				d.tickOnce(ctx)
			}
		}
	}()
}

// Stop halts the tick loop and clears all queues without running
// completion side effects.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
	d.Clear()
}

// Stopped reports whether the tick loop has been halted.
func (d *Dispatcher) Stopped() bool {
	select {
	case <-d.stop:
		return true
	default:
		return false
	}
}

// Clear drops all queued entries.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queues = make(map[string][]*Entry)
}

// Enqueue appends the entry to the queue of every device it targets.
func (d *Dispatcher) Enqueue(entry *Entry) {
	if entry == nil || entry.root == nil || len(entry.devices) == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, device := range entry.devices {
		d.queues[device.Serial] = append(d.queues[device.Serial], entry)
	}
}

// QueueLen reports the number of pending entries for a device serial.
func (d *Dispatcher) QueueLen(serial string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues[serial])
}

// Pending reports the number of distinct entries across all queues.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	seen := make(map[*Entry]bool)
	for _, queue := range d.queues {
		for _, e := range queue {
			seen[e] = true
		}
	}
	return len(seen)
}

// tickOnce scans all queues and dispatches every eligible head entry.
// A TryLock keeps a slow scan from stacking ticks behind it.
func (d *Dispatcher) tickOnce(ctx context.Context) {
	if !d.mu.TryLock() {
		return
	}
	defer d.mu.Unlock()

	for _, queue := range d.queues {
		if len(queue) == 0 {
			continue
		}
		head := queue[0]
		if head.inFlight || !d.eligible(head) {
			continue
		}
		head.inFlight = true
		go d.execute(ctx, head)
	}
}

// eligible reports whether the entry is at the head of every device
// queue it references and none of those heads is in-flight. Caller
// holds the dispatcher lock.
func (d *Dispatcher) eligible(entry *Entry) bool {
	for _, device := range entry.devices {
		queue := d.queues[device.Serial]
		if len(queue) == 0 || queue[0] != entry || queue[0].inFlight {
			return false
		}
	}
	return true
}

// execute sends one entry, waits out the settle delay, then removes
// the entry from every queue it touched. Removal happens even on
// failure so queues never stall on a dead entry.
func (d *Dispatcher) execute(ctx context.Context, entry *Entry) {
	select {
	case d.workers <- struct{}{}:
	case <-ctx.Done():
		d.remove(entry)
		return
	}
	defer func() { <-d.workers }()
	defer d.remove(entry)

	sequenceJSON, err := SequenceJSON(entry.root)
	if err != nil {
		d.log("[dispatch] failed to serialize sequence: %v", err)
		return
	}
	if err := d.sender.SendSequence(ctx, sequenceJSON); err != nil {
		d.log("[dispatch] send failed: %v", err)
		return
	}

	delay := time.Duration(float64(settleDelay(entry.root)) * d.settleScale)
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}

func (d *Dispatcher) remove(entry *Entry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, device := range entry.devices {
		queue := d.queues[device.Serial]
		for i, e := range queue {
			if e == entry {
				d.queues[device.Serial] = append(queue[:i], queue[i+1:]...)
				break
			}
		}
		if len(d.queues[device.Serial]) == 0 {
			delete(d.queues, device.Serial)
		}
	}
	entry.inFlight = false
}
