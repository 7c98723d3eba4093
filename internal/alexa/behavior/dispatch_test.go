package behavior

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echoctl/echoctl/internal/core"
)

type recordingSender struct {
	mu    sync.Mutex
	sends []string
	err   error
	gate  chan struct{}
}

func (s *recordingSender) SendSequence(ctx context.Context, sequenceJSON string) error {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends = append(s.sends, sequenceJSON)
	return s.err
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sends)
}

func newTestDispatcher(sender Sender) *Dispatcher {
	d := NewDispatcher(sender)
	d.settleScale = 0
	return d
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached in time")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func speakEntry(text string, devices ...*core.Device) *Entry {
	targets := make([]Target, 0, len(devices))
	for _, d := range devices {
		targets = append(targets, Target{Device: d, TTSVolume: -1, StandardVolume: -1})
	}
	root, _ := BuildBatch(KindSpeak, text, "", 0, targets, "CUST")
	return NewEntry(devices, root)
}

func TestDispatchPerDeviceFIFO(t *testing.T) {
	sender := &recordingSender{}
	d := newTestDispatcher(sender)
	devA := testDevice("A", "Kitchen")

	first := speakEntry("first", devA)
	second := speakEntry("second", devA)
	third := speakEntry("third", devA)
	d.Enqueue(first)
	d.Enqueue(second)
	d.Enqueue(third)

	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		d.tickOnce(ctx)
		waitFor(t, func() bool { return sender.count() == i })
		waitFor(t, func() bool { return d.QueueLen("A") == 3-i })
	}

	require.Len(t, sender.sends, 3)
	assert.Contains(t, sender.sends[0], "first")
	assert.Contains(t, sender.sends[1], "second")
	assert.Contains(t, sender.sends[2], "third")
}

func TestDispatchCrossDeviceAtomicity(t *testing.T) {
	sender := &recordingSender{gate: make(chan struct{})}
	d := newTestDispatcher(sender)
	devA := testDevice("A", "Kitchen")
	devB := testDevice("B", "Bedroom")

	soloA := speakEntry("solo", devA)
	pair := speakEntry("pair", devA, devB)
	d.Enqueue(soloA)
	d.Enqueue(pair)

	ctx := context.Background()
	d.tickOnce(ctx)

	// soloA is in flight; pair heads device B's queue but must not
	// start while device A's head is a different entry
	d.tickOnce(ctx)
	d.tickOnce(ctx)
	assert.Equal(t, 0, sender.count())

	close(sender.gate)
	waitFor(t, func() bool { return sender.count() == 1 })
	waitFor(t, func() bool { return d.QueueLen("A") == 1 })
	assert.Contains(t, sender.sends[0], "solo")

	d.tickOnce(ctx)
	waitFor(t, func() bool { return sender.count() == 2 })
	assert.Contains(t, sender.sends[1], "pair")
	waitFor(t, func() bool { return d.Pending() == 0 })
}

func TestDispatchMultiDeviceSingleSend(t *testing.T) {
	sender := &recordingSender{}
	d := newTestDispatcher(sender)
	pair := speakEntry("both", testDevice("A", ""), testDevice("B", ""))
	d.Enqueue(pair)

	ctx := context.Background()
	d.tickOnce(ctx)
	waitFor(t, func() bool { return d.Pending() == 0 })

	assert.Equal(t, 1, sender.count(), "a multi-device entry is sent exactly once")
}

func TestDispatchRemovesEntryOnSendFailure(t *testing.T) {
	sender := &recordingSender{err: errors.New("remote unavailable")}
	d := newTestDispatcher(sender)
	devA := testDevice("A", "Kitchen")
	d.Enqueue(speakEntry("doomed", devA))
	d.Enqueue(speakEntry("next", devA))

	ctx := context.Background()
	d.tickOnce(ctx)
	waitFor(t, func() bool { return sender.count() == 1 })
	waitFor(t, func() bool { return d.QueueLen("A") == 1 })

	// the failed entry never stalls the queue
	d.tickOnce(ctx)
	waitFor(t, func() bool { return d.Pending() == 0 })
	assert.Equal(t, 2, sender.count())
}

func TestDispatchStopClearsQueues(t *testing.T) {
	sender := &recordingSender{}
	d := newTestDispatcher(sender)
	d.Enqueue(speakEntry("pending", testDevice("A", "")))

	d.Stop()
	assert.Equal(t, 0, d.Pending())
	assert.Equal(t, 0, sender.count())
}

func TestSettleDelay(t *testing.T) {
	dev := testDevice("A", "")

	speak, _ := BuildBatch(KindSpeak, "1234567890", "", 0,
		[]Target{{Device: dev, TTSVolume: -1, StandardVolume: -1}}, "CUST")
	assert.Equal(t, 2*time.Second+10*settlePerCharacter, settleDelay(speak))

	speakWithVolume, _ := BuildBatch(KindSpeak, "1234567890", "", 0,
		[]Target{{Device: dev, TTSVolume: 60, StandardVolume: 30}}, "CUST")
	assert.Equal(t, 4*time.Second+10*settlePerCharacter, settleDelay(speakWithVolume))

	announcement, _ := BuildBatch(KindAnnouncement, "1234567890", "", 0,
		[]Target{{Device: dev, TTSVolume: -1, StandardVolume: -1}}, "CUST")
	assert.Equal(t, 3*time.Second+10*settlePerCharacter, settleDelay(announcement))

	volume, _ := BuildBatch(KindVolume, "", "", 40,
		[]Target{{Device: dev, TTSVolume: -1, StandardVolume: -1}}, "CUST")
	assert.Equal(t, 4*time.Second, settleDelay(volume))
}
