package input

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danmuck/scoreboard/internal/score"
	"github.com/danmuck/scoreboard/internal/testutil/testlog"
)

const testSettle = 5 * time.Millisecond

type fakeLevels struct {
	mu      sync.Mutex
	pressed map[Button]bool
}

func (f *fakeLevels) set(b Button, pressed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pressed == nil {
		f.pressed = map[Button]bool{}
	}
	f.pressed[b] = pressed
}

func (f *fakeLevels) Asserted(b Button) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pressed[b]
}

type pipeline struct {
	queue    *Queue
	levels   *fakeLevels
	state    *score.State
	notified atomic.Int64
	deb      *Debouncer
	cancel   context.CancelFunc
	done     chan struct{}
}

func startPipeline(t *testing.T) *pipeline {
	t.Helper()
	p := &pipeline{
		queue:  NewQueue(DefaultQueueCapacity),
		levels: &fakeLevels{},
		state:  score.NewState(),
		done:   make(chan struct{}),
	}
	p.deb = NewDebouncer(p.queue, p.levels, p.state, NotifyFunc(func() { p.notified.Add(1) }), testSettle)
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go func() {
		defer close(p.done)
		_ = p.deb.Run(ctx)
	}()
	t.Cleanup(p.stop)
	return p
}

func (p *pipeline) stop() {
	p.cancel()
	<-p.done
}

// drain waits until every queued event has been settled.
func (p *pipeline) drain(t *testing.T, want uint64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st := p.deb.Stats()
		if st.Confirmed+st.Bounces+st.Coalesced >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("debouncer did not settle %d events: %+v", want, p.deb.Stats())
}

func TestHeldPressIncrementsAndNotifies(t *testing.T) {
	testlog.Start(t)
	p := startPipeline(t)

	p.levels.set(ButtonA, true)
	if !p.queue.Signal(ButtonA) {
		t.Fatalf("signal dropped on empty queue")
	}
	p.drain(t, 1)

	if got := p.state.Snapshot(); got != (score.Snapshot{A: 1}) {
		t.Fatalf("unexpected state after press: %+v", got)
	}
	if p.notified.Load() != 1 {
		t.Fatalf("expected one publish trigger, got %d", p.notified.Load())
	}
}

func TestReleasedBeforeSettleIsBounce(t *testing.T) {
	testlog.Start(t)
	p := startPipeline(t)

	p.levels.set(ButtonB, false)
	p.queue.Signal(ButtonB)
	p.drain(t, 1)

	if got := p.state.Snapshot(); got != (score.Snapshot{}) {
		t.Fatalf("bounce mutated state: %+v", got)
	}
	if st := p.deb.Stats(); st.Bounces != 1 || st.Confirmed != 0 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if p.notified.Load() != 0 {
		t.Fatalf("bounce triggered publish")
	}
}

func TestBounceEdgesOfOnePressCountOnce(t *testing.T) {
	testlog.Start(t)
	p := startPipeline(t)

	p.levels.set(ButtonA, true)
	for i := 0; i < 4; i++ {
		p.queue.Signal(ButtonA)
	}
	p.drain(t, 4)

	if got := p.state.Snapshot(); got.A != 1 || got.B != 0 {
		t.Fatalf("one physical press counted more than once: %+v", got)
	}
	if st := p.deb.Stats(); st.Confirmed != 1 || st.Coalesced != 3 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestSeparatePressesEachCount(t *testing.T) {
	testlog.Start(t)
	p := startPipeline(t)

	p.levels.set(ButtonB, true)
	for i := 0; i < 3; i++ {
		p.queue.Signal(ButtonB)
		p.drain(t, uint64(i+1))
	}
	if got := p.state.Snapshot(); got.B != 3 {
		t.Fatalf("expected three counted presses, got %+v", got)
	}
}

func TestSwapRemapsButtons(t *testing.T) {
	testlog.Start(t)
	p := startPipeline(t)
	p.state.SetSwapped(true)

	p.levels.set(ButtonA, true)
	p.queue.Signal(ButtonA)
	p.drain(t, 1)

	if got := p.state.Snapshot(); got != (score.Snapshot{B: 1, Swapped: true}) {
		t.Fatalf("swapped ButtonA should bump B: %+v", got)
	}
}

func TestQueueDropsWhenFull(t *testing.T) {
	testlog.Start(t)
	q := NewQueue(2)
	if !q.Signal(ButtonA) || !q.Signal(ButtonB) {
		t.Fatalf("expected first two signals to enqueue")
	}
	if q.Signal(ButtonA) {
		t.Fatalf("expected third signal to drop")
	}
	if q.Dropped() != 1 || q.Len() != 2 {
		t.Fatalf("unexpected queue accounting dropped=%d len=%d", q.Dropped(), q.Len())
	}
	if NewQueue(0).Cap() != DefaultQueueCapacity {
		t.Fatalf("zero capacity should fall back to default")
	}
}

func TestButtonSides(t *testing.T) {
	testlog.Start(t)
	if ButtonA.Side() != score.SideLeft || ButtonB.Side() != score.SideRight {
		t.Fatalf("unexpected button sides")
	}
	if ButtonA.String() != "A" || ButtonB.String() != "B" {
		t.Fatalf("unexpected button names")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	testlog.Start(t)
	q := NewQueue(1)
	deb := NewDebouncer(q, &fakeLevels{}, score.NewState(), nil, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- deb.Run(ctx) }()

	q.Signal(ButtonA)
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("debouncer did not stop while settling")
	}
}
