package display

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/danmuck/scoreboard/internal/score"
	"github.com/danmuck/scoreboard/internal/testutil/testlog"
)

type fakeLines struct {
	ops       []string
	active    map[int]bool
	maxActive int
	segments  uint8
	lit       map[int]uint8
}

func newFakeLines() *fakeLines {
	return &fakeLines{active: map[int]bool{}, lit: map[int]uint8{}}
}

func (f *fakeLines) SetSegments(mask uint8) {
	f.segments = mask
	f.ops = append(f.ops, fmt.Sprintf("seg:%02x", mask))
}

func (f *fakeLines) Enable(pos int) {
	f.active[pos] = true
	if len(f.active) > f.maxActive {
		f.maxActive = len(f.active)
	}
	f.lit[pos] = f.segments
	f.ops = append(f.ops, fmt.Sprintf("on:%d", pos))
}

func (f *fakeLines) DisableAll() {
	clear(f.active)
	f.ops = append(f.ops, "off")
}

// fakeClock advances only when the engine holds or sleeps.
type fakeClock struct {
	now      time.Time
	holdCost time.Duration
	sleeps   []time.Time
	stopAt   int
	cancel   context.CancelFunc
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Hold(d time.Duration) { c.now = c.now.Add(d + c.holdCost) }

func (c *fakeClock) SleepUntil(ctx context.Context, t time.Time) error {
	c.sleeps = append(c.sleeps, t)
	if t.After(c.now) {
		c.now = t
	}
	if len(c.sleeps) >= c.stopAt {
		c.cancel()
	}
	return ctx.Err()
}

type fixedSource struct {
	snap  score.Snapshot
	reads int
}

func (s *fixedSource) Snapshot() score.Snapshot {
	s.reads++
	return s.snap
}

func TestPatternTable(t *testing.T) {
	testlog.Start(t)
	want := []uint8{0x3F, 0x06, 0x5B, 0x4F, 0x66, 0x6D, 0x7D, 0x07, 0x7F, 0x6F}
	for d, mask := range want {
		if got := Pattern(d); got != mask {
			t.Fatalf("Pattern(%d) got=%#02x want=%#02x", d, got, mask)
		}
		if Pattern(d)&DecimalPoint != 0 {
			t.Fatalf("digit %d lights the decimal point", d)
		}
	}
	if Pattern(-1) != 0 || Pattern(10) != 0 {
		t.Fatalf("out of range digits should be blank")
	}
}

func TestConfigValidate(t *testing.T) {
	testlog.Start(t)
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	bad := Config{Period: 5 * time.Millisecond, OnTime: 2 * time.Millisecond}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidTiming) {
		t.Fatalf("expected ErrInvalidTiming, got %v", err)
	}
	if err := (Config{}).Validate(); !errors.Is(err, ErrInvalidTiming) {
		t.Fatalf("expected ErrInvalidTiming for zero config, got %v", err)
	}
}

func TestRenderFrameSequence(t *testing.T) {
	testlog.Start(t)
	lines := newFakeLines()
	clock := &fakeClock{now: time.Unix(0, 0)}
	e, err := NewEngine(&fixedSource{}, lines, lines, DefaultConfig())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	e.WithClock(clock)

	e.RenderFrame(score.DigitFrame{0, 7, 4, 2})

	want := []string{
		"off", "seg:3f", "on:0",
		"off", "seg:07", "on:1",
		"off", "seg:66", "on:2",
		"off", "seg:5b", "on:3",
		"off",
	}
	if fmt.Sprint(lines.ops) != fmt.Sprint(want) {
		t.Fatalf("ops got=%v\nwant=%v", lines.ops, want)
	}
	if lines.maxActive != 1 {
		t.Fatalf("more than one digit active at once: %d", lines.maxActive)
	}
	if got := clock.now.Sub(time.Unix(0, 0)); got != 4*DefaultConfig().OnTime {
		t.Fatalf("expected four on-time holds, elapsed=%s", got)
	}
}

func TestRunSchedulesFromFixedReference(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	start := time.Unix(100, 0)
	lines := newFakeLines()
	clock := &fakeClock{now: start, stopAt: 5, cancel: cancel}
	src := &fixedSource{snap: score.Snapshot{A: 42, B: 7, Swapped: true}}
	cfg := DefaultConfig()
	e, err := NewEngine(src, lines, lines, cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	e.WithClock(clock)

	if err := e.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	for i, at := range clock.sleeps {
		want := start.Add(time.Duration(i+1) * cfg.Period)
		if !at.Equal(want) {
			t.Fatalf("sleep[%d] due=%s want=%s", i, at.Sub(start), want.Sub(start))
		}
	}
	if src.reads != len(clock.sleeps) {
		t.Fatalf("expected one snapshot per frame, reads=%d frames=%d", src.reads, len(clock.sleeps))
	}
	if e.Overruns() != 0 {
		t.Fatalf("unexpected overruns: %d", e.Overruns())
	}
	if lines.lit[0] != Pattern(0) || lines.lit[1] != Pattern(7) || lines.lit[2] != Pattern(4) || lines.lit[3] != Pattern(2) {
		t.Fatalf("swapped frame rendered wrong digits: %v", lines.lit)
	}
	if lines.maxActive != 1 {
		t.Fatalf("more than one digit active at once: %d", lines.maxActive)
	}
	if lines.segments != 0 || len(lines.active) != 0 {
		t.Fatalf("display not blank after stop")
	}
}

func TestRunOverrunSkipsToNextBoundary(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	start := time.Unix(200, 0)
	lines := newFakeLines()
	// 4 x (2.3ms + 2ms) = 17.2ms per frame against a 15ms period.
	clock := &fakeClock{now: start, holdCost: 2 * time.Millisecond, stopAt: 3, cancel: cancel}
	cfg := DefaultConfig()
	e, err := NewEngine(&fixedSource{}, lines, lines, cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	e.WithClock(clock)

	if err := e.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	prev := start
	for i, at := range clock.sleeps {
		if at.Sub(start)%cfg.Period != 0 {
			t.Fatalf("sleep[%d] off the period grid: %s", i, at.Sub(start))
		}
		if !at.After(prev) {
			t.Fatalf("sleep[%d] not monotonic", i)
		}
		prev = at
	}
	if clock.sleeps[0].Sub(start) != 2*cfg.Period {
		t.Fatalf("first late frame should wait for boundary 2, got %s", clock.sleeps[0].Sub(start))
	}
	if e.Overruns() != uint64(len(clock.sleeps)) {
		t.Fatalf("expected every frame to overrun, got %d of %d", e.Overruns(), len(clock.sleeps))
	}
}

func TestLampTestEndsBlank(t *testing.T) {
	testlog.Start(t)
	lines := newFakeLines()
	clock := &fakeClock{now: time.Unix(0, 0), stopAt: 1 << 30}
	e, err := NewEngine(&fixedSource{}, lines, lines, DefaultConfig())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	e.WithClock(clock)

	if err := e.LampTest(context.Background(), 30*time.Millisecond); err != nil {
		t.Fatalf("lamp test: %v", err)
	}
	if e.Frames() == 0 {
		t.Fatalf("lamp test rendered nothing")
	}
	if lines.segments != 0 || len(lines.active) != 0 {
		t.Fatalf("display not blank after lamp test")
	}
}
