// Package display multiplexes the score onto a 4-digit 7-segment display.
//
// One set of segment lines is shared by every digit; each position has its
// own select line. The engine lights one position at a time fast enough that
// the eye sees all four.
package display

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/danmuck/scoreboard/internal/observability"
	"github.com/danmuck/scoreboard/internal/score"
	"github.com/rs/zerolog/log"
)

var ErrInvalidTiming = errors.New("display: invalid timing")

// SegmentBus programs the shared segment lines. The decimal point is always off.
type SegmentBus interface {
	SetSegments(mask uint8)
}

// DigitSelect drives the per-position enable lines.
type DigitSelect interface {
	Enable(pos int)
	DisableAll()
}

// Source is read once per frame.
type Source interface {
	Snapshot() score.Snapshot
}

// Config sets the refresh timing.
type Config struct {
	Period time.Duration
	OnTime time.Duration
}

func DefaultConfig() Config {
	return Config{
		Period: 15 * time.Millisecond,
		OnTime: 2300 * time.Microsecond,
	}
}

func (c Config) Validate() error {
	if c.Period <= 0 || c.OnTime <= 0 {
		return fmt.Errorf("%w: period=%s on_time=%s", ErrInvalidTiming, c.Period, c.OnTime)
	}
	if time.Duration(Positions)*c.OnTime > c.Period {
		return fmt.Errorf("%w: %d x on_time=%s exceeds period=%s", ErrInvalidTiming, Positions, c.OnTime, c.Period)
	}
	return nil
}

type Engine struct {
	cfg      Config
	source   Source
	segments SegmentBus
	digits   DigitSelect
	clock    Clock

	frames   atomic.Uint64
	overruns atomic.Uint64
}

func NewEngine(source Source, segments SegmentBus, digits DigitSelect, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:      cfg,
		source:   source,
		segments: segments,
		digits:   digits,
		clock:    SystemClock{},
	}, nil
}

// WithClock swaps the time source. Must be called before Run.
func (e *Engine) WithClock(c Clock) *Engine {
	e.clock = c
	return e
}

// Run refreshes the display until ctx is done, then blanks it.
//
// Frame n is due at start + n*Period where start is taken once, so a slow
// frame never shifts the schedule of the frames after it. A frame that
// finishes past its boundary skips ahead to the next free boundary.
func (e *Engine) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer e.Blank()

	log.Info().Msgf(
		"display.Engine.Run started period=%s on_time=%s",
		e.cfg.Period,
		e.cfg.OnTime,
	)

	start := e.clock.Now()
	var n int64
	for {
		if ctx.Err() != nil {
			return nil
		}

		e.RenderFrame(e.source.Snapshot().Frame())

		n++
		due := start.Add(time.Duration(n) * e.cfg.Period)
		now := e.clock.Now()
		overrun := now.After(due)
		if overrun {
			late := now.Sub(due)
			n += int64(late/e.cfg.Period) + 1
			due = start.Add(time.Duration(n) * e.cfg.Period)
			if e.overruns.Add(1) == 1 {
				log.Warn().Msgf("display.Engine.Run first overrun frame=%d late=%s", e.frames.Load(), late)
			}
		}
		observability.RecordDisplayFrame(overrun)

		if err := e.clock.SleepUntil(ctx, due); err != nil {
			log.Info().Msgf("display.Engine.Run stopped frames=%d overruns=%d", e.frames.Load(), e.overruns.Load())
			return nil
		}
	}
}

// RenderFrame lights each position in turn for OnTime and leaves the display dark.
func (e *Engine) RenderFrame(frame score.DigitFrame) {
	for pos, digit := range frame {
		e.digits.DisableAll()
		e.segments.SetSegments(Pattern(digit))
		e.digits.Enable(pos)
		e.clock.Hold(e.cfg.OnTime)
	}
	e.digits.DisableAll()
	e.frames.Add(1)
}

// Show renders a fixed frame on the normal schedule for d. Used by the lamp test.
func (e *Engine) Show(ctx context.Context, frame score.DigitFrame, d time.Duration) error {
	start := e.clock.Now()
	end := start.Add(d)
	for n := int64(1); ; n++ {
		e.RenderFrame(frame)
		due := start.Add(time.Duration(n) * e.cfg.Period)
		if !due.Before(end) {
			return nil
		}
		if err := e.clock.SleepUntil(ctx, due); err != nil {
			return err
		}
	}
}

// LampTest lights every segment, then walks each digit value across all positions.
func (e *Engine) LampTest(ctx context.Context, step time.Duration) error {
	defer e.Blank()
	if err := e.Show(ctx, score.DigitFrame{8, 8, 8, 8}, 4*step); err != nil {
		return err
	}
	for d := 0; d <= 9; d++ {
		if err := e.Show(ctx, score.DigitFrame{d, d, d, d}, step); err != nil {
			return err
		}
	}
	return nil
}

// Blank turns every position and segment off.
func (e *Engine) Blank() {
	e.digits.DisableAll()
	e.segments.SetSegments(0)
}

func (e *Engine) Frames() uint64 {
	return e.frames.Load()
}

func (e *Engine) Overruns() uint64 {
	return e.overruns.Load()
}
