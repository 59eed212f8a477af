package input

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/danmuck/scoreboard/internal/observability"
	"github.com/danmuck/scoreboard/internal/score"
	"github.com/rs/zerolog/log"
)

const DefaultSettle = 50 * time.Millisecond

const (
	OutcomeConfirmed = "confirmed"
	OutcomeBounce    = "bounce"
	OutcomeCoalesced = "coalesced"
)

// Levels reports whether a button line is still pressed. Active level is the
// board adapter's concern.
type Levels interface {
	Asserted(b Button) bool
}

// Incrementer is the slice of score.State the debouncer mutates.
type Incrementer interface {
	Increment(side score.Side) score.Snapshot
}

// Notifier is told after every confirmed press. It must not block.
type Notifier interface {
	Notify()
}

type NotifyFunc func()

func (f NotifyFunc) Notify() { f() }

type Stats struct {
	Confirmed uint64
	Bounces   uint64
	Coalesced uint64
}

// Debouncer confirms queued edges after a settle delay.
type Debouncer struct {
	queue    *Queue
	levels   Levels
	state    Incrementer
	notifier Notifier
	settle   time.Duration
	now      func() time.Time

	// last confirmation time per button; only touched by Run
	confirmed [len(Buttons)]time.Time

	confirmedN atomic.Uint64
	bounces    atomic.Uint64
	coalesced  atomic.Uint64
}

func NewDebouncer(queue *Queue, levels Levels, state Incrementer, notifier Notifier, settle time.Duration) *Debouncer {
	if settle <= 0 {
		settle = DefaultSettle
	}
	if notifier == nil {
		notifier = NotifyFunc(func() {})
	}
	return &Debouncer{
		queue:    queue,
		levels:   levels,
		state:    state,
		notifier: notifier,
		settle:   settle,
		now:      time.Now,
	}
}

// Run consumes the queue until ctx is done.
func (d *Debouncer) Run(ctx context.Context) error {
	log.Info().Msgf("input.Debouncer.Run started settle=%s queue_cap=%d", d.settle, d.queue.Cap())
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf(
				"input.Debouncer.Run stopped confirmed=%d bounces=%d coalesced=%d",
				d.confirmedN.Load(),
				d.bounces.Load(),
				d.coalesced.Load(),
			)
			return nil
		case ev := <-d.queue.Events():
			if err := d.handle(ctx, ev); err != nil {
				return nil
			}
		}
	}
}

func (d *Debouncer) handle(ctx context.Context, ev Event) error {
	idx := int(ev.Button)
	if idx < 0 || idx >= len(d.confirmed) {
		log.Warn().Msgf("input.Debouncer.handle unknown button=%s", ev.Button)
		return nil
	}
	// Edges from a press that was already counted.
	if last := d.confirmed[idx]; !last.IsZero() && !ev.At.After(last) {
		d.coalesced.Add(1)
		observability.RecordButtonEvent(ev.Button.String(), OutcomeCoalesced)
		log.Debug().Msgf("input.Debouncer.handle coalesced button=%s", ev.Button)
		return nil
	}

	timer := time.NewTimer(d.settle)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
	}

	if !d.levels.Asserted(ev.Button) {
		d.bounces.Add(1)
		observability.RecordButtonEvent(ev.Button.String(), OutcomeBounce)
		log.Debug().Msgf("input.Debouncer.handle bounce button=%s", ev.Button)
		return nil
	}

	d.confirmed[idx] = d.now()
	snap := d.state.Increment(ev.Button.Side())
	d.confirmedN.Add(1)
	observability.RecordButtonEvent(ev.Button.String(), OutcomeConfirmed)
	log.Info().Msgf(
		"input.Debouncer.handle confirmed button=%s score_A=%d score_B=%d swapped=%t",
		ev.Button,
		snap.A,
		snap.B,
		snap.Swapped,
	)
	d.notifier.Notify()
	return nil
}

func (d *Debouncer) Stats() Stats {
	return Stats{
		Confirmed: d.confirmedN.Load(),
		Bounces:   d.bounces.Load(),
		Coalesced: d.coalesced.Load(),
	}
}
