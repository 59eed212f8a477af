// Package publish pushes the current score to the backend after local presses.
//
// Publishing is fire-and-forget: Notify never blocks, each call publishes
// once to every sink, and failures are logged and counted but not retried.
package publish

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/scoreboard/internal/observability"
	"github.com/danmuck/scoreboard/internal/score"
	"github.com/rs/zerolog/log"
)

const DefaultTimeout = 5 * time.Second

// Payload is the HTTP push body.
type Payload struct {
	A int `json:"score_A"`
	B int `json:"score_B"`
}

func PayloadFor(snap score.Snapshot) Payload {
	return Payload{A: snap.A, B: snap.B}
}

type Source interface {
	Snapshot() score.Snapshot
}

// Sink delivers one snapshot somewhere.
type Sink interface {
	Name() string
	Publish(ctx context.Context, snap score.Snapshot) error
}

type Stats struct {
	Notified  uint64
	Delivered uint64
	Failed    uint64
}

type Publisher struct {
	ctx     context.Context
	source  Source
	sinks   []Sink
	timeout time.Duration

	wg        sync.WaitGroup
	notified  atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
}

// New binds a publisher to ctx; in-flight publishes are cancelled with it.
func New(ctx context.Context, source Source, sinks []Sink, timeout time.Duration) *Publisher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Publisher{
		ctx:     ctx,
		source:  source,
		sinks:   sinks,
		timeout: timeout,
	}
}

// Notify snapshots the state now and publishes it in the background.
func (p *Publisher) Notify() {
	snap := p.source.Snapshot()
	p.notified.Add(1)
	if len(p.sinks) == 0 {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.publish(snap)
	}()
}

func (p *Publisher) publish(snap score.Snapshot) {
	for _, sink := range p.sinks {
		ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
		start := time.Now()
		err := sink.Publish(ctx, snap)
		cancel()
		elapsed := time.Since(start)
		observability.RecordPublish(sink.Name(), elapsed, err == nil)
		if err != nil {
			p.failed.Add(1)
			log.Warn().Msgf(
				"publish.Publisher.publish failed sink=%s score_A=%d score_B=%d err=%v",
				sink.Name(),
				snap.A,
				snap.B,
				err,
			)
			continue
		}
		p.delivered.Add(1)
		log.Debug().Msgf(
			"publish.Publisher.publish delivered sink=%s score_A=%d score_B=%d elapsed=%s",
			sink.Name(),
			snap.A,
			snap.B,
			elapsed,
		)
	}
}

// Wait blocks until every publish started so far has finished.
func (p *Publisher) Wait() {
	p.wg.Wait()
}

func (p *Publisher) Stats() Stats {
	return Stats{
		Notified:  p.notified.Load(),
		Delivered: p.delivered.Load(),
		Failed:    p.failed.Load(),
	}
}
