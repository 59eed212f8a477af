// Package input turns raw button edges into confirmed score increments.
//
// The edge handler only enqueues; all waiting and state mutation happens in
// the Debouncer goroutine.
package input

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/danmuck/scoreboard/internal/observability"
	"github.com/danmuck/scoreboard/internal/score"
	"github.com/rs/zerolog/log"
)

const DefaultQueueCapacity = 10

type Button int

const (
	ButtonA Button = iota
	ButtonB
)

// Buttons lists every physical button in wiring order.
var Buttons = [...]Button{ButtonA, ButtonB}

func (b Button) String() string {
	switch b {
	case ButtonA:
		return "A"
	case ButtonB:
		return "B"
	default:
		return fmt.Sprintf("button(%d)", int(b))
	}
}

// Side is the physical half of the board the button sits under.
// ButtonA is on the left, ButtonB on the right.
func (b Button) Side() score.Side {
	if b == ButtonB {
		return score.SideRight
	}
	return score.SideLeft
}

// Event is one falling edge. At is taken when the edge is signalled.
type Event struct {
	Button Button
	At     time.Time
}

// Queue is a bounded event queue between the edge handler and the debouncer.
type Queue struct {
	ch      chan Event
	dropped atomic.Uint64
	now     func() time.Time
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{
		ch:  make(chan Event, capacity),
		now: time.Now,
	}
}

// Signal enqueues an edge without blocking. It reports false when the queue
// was full and the edge was dropped.
func (q *Queue) Signal(b Button) bool {
	return q.Push(Event{Button: b, At: q.now()})
}

// Push enqueues a pre-stamped event without blocking.
func (q *Queue) Push(ev Event) bool {
	select {
	case q.ch <- ev:
		return true
	default:
		n := q.dropped.Add(1)
		observability.RecordQueueDrop(ev.Button.String())
		log.Debug().Msgf("input.Queue.Push dropped button=%s total_dropped=%d", ev.Button, n)
		return false
	}
}

func (q *Queue) Events() <-chan Event {
	return q.ch
}

func (q *Queue) Len() int {
	return len(q.ch)
}

func (q *Queue) Cap() int {
	return cap(q.ch)
}

func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
