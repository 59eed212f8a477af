package board

import (
	"context"
	"strings"
	"sync"

	"github.com/danmuck/scoreboard/internal/display"
	"github.com/danmuck/scoreboard/internal/input"
)

const simEdgeBuffer = 64

// Sim is an in-memory board. It records what each position last showed and
// lets callers press buttons programmatically.
type Sim struct {
	mu       sync.Mutex
	segments uint8
	active   int
	overlaps uint64
	lit      [display.Positions]uint8
	pressed  [len(input.Buttons)]bool

	edges chan input.Button
}

func NewSim() *Sim {
	return &Sim{active: -1, edges: make(chan input.Button, simEdgeBuffer)}
}

func (s *Sim) Name() string { return "sim" }

func (s *Sim) SetSegments(mask uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments = mask & display.SegmentMask
}

func (s *Sim) Enable(pos int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pos < 0 || pos >= display.Positions {
		return
	}
	if s.active >= 0 && s.active != pos {
		s.overlaps++
	}
	s.active = pos
	s.lit[pos] = s.segments
}

func (s *Sim) DisableAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = -1
}

func (s *Sim) Asserted(b input.Button) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(b) < 0 || int(b) >= len(s.pressed) {
		return false
	}
	return s.pressed[b]
}

// Press holds b down and emits one falling edge.
func (s *Sim) Press(b input.Button) {
	s.setPressed(b, true)
	s.Edge(b)
}

func (s *Sim) Release(b input.Button) {
	s.setPressed(b, false)
}

// Edge emits an edge without changing the line level, like contact bounce.
func (s *Sim) Edge(b input.Button) {
	select {
	case s.edges <- b:
	default:
	}
}

func (s *Sim) setPressed(b input.Button, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(b) >= 0 && int(b) < len(s.pressed) {
		s.pressed[b] = v
	}
}

func (s *Sim) Watch(ctx context.Context, signal func(input.Button) bool) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case b := <-s.edges:
			signal(b)
		}
	}
}

// Overlaps counts enables issued while another position was still on.
func (s *Sim) Overlaps() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlaps
}

// Lit returns the segment mask each position showed last.
func (s *Sim) Lit() [display.Positions]uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lit
}

// Reading decodes Lit into digits, '?' for masks that are not a digit.
func (s *Sim) Reading() string {
	lit := s.Lit()
	var b strings.Builder
	for _, mask := range lit {
		b.WriteByte(decode(mask))
	}
	return b.String()
}

func decode(mask uint8) byte {
	for d := 0; d <= 9; d++ {
		if display.Pattern(d) == mask {
			return byte('0' + d)
		}
	}
	if mask == 0 {
		return ' '
	}
	return '?'
}

func (s *Sim) Close() error {
	s.DisableAll()
	s.SetSegments(0)
	return nil
}
