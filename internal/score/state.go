// Package score owns the shared scoreboard state.
//
// Every caller goes through State; no reference to the fields escapes the lock.
// Any decision that depends on more than one field (swap flag then increment)
// is taken inside the same critical section as the write it drives.
package score

import (
	"errors"
	"fmt"
	"sync"
)

const (
	MaxScore = 99
	modulus  = MaxScore + 1
)

var ErrScoreOutOfRange = errors.New("score: value out of range")

// Side is the physical half of the board a button or digit pair sits on.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// Snapshot is a consistent copy of the state at one instant.
type Snapshot struct {
	A       int
	B       int
	Swapped bool
}

// State guards (A, B, Swapped). The zero value is (0, 0, false) and ready to use.
type State struct {
	mu      sync.Mutex
	a       int
	b       int
	swapped bool
}

func NewState() *State {
	return &State{}
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Increment bumps the score shown on side, wrapping 99 -> 0.
// The swap flag is read under the same lock as the write.
func (s *State) Increment(side Side) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if (side == SideRight) != s.swapped {
		s.b = (s.b + 1) % modulus
	} else {
		s.a = (s.a + 1) % modulus
	}
	return s.snapshotLocked()
}

// SetScores overwrites both scores as a pair. The swap flag is untouched.
func (s *State) SetScores(a, b int) (Snapshot, error) {
	if !inRange(a) || !inRange(b) {
		return Snapshot{}, fmt.Errorf("%w: score_A=%d score_B=%d", ErrScoreOutOfRange, a, b)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a = a
	s.b = b
	return s.snapshotLocked(), nil
}

// SetSwapped overwrites only the swap flag.
func (s *State) SetSwapped(flag bool) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swapped = flag
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	return Snapshot{A: s.a, B: s.b, Swapped: s.swapped}
}

func inRange(v int) bool {
	return v >= 0 && v <= MaxScore
}
