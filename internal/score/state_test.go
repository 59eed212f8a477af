package score

import (
	"errors"
	"sync"
	"testing"

	"github.com/danmuck/scoreboard/internal/testutil/testlog"
)

func TestIncrementCountsWithoutCarry(t *testing.T) {
	testlog.Start(t)
	s := NewState()
	for n := 1; n <= MaxScore; n++ {
		snap := s.Increment(SideLeft)
		if snap.A != n || snap.B != 0 {
			t.Fatalf("after %d presses got %+v", n, snap)
		}
	}
	snap := s.Increment(SideLeft)
	if snap.A != 0 || snap.B != 0 {
		t.Fatalf("expected wrap to 0 without carry, got %+v", snap)
	}
}

func TestIncrementRespectsSwap(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		swapped bool
		side    Side
		want    Snapshot
	}{
		{false, SideLeft, Snapshot{A: 1}},
		{false, SideRight, Snapshot{B: 1}},
		{true, SideLeft, Snapshot{B: 1, Swapped: true}},
		{true, SideRight, Snapshot{A: 1, Swapped: true}},
	}
	for _, tc := range cases {
		s := NewState()
		s.SetSwapped(tc.swapped)
		if got := s.Increment(tc.side); got != tc.want {
			t.Fatalf("swapped=%v side=%s got=%+v want=%+v", tc.swapped, tc.side, got, tc.want)
		}
	}
}

func TestSetSwappedKeepsScores(t *testing.T) {
	testlog.Start(t)
	s := NewState()
	if _, err := s.SetScores(12, 34); err != nil {
		t.Fatalf("set scores: %v", err)
	}
	for _, flag := range []bool{true, false, true} {
		snap := s.SetSwapped(flag)
		if snap.A != 12 || snap.B != 34 || snap.Swapped != flag {
			t.Fatalf("swap=%v disturbed scores: %+v", flag, snap)
		}
	}
}

func TestSetScoresOverwritesPairAndKeepsSwap(t *testing.T) {
	testlog.Start(t)
	s := NewState()
	s.SetSwapped(true)
	s.Increment(SideLeft)

	snap, err := s.SetScores(3, 5)
	if err != nil {
		t.Fatalf("set scores: %v", err)
	}
	if snap != (Snapshot{A: 3, B: 5, Swapped: true}) {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestSetScoresRejectsOutOfRange(t *testing.T) {
	testlog.Start(t)
	s := NewState()
	s.Increment(SideRight)
	for _, pair := range [][2]int{{100, 0}, {0, -1}, {250, 250}} {
		_, err := s.SetScores(pair[0], pair[1])
		if !errors.Is(err, ErrScoreOutOfRange) {
			t.Fatalf("pair=%v expected ErrScoreOutOfRange, got %v", pair, err)
		}
	}
	if got := s.Snapshot(); got != (Snapshot{B: 1}) {
		t.Fatalf("rejected update mutated state: %+v", got)
	}
}

// Remote writes always set A == B, so any reader that sees A != B caught a torn pair.
func TestConcurrentReadsNeverTorn(t *testing.T) {
	testlog.Start(t)
	s := NewState()
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 5000; i++ {
			v := i % modulus
			if _, err := s.SetScores(v, v); err != nil {
				t.Errorf("set scores: %v", err)
				return
			}
			s.SetSwapped(i%2 == 0)
		}
		close(stop)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := s.Snapshot()
				if snap.A != snap.B {
					t.Errorf("torn snapshot: %+v", snap)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestConcurrentIncrementsAreNotLost(t *testing.T) {
	testlog.Start(t)
	s := NewState()
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(side Side) {
			defer wg.Done()
			s.Increment(side)
		}(Side(i % 2))
	}
	wg.Wait()
	if got := s.Snapshot(); got.A != 20 || got.B != 20 {
		t.Fatalf("lost increments: %+v", got)
	}
}
