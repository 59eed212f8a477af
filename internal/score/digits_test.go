package score

import (
	"testing"

	"github.com/danmuck/scoreboard/internal/testutil/testlog"
)

func TestSplit(t *testing.T) {
	testlog.Start(t)
	cases := map[int][2]int{
		0:  {0, 0},
		7:  {0, 7},
		42: {4, 2},
		99: {9, 9},
	}
	for in, want := range cases {
		tens, ones := Split(in)
		if tens != want[0] || ones != want[1] {
			t.Fatalf("Split(%d) got=(%d,%d) want=%v", in, tens, ones, want)
		}
	}
}

func TestFrameFollowsSwap(t *testing.T) {
	testlog.Start(t)
	snap := Snapshot{A: 7, B: 42}
	if got := snap.Frame(); got != (DigitFrame{0, 7, 4, 2}) {
		t.Fatalf("unswapped frame: %v", got)
	}
	snap.Swapped = true
	if got := snap.Frame(); got != (DigitFrame{4, 2, 0, 7}) {
		t.Fatalf("swapped frame: %v", got)
	}
}

func TestFrameAfterWrapIsZeroes(t *testing.T) {
	testlog.Start(t)
	s := NewState()
	for i := 0; i < modulus; i++ {
		s.Increment(SideLeft)
	}
	if got := s.Snapshot().Frame(); got != (DigitFrame{}) {
		t.Fatalf("expected blank zero frame after wrap, got %v", got)
	}
}
