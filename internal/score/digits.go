package score

// DigitFrame is one refresh worth of digits, left to right.
type DigitFrame [4]int

// Split returns the tens and ones digit of a 0..99 score.
func Split(v int) (tens, ones int) {
	return v / 10, v % 10
}

// Left is the score rendered on the left digit pair.
func (s Snapshot) Left() int {
	if s.Swapped {
		return s.B
	}
	return s.A
}

// Right is the score rendered on the right digit pair.
func (s Snapshot) Right() int {
	if s.Swapped {
		return s.A
	}
	return s.B
}

// Frame lays the snapshot out as [left tens, left ones, right tens, right ones].
func (s Snapshot) Frame() DigitFrame {
	lt, lo := Split(s.Left())
	rt, ro := Split(s.Right())
	return DigitFrame{lt, lo, rt, ro}
}
