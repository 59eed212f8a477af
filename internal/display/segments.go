package display

// Segment bit i drives segment a..g; bit 7 is the decimal point.
const (
	SegmentMask  uint8 = 0x7F
	DecimalPoint uint8 = 0x80
	Positions          = 4
)

var patterns = [10]uint8{
	0x3F, // 0
	0x06, // 1
	0x5B, // 2
	0x4F, // 3
	0x66, // 4
	0x6D, // 5
	0x7D, // 6
	0x07, // 7
	0x7F, // 8
	0x6F, // 9
}

// Pattern returns the segment mask for a decimal digit. Anything else is blank.
func Pattern(digit int) uint8 {
	if digit < 0 || digit >= len(patterns) {
		return 0
	}
	return patterns[digit]
}
