// Package board adapts physical (or simulated) lines to the display and
// input packages.
package board

import (
	"context"
	"errors"
	"fmt"

	"github.com/danmuck/scoreboard/internal/config"
	"github.com/danmuck/scoreboard/internal/display"
	"github.com/danmuck/scoreboard/internal/input"
)

var (
	ErrPinNotFound   = errors.New("board: pin not found")
	ErrUnknownDriver = errors.New("board: unknown driver")
)

// Board is everything the service needs from the hardware.
type Board interface {
	display.SegmentBus
	display.DigitSelect
	input.Levels
	// Watch delivers button edges to signal until ctx is done.
	Watch(ctx context.Context, signal func(input.Button) bool) error
	Name() string
	Close() error
}

// Open builds the driver named by cfg.Driver.
func Open(cfg config.BoardConfig) (Board, error) {
	switch cfg.Driver {
	case config.DriverGPIO, "":
		return OpenGPIO(cfg)
	case config.DriverSim:
		return NewSim(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
