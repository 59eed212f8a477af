package board

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/scoreboard/internal/config"
	"github.com/danmuck/scoreboard/internal/display"
	"github.com/danmuck/scoreboard/internal/input"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

const edgePoll = 100 * time.Millisecond

// GPIO drives the board through periph.io. Segment and digit writes happen
// on the display goroutine only; edge waits run one goroutine per button.
type GPIO struct {
	segments [config.SegmentCount]gpio.PinIO
	dp       gpio.PinIO
	digits   [config.DigitCount]gpio.PinIO
	buttons  [len(input.Buttons)]gpio.PinIO

	segmentActiveLow bool
	digitActiveLow   bool
	buttonActiveHigh bool

	writeErrOnce sync.Once
}

func OpenGPIO(cfg config.BoardConfig) (*GPIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("board: host init: %w", err)
	}
	g := &GPIO{
		segmentActiveLow: cfg.SegmentActiveLow,
		digitActiveLow:   cfg.DigitActiveLow,
		buttonActiveHigh: cfg.ButtonActiveHigh,
	}
	if len(cfg.Segments) != config.SegmentCount || len(cfg.Digits) != config.DigitCount {
		return nil, fmt.Errorf("%w: segments=%d digits=%d", config.ErrInvalidBoardConfig, len(cfg.Segments), len(cfg.Digits))
	}

	var err error
	for i, name := range cfg.Segments {
		if g.segments[i], err = outputPin(name, level(false, g.segmentActiveLow)); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(cfg.DecimalPoint) != "" {
		if g.dp, err = outputPin(cfg.DecimalPoint, level(false, g.segmentActiveLow)); err != nil {
			return nil, err
		}
	}
	for i, name := range cfg.Digits {
		if g.digits[i], err = outputPin(name, level(false, g.digitActiveLow)); err != nil {
			return nil, err
		}
	}

	pull, edge := gpio.PullUp, gpio.FallingEdge
	if g.buttonActiveHigh {
		pull, edge = gpio.PullDown, gpio.RisingEdge
	}
	for i, name := range []string{cfg.ButtonA, cfg.ButtonB} {
		pin, err := lookupPin(name)
		if err != nil {
			return nil, err
		}
		if err := pin.In(pull, edge); err != nil {
			return nil, fmt.Errorf("board: configure input %s: %w", name, err)
		}
		g.buttons[i] = pin
	}

	log.Info().Msgf(
		"board.OpenGPIO ready segments=%v digits=%v buttons=%s,%s",
		cfg.Segments,
		cfg.Digits,
		cfg.ButtonA,
		cfg.ButtonB,
	)
	return g, nil
}

func lookupPin(name string) (gpio.PinIO, error) {
	pin := gpioreg.ByName(strings.TrimSpace(name))
	if pin == nil {
		return nil, fmt.Errorf("%w: %q", ErrPinNotFound, name)
	}
	return pin, nil
}

func outputPin(name string, initial gpio.Level) (gpio.PinIO, error) {
	pin, err := lookupPin(name)
	if err != nil {
		return nil, err
	}
	if err := pin.Out(initial); err != nil {
		return nil, fmt.Errorf("board: configure output %s: %w", name, err)
	}
	return pin, nil
}

// level maps a logical on/off to the electrical level for the line polarity.
func level(on, activeLow bool) gpio.Level {
	return gpio.Level(on != activeLow)
}

func (g *GPIO) Name() string { return "gpio" }

func (g *GPIO) SetSegments(mask uint8) {
	for i, pin := range g.segments {
		g.write(pin, level(mask&(1<<i) != 0, g.segmentActiveLow))
	}
	if g.dp != nil {
		g.write(g.dp, level(false, g.segmentActiveLow))
	}
}

func (g *GPIO) Enable(pos int) {
	if pos < 0 || pos >= display.Positions {
		return
	}
	g.write(g.digits[pos], level(true, g.digitActiveLow))
}

func (g *GPIO) DisableAll() {
	off := level(false, g.digitActiveLow)
	for _, pin := range g.digits {
		g.write(pin, off)
	}
}

func (g *GPIO) write(pin gpio.PinIO, l gpio.Level) {
	if err := pin.Out(l); err != nil {
		g.writeErrOnce.Do(func() {
			log.Error().Msgf("board.GPIO.write failed pin=%s err=%v", pin.Name(), err)
		})
	}
}

func (g *GPIO) Asserted(b input.Button) bool {
	if int(b) < 0 || int(b) >= len(g.buttons) {
		return false
	}
	return g.buttons[b].Read() == gpio.Level(g.buttonActiveHigh)
}

// Watch waits for edges on every button. The wait is bounded so ctx is
// noticed within edgePoll.
func (g *GPIO) Watch(ctx context.Context, signal func(input.Button) bool) error {
	var wg sync.WaitGroup
	for i, pin := range g.buttons {
		pin := pin
		b := input.Button(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				if pin.WaitForEdge(edgePoll) {
					signal(b)
				}
			}
		}()
	}
	wg.Wait()
	return nil
}

func (g *GPIO) Close() error {
	g.DisableAll()
	g.SetSegments(0)
	var firstErr error
	for _, pin := range g.buttons {
		if pin == nil {
			continue
		}
		if err := pin.Halt(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
