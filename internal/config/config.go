package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	DriverGPIO = "gpio"
	DriverSim  = "sim"

	SegmentCount = 7
	DigitCount   = 4
)

var ErrInvalidBoardConfig = errors.New("config: invalid board config")

// BoardConfig describes how the controller is wired.
//
// Digits are listed in display position order: left tens, left ones,
// right tens, right ones.
type BoardConfig struct {
	Driver           string        `toml:"driver"`
	Segments         []string      `toml:"segments"`
	DecimalPoint     string        `toml:"decimal_point"`
	Digits           []string      `toml:"digits"`
	ButtonA          string        `toml:"button_a"`
	ButtonB          string        `toml:"button_b"`
	SegmentActiveLow bool          `toml:"segment_active_low"`
	DigitActiveLow   bool          `toml:"digit_active_low"`
	ButtonActiveHigh bool          `toml:"button_active_high"`
	Display          DisplayConfig `toml:"display"`
	Input            InputConfig   `toml:"input"`
}

type DisplayConfig struct {
	PeriodMS int `toml:"period_ms"`
	OnTimeUS int `toml:"on_time_us"`
}

type InputConfig struct {
	DebounceMS    int `toml:"debounce_ms"`
	QueueCapacity int `toml:"queue_capacity"`
}

// DefaultBoardConfig matches the reference ESP32 wiring. The first digit
// select drives the ones place of each pair, so tens/ones are crossed.
func DefaultBoardConfig() BoardConfig {
	return BoardConfig{
		Driver:       DriverGPIO,
		Segments:     []string{"GPIO18", "GPIO19", "GPIO23", "GPIO5", "GPIO13", "GPIO12", "GPIO14"},
		DecimalPoint: "GPIO27",
		Digits:       []string{"GPIO17", "GPIO16", "GPIO26", "GPIO25"},
		ButtonA:      "GPIO2",
		ButtonB:      "GPIO4",
		Display: DisplayConfig{
			PeriodMS: 15,
			OnTimeUS: 2300,
		},
		Input: InputConfig{
			DebounceMS:    50,
			QueueCapacity: 10,
		},
	}
}

// LoadBoardConfig overlays the file onto DefaultBoardConfig.
func LoadBoardConfig(path string) (BoardConfig, error) {
	cfg := DefaultBoardConfig()
	if err := loadToml(path, &cfg); err != nil {
		return BoardConfig{}, err
	}
	cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	if cfg.Driver == "" {
		cfg.Driver = DriverGPIO
	}
	if err := ValidateBoardConfig(cfg); err != nil {
		return BoardConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateBoardConfig(cfg BoardConfig) error {
	switch cfg.Driver {
	case DriverGPIO, DriverSim:
	default:
		return fmt.Errorf("%w: unknown driver %q", ErrInvalidBoardConfig, cfg.Driver)
	}
	if len(cfg.Segments) != SegmentCount {
		return fmt.Errorf("%w: segments needs %d pins, got %d", ErrInvalidBoardConfig, SegmentCount, len(cfg.Segments))
	}
	if len(cfg.Digits) != DigitCount {
		return fmt.Errorf("%w: digits needs %d pins, got %d", ErrInvalidBoardConfig, DigitCount, len(cfg.Digits))
	}
	if cfg.Display.PeriodMS <= 0 || cfg.Display.OnTimeUS <= 0 {
		return fmt.Errorf("%w: display timing must be positive", ErrInvalidBoardConfig)
	}
	if DigitCount*cfg.Display.OnTimeUS > cfg.Display.PeriodMS*1000 {
		return fmt.Errorf(
			"%w: %d digits x on_time_us=%d exceeds period_ms=%d",
			ErrInvalidBoardConfig,
			DigitCount,
			cfg.Display.OnTimeUS,
			cfg.Display.PeriodMS,
		)
	}
	if cfg.Input.DebounceMS <= 0 {
		return fmt.Errorf("%w: debounce_ms must be positive", ErrInvalidBoardConfig)
	}
	if cfg.Input.QueueCapacity <= 0 {
		return fmt.Errorf("%w: queue_capacity must be positive", ErrInvalidBoardConfig)
	}

	seen := make(map[string]string)
	claim := func(role, pin string) error {
		pin = strings.TrimSpace(pin)
		if pin == "" {
			return fmt.Errorf("%w: %s pin is required", ErrInvalidBoardConfig, role)
		}
		if prev, ok := seen[pin]; ok {
			return fmt.Errorf("%w: pin %s used by %s and %s", ErrInvalidBoardConfig, pin, prev, role)
		}
		seen[pin] = role
		return nil
	}
	for i, pin := range cfg.Segments {
		if err := claim(fmt.Sprintf("segments[%d]", i), pin); err != nil {
			return err
		}
	}
	for i, pin := range cfg.Digits {
		if err := claim(fmt.Sprintf("digits[%d]", i), pin); err != nil {
			return err
		}
	}
	if strings.TrimSpace(cfg.DecimalPoint) != "" {
		if err := claim("decimal_point", cfg.DecimalPoint); err != nil {
			return err
		}
	}
	if err := claim("button_a", cfg.ButtonA); err != nil {
		return err
	}
	return claim("button_b", cfg.ButtonB)
}
