package scoreboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danmuck/scoreboard/internal/board"
	"github.com/danmuck/scoreboard/internal/config"
	"github.com/danmuck/scoreboard/internal/display"
	"github.com/danmuck/scoreboard/internal/input"
	"github.com/danmuck/scoreboard/internal/protocol"
	"github.com/danmuck/scoreboard/internal/protocol/session"
	"github.com/danmuck/scoreboard/internal/publish"
	"github.com/danmuck/scoreboard/internal/score"
	"github.com/danmuck/scoreboard/internal/status"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	ErrMissingDeviceID          = errors.New("scoreboard: missing device id")
	ErrInvalidHeartbeatInterval = errors.New("scoreboard: invalid heartbeat interval")
)

// StreamConfig configures the inbound backend stream. An empty Address
// disables it.
type StreamConfig struct {
	Address   string
	Secure    bool
	Namespace string
	Session   session.Config
}

// RedisConfig configures the optional score relay. An empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// ServiceConfig configures one scoreboard device.
type ServiceConfig struct {
	DeviceID string
	// BackendURL is the base of the score push endpoint. Empty disables pushes.
	BackendURL        string
	PublishTimeout    time.Duration
	Stream            StreamConfig
	Redis             RedisConfig
	StatusAddr        string
	StatusToken       string
	CorsOrigins       []string
	HeartbeatInterval time.Duration
	Board             config.BoardConfig
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		DeviceID:       "SB-001",
		BackendURL:     "http://192.168.50.1:5000",
		PublishTimeout: publish.DefaultTimeout,
		Stream: StreamConfig{
			Address:   "192.168.50.1:5000",
			Namespace: "/",
			Session:   session.DefaultConfig(),
		},
		Redis:             RedisConfig{Channel: publish.DefaultRedisChannel},
		StatusAddr:        ":9200",
		HeartbeatInterval: 30 * time.Second,
		Board:             config.DefaultBoardConfig(),
	}
}

// Service runs the scoreboard lifecycle as a standalone process.
type Service struct {
	cfg   ServiceConfig
	state *score.State
	board board.Board

	engine    *display.Engine
	queue     *input.Queue
	debouncer *input.Debouncer
	parser    *protocol.Parser
	stream    *session.Client
	publisher *publish.Publisher
	status    *status.Server
	redis     *redis.Client
}

func NewService() *Service {
	return NewServiceWithConfig(DefaultServiceConfig())
}

func NewServiceWithConfig(cfg ServiceConfig) *Service {
	cfg.Stream.Session = cfg.Stream.Session.WithDefaults()
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = publish.DefaultTimeout
	}
	return &Service{
		cfg:   cfg,
		state: score.NewState(),
	}
}

// WithBoard uses b instead of opening the configured driver.
func (s *Service) WithBoard(b board.Board) *Service {
	s.board = b
	return s
}

func (s *Service) State() *score.State {
	return s.state
}

func (s *Service) Config() ServiceConfig {
	return s.cfg
}

// StreamConnected reports whether the backend stream is currently open.
func (s *Service) StreamConnected() bool {
	return s.stream != nil && s.stream.Connected()
}

// Run blocks until SIGINT or SIGTERM.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.RunContext(ctx)
}

func (s *Service) RunContext(ctx context.Context) error {
	if err := s.bootstrap(ctx); err != nil {
		return err
	}
	return s.serve(ctx)
}

// Validate checks the settings that can be checked without touching
// hardware or the network.
func (c ServiceConfig) Validate() error {
	if strings.TrimSpace(c.DeviceID) == "" {
		return ErrMissingDeviceID
	}
	if c.HeartbeatInterval <= 0 {
		return ErrInvalidHeartbeatInterval
	}
	if err := config.ValidateBoardConfig(c.Board); err != nil {
		return err
	}
	if backend := strings.TrimSpace(c.BackendURL); backend != "" {
		if _, err := publish.ScoreURL(backend, c.DeviceID); err != nil {
			return err
		}
	}
	if addr := strings.TrimSpace(c.Stream.Address); addr != "" {
		if _, err := session.StreamURL(addr, c.Stream.Secure); err != nil {
			return err
		}
		if err := c.Stream.Session.ValidateClientTransport(c.Stream.Secure); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) bootstrap(ctx context.Context) (err error) {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			s.shutdown()
		}
	}()

	if s.board == nil {
		b, err := board.Open(s.cfg.Board)
		if err != nil {
			return err
		}
		s.board = b
	}

	engine, err := NewDisplayEngine(s.state, s.board, s.cfg.Board)
	if err != nil {
		return err
	}
	s.engine = engine

	sinks, err := s.buildSinks(ctx)
	if err != nil {
		return err
	}
	s.publisher = publish.New(ctx, s.state, sinks, s.cfg.PublishTimeout)

	s.queue = input.NewQueue(s.cfg.Board.Input.QueueCapacity)
	s.debouncer = input.NewDebouncer(
		s.queue,
		s.board,
		s.state,
		s.publisher,
		time.Duration(s.cfg.Board.Input.DebounceMS)*time.Millisecond,
	)

	s.parser = protocol.NewParser(s.state, s.cfg.Stream.Namespace)
	if addr := strings.TrimSpace(s.cfg.Stream.Address); addr != "" {
		streamURL, err := session.StreamURL(addr, s.cfg.Stream.Secure)
		if err != nil {
			return err
		}
		s.stream, err = session.NewClient(streamURL, s.parser, s.cfg.Stream.Session)
		if err != nil {
			return err
		}
	}

	if strings.TrimSpace(s.cfg.StatusAddr) != "" {
		s.status = status.New(status.Options{
			DeviceID:        s.cfg.DeviceID,
			Addr:            s.cfg.StatusAddr,
			Version:         Version,
			CorsOrigins:     s.cfg.CorsOrigins,
			Source:          s.state,
			StreamConnected: s.StreamConnected,
			Token:           s.cfg.StatusToken,
		})
	}

	log.Info().Msgf(
		"scoreboard.Service.bootstrap ready device_id=%q board=%s sinks=%d stream=%t status_addr=%q",
		s.cfg.DeviceID,
		s.board.Name(),
		len(sinks),
		s.stream != nil,
		s.cfg.StatusAddr,
	)
	return nil
}

// NewDisplayEngine builds the refresh engine from board timing.
func NewDisplayEngine(source display.Source, b board.Board, cfg config.BoardConfig) (*display.Engine, error) {
	return display.NewEngine(source, b, b, display.Config{
		Period: time.Duration(cfg.Display.PeriodMS) * time.Millisecond,
		OnTime: time.Duration(cfg.Display.OnTimeUS) * time.Microsecond,
	})
}

func (s *Service) buildSinks(ctx context.Context) ([]publish.Sink, error) {
	sinks := make([]publish.Sink, 0, 2)
	if backend := strings.TrimSpace(s.cfg.BackendURL); backend != "" {
		sink, err := publish.NewHTTPSink(backend, s.cfg.DeviceID, &http.Client{Timeout: s.cfg.PublishTimeout})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
		log.Info().Msgf("scoreboard.Service.buildSinks http url=%s", sink.URL())
	} else {
		log.Warn().Msg("scoreboard.Service.buildSinks backend_url empty; score pushes disabled")
	}

	if addr := strings.TrimSpace(s.cfg.Redis.Addr); addr != "" {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: s.cfg.Redis.Password,
			DB:       s.cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, s.cfg.PublishTimeout)
		err := s.redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn().Msgf("scoreboard.Service.buildSinks redis unreachable addr=%s err=%v", addr, err)
		}
		sink, err := publish.NewRedisSink(s.redis, s.cfg.Redis.Channel, s.cfg.DeviceID)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
		log.Info().Msgf("scoreboard.Service.buildSinks redis addr=%s channel=%s", addr, sink.Channel())
	}
	return sinks, nil
}

func (s *Service) serve(ctx context.Context) error {
	defer s.shutdown()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.engine.Run(gctx) })
	g.Go(func() error { return s.debouncer.Run(gctx) })
	g.Go(func() error { return s.board.Watch(gctx, s.queue.Signal) })
	if s.stream != nil {
		g.Go(func() error { return s.stream.Run(gctx) })
	}
	if s.status != nil {
		g.Go(func() error { return s.serveStatus(gctx) })
	}
	g.Go(func() error { return s.heartbeat(gctx) })

	// Announce the boot state to the backend.
	s.publisher.Notify()

	if err := g.Wait(); err != nil {
		return fmt.Errorf("scoreboard: %w", err)
	}
	log.Info().Msg("scoreboard.Service.serve shutdown")
	return nil
}

// serveStatus keeps a status failure away from the errgroup so the display
// and input loops outlive it.
func (s *Service) serveStatus(ctx context.Context) error {
	if err := s.status.Serve(ctx); err != nil {
		log.Error().Msgf("scoreboard.Service.serveStatus status surface down addr=%q err=%v", s.cfg.StatusAddr, err)
	}
	return nil
}

func (s *Service) heartbeat(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap := s.state.Snapshot()
			inputs := s.debouncer.Stats()
			pubs := s.publisher.Stats()
			log.Info().Msgf(
				"scoreboard.Service.heartbeat device_id=%q score_A=%d score_B=%d swapped=%t stream_connected=%t presses=%d bounces=%d queue_dropped=%d publish_failed=%d display_overruns=%d",
				s.cfg.DeviceID,
				snap.A,
				snap.B,
				snap.Swapped,
				s.StreamConnected(),
				inputs.Confirmed,
				inputs.Bounces,
				s.queue.Dropped(),
				pubs.Failed,
				s.engine.Overruns(),
			)
		}
	}
}

func (s *Service) shutdown() {
	if s.publisher != nil {
		s.publisher.Wait()
	}
	if s.board != nil {
		if err := s.board.Close(); err != nil {
			log.Warn().Msgf("scoreboard.Service.shutdown board close err=%v", err)
		}
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
}

// SelfTest opens the board and runs the display lamp test.
func (s *Service) SelfTest(ctx context.Context, step time.Duration) error {
	if err := config.ValidateBoardConfig(s.cfg.Board); err != nil {
		return err
	}
	if s.board == nil {
		b, err := board.Open(s.cfg.Board)
		if err != nil {
			return err
		}
		s.board = b
	}
	defer s.board.Close()

	engine, err := NewDisplayEngine(s.state, s.board, s.cfg.Board)
	if err != nil {
		return err
	}
	log.Info().Msgf("scoreboard.Service.SelfTest lamp test board=%s step=%s", s.board.Name(), step)
	return engine.LampTest(ctx, step)
}
