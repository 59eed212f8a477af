// Package status serves the local health, readiness, metrics and score endpoints.
package status

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/scoreboard/internal/auth"
	"github.com/danmuck/scoreboard/internal/observability"
	"github.com/danmuck/scoreboard/internal/score"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

type ScoreSource interface {
	Snapshot() score.Snapshot
}

type Options struct {
	DeviceID    string
	Addr        string
	Version     string
	CorsOrigins []string
	Source      ScoreSource
	// StreamConnected reports the backend stream state. Optional.
	StreamConnected func() bool
	// Token, when set, is required as a bearer token on /score and /metrics.
	Token string
}

type Server struct {
	opts    Options
	router  *gin.Engine
	started time.Time
}

func New(opts Options) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(opts.DeviceID))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(opts.CorsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{opts: opts, router: r, started: time.Now()}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"device":  s.opts.DeviceID,
			"version": s.opts.Version,
		})
	})

	guarded := s.router.Group("/")
	if s.opts.Token != "" {
		guarded.Use(auth.Require(auth.StaticToken{Token: s.opts.Token}))
	}

	guarded.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":            true,
			"stream_connected": s.streamConnected(),
			"device":           s.opts.DeviceID,
			"version":          s.opts.Version,
		})
	})

	guarded.GET("/score", func(c *gin.Context) {
		if s.opts.Source == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "score source not attached"})
			return
		}
		snap := s.opts.Source.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"device_id":        s.opts.DeviceID,
			"score_A":          snap.A,
			"score_B":          snap.B,
			"is_swapped":       snap.Swapped,
			"stream_connected": s.streamConnected(),
		})
	})
}

func (s *Server) streamConnected() bool {
	if s.opts.StreamConnected == nil {
		return false
	}
	return s.opts.StreamConnected()
}

// Serve listens on Options.Addr until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("status.Server.Serve listening addr=%s", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Msgf("status.Server.Serve shutdown err=%v", err)
			return err
		}
		log.Info().Msg("status.Server.Serve stopped")
		return nil
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
