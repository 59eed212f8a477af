package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/danmuck/scoreboard/internal/observability"
	"github.com/danmuck/scoreboard/internal/protocol"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const streamPath = "/socket.io/"

var ErrInvalidStreamAddress = errors.New("session: invalid stream address")

// Handler consumes inbound text frames for one logical stream.
type Handler interface {
	ConnectPacket() []byte
	Handle(raw []byte) ([]byte, error)
	KeepaliveWindow() time.Duration
	Reset()
}

// Client keeps one websocket stream open until its context ends.
type Client struct {
	url     string
	cfg     Config
	handler Handler
	dialer  *websocket.Dialer
	redial  *redial

	connected atomic.Bool
	sessions  atomic.Uint64
}

// StreamURL builds the websocket endpoint for a host:port address.
func StreamURL(address string, secure bool) (string, error) {
	host := strings.TrimSpace(address)
	if host == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidStreamAddress)
	}
	if strings.Contains(host, "://") || strings.ContainsAny(host, "/?#") {
		return "", fmt.Errorf("%w: %q is not host:port", ErrInvalidStreamAddress, address)
	}
	scheme := "ws"
	if secure {
		scheme = "wss"
	}
	u := url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     streamPath,
		RawQuery: url.Values{"EIO": {"4"}, "transport": {"websocket"}}.Encode(),
	}
	return u.String(), nil
}

func NewClient(streamURL string, handler Handler, cfg Config) (*Client, error) {
	cfg = cfg.WithDefaults()
	u, err := url.Parse(streamURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStreamAddress, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("%w: scheme %q", ErrInvalidStreamAddress, u.Scheme)
	}
	if err := cfg.ValidateClientTransport(u.Scheme == "wss"); err != nil {
		return nil, err
	}
	tlsCfg, err := cfg.ClientTLSConfig()
	if err != nil {
		return nil, err
	}
	return &Client{
		url:     streamURL,
		cfg:     cfg,
		handler: handler,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
			TLSClientConfig:  tlsCfg,
		},
		redial: newRedial(cfg.Backoff),
	}, nil
}

func (c *Client) URL() string {
	return c.url
}

func (c *Client) Connected() bool {
	return c.connected.Load()
}

func (c *Client) Sessions() uint64 {
	return c.sessions.Load()
}

// Run dials, serves and redials until ctx is done. Disconnects never touch
// score state; the next connection simply resumes applying updates.
func (c *Client) Run(ctx context.Context) error {
	log.Info().Msgf("session.Client.Run started url=%s", c.url)
	for {
		if ctx.Err() != nil {
			log.Info().Msgf("session.Client.Run stopped sessions=%d", c.sessions.Load())
			return nil
		}
		established, err := c.serve(ctx)
		if ctx.Err() != nil {
			log.Info().Msgf("session.Client.Run stopped sessions=%d", c.sessions.Load())
			return nil
		}
		if established {
			c.redial.established()
		}
		attempt, delay := c.redial.next()
		log.Warn().Msgf("session.Client.Run disconnected attempt=%d retry_in=%s err=%v", attempt, delay, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}
}

// serve runs one connection. established reports whether the dial succeeded.
func (c *Client) serve(ctx context.Context) (bool, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	conn, resp, err := c.dialer.DialContext(dialCtx, c.url, nil)
	cancel()
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		observability.RecordStreamSession("dial_failed")
		return false, fmt.Errorf("session: dial %s: %w", c.url, err)
	}
	defer conn.Close()
	conn.SetReadLimit(c.cfg.MaxFrameSize)

	sessionID := uuid.NewString()
	n := c.sessions.Add(1)
	c.handler.Reset()
	c.connected.Store(true)
	defer c.connected.Store(false)
	observability.RecordStreamSession("connected")
	log.Info().Msgf("session.Client.serve connected session=%s n=%d", sessionID, n)

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.cfg.WriteTimeout),
		)
		conn.Close()
	})
	defer stop()

	if err := c.write(conn, c.handler.ConnectPacket()); err != nil {
		observability.RecordStreamSession("write_failed")
		return true, err
	}

	for {
		window := c.handler.KeepaliveWindow()
		if window <= 0 {
			window = c.cfg.ReadTimeout
		}
		if err := conn.SetReadDeadline(time.Now().Add(window)); err != nil {
			return true, err
		}
		mt, data, err := conn.ReadMessage()
		if err != nil {
			observability.RecordStreamSession("read_failed")
			return true, fmt.Errorf("session: read session=%s: %w", sessionID, err)
		}
		if mt != websocket.TextMessage {
			observability.RecordDroppedFrame("binary")
			log.Debug().Msgf("session.Client.serve dropped binary message session=%s len=%d", sessionID, len(data))
			continue
		}

		reply, herr := c.handler.Handle(data)
		if len(reply) > 0 {
			if err := c.write(conn, reply); err != nil {
				observability.RecordStreamSession("write_failed")
				return true, err
			}
		}
		if protocol.Fatal(herr) {
			observability.RecordStreamSession("closed_by_server")
			return true, herr
		}
	}
}

func (c *Client) write(conn *websocket.Conn, msg []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("session: write: %w", err)
	}
	return nil
}
