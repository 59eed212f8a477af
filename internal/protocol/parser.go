package protocol

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/scoreboard/internal/observability"
	"github.com/danmuck/scoreboard/internal/protocol/frame"
	"github.com/danmuck/scoreboard/internal/score"
	"github.com/rs/zerolog/log"
)

// Applier is the slice of score.State remote updates write to.
type Applier interface {
	SetScores(a, b int) (score.Snapshot, error)
	SetSwapped(flag bool) score.Snapshot
}

type ParserStats struct {
	Applied uint64
	Dropped uint64
	Pings   uint64
}

// Parser dispatches inbound frames for one logical stream. It keeps per
// connection handshake state; call Reset when the transport reconnects.
type Parser struct {
	state     Applier
	namespace string

	mu        sync.Mutex
	handshake frame.Handshake
	opened    bool
	connected bool

	applied atomic.Uint64
	dropped atomic.Uint64
	pings   atomic.Uint64
}

func NewParser(state Applier, namespace string) *Parser {
	if namespace == "" {
		namespace = frame.DefaultNamespace
	}
	return &Parser{state: state, namespace: namespace}
}

// ConnectPacket is sent once after each transport connect.
func (p *Parser) ConnectPacket() []byte {
	return frame.Connect(p.namespace)
}

// Reset forgets the handshake of the previous connection.
func (p *Parser) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handshake = frame.Handshake{}
	p.opened = false
	p.connected = false
}

// KeepaliveWindow is how long the connection may stay silent before it is
// considered dead. Zero until the open handshake has been seen.
func (p *Parser) KeepaliveWindow() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.opened {
		return 0
	}
	return p.handshake.Interval() + p.handshake.Timeout()
}

func (p *Parser) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *Parser) Stats() ParserStats {
	return ParserStats{
		Applied: p.applied.Load(),
		Dropped: p.dropped.Load(),
		Pings:   p.pings.Load(),
	}
}

// Handle processes one inbound frame and returns the reply to write, if any.
//
// A non-nil error means the frame was dropped without touching the score
// state. Only ErrStreamClosed and ErrConnectRejected end the connection.
func (p *Parser) Handle(raw []byte) ([]byte, error) {
	f, err := frame.Decode(raw)
	if err != nil {
		return nil, p.drop("decode", err)
	}

	switch f.Packet {
	case frame.PacketPing:
		p.pings.Add(1)
		log.Debug().Msg("protocol.Parser.Handle ping")
		return append(frame.Pong(), f.Data...), nil
	case frame.PacketPong, frame.PacketNoop, frame.PacketUpgrade:
		return nil, nil
	case frame.PacketOpen:
		return nil, p.handleOpen(f)
	case frame.PacketClose:
		log.Info().Msg("protocol.Parser.Handle server close")
		return nil, ErrStreamClosed
	case frame.PacketMessage:
		return nil, p.handleMessage(f)
	}
	return nil, p.drop("decode", fmt.Errorf("%w: %q", frame.ErrUnknownPacketType, byte(f.Packet)))
}

func (p *Parser) handleOpen(f frame.Frame) error {
	h, err := f.Handshake()
	if err != nil {
		return p.drop("handshake", err)
	}
	p.mu.Lock()
	p.handshake = h
	p.opened = true
	p.mu.Unlock()
	log.Info().Msgf(
		"protocol.Parser.Handle open sid=%q ping_interval=%s ping_timeout=%s",
		h.SID,
		h.Interval(),
		h.Timeout(),
	)
	return nil
}

func (p *Parser) handleMessage(f frame.Frame) error {
	if f.Namespace != p.namespace {
		return p.drop("namespace", fmt.Errorf("%w: %q", ErrNamespaceIgnored, f.Namespace))
	}
	switch f.Message {
	case frame.MessageConnect:
		p.mu.Lock()
		p.connected = true
		p.mu.Unlock()
		log.Info().Msgf("protocol.Parser.Handle connected namespace=%q", f.Namespace)
		return nil
	case frame.MessageConnectError:
		log.Warn().Msgf("protocol.Parser.Handle connect_error namespace=%q data=%s", f.Namespace, f.Data)
		return fmt.Errorf("%w: %s", ErrConnectRejected, f.Data)
	case frame.MessageDisconnect:
		p.mu.Lock()
		p.connected = false
		p.mu.Unlock()
		log.Info().Msgf("protocol.Parser.Handle disconnect namespace=%q", f.Namespace)
		return ErrStreamClosed
	case frame.MessageEvent:
		return p.handleEvent(f)
	default:
		return nil
	}
}

func (p *Parser) handleEvent(f frame.Frame) error {
	name, payload, err := f.Event()
	if err != nil {
		return p.drop("event", err)
	}
	upd, err := Decode(name, payload)
	if err != nil {
		observability.RecordRemoteUpdate(kindForEvent(name), false)
		return p.drop("payload", fmt.Errorf("event=%s: %w", name, err))
	}
	return p.apply(upd)
}

func (p *Parser) apply(upd Update) error {
	switch u := upd.(type) {
	case ScoreUpdate:
		snap, err := p.state.SetScores(u.A, u.B)
		if err != nil {
			observability.RecordRemoteUpdate(u.Kind(), false)
			return p.drop("range", err)
		}
		p.applied.Add(1)
		observability.RecordRemoteUpdate(u.Kind(), true)
		log.Info().Msgf("protocol.Parser.apply score score_A=%d score_B=%d", snap.A, snap.B)
	case SwapUpdate:
		snap := p.state.SetSwapped(u.Swapped)
		p.applied.Add(1)
		observability.RecordRemoteUpdate(u.Kind(), true)
		log.Info().Msgf("protocol.Parser.apply swap swapped=%t", snap.Swapped)
	case UnknownUpdate:
		observability.RecordRemoteUpdate(u.Kind(), false)
		return p.drop("unknown_event", fmt.Errorf("%w: %q", ErrUnknownEvent, u.Name))
	}
	return nil
}

func (p *Parser) drop(reason string, err error) error {
	p.dropped.Add(1)
	observability.RecordDroppedFrame(reason)
	if reason == "unknown_event" {
		log.Debug().Msgf("protocol.Parser.Handle dropped reason=%s err=%v", reason, err)
	} else {
		log.Warn().Msgf("protocol.Parser.Handle dropped reason=%s err=%v", reason, err)
	}
	return err
}

func kindForEvent(name string) string {
	switch name {
	case EventScoreUpdated:
		return KindScore
	case EventBoardStateUpdated:
		return KindSwap
	default:
		return KindUnknown
	}
}
