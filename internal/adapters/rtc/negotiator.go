package rtc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Parley/internal/core"
)

type State int

const (
	StateIdle State = iota
	StateOffering
	StateAwaitingAnswer
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOffering:
		return "offering"
	case StateAwaitingAnswer:
		return "awaiting-answer"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var ErrNegotiationFailed = errors.New("negotiation failed")

// Signal is the body of a relayed "signal" payload. Attempt tags offers
// and answers so late replies to an abandoned attempt are ignored.
type Signal struct {
	Kind      string                     `json:"kind"`
	Attempt   int                        `json:"attempt,omitempty"`
	SDP       *webrtc.SessionDescription `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
}

const (
	KindOffer     = "offer"
	KindAnswer    = "answer"
	KindCandidate = "candidate"
)

type NegotiatorConfig struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
}

func DefaultNegotiatorConfig() NegotiatorConfig {
	return NegotiatorConfig{MaxAttempts: 3, AttemptTimeout: 10 * time.Second}
}

// ConnFactory opens a fresh MediaConnection for each attempt.
type ConnFactory func() (core.MediaConnection, error)

// SendFunc delivers an encoded Signal to the remote peer, usually through
// the signaling server.
type SendFunc func(payload []byte) error

// Negotiator drives the handshake with one remote peer. The offering side
// calls Run; the answering side only feeds HandleSignal.
type Negotiator struct {
	newConn ConnFactory
	send    SendFunc
	cfg     NegotiatorConfig

	mu       sync.Mutex
	state    State
	attempt  int
	conn     core.MediaConnection
	answered bool
	pending  []webrtc.ICECandidateInit
}

func NewNegotiator(newConn ConnFactory, send SendFunc, cfg NegotiatorConfig) *Negotiator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultNegotiatorConfig().AttemptTimeout
	}
	return &Negotiator{newConn: newConn, send: send, cfg: cfg}
}

func (n *Negotiator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Conn returns the connection of the current attempt, if any.
func (n *Negotiator) Conn() core.MediaConnection {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.conn
}

func (n *Negotiator) setState(s State) {
	n.mu.Lock()
	n.state = s
	n.mu.Unlock()
	log.Debug().Str("module", "webrtc").Str("state", s.String()).Msg("negotiator")
}

// Run offers up to MaxAttempts times, each bounded by AttemptTimeout, and
// returns nil once a connection is established.
func (n *Negotiator) Run(ctx context.Context) error {
	for attempt := 1; attempt <= n.cfg.MaxAttempts; attempt++ {
		err := n.try(ctx, attempt)
		if err == nil {
			n.setState(StateConnected)
			return nil
		}
		if ctx.Err() != nil {
			n.setState(StateFailed)
			return ctx.Err()
		}
		log.Warn().Err(err).Str("module", "webrtc").Int("attempt", attempt).Msg("negotiation attempt failed")
	}
	n.setState(StateFailed)
	return fmt.Errorf("%d attempts: %w", n.cfg.MaxAttempts, ErrNegotiationFailed)
}

func (n *Negotiator) try(ctx context.Context, attempt int) error {
	n.setState(StateOffering)
	connected, err := n.open(ctx, attempt)
	if err != nil {
		return err
	}

	offer, err := n.Conn().CreateAndSetOffer()
	if err != nil {
		n.abandon()
		return fmt.Errorf("create offer: %w", err)
	}
	// The answer may race the send, so wait for it before sending.
	n.setState(StateAwaitingAnswer)
	if err := n.emit(Signal{Kind: KindOffer, Attempt: attempt, SDP: offer}); err != nil {
		n.abandon()
		return err
	}

	timer := time.NewTimer(n.cfg.AttemptTimeout)
	defer timer.Stop()
	select {
	case <-connected:
		return nil
	case <-timer.C:
		n.abandon()
		return fmt.Errorf("attempt %d timed out after %s", attempt, n.cfg.AttemptTimeout)
	case <-ctx.Done():
		n.abandon()
		return ctx.Err()
	}
}

// open replaces the current connection with a fresh one for attempt.
func (n *Negotiator) open(ctx context.Context, attempt int) (<-chan struct{}, error) {
	conn, err := n.newConn()
	if err != nil {
		return nil, fmt.Errorf("open connection: %w", err)
	}
	connected := make(chan struct{})
	var once sync.Once
	conn.OnConnected(func() { once.Do(func() { close(connected) }) })
	if err := conn.Start(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("start connection: %w", err)
	}

	n.mu.Lock()
	n.attempt = attempt
	n.conn = conn
	n.answered = false
	n.pending = nil
	n.mu.Unlock()
	return connected, nil
}

func (n *Negotiator) abandon() {
	n.mu.Lock()
	conn := n.conn
	n.conn = nil
	n.pending = nil
	n.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (n *Negotiator) emit(s Signal) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return n.send(b)
}

// HandleSignal applies a payload received from the remote peer.
func (n *Negotiator) HandleSignal(ctx context.Context, payload []byte) error {
	var s Signal
	if err := json.Unmarshal(payload, &s); err != nil {
		return fmt.Errorf("decode signal: %w", err)
	}
	switch s.Kind {
	case KindOffer:
		return n.answer(ctx, s)
	case KindAnswer:
		return n.applyAnswer(s)
	case KindCandidate:
		return n.addCandidate(s)
	}
	return fmt.Errorf("unknown signal kind %q", s.Kind)
}

func (n *Negotiator) applyAnswer(s Signal) error {
	if s.SDP == nil {
		return errors.New("answer without sdp")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn == nil || s.Attempt != n.attempt || n.state != StateAwaitingAnswer {
		log.Debug().Str("module", "webrtc").Int("attempt", s.Attempt).Msg("stale answer ignored")
		return nil
	}
	if err := n.conn.ApplyAnswer(*s.SDP); err != nil {
		return fmt.Errorf("apply answer: %w", err)
	}
	n.flushLocked()
	return nil
}

// flushLocked marks the remote description as applied and replays
// candidates that arrived before it.
func (n *Negotiator) flushLocked() {
	n.answered = true
	for _, c := range n.pending {
		if err := n.conn.AddICECandidate(c); err != nil {
			log.Warn().Err(err).Str("module", "webrtc").Msg("buffered candidate rejected")
		}
	}
	n.pending = nil
}

func (n *Negotiator) addCandidate(s Signal) error {
	if s.Candidate == nil {
		return errors.New("candidate without body")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn == nil {
		return nil
	}
	if !n.answered {
		n.pending = append(n.pending, *s.Candidate)
		return nil
	}
	return n.conn.AddICECandidate(*s.Candidate)
}

// answer handles a remote offer. Each new offer replaces the previous
// connection, matching the offerer's retry.
func (n *Negotiator) answer(ctx context.Context, s Signal) error {
	if s.SDP == nil {
		return errors.New("offer without sdp")
	}
	n.abandon()
	connected, err := n.open(ctx, s.Attempt)
	if err != nil {
		n.setState(StateFailed)
		return err
	}
	go func() {
		select {
		case <-connected:
			n.setState(StateConnected)
		case <-time.After(n.cfg.AttemptTimeout):
		case <-ctx.Done():
		}
	}()

	local, err := n.Conn().ApplyOfferAndCreateAnswer(*s.SDP)
	if err != nil {
		n.abandon()
		n.setState(StateFailed)
		return fmt.Errorf("answer offer: %w", err)
	}
	n.mu.Lock()
	if n.conn != nil {
		n.flushLocked()
	}
	n.mu.Unlock()
	return n.emit(Signal{Kind: KindAnswer, Attempt: s.Attempt, SDP: local})
}
