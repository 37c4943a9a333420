package main

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Parley/internal/adapters/rtc"
	"github.com/dkeye/Parley/internal/client"
	"github.com/dkeye/Parley/internal/core"
	"github.com/dkeye/Parley/internal/domain"
)

// peer serializes the handshake with one remote member so its signals are
// applied in arrival order without blocking event dispatch. Everything it
// runs is bound to ctx, which drop cancels.
type peer struct {
	n      *rtc.Negotiator
	inbox  chan []byte
	ctx    context.Context
	cancel context.CancelFunc
}

type peerSet struct {
	mu       sync.Mutex
	signalTo func(id string) rtc.SendFunc
	newConn  func(id string) (core.MediaConnection, error)
	cfg      rtc.NegotiatorConfig
	m        map[string]*peer
}

func newPeerSet() *peerSet {
	return &peerSet{
		newConn: func(id string) (core.MediaConnection, error) {
			return rtc.NewWebRTCConnection(rtc.DefaultWebRTCConfig(), domain.ConnectionID(id))
		},
		cfg: rtc.DefaultNegotiatorConfig(),
		m:   make(map[string]*peer),
	}
}

func (s *peerSet) bind(c *client.Client) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.signalTo = func(id string) rtc.SendFunc { return c.SignalTo(id) }
	s.mu.Unlock()
}

// get returns the peer for id, or nil before a client is bound.
func (s *peerSet) get(ctx context.Context, id string) *peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.m[id]; ok {
		return p
	}
	if s.signalTo == nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	factory := func() (core.MediaConnection, error) { return s.newConn(id) }
	p := &peer{
		n:      rtc.NewNegotiator(factory, s.signalTo(id), s.cfg),
		inbox:  make(chan []byte, 32),
		ctx:    ctx,
		cancel: cancel,
	}
	s.m[id] = p
	go func() {
		for {
			select {
			case <-ctx.Done():
				if conn := p.n.Conn(); conn != nil {
					conn.Close()
				}
				return
			case payload := <-p.inbox:
				if err := p.n.HandleSignal(ctx, payload); err != nil {
					log.Warn().Err(err).Str("module", "cli").Str("peer", id).Msg("signal")
				}
			}
		}
	}()
	return p
}

// offer starts negotiating toward a member who just joined. It returns a
// channel closed when negotiation ends, or nil when nothing was started.
func (s *peerSet) offer(ctx context.Context, id string) <-chan struct{} {
	if s == nil {
		return nil
	}
	p := s.get(ctx, id)
	if p == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.n.Run(p.ctx); err != nil {
			log.Warn().Err(err).Str("module", "cli").Str("peer", id).Msg("negotiation")
			return
		}
		log.Info().Str("module", "cli").Str("peer", id).Msg("audio connected")
	}()
	return done
}

func (s *peerSet) feed(ctx context.Context, id string, payload []byte) {
	if s == nil {
		return
	}
	p := s.get(ctx, id)
	if p == nil {
		return
	}
	select {
	case p.inbox <- payload:
	default:
		log.Warn().Str("module", "cli").Str("peer", id).Msg("signal inbox full")
	}
}

func (s *peerSet) drop(id string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	p, ok := s.m[id]
	delete(s.m, id)
	s.mu.Unlock()
	if ok {
		p.cancel()
	}
}

func (s *peerSet) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.m {
		p.cancel()
		delete(s.m, id)
	}
}
