package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Parley/internal/adapters/rtc"
	"github.com/dkeye/Parley/internal/core"
)

type silentConn struct{}

func (silentConn) Start(context.Context) error { return nil }
func (silentConn) Close()                      {}
func (silentConn) CreateAndSetOffer() (*webrtc.SessionDescription, error) {
	return &webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "o"}, nil
}
func (silentConn) ApplyAnswer(webrtc.SessionDescription) error { return nil }
func (silentConn) ApplyOfferAndCreateAnswer(webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	return &webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "a"}, nil
}
func (silentConn) AddICECandidate(webrtc.ICECandidateInit) error { return nil }
func (silentConn) OnConnected(func())                            {}
func (silentConn) OnClosed(func())                               {}

func TestDropStopsOfferRetries(t *testing.T) {
	var mu sync.Mutex
	opened := 0
	s := newPeerSet()
	s.cfg = rtc.NegotiatorConfig{MaxAttempts: 1000, AttemptTimeout: 10 * time.Millisecond}
	s.newConn = func(string) (core.MediaConnection, error) {
		mu.Lock()
		opened++
		mu.Unlock()
		return silentConn{}, nil
	}
	s.signalTo = func(string) rtc.SendFunc { return func([]byte) error { return nil } }

	done := s.offer(context.Background(), "peer-1")
	require.NotNil(t, done)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return opened >= 2
	}, time.Second, 5*time.Millisecond)

	s.drop("peer-1")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("negotiation kept retrying after the peer left")
	}

	mu.Lock()
	after := opened
	mu.Unlock()
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, after, opened)
	mu.Unlock()
}

func TestOfferBeforeBindIsIgnored(t *testing.T) {
	s := newPeerSet()
	assert.Nil(t, s.offer(context.Background(), "peer-1"))
}
