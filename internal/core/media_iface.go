package core

import (
	"context"

	"github.com/pion/webrtc/v4"
)

// MediaConnection is one peer connection as seen by the handshake
// negotiator. Descriptions are complete (non-trickle): they are returned
// once local ICE gathering has finished.
type MediaConnection interface {
	// Start configures internal callbacks and binds the connection lifetime to ctx.
	Start(ctx context.Context) error
	Close()
	CreateAndSetOffer() (*webrtc.SessionDescription, error)
	ApplyAnswer(webrtc.SessionDescription) error
	ApplyOfferAndCreateAnswer(webrtc.SessionDescription) (*webrtc.SessionDescription, error)
	// AddICECandidate applies a remote ICE candidate.
	AddICECandidate(webrtc.ICECandidateInit) error
	// OnConnected fires once the peer connection reaches the connected state.
	OnConnected(func())
	// OnClosed fires when the connection fails or is closed.
	OnClosed(func())
}
