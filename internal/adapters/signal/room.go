package signal

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Parley/internal/domain"
	"github.com/dkeye/Parley/internal/protocol"
)

// admit applies the per-client rate limit to room creation and joins.
func (ctl *SignalWSController) admit(s *session) bool {
	if ctl.Limiter.Allow(s.client) {
		return true
	}
	log.Warn().Str("module", "signal").Str("client", s.client).Msg("room rate limit")
	ctl.sendFrame(s, protocol.ErrorFrame(domain.ErrRateLimited))
	return false
}

func (ctl *SignalWSController) createRoom(s *session, env protocol.Envelope) {
	req, err := protocol.DecodeData[protocol.RoomRequest](env)
	if err != nil {
		ctl.sendFrame(s, protocol.ErrorFrame(err))
		return
	}
	if !ctl.admit(s) {
		return
	}
	roomID, err := ctl.Orch.CreateRoom(s.id, req.RoomID)
	if err != nil {
		log.Info().Err(err).Str("module", "signal").Str("conn", string(s.id)).Msg("create room refused")
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(s.id)).Str("room", string(roomID)).Msg("room created")
}

func (ctl *SignalWSController) handleJoin(s *session, env protocol.Envelope) {
	req, err := protocol.DecodeData[protocol.RoomRequest](env)
	if err != nil {
		ctl.sendFrame(s, protocol.ErrorFrame(err))
		return
	}
	if !ctl.admit(s) {
		return
	}
	if err := ctl.Orch.JoinRoom(s.id, req.RoomID); err != nil {
		log.Info().Err(err).Str("module", "signal").Str("conn", string(s.id)).Str("room", req.RoomID).Msg("join refused")
	}
}

// handleLeave leaves the room but keeps the socket open.
func (ctl *SignalWSController) handleLeave(s *session, env protocol.Envelope) {
	req, err := protocol.DecodeData[protocol.RoomRequest](env)
	if err != nil {
		ctl.sendFrame(s, protocol.ErrorFrame(err))
		return
	}
	if err := ctl.Orch.LeaveRoom(s.id, req.RoomID); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("conn", string(s.id)).Msg("leave ignored")
	}
}
