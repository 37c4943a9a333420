package signal

import (
	"github.com/dkeye/Parley/internal/domain"
	"github.com/dkeye/Parley/internal/protocol"
)

// Relay messages are never acknowledged. Undecodable ones are reported to
// the sender, everything the orchestrator drops is only logged there.

func (ctl *SignalWSController) handleHandshake(s *session, env protocol.Envelope) {
	req, err := protocol.DecodeData[protocol.SignalRequest](env)
	if err != nil {
		ctl.sendFrame(s, protocol.ErrorFrame(err))
		return
	}
	_, _ = ctl.Orch.RelaySignal(s.id, req)
}

func (ctl *SignalWSController) handleAudio(s *session, env protocol.Envelope) {
	req, err := protocol.DecodeData[protocol.AudioRequest](env)
	if err != nil {
		ctl.sendFrame(s, protocol.ErrorFrame(err))
		return
	}
	if tag := domain.NormalizeLanguage(req.Language); tag != "" {
		s.language = tag
	} else {
		req.Language = string(s.language)
	}
	_, _ = ctl.Orch.RelayAudio(s.id, env.Type, req)
}

func (ctl *SignalWSController) handleTranslation(s *session, env protocol.Envelope) {
	req, err := protocol.DecodeData[protocol.TranslationRequest](env)
	if err != nil {
		ctl.sendFrame(s, protocol.ErrorFrame(err))
		return
	}
	_, _ = ctl.Orch.RelayTranslation(s.id, req)
}

func (ctl *SignalWSController) handleLanguage(s *session, env protocol.Envelope) {
	req, err := protocol.DecodeData[protocol.LanguageRequest](env)
	if err != nil {
		ctl.sendFrame(s, protocol.ErrorFrame(err))
		return
	}
	s.language = domain.NormalizeLanguage(req.Language)
	req.Language = string(s.language)
	_, _ = ctl.Orch.RelayLanguage(s.id, req)
}
