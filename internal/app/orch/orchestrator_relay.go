package orch

import (
	"github.com/dkeye/Parley/internal/core"
	"github.com/dkeye/Parley/internal/domain"
	"github.com/dkeye/Parley/internal/protocol"
	"github.com/rs/zerolog/log"
)

// RelaySignal forwards an opaque handshake blob, either to one named peer
// or to every other member.
func (o *Orchestrator) RelaySignal(id domain.ConnectionID, req protocol.SignalRequest) (core.PublishResult, error) {
	frame, err := protocol.Encode(protocol.TypeSignal, protocol.SignalEvent{
		RoomID:  req.RoomID,
		UserID:  string(id),
		Payload: req.Payload,
	})
	if err != nil {
		return core.PublishResult{}, err
	}
	room := domain.RoomID(req.RoomID)
	if req.To != "" {
		return o.dropped(o.Relay.DispatchTo(id, room, domain.ConnectionID(req.To), frame))
	}
	return o.dropped(o.Relay.Dispatch(id, room, frame))
}

// RelayAudio forwards an audio chunk under the same event name it arrived
// with (audio-stream or audio-data).
func (o *Orchestrator) RelayAudio(id domain.ConnectionID, typ string, req protocol.AudioRequest) (core.PublishResult, error) {
	frame, err := protocol.Encode(typ, protocol.AudioEvent{
		RoomID:   req.RoomID,
		UserID:   string(id),
		Audio:    req.Audio,
		Language: req.Language,
	})
	if err != nil {
		return core.PublishResult{}, err
	}
	return o.dropped(o.Relay.Dispatch(id, domain.RoomID(req.RoomID), frame))
}

func (o *Orchestrator) RelayTranslation(id domain.ConnectionID, req protocol.TranslationRequest) (core.PublishResult, error) {
	frame, err := protocol.Encode(protocol.TypeTranslation, protocol.TranslationEvent{
		RoomID:         req.RoomID,
		UserID:         string(id),
		OriginalText:   req.OriginalText,
		TranslatedText: req.TranslatedText,
		TargetLanguage: req.TargetLanguage,
	})
	if err != nil {
		return core.PublishResult{}, err
	}
	return o.dropped(o.Relay.Dispatch(id, domain.RoomID(req.RoomID), frame))
}

func (o *Orchestrator) RelayLanguage(id domain.ConnectionID, req protocol.LanguageRequest) (core.PublishResult, error) {
	frame, err := protocol.Encode(protocol.TypeLanguageChanged, protocol.LanguageEvent{
		RoomID:   req.RoomID,
		UserID:   string(id),
		Language: req.Language,
	})
	if err != nil {
		return core.PublishResult{}, err
	}
	return o.dropped(o.Relay.Dispatch(id, domain.RoomID(req.RoomID), frame))
}

// dropped logs relay-path rejections. They are never reported to the sender.
func (o *Orchestrator) dropped(res core.PublishResult, err error) (core.PublishResult, error) {
	if err != nil {
		log.Debug().Err(err).Str("module", "orch").Msg("relay dropped")
	}
	return res, err
}
