package signal

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Parley/internal/domain"
	"github.com/dkeye/Parley/internal/protocol"
)

func (ctl *SignalWSController) writePump(ctx context.Context, cancel context.CancelFunc, c *wsSignalConn) {
	ticker := time.NewTicker(ctl.Cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		c.Close()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(ctl.Cfg.WriteWait))
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Cfg.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.Cfg.WriteWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping error")
				return
			}
		}
	}
}

// readPump owns the session. Whatever ends it, the connection goes through
// the disconnect path exactly once.
func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, s *session) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(s.id)).Msg("readPump closing")
		ctl.Orch.Disconnect(s.id)
		cancel()
		s.conn.Close()
		_ = s.conn.conn.Close()
	}()

	ws := s.conn.conn
	ws.SetReadLimit(ctl.Cfg.ReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(ctl.Cfg.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(ctl.Cfg.PongWait))
	})

	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(errors.Join(domain.ErrTransport, err)).Str("module", "signal").Str("conn", string(s.id)).Msg("readPump read error")
			}
			return
		}
		ctl.handleSignal(s, data)
	}
}

func (ctl *SignalWSController) handleSignal(s *session, data []byte) {
	env, err := protocol.Decode(data, ctl.Cfg.MaxPayload)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(s.id)).Msg("frame rejected")
		ctl.sendFrame(s, protocol.ErrorFrame(err))
		return
	}

	switch env.Type {
	case protocol.TypeCreateRoom:
		ctl.createRoom(s, env)
	case protocol.TypeJoinRoom:
		ctl.handleJoin(s, env)
	case protocol.TypeLeaveRoom:
		ctl.handleLeave(s, env)
	case protocol.TypeSignal:
		ctl.handleHandshake(s, env)
	case protocol.TypeAudioStream, protocol.TypeAudioData:
		ctl.handleAudio(s, env)
	case protocol.TypeTranslation:
		ctl.handleTranslation(s, env)
	case protocol.TypeLanguage:
		ctl.handleLanguage(s, env)
	case protocol.TypePing:
		ctl.handlePing(s)
	case protocol.TypeWhoAmI:
		ctl.Orch.WhoAmI(s.id)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *SignalWSController) sendFrame(s *session, frame []byte) {
	if err := s.conn.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(s.id)).Msg("sendFrame")
	}
}

func (ctl *SignalWSController) sendJSON(s *session, typ string, v any) {
	b, err := protocol.Encode(typ, v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	ctl.sendFrame(s, b)
}
