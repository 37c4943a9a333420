package client

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Parley/internal/protocol"
)

func (c *Client) writePump() {
	defer c.conn.Close()
	for {
		select {
		case b := <-c.outgoing:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				log.Warn().Err(err).Str("module", "client").Msg("write error")
				c.Close()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.writeWait))
			return
		case <-c.closed:
			return
		}
	}
}

// readPump is the single dispatch goroutine.
func (c *Client) readPump() {
	defer func() {
		c.Close()
		close(c.closed)
	}()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("module", "client").Msg("read error")
			}
			return
		}
		env, err := protocol.Decode(data, 0)
		if err != nil {
			log.Warn().Err(err).Str("module", "client").Msg("bad frame")
			continue
		}
		c.dispatch(env)
	}
}

func decodeAs[T any](env protocol.Envelope, fn func(T)) {
	if fn == nil {
		return
	}
	v, err := protocol.DecodeData[T](env)
	if err != nil {
		log.Warn().Err(err).Str("module", "client").Msg("bad event")
		return
	}
	fn(v)
}

func (c *Client) setRoom(room string) {
	c.mu.Lock()
	c.room = room
	c.mu.Unlock()
}

func (c *Client) clearRoom(room string) {
	c.mu.Lock()
	if c.room == room {
		c.room = ""
	}
	c.mu.Unlock()
}

func (c *Client) dispatch(env protocol.Envelope) {
	h := c.h
	switch env.Type {
	case protocol.TypeRoomCreated:
		decodeAs(env, func(ev protocol.RoomCreated) {
			c.setRoom(ev.RoomID)
			if h.OnRoomCreated != nil {
				h.OnRoomCreated(ev.RoomID)
			}
		})
	case protocol.TypeRoomJoined:
		decodeAs(env, func(ev protocol.RoomJoined) {
			c.setRoom(ev.RoomID)
			if h.OnRoomJoined != nil {
				h.OnRoomJoined(ev)
			}
		})
	case protocol.TypeRoomLeft:
		decodeAs(env, func(ev protocol.RoomLeft) {
			c.clearRoom(ev.RoomID)
			if h.OnRoomLeft != nil {
				h.OnRoomLeft(ev.RoomID)
			}
		})
	case protocol.TypeRoomClosed:
		decodeAs(env, func(ev protocol.RoomClosed) {
			c.clearRoom(ev.RoomID)
			if h.OnRoomClosed != nil {
				h.OnRoomClosed(ev.RoomID)
			}
		})
	case protocol.TypeUserJoined:
		if h.OnUserJoined != nil {
			decodeAs(env, func(ev protocol.UserEvent) { h.OnUserJoined(ev.UserID) })
		}
	case protocol.TypeUserLeft:
		if h.OnUserLeft != nil {
			decodeAs(env, func(ev protocol.UserEvent) { h.OnUserLeft(ev.UserID) })
		}
	case protocol.TypeAudioStream, protocol.TypeAudioData:
		decodeAs(env, h.OnAudio)
	case protocol.TypeTranslation:
		decodeAs(env, h.OnTranslation)
	case protocol.TypeSignal:
		decodeAs(env, h.OnSignal)
	case protocol.TypeLanguageChanged:
		decodeAs(env, h.OnLanguage)
	case protocol.TypeError:
		decodeAs(env, h.OnError)
	case protocol.TypeWhoAmI:
		decodeAs(env, func(ev protocol.WhoAmI) {
			c.mu.Lock()
			c.id = ev.UserID
			c.mu.Unlock()
		})
	case protocol.TypePong:
	default:
		log.Debug().Str("module", "client").Str("type", env.Type).Msg("unknown event")
	}
}
