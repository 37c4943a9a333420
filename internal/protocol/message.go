// Package protocol defines the JSON messages exchanged over the signaling
// socket. Every frame is an Envelope whose Data depends on Type.
package protocol

import json "github.com/goccy/go-json"

const (
	TypeCreateRoom  = "create-room"
	TypeJoinRoom    = "join-room"
	TypeLeaveRoom   = "leave-room"
	TypeSignal      = "signal"
	TypeAudioStream = "audio-stream"
	TypeAudioData   = "audio-data"
	TypeTranslation = "translation-result"
	TypeLanguage    = "language"
	TypePing        = "ping"
	TypeWhoAmI      = "whoami"

	TypeRoomCreated     = "room-created"
	TypeRoomJoined      = "room-joined"
	TypeRoomLeft        = "room-left"
	TypeUserJoined      = "user-joined"
	TypeUserLeft        = "user-left"
	TypeRoomClosed      = "room-closed"
	TypeLanguageChanged = "language-changed"
	TypeError           = "error"
	TypePong            = "pong"
)

type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client to server.

type RoomRequest struct {
	RoomID string `json:"roomId"`
}

// SignalRequest carries an opaque handshake blob (offer, answer or ICE
// candidate). An empty To addresses every other member of the room.
type SignalRequest struct {
	RoomID  string          `json:"roomId"`
	To      string          `json:"to,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

type AudioRequest struct {
	RoomID   string          `json:"roomId"`
	Audio    json.RawMessage `json:"audio"`
	Language string          `json:"language"`
}

type TranslationRequest struct {
	RoomID         string `json:"roomId"`
	OriginalText   string `json:"originalText"`
	TranslatedText string `json:"translatedText"`
	TargetLanguage string `json:"targetLanguage"`
}

type LanguageRequest struct {
	RoomID   string `json:"roomId"`
	Language string `json:"language"`
}

// Server to client.

type RoomCreated struct {
	RoomID string `json:"roomId"`
}

type RoomJoined struct {
	RoomID  string   `json:"roomId"`
	Owner   string   `json:"owner"`
	Members []string `json:"members"`
}

type RoomLeft struct {
	RoomID string `json:"roomId"`
}

type RoomClosed struct {
	RoomID string `json:"roomId"`
}

type UserEvent struct {
	UserID string `json:"userId"`
}

type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SignalEvent struct {
	RoomID  string          `json:"roomId"`
	UserID  string          `json:"userId"`
	Payload json.RawMessage `json:"payload"`
}

type AudioEvent struct {
	RoomID   string          `json:"roomId"`
	UserID   string          `json:"userId"`
	Audio    json.RawMessage `json:"audio"`
	Language string          `json:"language"`
}

type TranslationEvent struct {
	RoomID         string `json:"roomId"`
	UserID         string `json:"userId"`
	OriginalText   string `json:"originalText"`
	TranslatedText string `json:"translatedText"`
	TargetLanguage string `json:"targetLanguage"`
}

type LanguageEvent struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Language string `json:"language"`
}

type WhoAmI struct {
	UserID string `json:"userId"`
	RoomID string `json:"roomId,omitempty"`
}
