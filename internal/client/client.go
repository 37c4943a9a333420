// Package client is a Go client for the signaling server. All handlers run
// on a single goroutine in the order events arrive.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/dkeye/Parley/internal/protocol"
)

var (
	ErrClosed    = errors.New("client closed")
	ErrNotInRoom = errors.New("not in a room")
)

type Handlers struct {
	OnRoomCreated func(roomID string)
	OnRoomJoined  func(protocol.RoomJoined)
	OnRoomLeft    func(roomID string)
	OnAudio       func(protocol.AudioEvent)
	OnTranslation func(protocol.TranslationEvent)
	OnSignal      func(protocol.SignalEvent)
	OnLanguage    func(protocol.LanguageEvent)
	OnUserJoined  func(userID string)
	OnUserLeft    func(userID string)
	OnRoomClosed  func(roomID string)
	OnError       func(protocol.ErrorEvent)
}

type Options struct {
	Handlers Handlers
	Header   http.Header
	// Dialer defaults to websocket.DefaultDialer.
	Dialer     *websocket.Dialer
	SendBuffer int
	WriteWait  time.Duration
}

type Client struct {
	conn      *websocket.Conn
	h         Handlers
	writeWait time.Duration

	outgoing  chan []byte
	done      chan struct{}
	closed    chan struct{}
	closeOnce sync.Once

	mu   sync.Mutex
	room string
	id   string
}

// Dial connects to the signaling endpoint at url (ws:// or wss://).
func Dial(ctx context.Context, url string, opts Options) (*Client, error) {
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = 10 * time.Second
	}

	conn, _, err := dialer.DialContext(ctx, url, opts.Header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	c := &Client{
		conn:      conn,
		h:         opts.Handlers,
		writeWait: opts.WriteWait,
		outgoing:  make(chan []byte, opts.SendBuffer),
		done:      make(chan struct{}),
		closed:    make(chan struct{}),
	}
	go c.readPump()
	go c.writePump()
	return c, nil
}

// Room returns the room the client is in, or "".
func (c *Client) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// ID returns the connection id once a whoami reply has arrived.
func (c *Client) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Done is closed when the connection has ended and no more handlers will run.
func (c *Client) Done() <-chan struct{} {
	return c.closed
}

func (c *Client) CreateRoom(roomID string) error {
	return c.enqueue(protocol.TypeCreateRoom, protocol.RoomRequest{RoomID: roomID})
}

func (c *Client) JoinRoom(roomID string) error {
	return c.enqueue(protocol.TypeJoinRoom, protocol.RoomRequest{RoomID: roomID})
}

func (c *Client) LeaveRoom() error {
	room, err := c.currentRoom()
	if err != nil {
		return err
	}
	return c.enqueue(protocol.TypeLeaveRoom, protocol.RoomRequest{RoomID: room})
}

// SendAudio relays an audio chunk to the room; it is carried base64-encoded.
func (c *Client) SendAudio(audio []byte, language string) error {
	room, err := c.currentRoom()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(audio)
	if err != nil {
		return err
	}
	return c.enqueue(protocol.TypeAudioStream, protocol.AudioRequest{RoomID: room, Audio: raw, Language: language})
}

func (c *Client) SendTranslation(original, translated, targetLanguage string) error {
	room, err := c.currentRoom()
	if err != nil {
		return err
	}
	return c.enqueue(protocol.TypeTranslation, protocol.TranslationRequest{
		RoomID:         room,
		OriginalText:   original,
		TranslatedText: translated,
		TargetLanguage: targetLanguage,
	})
}

// SendSignal relays a handshake payload, which must be valid JSON. An empty
// to addresses every other member.
func (c *Client) SendSignal(to string, payload []byte) error {
	room, err := c.currentRoom()
	if err != nil {
		return err
	}
	if !json.Valid(payload) {
		return fmt.Errorf("signal payload is not JSON")
	}
	return c.enqueue(protocol.TypeSignal, protocol.SignalRequest{RoomID: room, To: to, Payload: payload})
}

// SignalTo returns a sender bound to one peer, suitable for a handshake negotiator.
func (c *Client) SignalTo(to string) func([]byte) error {
	return func(payload []byte) error { return c.SendSignal(to, payload) }
}

func (c *Client) SetLanguage(language string) error {
	room, err := c.currentRoom()
	if err != nil {
		return err
	}
	return c.enqueue(protocol.TypeLanguage, protocol.LanguageRequest{RoomID: room, Language: language})
}

func (c *Client) WhoAmI() error {
	return c.enqueue(protocol.TypeWhoAmI, nil)
}

// Close ends the connection. It is safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *Client) currentRoom() (string, error) {
	if room := c.Room(); room != "" {
		return room, nil
	}
	return "", ErrNotInRoom
}

func (c *Client) enqueue(typ string, v any) error {
	b, err := protocol.Encode(typ, v)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.outgoing <- b:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// DecodeAudio returns the raw bytes of an audio event.
func DecodeAudio(ev protocol.AudioEvent) ([]byte, error) {
	var audio []byte
	if err := json.Unmarshal(ev.Audio, &audio); err != nil {
		return nil, fmt.Errorf("decode audio: %w", err)
	}
	return audio, nil
}
