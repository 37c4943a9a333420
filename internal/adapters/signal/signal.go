package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Parley/internal/app/orch"
	"github.com/dkeye/Parley/internal/config"
	"github.com/dkeye/Parley/internal/core"
	"github.com/dkeye/Parley/internal/domain"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

type SignalWSController struct {
	Orch    *orch.Orchestrator
	Cfg     *config.Config
	Limiter *RoomRateLimiter

	upgrader websocket.Upgrader
}

func NewSignalWSController(o *orch.Orchestrator, cfg *config.Config) *SignalWSController {
	return &SignalWSController{
		Orch:    o,
		Cfg:     cfg,
		Limiter: NewRoomRateLimiter(cfg.RoomRateLimit, cfg.RoomRateInterval),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// wsSignalConn implements core.SignalConnection over one websocket.
type wsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// session is the state owned by one connection's read loop. No other
// goroutine touches it.
type session struct {
	id       domain.ConnectionID
	client   string
	conn     *wsSignalConn
	language domain.LanguageTag
}

// HandleSignal upgrades the request and runs the connection until it drops
// or ctx is canceled. clientKey identifies the browser for rate limiting.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, w http.ResponseWriter, r *http.Request, clientKey string) {
	ws, err := ctl.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &wsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.Cfg.SendBuffer),
	}
	sess := &session{
		id:     domain.NewConnectionID(),
		client: clientKey,
		conn:   conn,
	}
	log.Info().Str("module", "signal").Str("conn", string(sess.id)).Str("client", clientKey).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	// A kick must also unblock a writer stuck on a stalled peer.
	kick := func() {
		cancel()
		_ = ws.Close()
	}
	ctl.Orch.Connect(sess.id, conn, kick)

	go ctl.writePump(ctx, cancel, conn)
	go ctl.readPump(ctx, cancel, sess)
}
