package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/safequest/lobby/internal/app"
	"github.com/safequest/lobby/internal/core"
	"github.com/safequest/lobby/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// Controller handles one lobby WebSocket per client: all room intents come
// in and all presence pushes go out over this connection. The same socket
// is kept for the in-game session after startGame.
type Controller struct {
	Coord     *app.Coordinator
	ChatLimit *RoomRateLimiter
	ReadLimit int64

	pubMu    sync.Mutex
	pubLocks map[domain.RoomID]*sync.Mutex
}

func NewController(coord *app.Coordinator, chatLimit *RoomRateLimiter, readLimit int64) *Controller {
	return &Controller{
		Coord:     coord,
		ChatLimit: chatLimit,
		ReadLimit: readLimit,
		pubLocks:  make(map[domain.RoomID]*sync.Mutex),
	}
}

// publishMu returns the room's publish lock. Every room mutation and the
// enqueue of its resulting push run under this lock, so members observe
// pushes in mutation order.
func (ctl *Controller) publishMu(id domain.RoomID) *sync.Mutex {
	ctl.pubMu.Lock()
	defer ctl.pubMu.Unlock()
	mu, ok := ctl.pubLocks[id]
	if !ok {
		mu = &sync.Mutex{}
		ctl.pubLocks[id] = mu
	}
	return mu
}

func (ctl *Controller) releasePublishMu(id domain.RoomID) {
	ctl.pubMu.Lock()
	defer ctl.pubMu.Unlock()
	delete(ctl.pubLocks, id)
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *Controller) HandleLobby(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(c.GetString("client_token"))
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	player := ctl.Coord.Registry.GetOrCreatePlayer(sid)
	sess := core.NewMemberSession(player, conn)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Coord.Registry.Bind(sid, sess, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, conn)
}
