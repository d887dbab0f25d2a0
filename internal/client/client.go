// Package client is the game client's synchronization adapter for the
// lobby: it mirrors server-pushed room, chat and emote state and issues
// user-intent commands over the same long-lived WebSocket the game session
// reuses after start.
package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/safequest/lobby/internal/catalog"
	"github.com/safequest/lobby/internal/core"
	"github.com/safequest/lobby/internal/domain"
	"github.com/safequest/lobby/internal/protocol"
)

// Conn is an indirection over *websocket.Conn to ease testing.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(mt int, data []byte) error
	Close() error
}

// Handler receives a decoded server event. The payload type matches the
// subscribed event (e.g. *protocol.RoomsUpdatedEvent for roomsUpdated).
type Handler func(evt any)

// ActiveEmote is a transient emote shown next to a member until its TTL.
type ActiveEmote struct {
	SenderID   domain.PlayerID
	SenderName string
	EmoteID    string
	ShownAt    time.Time
}

// GameTransition is the resolved start-game instruction: the stage id has
// already been translated (symbolic or numeric) and the room id is carried
// forward so the session continues on this connection.
type GameTransition struct {
	RoomID domain.RoomID
	Stage  catalog.Stage
}

type Adapter struct {
	conn     Conn
	log      zerolog.Logger
	emoteTTL time.Duration

	writeMu sync.Mutex

	mu          sync.RWMutex
	handlers    map[string]map[int]Handler
	nextHandler int
	stages      []catalog.Stage

	roomList   []core.RoomSnapshot
	current    *core.RoomSnapshot
	chat       []core.ChatEntry
	chatLimit  int
	emotes     map[domain.PlayerID]ActiveEmote
	timers     map[domain.PlayerID]*time.Timer
	transition *GameTransition

	done chan struct{}
}

// New wraps an established connection. Call Run to start mirroring.
func New(conn Conn) *Adapter {
	return &Adapter{
		conn:      conn,
		log:       log.With().Str("module", "client").Logger(),
		emoteTTL:  3 * time.Second,
		handlers:  make(map[string]map[int]Handler),
		chatLimit: 50,
		emotes:    make(map[domain.PlayerID]ActiveEmote),
		timers:    make(map[domain.PlayerID]*time.Timer),
		done:      make(chan struct{}),
	}
}

// Dial connects to the lobby endpoint and starts the read loop.
func Dial(ctx context.Context, url string) (*Adapter, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	a := New(ws)
	go a.Run()
	return a, nil
}

func (a *Adapter) Close() error {
	select {
	case <-a.done:
	default:
		close(a.done)
	}
	return a.conn.Close()
}

// On subscribes a handler for one event type and returns its unsubscribe
// func. Callers must unsubscribe on view teardown: a leaked handler applies
// state twice on the next mount, which shows up as UI glitches.
func (a *Adapter) On(eventType string, h Handler) (off func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextHandler++
	id := a.nextHandler
	if a.handlers[eventType] == nil {
		a.handlers[eventType] = make(map[int]Handler)
	}
	a.handlers[eventType][id] = h
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.handlers[eventType], id)
	}
}

// Run reads pushes until the connection drops, applying each one to the
// local mirror before handlers see it.
func (a *Adapter) Run() {
	defer a.Close()
	for {
		select {
		case <-a.done:
			return
		default:
			_, data, err := a.conn.ReadMessage()
			if err != nil {
				a.log.Info().Err(err).Msg("read loop done")
				return
			}
			a.Apply(data)
		}
	}
}

// Apply decodes one server push, reconciles the mirror and dispatches to
// subscribers. Exported so tests and alternative pumps can feed frames.
func (a *Adapter) Apply(data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		a.log.Error().Err(err).Msg("bad push")
		return
	}

	switch env.Type {
	case protocol.EventRoomsUpdated:
		var evt protocol.RoomsUpdatedEvent
		if json.Unmarshal(data, &evt) == nil {
			a.applyRoomList(evt.Rooms)
			a.dispatch(env.Type, &evt)
		}
	case protocol.EventRoomJoined:
		var evt protocol.RoomJoinedEvent
		if json.Unmarshal(data, &evt) == nil {
			a.applyRoomJoined(evt.Room, evt.Chat)
			a.dispatch(env.Type, &evt)
		}
	case protocol.EventRoomUpdated:
		var evt protocol.RoomUpdatedEvent
		if json.Unmarshal(data, &evt) == nil {
			a.applyRoomDetail(evt.Room)
			a.dispatch(env.Type, &evt)
		}
	case protocol.EventRoomLeft:
		var evt protocol.RoomLeftEvent
		if json.Unmarshal(data, &evt) == nil {
			a.clearRoomState(evt.RoomID)
			a.dispatch(env.Type, &evt)
		}
	case protocol.EventRoomClosed:
		var evt protocol.RoomClosedEvent
		if json.Unmarshal(data, &evt) == nil {
			a.clearRoomState(evt.RoomID)
			a.dispatch(env.Type, &evt)
		}
	case protocol.EventStartGame:
		var evt protocol.StartGameEvent
		if json.Unmarshal(data, &evt) == nil {
			a.applyStart(evt)
			a.dispatch(env.Type, &evt)
		}
	case protocol.EventChatMessage:
		var evt protocol.ChatMessageEvent
		if json.Unmarshal(data, &evt) == nil {
			a.applyChat(evt.ChatEntry)
			a.dispatch(env.Type, &evt)
		}
	case protocol.EventEmote:
		var evt protocol.EmoteEvent
		if json.Unmarshal(data, &evt) == nil {
			a.applyEmote(evt)
			a.dispatch(env.Type, &evt)
		}
	case protocol.EventError:
		var evt protocol.ErrorEvent
		if json.Unmarshal(data, &evt) == nil {
			a.dispatch(env.Type, &evt)
		}
	case protocol.EventPong:
	default:
		a.log.Warn().Str("type", env.Type).Msg("unknown push")
	}
}

func (a *Adapter) dispatch(eventType string, evt any) {
	a.mu.RLock()
	hs := make([]Handler, 0, len(a.handlers[eventType]))
	for _, h := range a.handlers[eventType] {
		hs = append(hs, h)
	}
	a.mu.RUnlock()
	for _, h := range hs {
		h(evt)
	}
}
