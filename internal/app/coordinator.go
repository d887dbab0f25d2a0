package app

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/safequest/lobby/internal/core"
	"github.com/safequest/lobby/internal/domain"
)

var ErrNoSession = errors.New("no live session")

// CreateParams carries a createRoom intent. HostName and Cosmetics update
// the live profile before the join-time snapshot is taken.
type CreateParams struct {
	Title      string
	StageID    string
	MaxPlayers int
	HostName   string
	Cosmetics  domain.Cosmetics
}

// JoinProfile carries the display fields a joiner presents to the room.
type JoinProfile struct {
	Name      string
	Cosmetics domain.Cosmetics
}

// Coordinator composes the registry and the room directory into the room
// lifecycle operations. It enforces the cross-room rule the store alone
// cannot see: one player is in at most one room at a time. All mutation
// errors are all-or-nothing; a failed intent leaves shared state unchanged.
type Coordinator struct {
	Registry *Registry
	Rooms    *Directory
	Policy   Policy
}

// CreateRoom makes a room with the creator auto-joined as its sole host.
func (c *Coordinator) CreateRoom(sid core.SessionID, p CreateParams) (core.RoomService, core.RoomSnapshot, error) {
	if _, ok := c.Registry.RoomOf(sid); ok {
		return nil, core.RoomSnapshot{}, domain.ErrAlreadyInRoom
	}
	sess, ok := c.Registry.GetSession(sid)
	if !ok {
		return nil, core.RoomSnapshot{}, ErrNoSession
	}

	c.Registry.UpdateProfile(sid, p.HostName, p.Cosmetics)

	room := c.Rooms.Create(p.Title, p.StageID, p.MaxPlayers)
	snap, err := room.AddMember(sid, sess)
	if err != nil {
		c.Rooms.Remove(room.ID())
		return nil, core.RoomSnapshot{}, err
	}
	c.Registry.SetRoom(sid, room.ID())
	c.Registry.WatchLobby(sid, false)
	log.Info().Str("module", "app.coordinator").Str("sid", string(sid)).
		Str("room", string(room.ID())).Str("stage", p.StageID).Msg("room created")
	return room, snap, nil
}

func (c *Coordinator) JoinRoom(sid core.SessionID, roomID domain.RoomID, p JoinProfile) (core.RoomService, core.RoomSnapshot, error) {
	if _, ok := c.Registry.RoomOf(sid); ok {
		return nil, core.RoomSnapshot{}, domain.ErrAlreadyInRoom
	}
	sess, ok := c.Registry.GetSession(sid)
	if !ok {
		return nil, core.RoomSnapshot{}, ErrNoSession
	}
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		return nil, core.RoomSnapshot{}, domain.ErrRoomNotFound
	}

	c.Registry.UpdateProfile(sid, p.Name, p.Cosmetics)

	// Capacity and phase checks run under the room's own lock, so two
	// racing joins for the last slot resolve to exactly one success.
	snap, err := room.AddMember(sid, sess)
	if err != nil {
		return nil, core.RoomSnapshot{}, err
	}
	c.Registry.SetRoom(sid, roomID)
	c.Registry.WatchLobby(sid, false)
	log.Info().Str("module", "app.coordinator").Str("sid", string(sid)).
		Str("room", string(roomID)).Msg("joined room")
	return room, snap, nil
}

// LeaveRoom removes the member and applies the dissolution rules: the host
// leaving tears the room down and evicts everyone, the last member leaving
// deletes the empty room. Returns false if the session was in no room.
func (c *Coordinator) LeaveRoom(sid core.SessionID, reason string) (core.RoomService, core.LeaveResult, bool) {
	roomID, ok := c.Registry.RoomOf(sid)
	if !ok {
		return nil, core.LeaveResult{}, false
	}
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		c.Registry.ClearRoom(sid)
		return nil, core.LeaveResult{}, false
	}

	res := room.RemoveMember(sid)
	c.Registry.ClearRoom(sid)
	for _, evicted := range res.Evicted {
		c.Registry.ClearRoom(evicted)
	}
	if res.WasHost || res.Empty {
		c.Rooms.Remove(roomID)
	}
	log.Info().Str("module", "app.coordinator").Str("sid", string(sid)).
		Str("room", string(roomID)).Str("reason", reason).
		Bool("dissolved", res.WasHost || res.Empty).Msg("left room")
	return room, res, res.Removed
}

func (c *Coordinator) ToggleReady(sid core.SessionID) (core.RoomService, core.RoomSnapshot, error) {
	room, ok := c.CurrentRoom(sid)
	if !ok {
		return nil, core.RoomSnapshot{}, domain.ErrNotInRoom
	}
	snap, err := room.ToggleReady(sid)
	if err != nil {
		return nil, core.RoomSnapshot{}, err
	}
	return room, snap, nil
}

func (c *Coordinator) StartGame(sid core.SessionID) (core.RoomService, string, error) {
	room, ok := c.CurrentRoom(sid)
	if !ok {
		return nil, "", domain.ErrNotInRoom
	}
	stageID, err := room.Start(sid)
	if err != nil {
		return nil, "", err
	}
	return room, stageID, nil
}

func (c *Coordinator) Chat(sid core.SessionID, text string) (core.RoomService, core.ChatEntry, error) {
	room, ok := c.CurrentRoom(sid)
	if !ok {
		return nil, core.ChatEntry{}, domain.ErrNotInRoom
	}
	entry, err := room.AppendChat(sid, text)
	if err != nil {
		return nil, core.ChatEntry{}, err
	}
	return room, entry, nil
}

func (c *Coordinator) CurrentRoom(sid core.SessionID) (core.RoomService, bool) {
	roomID, ok := c.Registry.RoomOf(sid)
	if !ok {
		return nil, false
	}
	return c.Rooms.Get(roomID)
}

// OnDisconnect runs the full leave path before the session is unbound, so
// rooms never keep phantom members. Safe to call more than once.
func (c *Coordinator) OnDisconnect(sid core.SessionID) (core.RoomService, core.LeaveResult, bool) {
	room, res, left := c.LeaveRoom(sid, "disconnect")
	c.Registry.Unbind(sid)
	return room, res, left
}

// ReapSlow applies the backpressure policy to members a broadcast could
// not reach. Kicking cancels the session context; cleanup then flows
// through OnDisconnect like any other drop.
func (c *Coordinator) ReapSlow(room core.RoomService, res core.PublishResult) {
	if c.Policy == nil {
		return
	}
	for _, sid := range res.Dropped {
		switch c.Policy.OnBackpressure(room, sid) {
		case KickMember:
			log.Warn().Str("module", "app.coordinator").Str("sid", string(sid)).
				Str("room", string(room.ID())).Msg("kicking slow member")
			if !c.Registry.Cancel(sid) {
				// No live session to cancel; clean up membership directly.
				c.LeaveRoom(sid, "backpressure")
			}
		case DropEvent, NoAction:
		}
	}
}
