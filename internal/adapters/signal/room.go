package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/safequest/lobby/internal/app"
	"github.com/safequest/lobby/internal/core"
	"github.com/safequest/lobby/internal/domain"
	"github.com/safequest/lobby/internal/protocol"
)

// errCode maps domain sentinels to wire error codes. Errors reach only the
// requesting connection; shared state is untouched by a failed intent.
func errCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return protocol.CodeRoomNotFound
	case errors.Is(err, domain.ErrRoomFull):
		return protocol.CodeRoomFull
	case errors.Is(err, domain.ErrAlreadyInRoom):
		return protocol.CodeAlreadyIn
	case errors.Is(err, domain.ErrNotInRoom), errors.Is(err, app.ErrNoSession):
		return protocol.CodeNotInRoom
	case errors.Is(err, domain.ErrNotHost):
		return protocol.CodeNotHost
	case errors.Is(err, domain.ErrNotReady):
		return protocol.CodeNotReady
	case errors.Is(err, domain.ErrRoomStarted):
		return protocol.CodeRoomStarted
	default:
		return protocol.CodeBadPayload
	}
}

func (ctl *Controller) handleGetRooms(sid core.SessionID, c *WsSignalConn) {
	ctl.Coord.Registry.WatchLobby(sid, true)
	ctl.sendJSON(c, protocol.RoomsUpdatedEvent{
		Type:  protocol.EventRoomsUpdated,
		Rooms: ctl.Coord.Rooms.Snapshots(),
	})
}

func (ctl *Controller) handleCreateRoom(sid core.SessionID, c *WsSignalConn, data []byte) {
	var p protocol.CreateRoomIntent
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad createRoom payload")
		ctl.sendError(c, protocol.CodeBadPayload, "bad createRoom payload")
		return
	}
	if p.MaxPlayers < domain.MinRoomCapacity || p.MaxPlayers > domain.MaxRoomCapacity {
		log.Warn().Str("module", "signal").Int("max_players", p.MaxPlayers).
			Msg("capacity out of range, clamping")
	}

	// No publish lock: the room does not exist before this call and the
	// creator is its only member.
	_, snap, err := ctl.Coord.CreateRoom(sid, app.CreateParams{
		Title:      p.Title,
		StageID:    p.StageID,
		MaxPlayers: p.MaxPlayers,
		HostName:   p.HostName,
		Cosmetics: domain.Cosmetics{
			Skin:            p.Skin,
			TitleName:       p.TitleName,
			CustomCharacter: p.CustomCharacter,
		},
	})
	if err != nil {
		ctl.sendError(c, errCode(err), err.Error())
		return
	}

	ctl.sendJSON(c, protocol.RoomJoinedEvent{
		Type: protocol.EventRoomJoined,
		Room: snap,
	})
	ctl.BroadcastLobby()
}

func (ctl *Controller) handleJoinRoom(sid core.SessionID, c *WsSignalConn, data []byte) {
	var p protocol.JoinRoomIntent
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad joinRoom payload")
		ctl.sendError(c, protocol.CodeBadPayload, "bad joinRoom payload")
		return
	}

	mu := ctl.publishMu(p.RoomID)
	mu.Lock()
	room, snap, err := ctl.Coord.JoinRoom(sid, p.RoomID, app.JoinProfile{
		Name: p.Username,
		Cosmetics: domain.Cosmetics{
			Skin:            p.Skin,
			TitleName:       p.TitleName,
			CustomCharacter: p.CustomCharacter,
		},
	})
	if err != nil {
		mu.Unlock()
		if errors.Is(err, domain.ErrRoomNotFound) {
			ctl.releasePublishMu(p.RoomID)
		}
		ctl.sendError(c, errCode(err), err.Error())
		return
	}

	// The joiner gets the confirming snapshot plus recent chat; everyone
	// already inside gets the refreshed room state.
	ctl.sendJSON(c, protocol.RoomJoinedEvent{
		Type: protocol.EventRoomJoined,
		Room: snap,
		Chat: room.ChatHistory(),
	})
	ctl.broadcastRoom(room, sid, protocol.RoomUpdatedEvent{
		Type: protocol.EventRoomUpdated,
		Room: snap,
	})
	mu.Unlock()
	ctl.BroadcastLobby()
}

func (ctl *Controller) handleLeaveRoom(sid core.SessionID, c *WsSignalConn) {
	roomID, inRoom := ctl.Coord.Registry.RoomOf(sid)
	if !inRoom {
		ctl.sendError(c, protocol.CodeNotInRoom, "not in a room")
		return
	}

	mu := ctl.publishMu(roomID)
	mu.Lock()
	room, res, left := ctl.Coord.LeaveRoom(sid, "leave")
	if !left {
		mu.Unlock()
		ctl.sendError(c, protocol.CodeNotInRoom, "not in a room")
		return
	}
	ctl.sendJSON(c, protocol.RoomLeftEvent{Type: protocol.EventRoomLeft, RoomID: room.ID()})
	ctl.notifyDeparture(room, res, "leave")
	mu.Unlock()
	if res.WasHost || res.Empty {
		ctl.releasePublishMu(roomID)
	}
	ctl.BroadcastLobby()
}

func (ctl *Controller) handlePlayerReady(sid core.SessionID, c *WsSignalConn) {
	roomID, inRoom := ctl.Coord.Registry.RoomOf(sid)
	if !inRoom {
		ctl.sendError(c, protocol.CodeNotInRoom, "not in a room")
		return
	}

	mu := ctl.publishMu(roomID)
	mu.Lock()
	room, snap, err := ctl.Coord.ToggleReady(sid)
	if err != nil {
		mu.Unlock()
		ctl.sendError(c, errCode(err), err.Error())
		return
	}
	ctl.broadcastRoom(room, "", protocol.RoomUpdatedEvent{
		Type: protocol.EventRoomUpdated,
		Room: snap,
	})
	mu.Unlock()
	ctl.BroadcastLobby()
}

func (ctl *Controller) handleStartGame(sid core.SessionID, c *WsSignalConn) {
	roomID, inRoom := ctl.Coord.Registry.RoomOf(sid)
	if !inRoom {
		ctl.sendError(c, protocol.CodeNotInRoom, "not in a room")
		return
	}

	mu := ctl.publishMu(roomID)
	mu.Lock()
	room, stageID, err := ctl.Coord.StartGame(sid)
	if err != nil {
		mu.Unlock()
		ctl.sendError(c, errCode(err), err.Error())
		return
	}
	ctl.broadcastRoom(room, "", protocol.StartGameEvent{
		Type:    protocol.EventStartGame,
		RoomID:  room.ID(),
		StageID: stageID,
	})
	mu.Unlock()
	ctl.BroadcastLobby()
}
