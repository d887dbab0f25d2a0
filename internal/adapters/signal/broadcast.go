package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/safequest/lobby/internal/core"
	"github.com/safequest/lobby/internal/protocol"
)

// Presence fan-out. Each mutation handler makes exactly one authoritative
// push per audience: the affected room gets a whole-state snapshot, lobby
// watchers get the refreshed room list.

func (ctl *Controller) sendJSON(c core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *Controller) sendError(c core.SignalConnection, code, msg string) {
	ctl.sendJSON(c, protocol.ErrorEvent{Type: protocol.EventError, Code: code, Message: msg})
}

// BroadcastLobby pushes the current room-list snapshot to every session
// browsing the list view.
func (ctl *Controller) BroadcastLobby() {
	payload := protocol.RoomsUpdatedEvent{
		Type:  protocol.EventRoomsUpdated,
		Rooms: ctl.Coord.Rooms.Snapshots(),
	}
	b, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("lobby marshal")
		return
	}
	for _, watcher := range ctl.Coord.Registry.LobbyWatchers() {
		_ = watcher.Signal().TrySend(b)
	}
}

// broadcastRoom fans a payload out to room members, excluding from when
// non-empty, and hands delivery failures to the backpressure policy.
func (ctl *Controller) broadcastRoom(room core.RoomService, from core.SessionID, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("room marshal")
		return
	}
	res := room.Broadcast(from, b)
	ctl.Coord.ReapSlow(room, res)
}

// notifyDeparture pushes the aftermath of a member removal: eviction
// notices when the host dissolved the room, a reduced-membership snapshot
// otherwise. Each former member hears about a teardown exactly once.
func (ctl *Controller) notifyDeparture(room core.RoomService, res core.LeaveResult, reason string) {
	if res.WasHost {
		closed := protocol.RoomClosedEvent{
			Type:   protocol.EventRoomClosed,
			RoomID: room.ID(),
			Reason: "host_left",
		}
		if reason == "disconnect" {
			closed.Reason = "host_disconnected"
		}
		for _, sid := range res.Evicted {
			if sess, ok := ctl.Coord.Registry.GetSession(sid); ok {
				ctl.sendJSON(sess.Signal(), closed)
			}
		}
		return
	}
	if !res.Empty {
		ctl.broadcastRoom(room, "", protocol.RoomUpdatedEvent{
			Type: protocol.EventRoomUpdated,
			Room: res.Snapshot,
		})
	}
}
