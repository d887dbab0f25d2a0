package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/safequest/lobby/internal/core"
	"github.com/safequest/lobby/internal/protocol"
)

func (ctl *Controller) handleChat(sid core.SessionID, c *WsSignalConn, data []byte) {
	var p protocol.ChatIntent
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad chat payload")
		ctl.sendError(c, protocol.CodeBadPayload, "bad chat payload")
		return
	}
	if p.Message == "" {
		ctl.sendError(c, protocol.CodeBadPayload, "empty message")
		return
	}

	player := ctl.Coord.Registry.GetOrCreatePlayer(sid)
	if ctl.ChatLimit != nil && !ctl.ChatLimit.Allow(player.ID) {
		ctl.sendError(c, protocol.CodeRateLimited, "sending too fast")
		return
	}
	roomID, inRoom := ctl.Coord.Registry.RoomOf(sid)
	if !inRoom {
		ctl.sendError(c, protocol.CodeNotInRoom, "not in a room")
		return
	}

	// Under the publish lock so messages fan out in seq order.
	mu := ctl.publishMu(roomID)
	mu.Lock()
	defer mu.Unlock()
	room, entry, err := ctl.Coord.Chat(sid, p.Message)
	if err != nil {
		ctl.sendError(c, errCode(err), err.Error())
		return
	}
	ctl.broadcastRoom(room, "", protocol.ChatMessageEvent{
		Type:      protocol.EventChatMessage,
		ChatEntry: entry,
	})
}

// handleEmote relays immediately and keeps no state: each receiving client
// clears the emote from its own display after the presentation TTL.
func (ctl *Controller) handleEmote(sid core.SessionID, c *WsSignalConn, data []byte) {
	var p protocol.EmoteIntent
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad emote payload")
		ctl.sendError(c, protocol.CodeBadPayload, "bad emote payload")
		return
	}
	if p.EmoteID == "" {
		ctl.sendError(c, protocol.CodeBadPayload, "empty emote")
		return
	}

	room, ok := ctl.Coord.CurrentRoom(sid)
	if !ok {
		ctl.sendError(c, protocol.CodeNotInRoom, "not in a room")
		return
	}
	player := ctl.Coord.Registry.GetOrCreatePlayer(sid)
	ctl.broadcastRoom(room, "", protocol.EmoteEvent{
		Type:       protocol.EventEmote,
		RoomID:     room.ID(),
		SenderID:   player.ID,
		SenderName: player.Name,
		EmoteID:    p.EmoteID,
	})
}
