package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/safequest/lobby/internal/core"
	"github.com/safequest/lobby/internal/protocol"
)

func (ctl *Controller) writePump(ctx context.Context, c *WsSignalConn) {
	for {
		select {
		case <-ctx.Done():
			// Closing the socket errors the blocked ReadMessage, so
			// readPump unwinds and runs the leave path. Without it a
			// canceled session would linger as a phantom member.
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			c.Close()
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.onDisconnect(sid)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				return
			}
			ctl.handleIntent(sid, c, data)
		}
	}
}

// handleIntent runs each inbound message to completion before the next one
// from the same connection is read, so a client's intents apply in order
// with no interleaved partial updates.
func (ctl *Controller) handleIntent(sid core.SessionID, c *WsSignalConn, data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(c, protocol.CodeBadPayload, "malformed message")
		return
	}

	switch env.Type {
	case protocol.IntentGetRooms:
		ctl.handleGetRooms(sid, c)
	case protocol.IntentCreateRoom:
		ctl.handleCreateRoom(sid, c, data)
	case protocol.IntentJoinRoom:
		ctl.handleJoinRoom(sid, c, data)
	case protocol.IntentLeaveRoom:
		ctl.handleLeaveRoom(sid, c)
	case protocol.IntentPlayerReady:
		ctl.handlePlayerReady(sid, c)
	case protocol.IntentStartGame:
		ctl.handleStartGame(sid, c)
	case protocol.IntentSendChat:
		ctl.handleChat(sid, c, data)
	case protocol.IntentSendEmote:
		ctl.handleEmote(sid, c, data)
	case protocol.IntentPing:
		ctl.sendJSON(c, protocol.Envelope{Type: protocol.EventPong})
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown intent")
	}
}

// onDisconnect vacates any room the session occupied before the connection
// is considered gone. Remaining members and lobby watchers get their pushes
// here, because the client can no longer ask for them.
func (ctl *Controller) onDisconnect(sid core.SessionID) {
	roomID, inRoom := ctl.Coord.Registry.RoomOf(sid)
	if !inRoom {
		ctl.Coord.OnDisconnect(sid)
		return
	}

	mu := ctl.publishMu(roomID)
	mu.Lock()
	room, res, left := ctl.Coord.OnDisconnect(sid)
	if left {
		ctl.notifyDeparture(room, res, "disconnect")
	}
	mu.Unlock()
	if !left {
		return
	}
	if res.WasHost || res.Empty {
		ctl.releasePublishMu(roomID)
	}
	ctl.BroadcastLobby()
}
