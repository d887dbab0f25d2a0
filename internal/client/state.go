package client

import (
	"time"

	"github.com/safequest/lobby/internal/catalog"
	"github.com/safequest/lobby/internal/core"
	"github.com/safequest/lobby/internal/domain"
	"github.com/safequest/lobby/internal/protocol"
)

// The mirror follows authoritative pushes unconditionally: an optimistic
// view switch (list → room) is confirmed by roomJoined and rolled back by
// an error event, never resolved locally.

func (a *Adapter) applyRoomList(rooms []core.RoomSnapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.roomList = rooms
}

func (a *Adapter) applyRoomJoined(room core.RoomSnapshot, chat []core.ChatEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = &room
	a.chat = chat
}

func (a *Adapter) applyRoomDetail(room core.RoomSnapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	// Ignore stale pushes for a room we already left.
	if a.current != nil && a.current.ID != room.ID {
		return
	}
	a.current = &room
}

// clearRoomState wipes the room mirror, but only when the event names the
// room currently displayed. A late roomClosed for a room we already left
// must not destroy the state of a newly joined one.
func (a *Adapter) clearRoomState(id domain.RoomID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil || a.current.ID != id {
		return
	}
	a.current = nil
	a.chat = nil
	for pid, t := range a.timers {
		t.Stop()
		delete(a.timers, pid)
	}
	a.emotes = make(map[domain.PlayerID]ActiveEmote)
}

func (a *Adapter) applyStart(evt protocol.StartGameEvent) {
	stage, ok := a.ResolveStage(evt.StageID)
	if !ok {
		a.log.Warn().Str("stage", evt.StageID).Msg("unknown stage id, passing through")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.transition = &GameTransition{RoomID: evt.RoomID, Stage: stage}
}

func (a *Adapter) applyChat(entry core.ChatEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.chat = append(a.chat, entry)
	if len(a.chat) > a.chatLimit {
		a.chat = a.chat[len(a.chat)-a.chatLimit:]
	}
}

// applyEmote shows the emote and arms the presentation timer: the server
// keeps no emote state, clearing is the client's job.
func (a *Adapter) applyEmote(evt protocol.EmoteEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t, ok := a.timers[evt.SenderID]; ok {
		t.Stop()
	}
	a.emotes[evt.SenderID] = ActiveEmote{
		SenderID:   evt.SenderID,
		SenderName: evt.SenderName,
		EmoteID:    evt.EmoteID,
		ShownAt:    time.Now(),
	}
	sender := evt.SenderID
	a.timers[sender] = time.AfterFunc(a.emoteTTL, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.emotes, sender)
		delete(a.timers, sender)
	})
}

// SetStages supplies the scenario table used for stage id resolution,
// typically fetched from GET /api/stages.
func (a *Adapter) SetStages(stages []catalog.Stage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stages = stages
}

// SetEmoteTTL overrides the presentation expiry (3s by default).
func (a *Adapter) SetEmoteTTL(ttl time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.emoteTTL = ttl
}

func (a *Adapter) Rooms() []core.RoomSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]core.RoomSnapshot, len(a.roomList))
	copy(out, a.roomList)
	return out
}

func (a *Adapter) CurrentRoom() (core.RoomSnapshot, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.current == nil {
		return core.RoomSnapshot{}, false
	}
	return *a.current, true
}

func (a *Adapter) ChatHistory() []core.ChatEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]core.ChatEntry, len(a.chat))
	copy(out, a.chat)
	return out
}

func (a *Adapter) ActiveEmotes() map[domain.PlayerID]ActiveEmote {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[domain.PlayerID]ActiveEmote, len(a.emotes))
	for k, v := range a.emotes {
		out[k] = v
	}
	return out
}

// Transition returns the pending start-game instruction, if any, and
// clears it: the caller performs the navigation exactly once.
func (a *Adapter) Transition() (GameTransition, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.transition == nil {
		return GameTransition{}, false
	}
	t := *a.transition
	a.transition = nil
	return t, true
}
