package client

import (
	"encoding/json"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/safequest/lobby/internal/catalog"
	"github.com/safequest/lobby/internal/domain"
	"github.com/safequest/lobby/internal/protocol"
)

func (a *Adapter) send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return a.conn.WriteMessage(websocket.TextMessage, b)
}

// RequestRooms subscribes this connection to lobby-list pushes and asks
// for the current snapshot.
func (a *Adapter) RequestRooms() error {
	return a.send(protocol.Envelope{Type: protocol.IntentGetRooms})
}

type CreateRoomParams struct {
	Title      string
	HostName   string
	MaxPlayers int
	StageID    string
	Cosmetics  domain.Cosmetics
}

func (a *Adapter) CreateRoom(p CreateRoomParams) error {
	return a.send(protocol.CreateRoomIntent{
		Type:            protocol.IntentCreateRoom,
		Title:           p.Title,
		HostName:        p.HostName,
		MaxPlayers:      p.MaxPlayers,
		StageID:         p.StageID,
		Skin:            p.Cosmetics.Skin,
		TitleName:       p.Cosmetics.TitleName,
		CustomCharacter: p.Cosmetics.CustomCharacter,
	})
}

func (a *Adapter) JoinRoom(roomID domain.RoomID, username string, cosmetics domain.Cosmetics) error {
	return a.send(protocol.JoinRoomIntent{
		Type:            protocol.IntentJoinRoom,
		RoomID:          roomID,
		Username:        username,
		Skin:            cosmetics.Skin,
		TitleName:       cosmetics.TitleName,
		CustomCharacter: cosmetics.CustomCharacter,
	})
}

func (a *Adapter) LeaveRoom() error {
	id, _ := a.currentRoomID()
	return a.send(protocol.RoomIntent{Type: protocol.IntentLeaveRoom, RoomID: id})
}

func (a *Adapter) ToggleReady() error {
	id, _ := a.currentRoomID()
	return a.send(protocol.RoomIntent{Type: protocol.IntentPlayerReady, RoomID: id})
}

func (a *Adapter) StartGame() error {
	id, _ := a.currentRoomID()
	return a.send(protocol.RoomIntent{Type: protocol.IntentStartGame, RoomID: id})
}

func (a *Adapter) SendChat(text, senderName string) error {
	id, _ := a.currentRoomID()
	return a.send(protocol.ChatIntent{
		Type:       protocol.IntentSendChat,
		RoomID:     id,
		Message:    text,
		SenderName: senderName,
	})
}

func (a *Adapter) SendEmote(emoteID, senderName string) error {
	id, _ := a.currentRoomID()
	return a.send(protocol.EmoteIntent{
		Type:       protocol.IntentSendEmote,
		RoomID:     id,
		EmoteID:    emoteID,
		SenderName: senderName,
	})
}

func (a *Adapter) Ping() error {
	return a.send(protocol.Envelope{Type: protocol.IntentPing})
}

func (a *Adapter) currentRoomID() (domain.RoomID, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.current == nil {
		return "", false
	}
	return a.current.ID, true
}

// ResolveStage translates a symbolic or numeric stage reference into a
// catalog stage. This is the single translation point: a numeric id not in
// the table still passes through (the catalog is advisory), a symbolic key
// must be known.
func (a *Adapter) ResolveStage(ref string) (catalog.Stage, bool) {
	a.mu.RLock()
	stages := a.stages
	a.mu.RUnlock()

	for _, st := range stages {
		if st.Key == ref {
			return st, true
		}
	}
	if n, err := strconv.Atoi(ref); err == nil {
		for _, st := range stages {
			if st.ID == n {
				return st, true
			}
		}
		return catalog.Stage{ID: n, Key: ref}, true
	}
	return catalog.Stage{Key: ref}, false
}
