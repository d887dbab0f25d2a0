// Package protocol defines the typed messages carried over the lobby
// WebSocket. Both the server adapter and the client synchronization
// adapter speak exactly these structures, so the event set is checked at
// compile time instead of by string convention.
package protocol

import (
	"github.com/safequest/lobby/internal/core"
	"github.com/safequest/lobby/internal/domain"
)

// Envelope is the minimal frame every message starts with.
type Envelope struct {
	Type string `json:"type"`
}

// Client → server intents.
const (
	IntentGetRooms    = "getRooms"
	IntentCreateRoom  = "createRoom"
	IntentJoinRoom    = "joinRoom"
	IntentLeaveRoom   = "leaveRoom"
	IntentPlayerReady = "playerReady"
	IntentStartGame   = "startGame"
	IntentSendChat    = "sendChatMessage"
	IntentSendEmote   = "sendEmote"
	IntentPing        = "ping"
)

// Server → client events.
const (
	EventRoomsUpdated = "roomsUpdated"
	EventRoomJoined   = "roomJoined"
	EventRoomUpdated  = "roomUpdated"
	EventRoomLeft     = "roomLeft"
	EventRoomClosed   = "roomClosed"
	EventStartGame    = "startGame"
	EventChatMessage  = "chatMessageReceived"
	EventEmote        = "emoteReceived"
	EventError        = "error"
	EventPong         = "pong"
)

// Error codes carried by EventError.
const (
	CodeBadPayload   = "bad_payload"
	CodeRoomNotFound = "room_not_found"
	CodeRoomFull     = "room_full"
	CodeAlreadyIn    = "already_in_room"
	CodeNotInRoom    = "not_in_room"
	CodeNotHost      = "not_host"
	CodeNotReady     = "not_ready"
	CodeRoomStarted  = "room_started"
	CodeRateLimited  = "rate_limited"
)

type CreateRoomIntent struct {
	Type            string `json:"type"`
	Title           string `json:"title"`
	HostName        string `json:"hostName"`
	MaxPlayers      int    `json:"maxPlayers"`
	StageID         string `json:"stageId"`
	Skin            string `json:"skin"`
	TitleName       string `json:"titleName"`
	CustomCharacter string `json:"customCharacter,omitempty"`
}

type JoinRoomIntent struct {
	Type            string        `json:"type"`
	RoomID          domain.RoomID `json:"roomId"`
	Username        string        `json:"username"`
	Skin            string        `json:"skin"`
	TitleName       string        `json:"titleName"`
	CustomCharacter string        `json:"customCharacter,omitempty"`
}

type RoomIntent struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
}

type ChatIntent struct {
	Type       string        `json:"type"`
	RoomID     domain.RoomID `json:"roomId"`
	Message    string        `json:"message"`
	SenderName string        `json:"senderName"`
}

type EmoteIntent struct {
	Type       string        `json:"type"`
	RoomID     domain.RoomID `json:"roomId"`
	EmoteID    string        `json:"emoteId"`
	SenderName string        `json:"senderName"`
}

type RoomsUpdatedEvent struct {
	Type  string              `json:"type"`
	Rooms []core.RoomSnapshot `json:"rooms"`
}

type RoomJoinedEvent struct {
	Type string            `json:"type"`
	Room core.RoomSnapshot `json:"room"`
	Chat []core.ChatEntry  `json:"chat,omitempty"`
}

type RoomUpdatedEvent struct {
	Type string            `json:"type"`
	Room core.RoomSnapshot `json:"room"`
}

type RoomLeftEvent struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
}

// RoomClosedEvent tells former members the room dissolved under them.
type RoomClosedEvent struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
	Reason string        `json:"reason"`
}

type StartGameEvent struct {
	Type    string        `json:"type"`
	RoomID  domain.RoomID `json:"roomId"`
	StageID string        `json:"stageId"`
}

type ChatMessageEvent struct {
	Type string `json:"type"`
	core.ChatEntry
}

type EmoteEvent struct {
	Type       string          `json:"type"`
	RoomID     domain.RoomID   `json:"roomId"`
	SenderID   domain.PlayerID `json:"senderId"`
	SenderName string          `json:"senderName"`
	EmoteID    string          `json:"emoteId"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"error"`
}
