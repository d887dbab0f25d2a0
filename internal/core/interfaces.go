package core

import "github.com/safequest/lobby/internal/domain"

// Frame is a raw encoded payload pushed over a signal connection.
type Frame []byte

type SessionID string

// SignalConnection abstracts the system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// MemberSession binds a player profile and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	Meta() *domain.Player
	Signal() SignalConnection
}

// PublishResult reports delivery stats/backpressure to the coordinator.
type PublishResult struct {
	SentTo  int
	Dropped []SessionID
}

// PlayerSnapshot is a read-only member view for pushes (no transport fields).
type PlayerSnapshot struct {
	ID              domain.PlayerID `json:"id"`
	Name            string          `json:"name"`
	Role            domain.Role     `json:"role"`
	IsReady         bool            `json:"isReady"`
	Skin            string          `json:"skin"`
	TitleName       string          `json:"titleName"`
	CustomCharacter string          `json:"customCharacter,omitempty"`
}

// RoomSnapshot is the whole-state view broadcast after every mutation.
// Snapshot pushes beat incremental diffs at these room sizes.
type RoomSnapshot struct {
	ID         domain.RoomID    `json:"id"`
	Title      string           `json:"title"`
	HostName   string           `json:"hostName"`
	StageID    string           `json:"stageId"`
	MaxPlayers int              `json:"maxPlayers"`
	State      domain.Phase     `json:"state"`
	Players    []PlayerSnapshot `json:"players"`
}

// ChatEntry is a transient room chat message. Held only in the room's
// bounded in-memory history, never persisted.
type ChatEntry struct {
	RoomID     domain.RoomID   `json:"roomId"`
	SenderID   domain.PlayerID `json:"senderId"`
	SenderName string          `json:"senderName"`
	Message    string          `json:"message"`
	Seq        uint64          `json:"seq"`
}

// LeaveResult tells the coordinator what a removal did to the room.
// When the host leaves, the room dissolves and Evicted lists every
// remaining member that must be notified and unbound. Snapshot is the
// room state right after the removal, taken under the same lock.
type LeaveResult struct {
	Removed  bool
	WasHost  bool
	Empty    bool
	Evicted  []SessionID
	Snapshot RoomSnapshot
}

// RoomService is the core-facing API of one room. It owns the membership
// set, the phase machine and the chat ring, but never touches transport
// resources. All mutation is serialized by the room's own lock, so
// check-then-mutate (capacity, authority, phase) is atomic. Mutating
// methods return the snapshot produced by that mutation, computed under
// the same lock, so the caller broadcasts exactly the state it created.
type RoomService interface {
	ID() domain.RoomID
	Phase() domain.Phase
	MemberCount() int
	HasMember(sid SessionID) bool
	Snapshot() RoomSnapshot
	ChatHistory() []ChatEntry

	AddMember(sid SessionID, ms MemberSession) (RoomSnapshot, error)
	RemoveMember(sid SessionID) LeaveResult
	ToggleReady(sid SessionID) (RoomSnapshot, error)
	Start(sid SessionID) (stageID string, err error)
	AppendChat(sid SessionID, text string) (ChatEntry, error)

	// Broadcast fans out to every member except from; pass "" to reach all.
	Broadcast(from SessionID, data Frame) PublishResult
}
