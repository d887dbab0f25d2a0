package domain

import "errors"

type RoomID string

const (
	MaxRoomTitleLen = 36

	// Capacity bounds for a room. Out-of-range requests are clamped,
	// matching the lenient behavior of the rest of the game backend.
	MinRoomCapacity = 2
	MaxRoomCapacity = 6
)

// Phase is the lifecycle state of a room. Started is terminal: a started
// room is never reused, a rematch requires a new room.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhaseReadyToStart
	PhaseStarted
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseReadyToStart:
		return "ready_to_start"
	case PhaseStarted:
		return "started"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrAlreadyInRoom = errors.New("player already in a room")
	ErrNotInRoom     = errors.New("player not in the room")
	ErrNotHost       = errors.New("only the host may do that")
	ErrNotReady      = errors.New("room is not ready to start")
	ErrRoomStarted   = errors.New("room already started")
)

// ClampCapacity forces a requested capacity into [MinRoomCapacity, MaxRoomCapacity].
func ClampCapacity(n int) int {
	if n < MinRoomCapacity {
		return MinRoomCapacity
	}
	if n > MaxRoomCapacity {
		return MaxRoomCapacity
	}
	return n
}
