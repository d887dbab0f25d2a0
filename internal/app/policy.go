package app

import "github.com/safequest/lobby/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropEvent
)

// Policy decides what happens to a member whose send buffer stays full.
type Policy interface {
	OnBackpressure(room core.RoomService, sid core.SessionID) BackpressureAction
}

// KickSlowPolicy evicts slow members so room pushes never stall on one
// client. Eviction goes through the normal disconnect path.
type KickSlowPolicy struct{}

func (KickSlowPolicy) OnBackpressure(room core.RoomService, sid core.SessionID) BackpressureAction {
	return KickMember
}
