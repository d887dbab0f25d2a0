package core

import "github.com/safequest/lobby/internal/domain"

// memberSession implements MemberSession by pairing profile + transport.
type memberSession struct {
	meta *domain.Player
	conn SignalConnection
}

func NewMemberSession(meta *domain.Player, conn SignalConnection) MemberSession {
	return &memberSession{meta: meta, conn: conn}
}

func (m *memberSession) Meta() *domain.Player     { return m.meta }
func (m *memberSession) Signal() SignalConnection { return m.conn }
