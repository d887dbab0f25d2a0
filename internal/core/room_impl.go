package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/safequest/lobby/internal/domain"
)

// memberEntry keeps the join-time snapshot next to the live session.
// meta is a value copy; profile edits after join do not reach it.
type memberEntry struct {
	sid  SessionID
	meta domain.Member
	sess MemberSession
}

// roomImpl is a threadsafe in-memory room. Members are ordered, the host
// is always index 0, and the room never closes adapter-owned resources.
type roomImpl struct {
	id         domain.RoomID
	title      string
	stageID    string
	maxPlayers int
	chatLimit  int

	mu      sync.RWMutex
	phase   domain.Phase
	members []memberEntry
	chat    []ChatEntry
	chatSeq uint64
}

func NewRoom(id domain.RoomID, title, stageID string, maxPlayers, chatLimit int) RoomService {
	if len(title) > domain.MaxRoomTitleLen {
		title = title[:domain.MaxRoomTitleLen]
	}
	return &roomImpl{
		id:         id,
		title:      title,
		stageID:    stageID,
		maxPlayers: domain.ClampCapacity(maxPlayers),
		chatLimit:  chatLimit,
		phase:      domain.PhaseWaiting,
	}
}

func (r *roomImpl) ID() domain.RoomID { return r.id }

func (r *roomImpl) Phase() domain.Phase {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.phase
}

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *roomImpl) HasMember(sid SessionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexOf(sid) >= 0
}

// indexOf must be called under the lock. Linear scan is fine at capacity 6.
func (r *roomImpl) indexOf(sid SessionID) int {
	for i := range r.members {
		if r.members[i].sid == sid {
			return i
		}
	}
	return -1
}

func (r *roomImpl) AddMember(sid SessionID, ms MemberSession) (RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase == domain.PhaseStarted {
		return RoomSnapshot{}, domain.ErrRoomStarted
	}
	if r.indexOf(sid) >= 0 {
		return RoomSnapshot{}, domain.ErrAlreadyInRoom
	}
	if len(r.members) >= r.maxPlayers {
		return RoomSnapshot{}, domain.ErrRoomFull
	}

	role := domain.RoleGuest
	if len(r.members) == 0 {
		role = domain.RoleHost
	}
	r.members = append(r.members, memberEntry{
		sid:  sid,
		meta: domain.NewMember(ms.Meta(), role),
		sess: ms,
	})
	r.evaluatePhase()
	log.Info().Str("module", "core.room").Str("room", string(r.id)).
		Str("sid", string(sid)).Str("role", string(role)).Msg("member added")
	return r.snapshotLocked(), nil
}

func (r *roomImpl) RemoveMember(sid SessionID) LeaveResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(sid)
	if i < 0 {
		return LeaveResult{}
	}

	res := LeaveResult{Removed: true, WasHost: r.members[i].meta.Role == domain.RoleHost}
	if res.WasHost {
		// Host departure dissolves the room; everyone else is evicted.
		for j := range r.members {
			if j != i {
				res.Evicted = append(res.Evicted, r.members[j].sid)
			}
		}
		r.members = nil
	} else {
		r.members = append(r.members[:i], r.members[i+1:]...)
	}
	res.Empty = len(r.members) == 0
	r.evaluatePhase()
	res.Snapshot = r.snapshotLocked()
	log.Info().Str("module", "core.room").Str("room", string(r.id)).
		Str("sid", string(sid)).Bool("was_host", res.WasHost).Msg("member removed")
	return res
}

func (r *roomImpl) ToggleReady(sid SessionID) (RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(sid)
	if i < 0 {
		return RoomSnapshot{}, domain.ErrNotInRoom
	}
	if r.phase == domain.PhaseStarted {
		return RoomSnapshot{}, domain.ErrRoomStarted
	}
	if r.members[i].meta.Role == domain.RoleHost {
		// The host is implicitly ready; toggling is a no-op, not an error.
		return r.snapshotLocked(), nil
	}
	r.members[i].meta.Ready = !r.members[i].meta.Ready
	r.evaluatePhase()
	return r.snapshotLocked(), nil
}

func (r *roomImpl) Start(sid SessionID) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(sid)
	if i < 0 {
		return "", domain.ErrNotInRoom
	}
	if r.members[i].meta.Role != domain.RoleHost {
		return "", domain.ErrNotHost
	}
	if r.phase == domain.PhaseStarted {
		return "", domain.ErrRoomStarted
	}
	if r.phase != domain.PhaseReadyToStart {
		return "", domain.ErrNotReady
	}
	r.phase = domain.PhaseStarted
	log.Info().Str("module", "core.room").Str("room", string(r.id)).
		Str("stage", r.stageID).Msg("room started")
	return r.stageID, nil
}

// evaluatePhase must be called under the lock after every membership or
// ready mutation. A host alone can never reach ready_to_start: the empty
// guest set does not count as "all guests ready".
func (r *roomImpl) evaluatePhase() {
	if r.phase == domain.PhaseStarted {
		return
	}
	guests := 0
	for i := range r.members {
		if r.members[i].meta.Role != domain.RoleGuest {
			continue
		}
		guests++
		if !r.members[i].meta.Ready {
			r.phase = domain.PhaseWaiting
			return
		}
	}
	if guests >= 1 {
		r.phase = domain.PhaseReadyToStart
	} else {
		r.phase = domain.PhaseWaiting
	}
}

func (r *roomImpl) AppendChat(sid SessionID, text string) (ChatEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(sid)
	if i < 0 {
		return ChatEntry{}, domain.ErrNotInRoom
	}
	r.chatSeq++
	entry := ChatEntry{
		RoomID:     r.id,
		SenderID:   r.members[i].meta.PlayerID,
		SenderName: r.members[i].meta.Name,
		Message:    text,
		Seq:        r.chatSeq,
	}
	r.chat = append(r.chat, entry)
	if r.chatLimit > 0 && len(r.chat) > r.chatLimit {
		r.chat = r.chat[len(r.chat)-r.chatLimit:]
	}
	return entry, nil
}

func (r *roomImpl) ChatHistory() []ChatEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ChatEntry, len(r.chat))
	copy(out, r.chat)
	return out
}

func (r *roomImpl) Broadcast(from SessionID, data Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for i := range r.members {
		if r.members[i].sid == from {
			continue
		}
		if err := r.members[i].sess.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, r.members[i].sid)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).
		Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (r *roomImpl) Snapshot() RoomSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

// snapshotLocked must be called under the lock.
func (r *roomImpl) snapshotLocked() RoomSnapshot {
	snap := RoomSnapshot{
		ID:         r.id,
		Title:      r.title,
		StageID:    r.stageID,
		MaxPlayers: r.maxPlayers,
		State:      r.phase,
		Players:    make([]PlayerSnapshot, 0, len(r.members)),
	}
	for i := range r.members {
		m := &r.members[i].meta
		if m.Role == domain.RoleHost {
			snap.HostName = m.Name
		}
		snap.Players = append(snap.Players, PlayerSnapshot{
			ID:              m.PlayerID,
			Name:            m.Name,
			Role:            m.Role,
			IsReady:         m.Ready,
			Skin:            m.Cosmetics.Skin,
			TitleName:       m.Cosmetics.TitleName,
			CustomCharacter: m.Cosmetics.CustomCharacter,
		})
	}
	return snap
}
