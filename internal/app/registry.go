package app

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/safequest/lobby/internal/core"
	"github.com/safequest/lobby/internal/domain"
)

type sessionEntry struct {
	RoomID       domain.RoomID
	Session      core.MemberSession
	Cancel       context.CancelFunc
	WatchesLobby bool
}

// Registry owns the live-connection map: one session entry per socket, one
// player record per session. Rooms hold only non-owning references into it.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
	players  map[core.SessionID]*domain.Player
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
		players:  make(map[core.SessionID]*domain.Player),
	}
}

func (r *Registry) GetOrCreatePlayer(sid core.SessionID) *domain.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.players[sid]; ok {
		return p
	}
	p := &domain.Player{ID: domain.PlayerID(uuid.NewString()), Name: "guest"}
	r.players[sid] = p
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("created new player")
	return p
}

// UpdateProfile refreshes the live player record. Rooms the player already
// joined keep their join-time snapshot untouched.
func (r *Registry) UpdateProfile(sid core.SessionID, name string, cosmetics domain.Cosmetics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[sid]
	if !ok {
		return
	}
	if name != "" {
		if len(name) > domain.MaxPlayerNameLen {
			name = name[:domain.MaxPlayerNameLen]
		}
		p.Name = name
	}
	p.Cosmetics = cosmetics
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("name", p.Name).Msg("updated profile")
}

func (r *Registry) Bind(sid core.SessionID, sess core.MemberSession, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{Session: sess, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound session")
}

// Unbind removes the session. Idempotent: a connection may be torn down
// more than once during cleanup.
func (r *Registry) Unbind(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbound session")
}

func (r *Registry) GetSession(sid core.SessionID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Session, true
	}
	return nil, false
}

func (r *Registry) RoomOf(sid core.SessionID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || e.RoomID == "" {
		return "", false
	}
	return e.RoomID, true
}

func (r *Registry) SetRoom(sid core.SessionID, id domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	e.RoomID = id
	return true
}

func (r *Registry) ClearRoom(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		e.RoomID = ""
	}
}

// WatchLobby marks whether this session is on the room-list view and should
// receive roomsUpdated pushes. Sessions inside a room are not watchers.
func (r *Registry) WatchLobby(sid core.SessionID, watching bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		e.WatchesLobby = watching
	}
}

func (r *Registry) LobbyWatchers() []core.MemberSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.MemberSession, 0, len(r.sessions))
	for _, e := range r.sessions {
		if e.WatchesLobby {
			out = append(out, e.Session)
		}
	}
	return out
}

// Cancel fires the session's context, which unwinds its read loop and runs
// the normal disconnect cleanup.
func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}
