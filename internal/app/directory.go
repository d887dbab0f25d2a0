package app

import (
	"sync"

	"github.com/google/uuid"

	"github.com/safequest/lobby/internal/core"
	"github.com/safequest/lobby/internal/domain"
)

// Directory is the authoritative set of active rooms, in creation order so
// lobby listings are stable across pushes.
type Directory struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]core.RoomService
	order []domain.RoomID

	chatLimit int
}

func NewDirectory(chatLimit int) *Directory {
	return &Directory{
		rooms:     make(map[domain.RoomID]core.RoomService),
		chatLimit: chatLimit,
	}
}

func (d *Directory) Create(title, stageID string, maxPlayers int) core.RoomService {
	id := domain.RoomID(uuid.NewString())
	room := core.NewRoom(id, title, stageID, maxPlayers, d.chatLimit)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rooms[id] = room
	d.order = append(d.order, id)
	return room
}

func (d *Directory) Get(id domain.RoomID) (core.RoomService, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	room, ok := d.rooms[id]
	return room, ok
}

func (d *Directory) Remove(id domain.RoomID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.rooms[id]; !ok {
		return
	}
	delete(d.rooms, id)
	for i, rid := range d.order {
		if rid == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Snapshots returns a fresh, independent copy of every room's state.
func (d *Directory) Snapshots() []core.RoomSnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]core.RoomSnapshot, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.rooms[id].Snapshot())
	}
	return out
}

func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}
