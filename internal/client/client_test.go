package client

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/safequest/lobby/internal/catalog"
	"github.com/safequest/lobby/internal/core"
	"github.com/safequest/lobby/internal/protocol"
)

type fakeConn struct {
	mu      sync.Mutex
	written [][]byte
	closed  bool
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {} // tests feed frames via Apply, never through the read loop
}

func (f *fakeConn) WriteMessage(mt int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) lastWritten(t *testing.T) map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.written) == 0 {
		t.Fatal("nothing written")
	}
	var m map[string]any
	if err := json.Unmarshal(f.written[len(f.written)-1], &m); err != nil {
		t.Fatalf("bad intent json: %v", err)
	}
	return m
}

func push(t *testing.T, a *Adapter, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal push: %v", err)
	}
	a.Apply(b)
}

func TestMirrorsRoomList(t *testing.T) {
	a := New(&fakeConn{})
	push(t, a, protocol.RoomsUpdatedEvent{
		Type: protocol.EventRoomsUpdated,
		Rooms: []core.RoomSnapshot{
			{ID: "r1", Title: "Alpha Squad", MaxPlayers: 4},
			{ID: "r2", Title: "Beta Crew", MaxPlayers: 2},
		},
	})
	rooms := a.Rooms()
	if len(rooms) != 2 || rooms[0].Title != "Alpha Squad" {
		t.Fatalf("mirrored rooms = %+v", rooms)
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	a := New(&fakeConn{})
	calls := 0
	off := a.On(protocol.EventRoomsUpdated, func(evt any) { calls++ })

	push(t, a, protocol.RoomsUpdatedEvent{Type: protocol.EventRoomsUpdated})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	// Teardown must stop delivery; a leaked handler would double-apply
	// state on the next view mount.
	off()
	push(t, a, protocol.RoomsUpdatedEvent{Type: protocol.EventRoomsUpdated})
	if calls != 1 {
		t.Errorf("calls after unsubscribe = %d, want 1", calls)
	}

	// Two mounts without teardown show the duplicate-handler hazard.
	a.On(protocol.EventRoomsUpdated, func(evt any) { calls++ })
	a.On(protocol.EventRoomsUpdated, func(evt any) { calls++ })
	push(t, a, protocol.RoomsUpdatedEvent{Type: protocol.EventRoomsUpdated})
	if calls != 3 {
		t.Errorf("calls with two live handlers = %d, want 3", calls)
	}
}

func TestRoomJoinedAndChatMirror(t *testing.T) {
	a := New(&fakeConn{})
	push(t, a, protocol.RoomJoinedEvent{
		Type: protocol.EventRoomJoined,
		Room: core.RoomSnapshot{ID: "r1", Title: "Alpha Squad"},
		Chat: []core.ChatEntry{{RoomID: "r1", Message: "welcome", Seq: 1}},
	})

	room, ok := a.CurrentRoom()
	if !ok || room.ID != "r1" {
		t.Fatalf("current room = %+v/%v", room, ok)
	}
	if len(a.ChatHistory()) != 1 {
		t.Fatalf("chat history = %+v", a.ChatHistory())
	}

	push(t, a, protocol.ChatMessageEvent{
		Type:      protocol.EventChatMessage,
		ChatEntry: core.ChatEntry{RoomID: "r1", SenderName: "Gene", Message: "hi", Seq: 2},
	})
	history := a.ChatHistory()
	if len(history) != 2 || history[1].Message != "hi" {
		t.Fatalf("chat history = %+v", history)
	}
}

func TestStaleRoomUpdateIgnored(t *testing.T) {
	a := New(&fakeConn{})
	push(t, a, protocol.RoomJoinedEvent{
		Type: protocol.EventRoomJoined,
		Room: core.RoomSnapshot{ID: "r1", Title: "Alpha Squad"},
	})
	push(t, a, protocol.RoomUpdatedEvent{
		Type: protocol.EventRoomUpdated,
		Room: core.RoomSnapshot{ID: "r2", Title: "Beta Crew"},
	})
	room, _ := a.CurrentRoom()
	if room.ID != "r1" {
		t.Errorf("current room = %q, want r1 (push for another room applied)", room.ID)
	}
}

func TestRoomClosedClearsState(t *testing.T) {
	a := New(&fakeConn{})
	push(t, a, protocol.RoomJoinedEvent{
		Type: protocol.EventRoomJoined,
		Room: core.RoomSnapshot{ID: "r1"},
		Chat: []core.ChatEntry{{Message: "hi"}},
	})
	push(t, a, protocol.RoomClosedEvent{Type: protocol.EventRoomClosed, RoomID: "r1", Reason: "host_left"})

	if _, ok := a.CurrentRoom(); ok {
		t.Error("current room survived roomClosed")
	}
	if len(a.ChatHistory()) != 0 {
		t.Error("chat history survived roomClosed")
	}
}

func TestLateRoomClosedForOldRoomIgnored(t *testing.T) {
	a := New(&fakeConn{})
	push(t, a, protocol.RoomJoinedEvent{
		Type: protocol.EventRoomJoined,
		Room: core.RoomSnapshot{ID: "r1"},
	})
	push(t, a, protocol.RoomLeftEvent{Type: protocol.EventRoomLeft, RoomID: "r1"})
	if _, ok := a.CurrentRoom(); ok {
		t.Fatal("roomLeft did not clear the mirror")
	}

	push(t, a, protocol.RoomJoinedEvent{
		Type: protocol.EventRoomJoined,
		Room: core.RoomSnapshot{ID: "r2", Title: "Beta Crew"},
		Chat: []core.ChatEntry{{RoomID: "r2", Message: "hi", Seq: 1}},
	})

	// A straggler teardown push for the room we already left must not
	// wipe the room we are in now.
	push(t, a, protocol.RoomClosedEvent{Type: protocol.EventRoomClosed, RoomID: "r1", Reason: "host_left"})

	room, ok := a.CurrentRoom()
	if !ok || room.ID != "r2" {
		t.Errorf("current room = %+v/%v, want r2 intact", room, ok)
	}
	if len(a.ChatHistory()) != 1 {
		t.Errorf("chat history = %+v, want the r2 entry intact", a.ChatHistory())
	}
}

func TestStartGameResolvesStage(t *testing.T) {
	stages := []catalog.Stage{
		{ID: 1, Key: "fire-drill", Title: "Fire Drill"},
		{ID: 3, Key: "earthquake", Title: "Earthquake Response"},
	}

	tests := []struct {
		name    string
		ref     string
		wantID  int
		wantKey string
	}{
		{name: "symbolic", ref: "fire-drill", wantID: 1, wantKey: "fire-drill"},
		{name: "numeric", ref: "3", wantID: 3, wantKey: "earthquake"},
		{name: "numeric unknown passes through", ref: "42", wantID: 42, wantKey: "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(&fakeConn{})
			a.SetStages(stages)
			push(t, a, protocol.StartGameEvent{
				Type: protocol.EventStartGame, RoomID: "r1", StageID: tt.ref,
			})
			tr, ok := a.Transition()
			if !ok {
				t.Fatal("no pending transition")
			}
			if tr.RoomID != "r1" {
				t.Errorf("transition room = %q, want r1", tr.RoomID)
			}
			if tr.Stage.ID != tt.wantID || tr.Stage.Key != tt.wantKey {
				t.Errorf("stage = %+v, want id=%d key=%q", tr.Stage, tt.wantID, tt.wantKey)
			}
			// Navigation happens exactly once.
			if _, ok := a.Transition(); ok {
				t.Error("transition not cleared after read")
			}
		})
	}
}

func TestEmoteSelfClears(t *testing.T) {
	a := New(&fakeConn{})
	a.SetEmoteTTL(30 * time.Millisecond)

	push(t, a, protocol.EmoteEvent{
		Type: protocol.EventEmote, RoomID: "r1", SenderID: "p1", SenderName: "Hana", EmoteID: "wave",
	})
	if got := a.ActiveEmotes(); len(got) != 1 || got["p1"].EmoteID != "wave" {
		t.Fatalf("active emotes = %+v", got)
	}

	time.Sleep(80 * time.Millisecond)
	if got := a.ActiveEmotes(); len(got) != 0 {
		t.Errorf("emote not cleared after TTL: %+v", got)
	}
}

func TestIntentsCarryRoomContext(t *testing.T) {
	conn := &fakeConn{}
	a := New(conn)
	push(t, a, protocol.RoomJoinedEvent{
		Type: protocol.EventRoomJoined,
		Room: core.RoomSnapshot{ID: "r1"},
	})

	if err := a.SendChat("hello", "Hana"); err != nil {
		t.Fatalf("send chat: %v", err)
	}
	m := conn.lastWritten(t)
	if m["type"] != protocol.IntentSendChat || m["roomId"] != "r1" || m["message"] != "hello" {
		t.Errorf("chat intent = %+v", m)
	}

	if err := a.ToggleReady(); err != nil {
		t.Fatalf("ready: %v", err)
	}
	m = conn.lastWritten(t)
	if m["type"] != protocol.IntentPlayerReady || m["roomId"] != "r1" {
		t.Errorf("ready intent = %+v", m)
	}
}

func TestCreateRoomIntentShape(t *testing.T) {
	conn := &fakeConn{}
	a := New(conn)
	err := a.CreateRoom(CreateRoomParams{
		Title: "Alpha Squad", HostName: "Hana", MaxPlayers: 4, StageID: "fire-drill",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	m := conn.lastWritten(t)
	if m["type"] != protocol.IntentCreateRoom || m["title"] != "Alpha Squad" ||
		m["hostName"] != "Hana" || m["maxPlayers"] != float64(4) || m["stageId"] != "fire-drill" {
		t.Errorf("create intent = %+v", m)
	}
}
