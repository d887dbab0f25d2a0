package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/safequest/lobby/internal/core"
	"github.com/safequest/lobby/internal/domain"
)

type fakeSignal struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (f *fakeSignal) TrySend(data core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeSignal) Close() {}

func newCoordinator() *Coordinator {
	return &Coordinator{
		Registry: NewRegistry(),
		Rooms:    NewDirectory(50),
		Policy:   KickSlowPolicy{},
	}
}

// bind simulates a completed WS handshake for sid.
func bind(t *testing.T, c *Coordinator, sid core.SessionID) context.CancelFunc {
	t.Helper()
	player := c.Registry.GetOrCreatePlayer(sid)
	_, cancel := context.WithCancel(context.Background())
	c.Registry.Bind(sid, core.NewMemberSession(player, &fakeSignal{}), cancel)
	return cancel
}

func TestCreateRoomAutoJoinsHost(t *testing.T) {
	c := newCoordinator()
	bind(t, c, "h")

	room, _, err := c.CreateRoom("h", CreateParams{
		Title:      "Alpha Squad",
		StageID:    "fire-drill",
		MaxPlayers: 4,
		HostName:   "Hana",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	snap := room.Snapshot()
	if snap.HostName != "Hana" {
		t.Errorf("hostName = %q, want %q", snap.HostName, "Hana")
	}
	if len(snap.Players) != 1 || snap.Players[0].Role != domain.RoleHost {
		t.Errorf("players = %+v, want single host", snap.Players)
	}
	if id, ok := c.Registry.RoomOf("h"); !ok || id != room.ID() {
		t.Errorf("RoomOf(h) = %q/%v, want %q", id, ok, room.ID())
	}
	if c.Rooms.Count() != 1 {
		t.Errorf("directory count = %d, want 1", c.Rooms.Count())
	}
}

func TestCreateWhileInRoom(t *testing.T) {
	c := newCoordinator()
	bind(t, c, "h")
	if _, _, err := c.CreateRoom("h", CreateParams{Title: "one", MaxPlayers: 4}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := c.CreateRoom("h", CreateParams{Title: "two", MaxPlayers: 4}); !errors.Is(err, domain.ErrAlreadyInRoom) {
		t.Errorf("second create: err = %v, want ErrAlreadyInRoom", err)
	}
	if c.Rooms.Count() != 1 {
		t.Errorf("directory count = %d, want 1 (failed create must not leak a room)", c.Rooms.Count())
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	c := newCoordinator()
	bind(t, c, "g")
	if _, _, err := c.JoinRoom("g", "no-such-room", JoinProfile{Name: "Gene"}); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("join unknown: err = %v, want ErrRoomNotFound", err)
	}
}

func TestOneRoomAtATime(t *testing.T) {
	c := newCoordinator()
	bind(t, c, "h1")
	bind(t, c, "h2")
	bind(t, c, "g")

	r1, _, _ := c.CreateRoom("h1", CreateParams{Title: "one", MaxPlayers: 4})
	r2, _, _ := c.CreateRoom("h2", CreateParams{Title: "two", MaxPlayers: 4})

	if _, _, err := c.JoinRoom("g", r1.ID(), JoinProfile{Name: "Gene"}); err != nil {
		t.Fatalf("first join: %v", err)
	}
	if _, _, err := c.JoinRoom("g", r2.ID(), JoinProfile{Name: "Gene"}); !errors.Is(err, domain.ErrAlreadyInRoom) {
		t.Errorf("second join: err = %v, want ErrAlreadyInRoom", err)
	}
	if r2.MemberCount() != 1 {
		t.Errorf("room two members = %d, want 1 (failed join must not mutate)", r2.MemberCount())
	}
}

func TestLeaveLastMemberDeletesRoom(t *testing.T) {
	c := newCoordinator()
	bind(t, c, "h")
	room, _, _ := c.CreateRoom("h", CreateParams{Title: "solo", MaxPlayers: 4})

	_, res, left := c.LeaveRoom("h", "leave")
	if !left || !res.Empty {
		t.Fatalf("leave result = %+v/%v, want removed+empty", res, left)
	}
	if _, ok := c.Rooms.Get(room.ID()); ok {
		t.Error("empty room still in directory")
	}
	if _, ok := c.Registry.RoomOf("h"); ok {
		t.Error("registry still maps h to a room")
	}
}

func TestHostDisconnectTearsDownRoom(t *testing.T) {
	c := newCoordinator()
	bind(t, c, "h")
	bind(t, c, "g")
	room, _, _ := c.CreateRoom("h", CreateParams{Title: "party", MaxPlayers: 4})
	if _, _, err := c.JoinRoom("g", room.ID(), JoinProfile{Name: "Gene"}); err != nil {
		t.Fatalf("join: %v", err)
	}

	_, res, left := c.OnDisconnect("h")
	if !left || !res.WasHost {
		t.Fatalf("disconnect result = %+v/%v, want wasHost", res, left)
	}
	if len(res.Evicted) != 1 || res.Evicted[0] != "g" {
		t.Fatalf("evicted = %v, want [g]", res.Evicted)
	}
	if c.Rooms.Count() != 0 {
		t.Error("room survived host disconnect")
	}
	if _, ok := c.Registry.RoomOf("g"); ok {
		t.Error("evicted guest still mapped to the dead room")
	}
	if _, ok := c.Registry.GetSession("h"); ok {
		t.Error("host session still bound after disconnect")
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	c := newCoordinator()
	bind(t, c, "h")
	c.CreateRoom("h", CreateParams{Title: "x", MaxPlayers: 4})

	c.OnDisconnect("h")
	if _, _, left := c.OnDisconnect("h"); left {
		t.Error("second disconnect reported a room departure")
	}
}

func TestFullLobbyFlow(t *testing.T) {
	c := newCoordinator()
	bind(t, c, "h")
	bind(t, c, "g")

	room, _, err := c.CreateRoom("h", CreateParams{
		Title: "Alpha Squad", StageID: "fire-drill", MaxPlayers: 4, HostName: "Hana",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	snaps := c.Rooms.Snapshots()
	if len(snaps) != 1 || len(snaps[0].Players) != 1 || snaps[0].MaxPlayers != 4 {
		t.Fatalf("lobby listing = %+v, want Alpha Squad 1/4", snaps)
	}

	if _, _, err := c.JoinRoom("g", room.ID(), JoinProfile{Name: "Gene"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	snap := room.Snapshot()
	if len(snap.Players) != 2 || snap.Players[1].IsReady {
		t.Fatalf("after join = %+v, want 2/4 with unready guest", snap.Players)
	}

	if _, _, err := c.ToggleReady("g"); err != nil {
		t.Fatalf("ready: %v", err)
	}
	if room.Phase() != domain.PhaseReadyToStart {
		t.Fatalf("phase = %v, want ready_to_start", room.Phase())
	}

	if _, _, err := c.StartGame("g"); !errors.Is(err, domain.ErrNotHost) {
		t.Fatalf("guest start: err = %v, want ErrNotHost", err)
	}

	started, stageID, err := c.StartGame("h")
	if err != nil {
		t.Fatalf("host start: %v", err)
	}
	if stageID != "fire-drill" || started.ID() != room.ID() {
		t.Errorf("start push carries %q/%q, want fire-drill/%q", stageID, started.ID(), room.ID())
	}
	if room.Phase() != domain.PhaseStarted {
		t.Errorf("phase = %v, want started", room.Phase())
	}
}

func TestReapSlowCancelsSession(t *testing.T) {
	c := newCoordinator()

	canceled := make(chan struct{})
	player := c.Registry.GetOrCreatePlayer("slow")
	c.Registry.Bind("slow", core.NewMemberSession(player, &fakeSignal{}), func() { close(canceled) })

	room, _, _ := c.CreateRoom("slow", CreateParams{Title: "x", MaxPlayers: 4})
	c.ReapSlow(room, core.PublishResult{Dropped: []core.SessionID{"slow"}})

	select {
	case <-canceled:
	default:
		t.Error("slow member's session was not canceled")
	}
}

func TestLobbyWatchers(t *testing.T) {
	c := newCoordinator()
	bind(t, c, "w")
	bind(t, c, "h")

	c.Registry.WatchLobby("w", true)
	c.Registry.WatchLobby("h", true)
	if got := len(c.Registry.LobbyWatchers()); got != 2 {
		t.Fatalf("watchers = %d, want 2", got)
	}

	// Entering a room takes a session off the list view.
	c.CreateRoom("h", CreateParams{Title: "x", MaxPlayers: 4})
	if got := len(c.Registry.LobbyWatchers()); got != 1 {
		t.Errorf("watchers after create = %d, want 1", got)
	}
}
