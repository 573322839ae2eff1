package main

import (
	"sync"
	"testing"
	"time"
)

// mockBroadcaster records everything a session sends to a socket
type mockBroadcaster struct {
	mu       sync.Mutex
	jsonMsgs []Envelope
	binCount int
}

func (m *mockBroadcaster) SendJSON(msg interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if env, ok := msg.(Envelope); ok {
		m.jsonMsgs = append(m.jsonMsgs, env)
	}
}

func (m *mockBroadcaster) SendBinary(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.binCount++
}

func (m *mockBroadcaster) countEvents(evType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, env := range m.jsonMsgs {
		if env.T != MsgEvent {
			continue
		}
		if ev, ok := env.Data.(Event); ok && ev.Type == evType {
			n++
		}
	}
	return n
}

func newTestSim(objects []LevelObject) (*Sim, *mockBroadcaster) {
	lvl := CompileLevel(1, "test", "easy", objects)
	sim := NewSim(lvl, MaxScrollSpeed, nil, nil)
	mock := &mockBroadcaster{}
	sim.SetOwner("c1", mock, 0, "tester")
	return sim, mock
}

// advance drives the frame loop directly instead of running the ticker
func advance(sim *Sim, frames int) {
	for i := 0; i < frames; i++ {
		sim.update()
	}
}

func TestWinFiresExactlyOnce(t *testing.T) {
	sim, mock := newTestSim(nil) // empty level, WinDistance = MinWinDistance

	// MinWinDistance at max speed takes ~167 frames; leave generous slack
	advance(sim, 400)

	snap := sim.Snapshot()
	if snap.Status != int(StatusWon) {
		t.Fatalf("status = %d, want won", snap.Status)
	}
	if got := mock.countEvents(EvWin); got != 1 {
		t.Errorf("win event fired %d times, want exactly once", got)
	}
	if snap.Percent != 100 {
		t.Errorf("percent = %v, want clamped to 100", snap.Percent)
	}

	// The run is terminal: further ticks must not move the player
	x := sim.Snapshot().Player.X
	advance(sim, 30)
	if sim.Snapshot().Player.X != x {
		t.Error("player advanced after winning")
	}
}

func TestDeathFreezesTheRun(t *testing.T) {
	sim, mock := newTestSim([]LevelObject{
		{ID: 1, Type: "spike", X: 300, Y: 328},
	})

	advance(sim, 120)

	snap := sim.Snapshot()
	if snap.Status != int(StatusDead) {
		t.Fatalf("status = %d, want dead", snap.Status)
	}
	if got := mock.countEvents(EvDeath); got != 1 {
		t.Errorf("death event fired %d times, want exactly once", got)
	}

	frame := snap.Frame
	advance(sim, 30)
	if sim.Snapshot().Frame != frame {
		t.Error("frame counter advanced after death")
	}
}

func TestPauseStopsIntegration(t *testing.T) {
	sim, _ := newTestSim(nil)

	advance(sim, 10)
	sim.Pause()
	snap := sim.Snapshot()
	if !snap.Paused {
		t.Fatal("snapshot should report paused")
	}

	advance(sim, 30)
	if sim.Snapshot().Frame != snap.Frame {
		t.Error("frames advanced while paused")
	}

	sim.Resume()
	advance(sim, 5)
	if sim.Snapshot().Frame != snap.Frame+5 {
		t.Error("frames did not resume after unpause")
	}
}

func TestPausedSpanExcludedFromElapsed(t *testing.T) {
	sim, _ := newTestSim(nil)

	sim.Pause()
	time.Sleep(50 * time.Millisecond)
	sim.Resume()

	if got := sim.Snapshot().Elapsed; got > 0.04 {
		t.Errorf("elapsed = %vs, paused time leaked into the clock", got)
	}
}

func TestRestartResetsTheRun(t *testing.T) {
	sim, _ := newTestSim([]LevelObject{
		{ID: 1, Type: "spike", X: 300, Y: 328},
	})

	advance(sim, 120)
	if sim.Snapshot().Status != int(StatusDead) {
		t.Fatal("setup: player should have died")
	}

	sim.Restart()
	snap := sim.Snapshot()
	if snap.Status != int(StatusPlaying) {
		t.Errorf("status = %d after restart, want playing", snap.Status)
	}
	if snap.Player.X != PlayerStartX || !snap.Player.Alive {
		t.Errorf("player = %+v, want fresh start", snap.Player)
	}
	if snap.Frame != 0 {
		t.Errorf("frame = %d after restart, want 0", snap.Frame)
	}

	sim.mu.RLock()
	attempts := sim.attempts
	sim.mu.RUnlock()
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestHandleInputDrivesJump(t *testing.T) {
	sim, mock := newTestSim(nil)

	sim.HandleInput(true)
	advance(sim, 1)
	sim.HandleInput(false)

	if got := mock.countEvents(EvJump); got == 0 {
		t.Error("press edge did not produce a jump")
	}
	if sim.Snapshot().Player.VY >= 0 {
		t.Error("player should be moving upward after a jump frame")
	}
}

func TestBroadcastCadence(t *testing.T) {
	sim, mock := newTestSim(nil)

	advance(sim, BroadcastEvery*10)

	mock.mu.Lock()
	got := mock.binCount
	mock.mu.Unlock()
	if got != 10 {
		t.Errorf("got %d state broadcasts over %d ticks, want 10", got, BroadcastEvery*10)
	}
}

func TestSnapshotCameraFollowsPlayer(t *testing.T) {
	sim, _ := newTestSim(nil)

	advance(sim, 20)
	snap := sim.Snapshot()
	if snap.CameraX != snap.Player.X-CameraOffset {
		t.Errorf("camera = %v, want player.x - %v", snap.CameraX, CameraOffset)
	}
}

func TestSpeedIsClamped(t *testing.T) {
	lvl := CompileLevel(1, "test", "easy", nil)

	fast := NewSim(lvl, 99, nil, nil)
	if fast.speed != MaxScrollSpeed {
		t.Errorf("speed = %v, want clamped to %v", fast.speed, MaxScrollSpeed)
	}

	def := NewSim(lvl, 0, nil, nil)
	if def.speed != DefaultScrollSpeed {
		t.Errorf("speed = %v, want default %v", def.speed, DefaultScrollSpeed)
	}
}

func TestSessionTeardownOnLastDetach(t *testing.T) {
	sm := NewSessionManager()
	lvl := CompileLevel(1, "test", "easy", nil)

	sess := sm.CreateSession(lvl, DefaultScrollSpeed, nil, nil)
	if sess == nil {
		t.Fatal("session creation failed")
	}
	sess.Sim.SetClient("c1", &mockBroadcaster{})
	sess.Sim.SetClient("c2", &mockBroadcaster{})

	sm.DetachClient(sess.ID, "c1")
	if sm.GetSession(sess.ID) == nil {
		t.Fatal("session torn down while a client remained")
	}

	sm.DetachClient(sess.ID, "c2")
	if sm.GetSession(sess.ID) != nil {
		t.Error("session should be torn down after the last detach")
	}
}
