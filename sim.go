package main

import (
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	TickRate       = 60 // physics ticks per second
	BroadcastRate  = 30 // state broadcasts per second
	TickDuration   = time.Second / TickRate
	BroadcastEvery = TickRate / BroadcastRate
)

// SimStatus is the session state machine: Playing is the only live state,
// Dead and Won are terminal. Paused is orthogonal and tracked separately.
type SimStatus int

const (
	StatusPlaying SimStatus = iota
	StatusDead
	StatusWon
)

// Broadcaster interface for sending messages to clients
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// Sim owns one run: the player, the compiled level, its chunk index, and
// the fixed-rate frame loop. The level and index are read-only for the
// lifetime of the session; changing levels means a new Sim.
type Sim struct {
	mu      sync.RWMutex
	level   *Level
	index   *ChunkIndex
	player  Player
	tracker InputTracker
	speed   float64

	status SimStatus
	paused bool
	frame  uint64
	tick   uint64

	startedAt   time.Time
	pausedAt    time.Time
	pausedTotal time.Duration

	clients   map[string]Broadcaster
	owner     Broadcaster
	ownerID   int64 // authenticated player id, 0 for guests
	ownerName string
	attempts  int

	running bool
	stop    chan struct{}

	db        *DB
	analytics *Analytics
}

// NewSim creates a session for one run of the given level
func NewSim(level *Level, speed float64, db *DB, analytics *Analytics) *Sim {
	if speed == 0 {
		speed = DefaultScrollSpeed
	}
	return &Sim{
		level:     level,
		index:     BuildChunkIndex(level.Objects),
		player:    NewPlayer(),
		speed:     Clamp(speed, MinScrollSpeed, MaxScrollSpeed),
		startedAt: time.Now(),
		clients:   make(map[string]Broadcaster),
		attempts:  1,
		stop:      make(chan struct{}),
		db:        db,
		analytics: analytics,
	}
}

// Run starts the fixed-timestep frame loop
func (s *Sim) Run() {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.update()
		case <-s.stop:
			return
		}
	}
}

// Stop terminates the frame loop
func (s *Sim) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.running = false
		close(s.stop)
	}
}

// SetOwner binds the run to its player client and auth identity
func (s *Sim) SetOwner(clientID string, b Broadcaster, authID int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[clientID] = b
	s.owner = b
	s.ownerID = authID
	s.ownerName = name
}

// SetClient attaches an extra observer or controller socket
func (s *Sim) SetClient(clientID string, b Broadcaster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[clientID] = b
}

// RemoveClient detaches a socket from the session
func (s *Sim) RemoveClient(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, clientID)
}

// ClientCount returns the number of attached sockets
func (s *Sim) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Speed returns the session's clamped scroll speed
func (s *Sim) Speed() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.speed
}

// HandleInput records one raw input edge from any attached socket
func (s *Sim) HandleInput(pressed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pressed {
		s.tracker.Press()
	} else {
		s.tracker.Release()
	}
}

// Pause freezes integration without resetting elapsed-time accounting
func (s *Sim) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused && s.status == StatusPlaying {
		s.paused = true
		s.pausedAt = time.Now()
	}
}

// Resume unfreezes integration; the paused span is excluded from elapsed time
func (s *Sim) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		s.paused = false
		s.pausedTotal += time.Since(s.pausedAt)
	}
}

// Restart resets the run to its initial state on the same level
func (s *Sim) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player = NewPlayer()
	s.tracker.Reset()
	s.status = StatusPlaying
	s.paused = false
	s.frame = 0
	s.startedAt = time.Now()
	s.pausedTotal = 0
	s.attempts++
	if s.analytics != nil {
		s.analytics.Track(EvtRunStart, s.ownerID, s.level.Name, "")
	}
}

// update runs one frame
func (s *Sim) update() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tick++

	if !s.paused && s.status == StatusPlaying {
		in := s.tracker.Resolve(s.player.Grounded)
		p, events := stepPlayer(s.player, in, s.index, s.speed)
		s.frame++
		s.player = p

		if !p.Alive {
			s.status = StatusDead
			s.finishRun(false)
		} else if p.X > s.level.WinDistance {
			s.status = StatusWon
			events = append(events, Event{Type: EvWin})
			s.finishRun(true)
		}

		for i := range events {
			events[i].Frame = s.frame
			s.broadcastMsg(Envelope{T: MsgEvent, Data: events[i]})
			if s.analytics != nil && events[i].Type == EvMorph {
				s.analytics.Track(EvtMorph, s.ownerID, s.level.Name, events[i].Mode)
			}
		}
	}

	if s.tick%BroadcastEvery == 0 {
		s.broadcastState()
	}
}

// Snapshot returns the read-only state polled by render clients
func (s *Sim) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Sim) snapshotLocked() Snapshot {
	return Snapshot{
		Player:  s.player.ToState(),
		CameraX: s.player.X - CameraOffset,
		Percent: s.percentLocked(),
		Elapsed: s.elapsedLocked().Seconds(),
		Frame:   s.frame,
		Status:  int(s.status),
		Paused:  s.paused,
	}
}

func (s *Sim) percentLocked() float64 {
	pct := s.player.X / s.level.WinDistance * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

func (s *Sim) elapsedLocked() time.Duration {
	elapsed := time.Since(s.startedAt) - s.pausedTotal
	if s.paused {
		elapsed -= time.Since(s.pausedAt)
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed
}

// finishRun persists the terminal outcome. DB work runs off the frame loop;
// the sim mutex is held by the caller so all state is captured first.
func (s *Sim) finishRun(won bool) {
	percent := s.percentLocked()
	elapsed := s.elapsedLocked().Seconds()

	if s.analytics != nil {
		evt := EvtRunDeath
		if won {
			evt = EvtRunWin
		}
		s.analytics.Track(evt, s.ownerID, s.level.Name, "")
	}

	if s.db == nil || s.ownerID == 0 {
		return
	}

	db := s.db
	ownerID := s.ownerID
	levelID := s.level.ID
	owner := s.owner
	go func() {
		if err := db.RecordRunResult(ownerID, levelID, percent, elapsed, won); err != nil {
			return
		}
		if won {
			db.AdjustCredits(ownerID, WinCreditAward)
		}
		unlocked := CheckAchievements(db, ownerID, percent, won)
		if owner != nil {
			for _, def := range unlocked {
				owner.SendJSON(Envelope{T: MsgUnlocked, Data: def})
			}
		}
	}()
}

// broadcastState sends the msgpack snapshot to all attached sockets
func (s *Sim) broadcastState() {
	data, err := msgpack.Marshal(s.snapshotLocked())
	if err != nil {
		return
	}
	for _, c := range s.clients {
		c.SendBinary(data)
	}
}

// broadcastMsg sends a JSON envelope to all attached sockets. Callers must
// hold the sim mutex; external callers use Broadcast.
func (s *Sim) broadcastMsg(msg Envelope) {
	for _, c := range s.clients {
		c.SendJSON(msg)
	}
}

// Broadcast sends a JSON envelope to all attached sockets
func (s *Sim) Broadcast(msg Envelope) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.broadcastMsg(msg)
}
