package main

import (
	"sync"
)

const maxSessions = 200

// Session is one live run that sockets can attach to
type Session struct {
	ID    string
	Level *Level
	Sim   *Sim
}

// SessionManager handles creation and lookup of run sessions
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionManager creates a new SessionManager
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
	}
}

// CreateSession starts a run on the given level. Returns nil if the
// session limit is reached.
func (sm *SessionManager) CreateSession(level *Level, speed float64, db *DB, analytics *Analytics) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= maxSessions {
		return nil
	}

	sess := &Session{
		ID:    GenerateUUID(),
		Level: level,
		Sim:   NewSim(level, speed, db, analytics),
	}
	sm.sessions[sess.ID] = sess
	go sess.Sim.Run()
	return sess
}

// GetSession returns a session by ID
func (sm *SessionManager) GetSession(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// DetachClient removes a socket from a session and tears the session down
// once nothing is attached to it
func (sm *SessionManager) DetachClient(sessionID, clientID string) {
	sm.mu.RLock()
	sess, ok := sm.sessions[sessionID]
	sm.mu.RUnlock()
	if !ok {
		return
	}
	sess.Sim.RemoveClient(clientID)

	if sess.Sim.ClientCount() == 0 {
		sess.Sim.Stop()
		sm.mu.Lock()
		delete(sm.sessions, sessionID)
		sm.mu.Unlock()
	}
}

// Count returns the number of live sessions
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}
