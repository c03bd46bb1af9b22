package portal

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"billpay-sim/internal/handoff"
)

// Session is the typed per-user flow state. Everything that would
// otherwise be ambient page state (the in-flight flag, the outstanding
// handoff) lives here and is passed to operations explicitly.
type Session struct {
	ID        string
	Handoff   *handoff.Session
	CreatedAt time.Time

	mu         sync.Mutex
	processing bool
	lastSeen   time.Time
}

// TryBeginProcessing sets the in-flight flag. It returns false when a
// payment is already being processed for this session; the caller must
// reject the second submission.
func (s *Session) TryBeginProcessing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.processing {
		return false
	}
	s.processing = true
	return true
}

// EndProcessing clears the in-flight flag.
func (s *Session) EndProcessing() {
	s.mu.Lock()
	s.processing = false
	s.mu.Unlock()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) seen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// SessionManager owns the live sessions and ages out abandoned ones.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	channel  handoff.TransferChannel
	maxAge   time.Duration
	verbose  bool
}

// NewSessionManager creates a session manager over a transfer channel.
func NewSessionManager(channel handoff.TransferChannel, maxAge time.Duration, verbose bool) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		channel:  channel,
		maxAge:   maxAge,
		verbose:  verbose,
	}
}

// GetOrCreate returns the session for an id, creating a fresh one when
// the id is empty or unknown.
func (m *SessionManager) GetOrCreate(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id != "" {
		if s, exists := m.sessions[id]; exists {
			s.touch()
			return s
		}
	}

	s := &Session{
		ID:        uuid.NewString(),
		Handoff:   handoff.NewSession(m.channel, m.verbose),
		CreatedAt: time.Now(),
	}
	s.touch()
	m.sessions[s.ID] = s

	if m.verbose {
		log.Printf("[SESSION] Created session %s", s.ID)
	}
	return s
}

// FindByTxn locates the session whose handoff is awaiting the given
// transaction, for return transfers that arrive without a session
// cookie.
func (m *SessionManager) FindByTxn(txnID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.sessions {
		if intent := s.Handoff.Outstanding(); intent != nil && intent.TxnID == txnID {
			return s
		}
	}
	return nil
}

// Cleanup removes sessions idle longer than the configured max age.
func (m *SessionManager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-m.maxAge)
	for id, s := range m.sessions {
		if s.seen().Before(cutoff) {
			delete(m.sessions, id)
			if m.verbose {
				log.Printf("[SESSION] Session expired and removed: %s", id)
			}
		}
	}
}

// StartCleanupRoutine starts a background routine that ages out idle
// sessions.
func (m *SessionManager) StartCleanupRoutine(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			m.Cleanup()
		}
	}()
}
