package reveal

import (
	"sync"
	"time"
)

const (
	sessionCleanupInterval = 5 * time.Minute
	sessionIdleTimeout     = 30 * time.Minute
)

// Session is the report display of one user.
type Session struct {
	Controller *Controller
	Panel      *Panel

	mu       sync.Mutex
	ticket   uint64
	lastUsed time.Time
}

// NextTicket registers a new report request and returns its ticket. Any
// earlier ticket is superseded. The panel reports generating until the
// ticket is revealed or fails.
func (s *Session) NextTicket() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticket++
	s.Panel.Generating()
	return s.ticket
}

// Reveal starts revealing text if ticket is still the latest one. It
// reports false for superseded tickets and leaves the display untouched.
func (s *Session) Reveal(ticket uint64, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket != s.ticket {
		return false
	}
	s.Controller.Start(text)
	return true
}

// Fail ends the generating phase of ticket. Superseded tickets are
// ignored; the newer request still owns the panel.
func (s *Session) Fail(ticket uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket == s.ticket {
		s.Panel.Failed()
	}
}

// idle reports whether nothing uses the session: no reveal running, no
// report being generated and nobody watching.
func (s *Session) idle() bool {
	if s.Controller.State() == Revealing {
		return false
	}
	return s.Panel.unused()
}

// Sessions holds one Session per user id. Sessions left idle are dropped
// by a background cleanup until Close.
type Sessions struct {
	mu       sync.Mutex
	interval time.Duration
	byUser   map[string]*Session
	now      func() time.Time

	idleTimeout time.Duration
	stopCleanup chan struct{}
	closeOnce   sync.Once
}

func NewSessions(interval time.Duration) *Sessions {
	s := &Sessions{
		interval:    interval,
		byUser:      make(map[string]*Session),
		now:         time.Now,
		idleTimeout: sessionIdleTimeout,
		stopCleanup: make(chan struct{}),
	}
	go s.startCleanup(sessionCleanupInterval)
	return s
}

// Get returns the user's session, creating it on first use.
func (s *Sessions) Get(userID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byUser[userID]
	if !ok {
		panel := NewPanel()
		sess = &Session{Controller: NewController(panel, s.interval), Panel: panel}
		s.byUser[userID] = sess
	}
	sess.lastUsed = s.now()
	return sess
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byUser)
}

func (s *Sessions) startCleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.prune()
		case <-s.stopCleanup:
			return
		}
	}
}

// prune drops sessions unused for longer than the idle timeout.
func (s *Sessions) prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.idleTimeout)
	removed := 0
	for user, sess := range s.byUser {
		if sess.lastUsed.Before(cutoff) && sess.idle() {
			delete(s.byUser, user)
			removed++
		}
	}
	return removed
}

// Close stops the cleanup and every running reveal.
func (s *Sessions) Close() {
	s.closeOnce.Do(func() { close(s.stopCleanup) })

	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.byUser))
	for _, sess := range s.byUser {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Controller.Stop()
	}
}
