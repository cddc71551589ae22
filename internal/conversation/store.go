// Package conversation keeps per-session chat histories in memory and
// evicts sessions that have been idle past a configurable timeout.
package conversation

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single immutable message in a conversation.
type Turn struct {
	Content   string    `json:"content"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

type conversationState struct {
	id         string
	sessionID  string
	history    []Turn
	lastAccess time.Time
}

// Store maps opaque session IDs to conversations. It is safe for
// concurrent use by request handlers and the background sweeper.
type Store struct {
	mu            sync.RWMutex
	sessions      map[string]string // session ID -> conversation ID
	conversations map[string]*conversationState

	sessionTimeout  time.Duration
	cleanupInterval time.Duration
	cleanupCooldown time.Duration

	now    func() time.Time
	logger *log.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// Option customizes a Store.
type Option func(*Store)

// WithClock substitutes the time source, which makes expiry deterministic
// in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCooldown overrides the pause taken after a failed sweep cycle.
func WithCooldown(d time.Duration) Option {
	return func(s *Store) { s.cleanupCooldown = d }
}

// NewStore creates a Store. The sweeper does not run until Start is called.
func NewStore(sessionTimeout, cleanupInterval time.Duration, logger *log.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = log.New(log.Writer(), "[CONV] ", log.LstdFlags)
	}
	s := &Store{
		sessions:        make(map[string]string),
		conversations:   make(map[string]*conversationState),
		sessionTimeout:  sessionTimeout,
		cleanupInterval: cleanupInterval,
		cleanupCooldown: time.Minute,
		now:             time.Now,
		logger:          logger,
		stop:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve returns the conversation ID for a session, creating an empty
// conversation on first use. Idempotent until the session expires.
func (s *Store) Resolve(sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked(sessionID)
}

func (s *Store) resolveLocked(sessionID string) string {
	if convID, ok := s.sessions[sessionID]; ok {
		return convID
	}
	convID := uuid.NewString()
	s.sessions[sessionID] = convID
	s.conversations[convID] = &conversationState{
		id:         convID,
		sessionID:  sessionID,
		lastAccess: s.now(),
	}
	s.logger.Printf("created conversation %s for session %s", shortID(convID), shortID(sessionID))
	return convID
}

// Append adds a turn to the session's conversation and refreshes its
// last-access time.
func (s *Store) Append(sessionID, content string, role Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	convID := s.resolveLocked(sessionID)
	conv := s.conversations[convID]
	conv.history = append(conv.history, Turn{
		Content:   content,
		Role:      role,
		Timestamp: s.now(),
	})
	conv.lastAccess = s.now()
}

// History returns a copy of the session's turns in append order.
func (s *Store) History(sessionID string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := s.conversations[s.resolveLocked(sessionID)]
	out := make([]Turn, len(conv.history))
	copy(out, conv.history)
	return out
}

// Has reports whether the session currently maps to a conversation,
// without creating one.
func (s *Store) Has(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[sessionID]
	return ok
}

// Len reports the number of live conversations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

// Start launches the background sweeper. Stop cancels it.
func (s *Store) Start() {
	go s.run()
}

// Stop terminates the sweeper. Safe to call more than once.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) run() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if err := s.sweep(); err != nil {
				s.logger.Printf("sweep failed: %v", err)
				select {
				case <-s.stop:
					return
				case <-time.After(s.cleanupCooldown):
				}
			}
		}
	}
}

// sweep removes every conversation idle past the session timeout.
func (s *Store) sweep() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweep panic: %v", r)
		}
	}()
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for convID, conv := range s.conversations {
		if now.Sub(conv.lastAccess) <= s.sessionTimeout {
			continue
		}
		delete(s.sessions, conv.sessionID)
		delete(s.conversations, convID)
		s.logger.Printf("evicted conversation %s", shortID(convID))
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
