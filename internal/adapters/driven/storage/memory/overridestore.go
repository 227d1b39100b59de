package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
	"github.com/custodia-labs/rfpkb/internal/core/ports/driven"
)

// Ensure OverrideStore implements the interface.
var _ driven.OverrideStore = (*OverrideStore)(nil)

// OverrideStore holds session answer overrides in process memory.
//
// Overrides live only as long as the process and are not shared between
// instances. Expired entries are removed lazily on access.
type OverrideStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]map[string]domain.AnswerOverride
}

// NewOverrideStore creates a store whose overrides expire after ttl unless
// they carry their own expiry. A non-positive ttl never expires them.
func NewOverrideStore(ttl time.Duration) *OverrideStore {
	return &OverrideStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]map[string]domain.AnswerOverride),
	}
}

// Get returns the live override for key within a session.
func (s *OverrideStore) Get(_ context.Context, sessionID, key string) (*domain.AnswerOverride, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	override, ok := session[key]
	if !ok {
		return nil, false
	}
	if s.expired(override) {
		delete(session, key)
		if len(session) == 0 {
			delete(s.sessions, sessionID)
		}
		return nil, false
	}
	return &override, true
}

// Put stores an override, replacing any previous one for the same key.
func (s *OverrideStore) Put(_ context.Context, key string, override domain.AnswerOverride) error {
	if override.SessionID == "" || key == "" {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if override.ExpiresAt.IsZero() && s.ttl > 0 {
		override.ExpiresAt = s.now().Add(s.ttl)
	}
	session, ok := s.sessions[override.SessionID]
	if !ok {
		session = make(map[string]domain.AnswerOverride)
		s.sessions[override.SessionID] = session
	}
	session[key] = override
	return nil
}

// Clear removes every override for a session.
func (s *OverrideStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Sweep drops every expired override and returns how many were removed.
func (s *OverrideStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for sessionID, session := range s.sessions {
		for key, override := range session {
			if s.expired(override) {
				delete(session, key)
				removed++
			}
		}
		if len(session) == 0 {
			delete(s.sessions, sessionID)
		}
	}
	return removed
}

// expired must be called with mu held.
func (s *OverrideStore) expired(o domain.AnswerOverride) bool {
	return !o.ExpiresAt.IsZero() && !s.now().Before(o.ExpiresAt)
}
