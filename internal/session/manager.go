// Package session implements shared-secret authentication and the
// session table. Sessions are opaque ids with a fixed lifetime decided
// at creation; revocation and expiry make a session dead, and dead
// sessions are reclaimed once nothing references them.
package session

import (
	"crypto/sha256"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MythologIQ/Hearthlink-CORE/internal/health"
	"github.com/MythologIQ/Hearthlink-CORE/pkg/types"
)

// session is one authenticated caller. Fields are guarded by the
// Manager's lock.
type session struct {
	id        string
	createdAt time.Time
	expiresAt time.Time
	revoked   bool
	refs      int
}

func (s *session) dead(now time.Time) bool {
	return s.revoked || now.After(s.expiresAt)
}

// Manager owns the session table. The configured token is kept only as
// a SHA-256 digest; presented tokens are hashed and compared in
// constant time.
type Manager struct {
	secret [sha256.Size]byte
	ttl    time.Duration
	met    *health.Metrics
	log    zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

func NewManager(secret string, ttl time.Duration, met *health.Metrics, log zerolog.Logger) *Manager {
	return &Manager{
		secret:   sha256.Sum256([]byte(secret)),
		ttl:      ttl,
		met:      met,
		log:      log.With().Str("component", "session").Logger(),
		sessions: make(map[string]*session),
	}
}

// Authenticate checks the presented token and mints a new session with
// one reference held by the caller. The session id is the only
// credential handed back.
func (m *Manager) Authenticate(token string) (string, error) {
	sum := sha256.Sum256([]byte(token))
	if subtle.ConstantTimeCompare(sum[:], m.secret[:]) != 1 {
		m.met.AuthFailure.Inc()
		m.log.Warn().Msg("authentication rejected")
		return "", types.ErrAuthFailed
	}

	now := time.Now()
	s := &session{
		id:        uuid.NewString(),
		createdAt: now,
		expiresAt: now.Add(m.ttl),
		refs:      1,
	}
	m.mu.Lock()
	m.sessions[s.id] = s
	active := len(m.sessions)
	m.mu.Unlock()

	m.met.AuthSuccess.Inc()
	m.met.SessionsActive.Set(float64(active))
	m.log.Debug().Str("session", s.id).Time("expires_at", s.expiresAt).Msg("session created")
	return s.id, nil
}

// Validate reports whether the session may be used right now. Expiry is
// recomputed against the clock on every call.
func (m *Manager) Validate(id string) error {
	m.mu.RLock()
	s, ok := m.sessions[id]
	var err error
	switch {
	case !ok:
		err = types.ErrSessionNotFound
	case s.dead(time.Now()):
		err = types.ErrSessionExpired
	}
	m.mu.RUnlock()

	if err != nil {
		m.met.SessionRejections.Inc()
	}
	return err
}

// Acquire validates the session and pins it for the duration of a
// request so it cannot be reclaimed underneath the caller. Must be
// paired with Release. Pinning does not defer expiry.
func (m *Manager) Acquire(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		m.met.SessionRejections.Inc()
		return types.ErrSessionNotFound
	}
	if s.dead(time.Now()) {
		m.met.SessionRejections.Inc()
		return types.ErrSessionExpired
	}
	s.refs++
	return nil
}

// Release drops one reference. Releasing an unknown session or
// releasing past zero is a safe no-op. A dead session is reclaimed when
// its last reference goes.
func (m *Manager) Release(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		if s.refs > 0 {
			s.refs--
		}
		if s.refs <= 0 && s.dead(time.Now()) {
			delete(m.sessions, id)
		}
	}
	active := len(m.sessions)
	m.mu.Unlock()

	if ok {
		m.met.SessionsActive.Set(float64(active))
	}
}

// Revoke marks a session dead immediately. In-flight work observes the
// revocation on its next validation; the entry itself lingers until its
// references drain so callers see "expired" rather than "not found".
func (m *Manager) Revoke(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return types.ErrSessionNotFound
	}
	s.revoked = true
	return nil
}

// RevokeAll marks every session dead. Used at shutdown.
func (m *Manager) RevokeAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if !s.revoked {
			s.revoked = true
			n++
		}
	}
	return n
}

// Sweep reclaims dead sessions with no outstanding references and
// returns how many were removed. The runtime calls it on a ticker.
func (m *Manager) Sweep() int {
	now := time.Now()
	m.mu.Lock()
	removed := 0
	for id, s := range m.sessions {
		if s.refs <= 0 && s.dead(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	active := len(m.sessions)
	m.mu.Unlock()

	m.met.SessionsActive.Set(float64(active))
	if removed > 0 {
		m.log.Debug().Int("removed", removed).Msg("swept dead sessions")
	}
	return removed
}

// Count is the current table size, dead-but-referenced entries included.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
