package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"recycle.ecomap.kr/internal/metrics"
	"recycle.ecomap.kr/internal/models"
	"recycle.ecomap.kr/internal/ranking"
)

var (
	ErrNotFound = errors.New("session not found")
	// ErrStaleUpdate is returned when a location update arrives after a newer one was applied.
	ErrStaleUpdate = errors.New("stale location update")
)

// Session holds the latest ranking rendered for one client.
//
// The first render uses the fallback point and has Sequence 0. Each live
// location replaces Result with a freshly computed one; results are never
// modified in place.
type Session struct {
	ID        uuid.UUID
	Landmark  string
	Sequence  int64
	Live      *models.Coordinate
	Result    *ranking.Result
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is a thread-safe in-memory session registry with idle expiry.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[uuid.UUID]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create registers a session whose first result was rendered from the fallback point.
func (s *Store) Create(landmark string, result *ranking.Result) Session {
	now := s.now()
	sess := &Session{
		ID:        uuid.New(),
		Landmark:  landmark,
		Result:    result,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return *sess
}

// Get returns a snapshot of the session.
func (s *Store) Get(id uuid.UUID) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Apply installs a result computed for a live location with client sequence seq.
// Only sequences greater than the last applied one are accepted, so a slow
// computation can never overwrite the result of a later location.
func (s *Store) Apply(id uuid.UUID, seq int64, live models.Coordinate, result *ranking.Result) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	if seq <= sess.Sequence {
		metrics.StaleSessionUpdates.Inc()
		return *sess, ErrStaleUpdate
	}

	sess.Sequence = seq
	sess.Live = &live
	sess.Result = result
	sess.UpdatedAt = s.now()
	return *sess, nil
}

// Sweep removes sessions idle since before now minus the store TTL and
// returns how many were removed.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.UpdatedAt) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// RunJanitor sweeps expired sessions every interval until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping session janitor")
			return
		case now := <-ticker.C:
			if n := s.Sweep(now); n > 0 {
				logger.Debug("Expired sessions removed", "count", n)
			}
		}
	}
}
