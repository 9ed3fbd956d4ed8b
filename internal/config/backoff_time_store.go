package config

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"
)

const (
	BASE_BACKOFF   = 1 * time.Second
	MAX_BACKOFF    = 2 * time.Minute
	BACKOFF_FACTOR = 2.0
	JITTER_FACTOR  = 0.5
)

// retryBaseDelay is the first wait of DoWithBackoff. Tests shorten it.
var retryBaseDelay = BASE_BACKOFF

type backoffData struct {
	BackoffDelay time.Duration
	NextRetryAt  time.Time
}

// BackoffStore remembers, per remote source, when the next fetch may be attempted.
type BackoffStore struct {
	mu       sync.RWMutex
	backoffs map[string]backoffData
}

func NewBackoffStore() *BackoffStore {
	return &BackoffStore{
		backoffs: make(map[string]backoffData),
	}
}

func (s *BackoffStore) NextRetryAt(key string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if backoff, exists := s.backoffs[key]; exists {
		return backoff.NextRetryAt.UTC(), true
	}
	return time.Time{}, false
}

// ShouldSkip reports whether key is still backing off at now.
func (s *BackoffStore) ShouldSkip(key string, now time.Time) bool {
	next, ok := s.NextRetryAt(key)
	return ok && now.Before(next)
}

func (s *BackoffStore) UpdateBackoff(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if backoff, exists := s.backoffs[key]; exists {
		backoff.BackoffDelay = calculateNewBackoffDelay(backoff.BackoffDelay)
		backoff.NextRetryAt = calculateNextRetryAt(backoff.BackoffDelay)
		s.backoffs[key] = backoff
	} else {
		s.backoffs[key] = backoffData{
			BackoffDelay: BASE_BACKOFF,
			NextRetryAt:  calculateNextRetryAt(BASE_BACKOFF),
		}
	}
}

func (s *BackoffStore) ResetBackoff(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.backoffs, key)
}

func calculateNextRetryAt(backoff time.Duration) time.Time {
	return time.Now().Add(withJitter(backoff)).UTC()
}

func withJitter(backoff time.Duration) time.Duration {
	jitter := time.Duration(rand.Float64() * float64(backoff) * JITTER_FACTOR)
	backoff += jitter
	if backoff > MAX_BACKOFF {
		backoff = MAX_BACKOFF
	}
	return backoff
}

func calculateNewBackoffDelay(backoffDelay time.Duration) time.Duration {
	backoffDelay *= BACKOFF_FACTOR
	if backoffDelay >= MAX_BACKOFF {
		backoffDelay = MAX_BACKOFF
	}
	return backoffDelay
}

// DoWithBackoff sends req, retrying transport errors and 5xx responses up to
// maxRetries times with exponential backoff and jitter.
//
// When the last attempt still gets a 5xx, that response is returned so callers can
// report the status. Only requests without a body are safe to pass here.
func DoWithBackoff(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	delay := retryBaseDelay
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := client.Do(req.Clone(ctx))
		if err == nil {
			if resp.StatusCode < http.StatusInternalServerError || attempt == maxRetries {
				return resp, nil
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
		} else {
			lastErr = err
		}

		if attempt == maxRetries {
			break
		}

		timer := time.NewTimer(withJitter(delay))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		delay = calculateNewBackoffDelay(delay)
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
