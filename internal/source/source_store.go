package source

import (
	"sync"

	"recycle.ecomap.kr/internal/models"
)

// SourceStore is a thread-safe in-memory cache of validated datasets.
//
// Datasets are indexed by content fingerprint, and each source key (a file path,
// a URL, or the upload slot) points at the fingerprint it last loaded. A dataset
// is dropped once no key points at it, so the cache only changes when a source does.
type SourceStore struct {
	mu            sync.RWMutex
	byFingerprint map[string]*models.Dataset
	current       map[string]string // source key -> fingerprint
}

// NewStore initializes and returns a new, empty SourceStore.
func NewStore() *SourceStore {
	return &SourceStore{
		byFingerprint: make(map[string]*models.Dataset),
		current:       make(map[string]string),
	}
}

// Set records ds as the current dataset of key.
func (s *SourceStore) Set(key string, ds *models.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.current[key]
	s.byFingerprint[ds.Fingerprint] = ds
	s.current[key] = ds.Fingerprint

	if had && prev != ds.Fingerprint && !s.referencedLocked(prev) {
		delete(s.byFingerprint, prev)
	}
}

// Get returns the current dataset of key.
func (s *SourceStore) Get(key string) (*models.Dataset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fp, ok := s.current[key]
	if !ok {
		return nil, false
	}
	ds, ok := s.byFingerprint[fp]
	return ds, ok
}

// Lookup returns a cached dataset by fingerprint.
func (s *SourceStore) Lookup(fingerprint string) (*models.Dataset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.byFingerprint[fingerprint]
	return ds, ok
}

// Len returns the number of cached datasets.
func (s *SourceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byFingerprint)
}

func (s *SourceStore) referencedLocked(fingerprint string) bool {
	for _, fp := range s.current {
		if fp == fingerprint {
			return true
		}
	}
	return false
}
