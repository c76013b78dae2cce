package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in process. Kiosks talk to a single API instance, so the
// records do not need to be shared.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Reserve(_ context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (State, Record, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[key]
	if !ok || !now.Before(record.ExpiresAt) {
		record = Record{Key: key, Fingerprint: fingerprint, ExpiresAt: now.Add(ttl)}
		s.records[key] = record
		return StateNew, record, nil
	}
	if record.Fingerprint != fingerprint {
		return StateNew, Record{}, ErrFingerprintMismatch
	}
	if record.Completed {
		return StateCompleted, record, nil
	}
	return StatePending, record, nil
}

func (s *MemoryStore) Complete(_ context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[key]; ok && existing.Fingerprint != fingerprint {
		return ErrFingerprintMismatch
	}
	s.records[key] = Record{
		Key:         key,
		Fingerprint: fingerprint,
		Completed:   true,
		Response: Response{
			Status:  resp.Status,
			Headers: replayableHeaders(resp.Headers),
			Body:    append([]byte(nil), resp.Body...),
		},
		ExpiresAt: now.Add(ttl),
	}
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}

// CleanupExpired removes up to limit expired records. A limit of zero or less removes all.
func (s *MemoryStore) CleanupExpired(_ context.Context, now time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, record := range s.records {
		if limit > 0 && removed >= limit {
			break
		}
		if now.Before(record.ExpiresAt) {
			continue
		}
		delete(s.records, key)
		removed++
	}
	return removed, nil
}

// Len reports the number of live and expired records still held.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
