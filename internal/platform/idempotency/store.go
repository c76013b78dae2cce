package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"
)

// DefaultTTL is how long a completed draft order response can be replayed.
const DefaultTTL = 30 * time.Minute

// State is the outcome of reserving a key.
type State int

const (
	// StateNew means the caller owns the key and must process the request.
	StateNew State = iota
	// StateCompleted means a stored response must be replayed.
	StateCompleted
	// StatePending means another request holds the key.
	StatePending
)

// ErrFingerprintMismatch is returned when a key is reused for a different request.
var ErrFingerprintMismatch = errors.New("idempotency: key reused for a different request")

// Record is a reserved key and, once completed, its stored response.
type Record struct {
	Key         string
	Fingerprint string
	Completed   bool
	Response    Response
	ExpiresAt   time.Time
}

// Response is the replayable part of an HTTP response.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Store persists reservations and responses.
type Store interface {
	Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (State, Record, error)
	Complete(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error
	Release(ctx context.Context, key string) error
	CleanupExpired(ctx context.Context, now time.Time, limit int) (int, error)
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// replayableHeaders drops hop-by-hop and length headers before storage.
func replayableHeaders(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for name, values := range h {
		switch http.CanonicalHeaderKey(name) {
		case "Content-Length", "Date", "Connection", "Keep-Alive", "Transfer-Encoding", "Upgrade", "Trailer":
			continue
		}
		out[name] = append([]string(nil), values...)
	}
	return out
}
