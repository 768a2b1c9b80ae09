// Package session parks reconciliation results between the upload and the
// confirmation requests.
//
// Results are serialized to Redis under an opaque token that the client
// re-submits when confirming an action, so any instance can serve the
// confirmation without server-side session stickiness.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kwei/leadsync/internal/recon"
)

// ErrNotFound is returned when a token is unknown or has expired.
var ErrNotFound = errors.New("no reconciliation found for token")

// DefaultTTL bounds how long an unconfirmed reconciliation is kept.
const DefaultTTL = 30 * time.Minute

// claimTTL bounds how long a confirmation action can hold its in-flight
// claim before it is assumed dead.
const claimTTL = 2 * time.Minute

// Store is the Redis-backed reconciliation state store.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a Store. A non-positive ttl falls back to DefaultTTL.
func New(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func key(token string) string { return "leadsync:recon:" + token }

func claimKey(token, action string) string {
	return "leadsync:claim:" + token + ":" + action
}

// Put stores a result and returns the opaque token the client re-submits on
// confirmation.
func (s *Store) Put(ctx context.Context, res *recon.Result) (string, error) {
	payload, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("encode reconciliation: %w", err)
	}

	token := uuid.NewString()
	if err := s.rdb.Set(ctx, key(token), payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store reconciliation: %w", err)
	}
	return token, nil
}

// Get loads the result for a token. ErrNotFound when the token is unknown or
// expired.
func (s *Store) Get(ctx context.Context, token string) (*recon.Result, error) {
	payload, err := s.rdb.Get(ctx, key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load reconciliation: %w", err)
	}

	var res recon.Result
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, fmt.Errorf("decode reconciliation: %w", err)
	}
	return &res, nil
}

// Touch refreshes the TTL so a retry after a failed confirmation does not
// race expiry.
func (s *Store) Touch(ctx context.Context, token string) error {
	return s.rdb.Expire(ctx, key(token), s.ttl).Err()
}

// Claim marks a confirmation action in flight for the token. It returns
// false when the same action for the same token is already running, keeping
// each action at-most-once-in-flight per reconciliation.
func (s *Store) Claim(ctx context.Context, token, action string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, claimKey(token, action), "1", claimTTL).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s for token: %w", action, err)
	}
	return ok, nil
}

// ReleaseClaim clears an in-flight claim once the action completes.
func (s *Store) ReleaseClaim(ctx context.Context, token, action string) error {
	return s.rdb.Del(ctx, claimKey(token, action)).Err()
}
