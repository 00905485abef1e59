// Package store persists user-facing documents in Redis: profiles,
// conversation history, and bookings. Values are stored as JSON blobs under
// user-scoped keys; conversation messages use Redis lists so history reads
// stay ordered without client-side sorting.
package store

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("store: not found")

// Store wraps the shared Redis client. One Store serves all document kinds.
type Store struct {
	rdb *redis.Client
}

// New connects to Redis at the given address.
func New(addr, password string, db int) *Store {
	return &Store{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

// NewWithClient wraps an existing client, for tests.
func NewWithClient(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func profileKey(userID string) string {
	return fmt.Sprintf("user:%s:profile", userID)
}

func convoKey(userID, convoID string) string {
	return fmt.Sprintf("user:%s:convo:%s", userID, convoID)
}

func convoMessagesKey(userID, convoID string) string {
	return fmt.Sprintf("user:%s:convo:%s:messages", userID, convoID)
}

func convoIndexKey(userID string) string {
	return fmt.Sprintf("user:%s:convos", userID)
}

func bookingsKey(userID, kind string) string {
	return fmt.Sprintf("user:%s:bookings:%s", userID, kind)
}
