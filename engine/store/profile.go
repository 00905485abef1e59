package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/exson6969/xplorer/engine/domain"
)

// SaveProfile validates and upserts a user's profile.
func (s *Store) SaveProfile(ctx context.Context, userID string, p domain.Profile) error {
	if err := domain.ValidateProfile(p); err != nil {
		return err
	}
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("store: marshal profile: %w", err)
	}
	if err := s.rdb.Set(ctx, profileKey(userID), b, 0).Err(); err != nil {
		return fmt.Errorf("store: save profile %s: %w", userID, err)
	}
	return nil
}

// GetProfile loads a user's profile. Returns ErrNotFound for unknown users.
func (s *Store) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	var p domain.Profile
	b, err := s.rdb.Get(ctx, profileKey(userID)).Bytes()
	if err == redis.Nil {
		return p, fmt.Errorf("store: profile %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return p, fmt.Errorf("store: get profile %s: %w", userID, err)
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("store: decode profile %s: %w", userID, err)
	}
	return p, nil
}

// DeleteProfile removes a user's stored profile. Returns ErrNotFound when no
// profile exists.
func (s *Store) DeleteProfile(ctx context.Context, userID string) error {
	n, err := s.rdb.Del(ctx, profileKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("store: delete profile %s: %w", userID, err)
	}
	if n == 0 {
		return fmt.Errorf("store: profile %s: %w", userID, ErrNotFound)
	}
	return nil
}

// HasProfile reports whether the user has completed profile setup.
func (s *Store) HasProfile(ctx context.Context, userID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, profileKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("store: check profile %s: %w", userID, err)
	}
	return n > 0, nil
}
