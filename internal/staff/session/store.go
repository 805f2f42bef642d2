package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ms-checkin/internal/models"
	"ms-checkin/internal/utils"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "staff_session:"

// Store keeps staff sessions in Redis. The key expires with the session, so
// a missing key and an expired session look the same.
type Store struct {
	Client *redis.Client
	TTL    time.Duration
	now    func() time.Time
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{Client: client, TTL: ttl, now: time.Now}
}

func key(id string) string {
	return keyPrefix + id
}

// Create stores sess under a fresh opaque id and fills its id and lifetime.
func (s *Store) Create(ctx context.Context, sess *models.StaffSession) (string, error) {
	now := s.now().UTC()
	sess.ID = utils.NewCheckinToken()
	sess.IssuedAt = now
	sess.ExpiresAt = now.Add(s.TTL)

	data, err := json.Marshal(sess)
	if err != nil {
		return "", fmt.Errorf("failed to marshal staff session: %w", err)
	}
	if err := s.Client.Set(ctx, key(sess.ID), data, s.TTL).Err(); err != nil {
		return "", fmt.Errorf("failed to store staff session: %w", err)
	}
	return sess.ID, nil
}

// Get returns nil when the session does not exist or has expired.
func (s *Store) Get(ctx context.Context, id string) (*models.StaffSession, error) {
	if id == "" {
		return nil, nil
	}
	data, err := s.Client.Get(ctx, key(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get staff session: %w", err)
	}

	var sess models.StaffSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal staff session: %w", err)
	}
	if !sess.ExpiresAt.IsZero() && !s.now().Before(sess.ExpiresAt) {
		return nil, nil
	}
	return &sess, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.Client.Del(ctx, key(id)).Err()
}
