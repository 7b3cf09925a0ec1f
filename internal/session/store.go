package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("session not found")

// Identity is the authenticated principal bound to a session. It is threaded
// through the request context instead of living in any global state.
type Identity struct {
	UserID  int64
	Email   string
	IsAdmin bool
}

// Store keeps sessions in Redis. The session id handed to the client is an
// opaque UUID; Redis keys are derived from its hash so a leaked keyspace dump
// does not yield usable cookies. A per-user index set allows destroying every
// session of a user at once.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", hashID(id))
}

func userSessionsKey(userID int64) string {
	return fmt.Sprintf("user_sessions:%d", userID)
}

func hashID(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}

// Create stores a new session for the identity and returns its id.
func (s *Store) Create(ctx context.Context, ident Identity) (string, error) {
	id := uuid.NewString()
	key := sessionKey(id)
	userKey := userSessionsKey(ident.UserID)

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"user_id":    ident.UserID,
		"email":      ident.Email,
		"is_admin":   strconv.FormatBool(ident.IsAdmin),
		"created_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, key, s.ttl)
	pipe.SAdd(ctx, userKey, hashID(id))
	pipe.Expire(ctx, userKey, s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	return id, nil
}

// Get resolves a session id into its identity and slides the TTL forward.
func (s *Store) Get(ctx context.Context, id string) (*Identity, error) {
	key := sessionKey(id)

	data, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}

	userID, err := strconv.ParseInt(data["user_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt session payload: %w", err)
	}
	isAdmin, _ := strconv.ParseBool(data["is_admin"])

	pipe := s.client.Pipeline()
	pipe.Expire(ctx, key, s.ttl)
	pipe.Expire(ctx, userSessionsKey(userID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to refresh session TTL: %w", err)
	}

	return &Identity{
		UserID:  userID,
		Email:   data["email"],
		IsAdmin: isAdmin,
	}, nil
}

// Destroy removes a single session. Missing sessions are not an error so
// logout stays idempotent.
func (s *Store) Destroy(ctx context.Context, id string) error {
	key := sessionKey(id)

	userIDStr, err := s.client.HGet(ctx, key, "user_id").Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up session: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, key)
	if userID, perr := strconv.ParseInt(userIDStr, 10, 64); perr == nil {
		pipe.SRem(ctx, userSessionsKey(userID), hashID(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}

	return nil
}

// Regenerate issues a fresh session id for the identity and destroys the old
// session, mitigating session fixation across login and registration.
func (s *Store) Regenerate(ctx context.Context, oldID string, ident Identity) (string, error) {
	if oldID != "" {
		if err := s.Destroy(ctx, oldID); err != nil {
			return "", err
		}
	}
	return s.Create(ctx, ident)
}

// DestroyAllForUser removes every session belonging to the user.
func (s *Store) DestroyAllForUser(ctx context.Context, userID int64) error {
	userKey := userSessionsKey(userID)

	hashes, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("failed to get user sessions: %w", err)
	}

	pipe := s.client.Pipeline()
	for _, h := range hashes {
		pipe.Del(ctx, fmt.Sprintf("session:%s", h))
	}
	pipe.Del(ctx, userKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to destroy user sessions: %w", err)
	}

	return nil
}
