package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when a reset record is absent or has expired.
var ErrNotFound = errors.New("session: not found")

// Stage is the password-reset state machine position. Each flow step checks
// the stage it requires and advances it, so a caller can never skip ahead.
type Stage string

const (
	StageCodeSent     Stage = "code_sent"
	StageCodeVerified Stage = "code_verified"
)

// PasswordReset is the short-lived state of one reset flow, keyed by an
// opaque token handed to the client.
type PasswordReset struct {
	Username    string `json:"username"`
	PhoneNumber string `json:"phone_number"`
	Code        string `json:"code"`
	Stage       Stage  `json:"stage"`
}

// Store holds password-reset state with TTL expiry.
type Store interface {
	Put(ctx context.Context, token string, state *PasswordReset, ttl time.Duration) error
	Get(ctx context.Context, token string) (*PasswordReset, error)
	Delete(ctx context.Context, token string) error
}

// NewToken mints an opaque reset token.
func NewToken() string {
	return uuid.NewString()
}

// RedisStore keeps reset state in Redis, one JSON value per token.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, token string, state *PasswordReset, ttl time.Duration) error {
	data, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "marshal reset state")
	}
	return errors.Wrap(s.client.Set(ctx, key(token), data, ttl).Err(), "set reset state")
}

func (s *RedisStore) Get(ctx context.Context, token string) (*PasswordReset, error) {
	data, err := s.client.Get(ctx, key(token)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get reset state")
	}
	var state PasswordReset
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, errors.Wrap(err, "unmarshal reset state")
	}
	return &state, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	return errors.Wrap(s.client.Del(ctx, key(token)).Err(), "delete reset state")
}

func key(token string) string {
	return "pwreset:" + token
}
