package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/emioop/vallyfab-api/internal/redisx"
)

var ErrNoSession = errors.New("no session")

// Identity is what the rest of the API knows about a logged-in caller.
type Identity struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Sessions stores bearer tokens in Redis with a sliding TTL.
type Sessions struct{ Redis *redis.Client }

func (s *Sessions) Issue(ctx context.Context, u User) (string, error) {
	token := uuid.NewString()
	b, _ := json.Marshal(Identity{UserID: u.ID, Role: u.Role})
	key := fmt.Sprintf(redisx.KeySession, token)
	if err := s.Redis.Set(ctx, key, b, redisx.TTLSession).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Sessions) Lookup(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrNoSession
	}
	key := fmt.Sprintf(redisx.KeySession, token)
	b, err := s.Redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Identity{}, ErrNoSession
	}
	if err != nil {
		return Identity{}, err
	}
	var id Identity
	if err := json.Unmarshal(b, &id); err != nil {
		return Identity{}, err
	}
	_ = s.Redis.Expire(ctx, key, redisx.TTLSession).Err()
	return id, nil
}

func (s *Sessions) Revoke(ctx context.Context, token string) error {
	return s.Redis.Del(ctx, fmt.Sprintf(redisx.KeySession, token)).Err()
}
