package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/paleolab/internal/common"
	"github.com/dmitrijs2005/paleolab/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "paleolab:session:"
	userKeyPrefix    = "paleolab:user-sessions:"
)

// RedisRepository keeps each session under its own key with a TTL equal to
// the remaining lifetime, plus a per-user set of session ids for revocation.
type RedisRepository struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisRepository(rdb *redis.Client) *RedisRepository {
	return &RedisRepository{rdb: rdb, now: time.Now}
}

func sessionKey(id string) string { return sessionKeyPrefix + id }
func userKey(userID int64) string { return userKeyPrefix + strconv.FormatInt(userID, 10) }
func wrapRedis(err error) error {
	return fmt.Errorf("redis error: %w: %w", common.ErrorStoreUnavailable, err)
}

func (r *RedisRepository) Create(ctx context.Context, s *models.Session) error {
	now := r.now()
	ttl := s.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", s.ID)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}

	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, sessionKey(s.ID), payload, ttl)
		p.SAdd(ctx, userKey(s.UserID), s.ID)
		p.Expire(ctx, userKey(s.UserID), ttl)
		return nil
	})
	if err != nil {
		return wrapRedis(err)
	}
	return nil
}

func (r *RedisRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	payload, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrorNotFound
		}
		return nil, wrapRedis(err)
	}

	s := &models.Session{}
	if err := json.Unmarshal(payload, s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return s, nil
}

func (r *RedisRepository) Delete(ctx context.Context, id string) error {
	s, err := r.Get(ctx, id)
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, sessionKey(id))
		p.SRem(ctx, userKey(s.UserID), id)
		return nil
	})
	if err != nil {
		return wrapRedis(err)
	}
	return nil
}

func (r *RedisRepository) DeleteByUser(ctx context.Context, userID int64) error {
	ids, err := r.rdb.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return wrapRedis(err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, userKey(userID))

	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return wrapRedis(err)
	}
	return nil
}
