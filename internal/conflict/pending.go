package conflict

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/opsdesk/shiftdesk/backend/internal/domain"
	"github.com/redis/go-redis/v9"
)

type PendingStore interface {
	Save(ctx context.Context, p *domain.PendingOverride, ttl time.Duration) error
	// Update 覆盖已存在的记录并保留剩余的有效期，记录不存在时返回 ErrOverrideNotFound
	Update(ctx context.Context, p *domain.PendingOverride) error
	Get(ctx context.Context, id string) (*domain.PendingOverride, error)
	// Take 原子地取出并删除记录，保证一次授权只能被使用一次
	Take(ctx context.Context, id string) (*domain.PendingOverride, error)
	Delete(ctx context.Context, id string) error
}

const pendingKeyPrefix = "override:pending:"

type RedisStore struct {
	rdb     *redis.Client
	timeout time.Duration
}

func NewRedisStore(rdb *redis.Client, timeout time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, timeout: timeout}
}

func pendingKey(id string) string {
	return pendingKeyPrefix + id
}

func (s *RedisStore) Save(ctx context.Context, p *domain.PendingOverride, ttl time.Duration) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.rdb.Set(ctx, pendingKey(p.ID), raw, ttl).Err()
}

func (s *RedisStore) Update(ctx context.Context, p *domain.PendingOverride) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err = s.rdb.SetArgs(ctx, pendingKey(p.ID), raw, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if errors.Is(err, redis.Nil) {
		return domain.ErrOverrideNotFound
	}
	return err
}

func (s *RedisStore) Get(ctx context.Context, id string) (*domain.PendingOverride, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return decodePending(s.rdb.Get(ctx, pendingKey(id)).Bytes())
}

func (s *RedisStore) Take(ctx context.Context, id string) (*domain.PendingOverride, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return decodePending(s.rdb.GetDel(ctx, pendingKey(id)).Bytes())
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.rdb.Del(ctx, pendingKey(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrOverrideNotFound
	}
	return nil
}

func decodePending(raw []byte, err error) (*domain.PendingOverride, error) {
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrOverrideNotFound
		}
		return nil, err
	}

	p := &domain.PendingOverride{}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, err
	}
	return p, nil
}
