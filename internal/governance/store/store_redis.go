package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"aegis/internal/governance/models"
	id "aegis/pkg/domain"
	"aegis/pkg/platform/sentinel"
)

const (
	instanceKeyPrefix = "aegis:governance:instance:"
	// directoryKey is a sorted set of instance ids scored by creation time.
	directoryKey = "aegis:governance:instances"

	defaultMaxRetries = 16
)

// RedisStore keeps each instance as one JSON document. Execute uses WATCH/MULTI so a
// concurrent writer on the same instance forces a retry instead of a lost update.
type RedisStore struct {
	client     *redis.Client
	maxRetries int
}

type RedisOption func(*RedisStore)

// WithMaxRetries bounds optimistic retries before Execute reports a conflict.
func WithMaxRetries(n int) RedisOption {
	return func(s *RedisStore) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, maxRetries: defaultMaxRetries}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func instanceKey(instanceID id.InstanceID) string {
	return instanceKeyPrefix + instanceID.String()
}

func (s *RedisStore) Create(ctx context.Context, instance *models.Instance) error {
	payload, err := json.Marshal(instance)
	if err != nil {
		return fmt.Errorf("marshal instance: %w", err)
	}
	created, err := s.client.SetNX(ctx, instanceKey(instance.ID), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	if !created {
		return sentinel.ErrConflict
	}
	err = s.client.ZAdd(ctx, directoryKey, redis.Z{
		Score:  float64(instance.CreatedAt.UnixNano()),
		Member: instance.ID.String(),
	}).Err()
	if err != nil {
		return fmt.Errorf("index instance: %w", err)
	}
	return nil
}

func decodeInstance(raw []byte) (*models.Instance, error) {
	var instance models.Instance
	if err := json.Unmarshal(raw, &instance); err != nil {
		return nil, fmt.Errorf("decode instance: %w", err)
	}
	return &instance, nil
}

func (s *RedisStore) Get(ctx context.Context, instanceID id.InstanceID) (*models.Instance, error) {
	raw, err := s.client.Get(ctx, instanceKey(instanceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get instance: %w", err)
	}
	return decodeInstance(raw)
}

// List returns instances oldest first. Ids whose document vanished are skipped.
func (s *RedisStore) List(ctx context.Context) ([]*models.Instance, error) {
	ids, err := s.client.ZRange(ctx, directoryKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list instance ids: %w", err)
	}
	out := make([]*models.Instance, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, raw := range ids {
		keys[i] = instanceKeyPrefix + raw
	}
	docs, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load instances: %w", err)
	}
	for _, doc := range docs {
		str, ok := doc.(string)
		if !ok {
			continue
		}
		instance, err := decodeInstance([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, instance)
	}
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, instanceID id.InstanceID) error {
	var deleted *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, instanceKey(instanceID))
		pipe.ZRem(ctx, directoryKey, instanceID.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete instance: %w", err)
	}
	if deleted.Val() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *RedisStore) Execute(ctx context.Context, instanceID id.InstanceID, validate func(*models.Instance) error, mutate func(*models.Instance)) (*models.Instance, error) {
	key := instanceKey(instanceID)
	var result *models.Instance

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get instance: %w", err)
		}
		instance, err := decodeInstance(raw)
		if err != nil {
			return err
		}
		if validate != nil {
			if err := validate(instance); err != nil {
				return err
			}
		}
		mutate(instance)
		payload, err := json.Marshal(instance)
		if err != nil {
			return fmt.Errorf("marshal instance: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err != nil {
			return err
		}
		result = instance
		return nil
	}

	for range s.maxRetries {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, fmt.Errorf("execute on instance %s: %w", instanceID, sentinel.ErrConflict)
}
