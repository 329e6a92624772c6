package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/amsen20/leovnf/internal/model"
	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "NS|"

// RedisStore keeps each record as a JSON string under NS|<name>.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string, db int) *RedisStore {
	return NewRedisStoreForClient(redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	}))
}

func NewRedisStoreForClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (rs *RedisStore) Close() error {
	return rs.client.Close()
}

func (rs *RedisStore) Get(ctx context.Context, name string) (*model.NetworkService, error) {
	content, err := rs.client.Get(ctx, redisKeyPrefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNoRecord, name)
	}
	if err != nil {
		log.Err(err).Send()

		return nil, fmt.Errorf("could not read %s from redis: %w", name, err)
	}

	ns := &model.NetworkService{}
	if err := json.Unmarshal(content, ns); err != nil {
		return nil, fmt.Errorf("%w: record %s is malformed: %v", model.ErrConfig, name, err)
	}

	return ns, nil
}

func (rs *RedisStore) List(ctx context.Context) ([]string, error) {
	var cursor uint64
	var names []string
	for {
		batch, nextCursor, err := rs.client.Scan(ctx, cursor, redisKeyPrefix+"*", 100).Result()
		if err != nil {
			log.Err(err).Send()

			return nil, fmt.Errorf("could not list network services: %w", err)
		}
		for _, key := range batch {
			names = append(names, strings.TrimPrefix(key, redisKeyPrefix))
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	sort.Strings(names)

	return names, nil
}

func (rs *RedisStore) Put(ctx context.Context, ns *model.NetworkService) error {
	content, err := json.Marshal(ns)
	if err != nil {
		return fmt.Errorf("could not encode %s: %w", ns.Name, err)
	}

	if err := rs.client.Set(ctx, redisKeyPrefix+ns.Name, content, 0).Err(); err != nil {
		log.Err(err).Send()

		return fmt.Errorf("could not store %s in redis: %w", ns.Name, err)
	}

	return nil
}
