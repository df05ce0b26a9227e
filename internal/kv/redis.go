package kv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

const defaultRedisNamespace = "flownote:kv"

// Redis is a Store kept in one Redis hash.
type Redis struct {
	client *redis.Client
	hash   string
	quota  int64
}

// NewRedis wraps client. Keys live in the hash named namespace.
func NewRedis(client *redis.Client, namespace string, quota int64) *Redis {
	if strings.TrimSpace(namespace) == "" {
		namespace = defaultRedisNamespace
	}
	if quota <= 0 {
		quota = DefaultQuota
	}
	return &Redis{client: client, hash: namespace, quota: quota}
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.HGet(ctx, r.hash, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv: redis get %s: %w", key, err)
	}
	return v, true, nil
}

// Set implements Store.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	all, err := r.client.HGetAll(ctx, r.hash).Result()
	if err != nil {
		return fmt.Errorf("kv: redis usage: %w", err)
	}
	var used int64
	for k, v := range all {
		if k != key {
			used += entrySize(k, v)
		}
	}
	if want := entrySize(key, value); used+want > r.quota {
		return quotaError(key, used, want, r.quota)
	}
	if err := r.client.HSet(ctx, r.hash, key, value).Err(); err != nil {
		return fmt.Errorf("kv: redis set %s: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.HDel(ctx, r.hash, key).Err(); err != nil {
		return fmt.Errorf("kv: redis delete %s: %w", key, err)
	}
	return nil
}

// Keys implements Store.
func (r *Redis) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := r.client.HKeys(ctx, r.hash).Result()
	if err != nil {
		return nil, fmt.Errorf("kv: redis keys: %w", err)
	}
	out := keys[:0]
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Usage implements Store.
func (r *Redis) Usage(ctx context.Context) (int64, error) {
	all, err := r.client.HGetAll(ctx, r.hash).Result()
	if err != nil {
		return 0, fmt.Errorf("kv: redis usage: %w", err)
	}
	var used int64
	for k, v := range all {
		used += entrySize(k, v)
	}
	return used, nil
}

// Close implements Store.
func (r *Redis) Close() error {
	return r.client.Close()
}
