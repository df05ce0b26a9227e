// Package kv provides the small key/value string storage the fallback backend
// and the capability flags live in. Every store enforces a fixed byte quota.
package kv

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/starford/flownote/internal/apperr"
)

// DefaultQuota mirrors the usual browser local storage allowance.
const DefaultQuota int64 = 5 << 20

// Store is a flat string key/value store.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, failing with apperr.ErrQuotaExceeded when
	// the store would grow past its quota.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists keys starting with prefix in lexical order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Usage returns the number of bytes currently stored.
	Usage(ctx context.Context) (int64, error)
	Close() error
}

func entrySize(key, value string) int64 {
	return int64(len(key) + len(value))
}

func quotaError(key string, used, want, quota int64) error {
	return fmt.Errorf("kv: set %s: %d+%d bytes over %d: %w", key, used, want, quota, apperr.ErrQuotaExceeded)
}

// BuildFromDSN opens a store from a DSN:
//
//	memory                          in-process map
//	path | file:path | sqlite:path  SQLite database file
//	redis://host:port/db[?namespace=hash]  Redis hash
//
// An empty dsn is rejected; callers resolve their default first.
func BuildFromDSN(dsn string, quota int64) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	if quota <= 0 {
		quota = DefaultQuota
	}
	if dsn == "" {
		return nil, fmt.Errorf("kv: empty dsn: %w", apperr.ErrInvalidInput)
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("kv: parse dsn: %w", err)
	}
	scheme := strings.ToLower(strings.TrimSpace(parsed.Scheme))
	switch scheme {
	case "memory", "mem", "inmem":
		return NewMemory(quota), nil
	case "", "file", "sqlite", "sqlite3":
		path, err := dsnPath(parsed, dsn)
		if err != nil {
			return nil, err
		}
		return OpenSQLite(path, quota)
	case "redis", "rediss":
		// go-redis rejects unknown options, so namespace is taken out first.
		q := parsed.Query()
		namespace := q.Get("namespace")
		q.Del("namespace")
		parsed.RawQuery = q.Encode()
		opts, err := redis.ParseURL(parsed.String())
		if err != nil {
			return nil, fmt.Errorf("kv: parse redis dsn: %w", err)
		}
		return NewRedis(redis.NewClient(opts), namespace, quota), nil
	case "postgres", "postgresql", "mysql":
		return nil, fmt.Errorf("%w: kv backend %s", apperr.ErrNotImplemented, scheme)
	default:
		return nil, fmt.Errorf("kv: unsupported dsn scheme: %s", scheme)
	}
}

func dsnPath(parsed *url.URL, raw string) (string, error) {
	if parsed.Scheme == "" {
		return strings.TrimSpace(raw), nil
	}
	path := parsed.Opaque
	if path == "" {
		path = parsed.Host + parsed.Path
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("kv: dsn %q has no path: %w", raw, apperr.ErrInvalidInput)
	}
	return path, nil
}
