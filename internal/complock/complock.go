// Package complock serializes comparison-cache transitions per RFP key so
// concurrent compare requests cannot both observe a stale cache and both
// recompute. The local locker covers a single process; the redis locker
// covers multiple replicas sharing one database.
package complock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bryceadler/procurehub-backend/internal/logger"
	"github.com/bryceadler/procurehub-backend/internal/utils"
)

type Locker interface {
	// Lock blocks until the key is held or ctx expires. The returned func
	// releases the key.
	Lock(ctx context.Context, key string) (func(), error)
}

// New selects the locker once at construction: redis when REDIS_ADDR is
// configured, in-process otherwise.
func New(log *logger.Logger) Locker {
	addr := utils.GetEnv("REDIS_ADDR", "", log)
	if addr == "" {
		return NewLocalLocker()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: utils.GetEnv("REDIS_PASSWORD", "", nil),
	})
	log.Info("Using redis comparison lock", "addr", addr)
	return &redisLocker{
		log:    log.With("client", "RedisLocker"),
		client: client,
		ttl:    time.Duration(utils.GetEnvAsInt("COMPARISON_LOCK_TTL_SECONDS", 120, log)) * time.Second,
	}
}

type localLocker struct {
	mu    sync.Mutex
	locks map[string]*localEntry
}

type localEntry struct {
	mu   sync.Mutex
	refs int
}

func NewLocalLocker() Locker {
	return &localLocker{locks: make(map[string]*localEntry)}
}

func (l *localLocker) Lock(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &localEntry{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	release := func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
	return release, nil
}

type redisLocker struct {
	log    *logger.Logger
	client *redis.Client
	ttl    time.Duration
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func (l *redisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := "complock:" + key
	token := fmt.Sprintf("%d", time.Now().UnixNano())

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", lockKey, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{lockKey}, token).Err(); err != nil && err != redis.Nil {
			l.log.Warn("Failed to release comparison lock", "key", lockKey, "error", err)
		}
	}
	return release, nil
}
