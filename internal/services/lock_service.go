package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrLockHeld is returned when another delivery of the same transaction is
// already being processed.
var ErrLockHeld = fmt.Errorf("lock already held")

const lockTTL = 30 * time.Second

// LockService serializes processing per upstream transaction id so two
// concurrent deliveries of the same deposit cannot interleave their
// delete-and-reinsert posting. Redis backs the lock when available; a
// process-local keyed mutex covers single-instance deployments running
// without Redis.
type LockService struct {
	redis *redis.Client

	mu    sync.Mutex
	local map[string]bool
}

func NewLockService(redisClient *redis.Client) *LockService {
	return &LockService{redis: redisClient, local: make(map[string]bool)}
}

// Acquire takes the lock for key, returning a release func on success and
// ErrLockHeld when a concurrent holder exists. The Redis lock expires after
// a TTL so a crashed holder cannot wedge the key forever.
func (ls *LockService) Acquire(ctx context.Context, key string) (func(), error) {
	if ls.redis != nil {
		ok, err := ls.redis.SetNX(ctx, key, "1", lockTTL).Result()
		if err != nil {
			// Redis being down should not stop ingestion; degrade to the
			// local lock and keep going.
			log.Printf("[LOCK] WARNING: redis unavailable, using local lock for %s: %v", key, err)
			return ls.acquireLocal(key)
		}
		if !ok {
			return nil, ErrLockHeld
		}
		return func() {
			if err := ls.redis.Del(context.Background(), key).Err(); err != nil {
				log.Printf("[LOCK] WARNING: failed to release %s: %v", key, err)
			}
		}, nil
	}
	return ls.acquireLocal(key)
}

func (ls *LockService) acquireLocal(key string) (func(), error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.local[key] {
		return nil, ErrLockHeld
	}
	ls.local[key] = true
	return func() {
		ls.mu.Lock()
		defer ls.mu.Unlock()
		delete(ls.local, key)
	}, nil
}
