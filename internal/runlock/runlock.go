// Package runlock keeps two automation runs for the same tenant from
// overlapping. RedisLocker coordinates across replicas; LocalLocker covers
// single-process deployments.
package runlock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLost reports that a lease expired and the lock now belongs to someone
// else (or nobody).
var ErrLost = errors.New("runlock: lease lost")

// Locker acquires named, expiring locks. ok=false means another holder
// owns the lock. The lease is non-nil only when ok is true.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (lease Lease, ok bool, err error)
}

// Lease is a held lock. Extend pushes the expiry to ttl from now and
// returns ErrLost once the hold has been taken over. Release is idempotent
// and never drops a hold that belongs to another owner.
type Lease interface {
	Extend(ctx context.Context, ttl time.Duration) error
	Release()
}

// RedisLocker implements Locker with SET NX PX and an owner token.
type RedisLocker struct {
	c      *redis.Client
	prefix string
}

// NewRedisLocker wraps c. Keys are stored under prefix.
func NewRedisLocker(c *redis.Client, prefix string) *RedisLocker {
	return &RedisLocker{c: c, prefix: prefix}
}

// Deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Resets the TTL only while the key still holds our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, bool, error) {
	full := l.prefix + key
	token := uuid.NewString()
	ok, err := l.c.SetNX(ctx, full, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	return &redisLease{c: l.c, key: full, token: token}, true, nil
}

// Close closes the underlying client.
func (l *RedisLocker) Close() error { return l.c.Close() }

type redisLease struct {
	c     *redis.Client
	key   string
	token string
}

func (r *redisLease) Extend(ctx context.Context, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, r.c, []string{r.key}, r.token, ttl.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLost
	}
	return nil
}

func (r *redisLease) Release() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = releaseScript.Run(ctx, r.c, []string{r.key}, r.token).Err()
}

// LocalLocker implements Locker in memory.
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]localHold
	seq   uint64
	nowFn func() time.Time
}

type localHold struct {
	token   uint64
	expires time.Time
}

// NewLocalLocker returns an empty LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: map[string]localHold{}, nowFn: time.Now}
}

func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (Lease, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFn()
	if h, ok := l.held[key]; ok && now.Before(h.expires) {
		return nil, false, nil
	}
	l.seq++
	l.held[key] = localHold{token: l.seq, expires: now.Add(ttl)}
	return &localLease{l: l, key: key, token: l.seq}, true, nil
}

type localLease struct {
	l     *LocalLocker
	key   string
	token uint64
}

func (h *localLease) Extend(_ context.Context, ttl time.Duration) error {
	h.l.mu.Lock()
	defer h.l.mu.Unlock()

	now := h.l.nowFn()
	cur, ok := h.l.held[h.key]
	if !ok || cur.token != h.token || !now.Before(cur.expires) {
		return ErrLost
	}
	cur.expires = now.Add(ttl)
	h.l.held[h.key] = cur
	return nil
}

func (h *localLease) Release() {
	h.l.mu.Lock()
	defer h.l.mu.Unlock()
	if cur, ok := h.l.held[h.key]; ok && cur.token == h.token {
		delete(h.l.held, h.key)
	}
}
