package sessionlock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Registry serializes chat turns per session. Turn commits must observe
// strictly increasing sequence numbers, so at most one request may be
// in flight per session; a second request blocks until the first finishes.
//
// The in-process mutex covers a single replica. When a Redis client is
// supplied, a SET NX lease is layered on top so multiple replicas cannot
// interleave commits for the same session either.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry

	rdb      *redis.Client
	leaseTTL time.Duration
}

type entry struct {
	lock sync.Mutex
	refs int
}

const (
	defaultLeaseTTL = 30 * time.Second
	leaseRetryEvery = 50 * time.Millisecond
)

// Lua compare-and-delete so a replica only releases its own lease.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRegistry(rdb *redis.Client) *Registry {
	return &Registry{
		entries:  make(map[string]*entry),
		rdb:      rdb,
		leaseTTL: defaultLeaseTTL,
	}
}

// Acquire blocks until the session lock is held or the context expires.
// The returned release function must be called exactly once.
func (r *Registry) Acquire(ctx context.Context, sessionId uuid.UUID) (func(), error) {
	key := sessionId.String()

	e := r.retain(key)
	e.lock.Lock()

	releaseLocal := func() {
		e.lock.Unlock()
		r.drop(key)
	}

	if r.rdb == nil {
		return releaseLocal, nil
	}

	token := uuid.NewString()
	if err := r.acquireLease(ctx, key, token); err != nil {
		releaseLocal()
		return nil, err
	}

	return func() {
		// Best effort: the lease expires on its own if the delete fails.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, r.rdb, []string{leaseKey(key)}, token).Err()
		releaseLocal()
	}, nil
}

func (r *Registry) acquireLease(ctx context.Context, key, token string) error {
	for {
		ok, err := r.rdb.SetNX(ctx, leaseKey(key), token, r.leaseTTL).Result()
		if err != nil {
			return fmt.Errorf("session lease: %w", err)
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("session lease: %w", ctx.Err())
		case <-time.After(leaseRetryEvery):
		}
	}
}

func (r *Registry) retain(key string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry{}
		r.entries[key] = e
	}
	e.refs++
	return e
}

func (r *Registry) drop(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(r.entries, key)
	}
}

func leaseKey(key string) string {
	return "chat:session_lock:" + key
}
