package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// MemoryState is the cached slice of session state the chat workflow reads on
// every turn: the standing summary and the assistant-turn counter.
type MemoryState struct {
	Summary           string
	TurnsSinceSummary int
}

// MemoryStateCache keeps per-session memory state out of the hot path.
// Entries are invalidated on every write that touches summary or counter.
//
// The cache is per-process, so it is only safe while this process is the only
// writer. In multi-replica deployments (Redis session leases) another replica
// can commit a turn without this process seeing the invalidation; sharedMode
// disables caching entirely there, forcing every read back to the session row.
type MemoryStateCache struct {
	cache      *cache.Cache
	sharedMode bool
}

func NewMemoryStateCache(sharedMode bool) *MemoryStateCache {
	// Default expiration of 1 hour, purge sweep every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &MemoryStateCache{
		cache:      c,
		sharedMode: sharedMode,
	}
}

func (r *MemoryStateCache) Save(sessionId uuid.UUID, state *MemoryState) {
	if r.sharedMode {
		return
	}
	r.cache.Set(sessionId.String(), state, cache.DefaultExpiration)
}

func (r *MemoryStateCache) Get(sessionId uuid.UUID) (*MemoryState, bool) {
	if r.sharedMode {
		return nil, false
	}
	if x, found := r.cache.Get(sessionId.String()); found {
		return x.(*MemoryState), true
	}
	return nil, false
}

func (r *MemoryStateCache) Invalidate(sessionId uuid.UUID) {
	r.cache.Delete(sessionId.String())
}
