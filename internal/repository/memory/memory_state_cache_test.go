package memory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestLocalModeCachesAndInvalidates(t *testing.T) {
	c := NewMemoryStateCache(false)
	sessionId := uuid.New()

	_, found := c.Get(sessionId)
	assert.False(t, found)

	c.Save(sessionId, &MemoryState{Summary: "so far", TurnsSinceSummary: 2})

	state, found := c.Get(sessionId)
	if assert.True(t, found) {
		assert.Equal(t, "so far", state.Summary)
		assert.Equal(t, 2, state.TurnsSinceSummary)
	}

	c.Invalidate(sessionId)
	_, found = c.Get(sessionId)
	assert.False(t, found)
}

func TestSharedModeNeverServesCachedState(t *testing.T) {
	c := NewMemoryStateCache(true)
	sessionId := uuid.New()

	// Another replica could change the session row at any time; a Save here
	// must not make a later Get skip the database.
	c.Save(sessionId, &MemoryState{Summary: "stale", TurnsSinceSummary: 5})

	_, found := c.Get(sessionId)
	assert.False(t, found, "shared mode must force reads back to the session row")
}
