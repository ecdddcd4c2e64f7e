package sessionlock

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAcquireSerializesSameSession(t *testing.T) {
	r := NewRegistry(nil)
	sessionId := uuid.New()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := r.Acquire(context.Background(), sessionId)
			assert.NoError(t, err)
			// Unsynchronized increment: the race detector flags this if two
			// holders ever overlap.
			counter++
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestAcquireDifferentSessionsDoNotBlock(t *testing.T) {
	r := NewRegistry(nil)

	releaseA, err := r.Acquire(context.Background(), uuid.New())
	assert.NoError(t, err)
	defer releaseA()

	// A second session acquires while the first is still held.
	done := make(chan struct{})
	go func() {
		releaseB, err := r.Acquire(context.Background(), uuid.New())
		assert.NoError(t, err)
		releaseB()
		close(done)
	}()
	<-done
}

func TestReleaseCleansUpEntries(t *testing.T) {
	r := NewRegistry(nil)
	sessionId := uuid.New()

	release, err := r.Acquire(context.Background(), sessionId)
	assert.NoError(t, err)

	r.mu.Lock()
	assert.Len(t, r.entries, 1)
	r.mu.Unlock()

	release()

	r.mu.Lock()
	assert.Empty(t, r.entries, "released entry should be dropped from the registry")
	r.mu.Unlock()
}

func TestEntrySurvivesWhileWaitersQueued(t *testing.T) {
	r := NewRegistry(nil)
	sessionId := uuid.New()

	release, err := r.Acquire(context.Background(), sessionId)
	assert.NoError(t, err)

	acquired := make(chan func(), 1)
	go func() {
		rel, err := r.Acquire(context.Background(), sessionId)
		assert.NoError(t, err)
		acquired <- rel
	}()

	// Wait until the second acquirer is registered as a waiter.
	for {
		r.mu.Lock()
		e := r.entries[sessionId.String()]
		refs := 0
		if e != nil {
			refs = e.refs
		}
		r.mu.Unlock()
		if refs == 2 {
			break
		}
	}

	release()

	rel := <-acquired
	rel()

	r.mu.Lock()
	assert.Empty(t, r.entries)
	r.mu.Unlock()
}
