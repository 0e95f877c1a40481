package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oracare/fulfillment/internal/domain/syncstate"
)

// fakeControlRepo counts reads so cache hits are observable
type fakeControlRepo struct {
	mu    sync.Mutex
	state map[syncstate.Workflow]bool
	reads int
}

func newFakeControlRepo() *fakeControlRepo {
	return &fakeControlRepo{state: make(map[syncstate.Workflow]bool)}
}

func (f *fakeControlRepo) IsEnabled(ctx context.Context, workflow syncstate.Workflow) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	enabled, ok := f.state[workflow]
	if !ok {
		return true, nil
	}
	return enabled, nil
}

func (f *fakeControlRepo) SetEnabled(ctx context.Context, workflow syncstate.Workflow, enabled bool, by string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state[workflow] = enabled
	return nil
}

func (f *fakeControlRepo) List(ctx context.Context) ([]syncstate.WorkflowControl, error) {
	return nil, nil
}

func (f *fakeControlRepo) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func TestWorkflowControlCache_ServesFromCache(t *testing.T) {
	repo := newFakeControlRepo()
	cache := NewInMemoryWorkflowControlCache(repo, time.Minute)
	ctx := context.Background()

	enabled, err := cache.IsEnabled(ctx, syncstate.WorkflowUnifiedSync)
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.Equal(t, 1, repo.readCount())

	// Second read is a cache hit
	enabled, err = cache.IsEnabled(ctx, syncstate.WorkflowUnifiedSync)
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.Equal(t, 1, repo.readCount())
}

func TestWorkflowControlCache_SetInvalidates(t *testing.T) {
	repo := newFakeControlRepo()
	cache := NewInMemoryWorkflowControlCache(repo, time.Minute)
	ctx := context.Background()

	enabled, err := cache.IsEnabled(ctx, syncstate.WorkflowCleanup)
	require.NoError(t, err)
	assert.True(t, enabled)

	require.NoError(t, cache.SetEnabled(ctx, syncstate.WorkflowCleanup, false, "ops"))

	enabled, err = cache.IsEnabled(ctx, syncstate.WorkflowCleanup)
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestWorkflowControlCache_TTLExpiry(t *testing.T) {
	repo := newFakeControlRepo()
	cache := NewInMemoryWorkflowControlCache(repo, 20*time.Millisecond)
	ctx := context.Background()

	_, err := cache.IsEnabled(ctx, syncstate.WorkflowDuplicateScan)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.readCount())

	time.Sleep(30 * time.Millisecond)

	_, err = cache.IsEnabled(ctx, syncstate.WorkflowDuplicateScan)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.readCount())
}
