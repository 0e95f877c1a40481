package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/oracare/fulfillment/internal/domain/syncstate"
)

// WorkflowControlCache caches workflow on/off switches in front of the
// persistent control repository. Workers consult the switch every run, so
// reads vastly outnumber writes; a short TTL keeps dashboard toggles
// near-immediate without hitting the database each tick.
//
// Cache failures fail open to the underlying repository.
type WorkflowControlCache struct {
	inner syncstate.WorkflowControlRepository
	store controlStore
	ttl   time.Duration
}

// controlStore is the cache backend behind WorkflowControlCache
type controlStore interface {
	get(ctx context.Context, workflow syncstate.Workflow) (enabled, ok bool, err error)
	set(ctx context.Context, workflow syncstate.Workflow, enabled bool, ttl time.Duration) error
	invalidate(ctx context.Context, workflow syncstate.Workflow) error
}

// NewRedisWorkflowControlCache creates a cache backed by Redis
func NewRedisWorkflowControlCache(inner syncstate.WorkflowControlRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *WorkflowControlCache {
	return &WorkflowControlCache{
		inner: inner,
		store: &redisControlStore{client: client, logger: logger.Named("workflow_cache")},
		ttl:   ttl,
	}
}

// NewInMemoryWorkflowControlCache creates a cache backed by process memory
func NewInMemoryWorkflowControlCache(inner syncstate.WorkflowControlRepository, ttl time.Duration) *WorkflowControlCache {
	return &WorkflowControlCache{
		inner: inner,
		store: &memoryControlStore{entries: make(map[syncstate.Workflow]memoryControlEntry)},
		ttl:   ttl,
	}
}

// IsEnabled reports whether a workflow is enabled, serving from cache when
// fresh
func (c *WorkflowControlCache) IsEnabled(ctx context.Context, workflow syncstate.Workflow) (bool, error) {
	if enabled, ok, err := c.store.get(ctx, workflow); err == nil && ok {
		return enabled, nil
	}

	enabled, err := c.inner.IsEnabled(ctx, workflow)
	if err != nil {
		return false, err
	}
	_ = c.store.set(ctx, workflow, enabled, c.ttl)
	return enabled, nil
}

// SetEnabled flips the switch and invalidates the cached value
func (c *WorkflowControlCache) SetEnabled(ctx context.Context, workflow syncstate.Workflow, enabled bool, by string) error {
	if err := c.inner.SetEnabled(ctx, workflow, enabled, by); err != nil {
		return err
	}
	_ = c.store.invalidate(ctx, workflow)
	return nil
}

// List always reads through to the repository
func (c *WorkflowControlCache) List(ctx context.Context) ([]syncstate.WorkflowControl, error) {
	return c.inner.List(ctx)
}

// redisControlStore keeps switch values in Redis
type redisControlStore struct {
	client *redis.Client
	logger *zap.Logger
}

func controlKey(workflow syncstate.Workflow) string {
	return "workflow_control:" + workflow.String()
}

func (s *redisControlStore) get(ctx context.Context, workflow syncstate.Workflow) (bool, bool, error) {
	val, err := s.client.Get(ctx, controlKey(workflow)).Result()
	if err == redis.Nil {
		return false, false, nil
	}
	if err != nil {
		s.logger.Warn("Cache read failed", zap.String("workflow", workflow.String()), zap.Error(err))
		return false, false, err
	}
	return val == "1", true, nil
}

func (s *redisControlStore) set(ctx context.Context, workflow syncstate.Workflow, enabled bool, ttl time.Duration) error {
	val := "0"
	if enabled {
		val = "1"
	}
	if err := s.client.Set(ctx, controlKey(workflow), val, ttl).Err(); err != nil {
		s.logger.Warn("Cache write failed", zap.String("workflow", workflow.String()), zap.Error(err))
		return err
	}
	return nil
}

func (s *redisControlStore) invalidate(ctx context.Context, workflow syncstate.Workflow) error {
	return s.client.Del(ctx, controlKey(workflow)).Err()
}

// memoryControlStore keeps switch values in process memory
type memoryControlStore struct {
	mu      sync.RWMutex
	entries map[syncstate.Workflow]memoryControlEntry
}

type memoryControlEntry struct {
	enabled   bool
	expiresAt time.Time
}

func (s *memoryControlStore) get(_ context.Context, workflow syncstate.Workflow) (bool, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[workflow]
	s.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return false, false, nil
	}
	return entry.enabled, true, nil
}

func (s *memoryControlStore) set(_ context.Context, workflow syncstate.Workflow, enabled bool, ttl time.Duration) error {
	s.mu.Lock()
	s.entries[workflow] = memoryControlEntry{enabled: enabled, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *memoryControlStore) invalidate(_ context.Context, workflow syncstate.Workflow) error {
	s.mu.Lock()
	delete(s.entries, workflow)
	s.mu.Unlock()
	return nil
}

var _ syncstate.WorkflowControlRepository = (*WorkflowControlCache)(nil)
