package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oracare/fulfillment/internal/domain/alert"
	"github.com/oracare/fulfillment/internal/domain/shared"
)

func TestGormDuplicateAlertRepository_UpsertReactivates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormDuplicateAlertRepository(db)
	ctx := context.Background()

	a := &alert.DuplicateAlert{
		BaseEntity:  shared.NewBaseEntity(),
		OrderNumber: "600123",
		SKU:         "17612",
		Status:      alert.StatusActive,
		Records:     `[{"remote_id":1},{"remote_id":2}]`,
		RecordCount: 2,
		LastSeenAt:  time.Now(),
	}
	require.NoError(t, repo.Upsert(ctx, a))

	require.NoError(t, repo.ResolveByKey(ctx, alert.Key{OrderNumber: "600123", SKU: "17612"}, "ops", "fixed upstream"))

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	// The condition recurring reactivates the resolved row
	again := &alert.DuplicateAlert{
		BaseEntity:  shared.NewBaseEntity(),
		OrderNumber: "600123",
		SKU:         "17612",
		Status:      alert.StatusActive,
		Records:     `[{"remote_id":1},{"remote_id":2},{"remote_id":3}]`,
		RecordCount: 3,
		LastSeenAt:  time.Now(),
	}
	require.NoError(t, repo.Upsert(ctx, again))

	active, err = repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, 3, active[0].RecordCount)
	assert.Nil(t, active[0].ResolvedAt)
	assert.Empty(t, active[0].ResolvedBy)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGormLotMismatchAlertRepository_NoAutoResolve(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormLotMismatchAlertRepository(db)
	ctx := context.Background()

	a := &alert.LotMismatchAlert{
		BaseEntity:  shared.NewBaseEntity(),
		OrderNumber: "700001",
		SKU:         "17904",
		Status:      alert.StatusActive,
		OrderLot:    "240901",
		ActiveLot:   "241001",
		LastSeenAt:  time.Now(),
	}
	require.NoError(t, repo.Upsert(ctx, a))

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	require.NoError(t, repo.ResolveByKey(ctx, alert.Key{OrderNumber: "700001", SKU: "17904"}, "ops", "relabeled"))

	active, err = repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "ops", all[0].ResolvedBy)
	require.NotNil(t, all[0].ResolvedAt)
}

func TestGormConflictRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormConflictRepository(db)
	ctx := context.Background()

	c := &alert.ManualOrderConflict{
		BaseEntity:  shared.NewBaseEntity(),
		OrderNumber: "600500",
		Status:      alert.StatusActive,
		RemoteIDs:   `[111,222]`,
		IDCount:     2,
		LastSeenAt:  time.Now(),
	}
	require.NoError(t, repo.Upsert(ctx, c))

	update := &alert.ManualOrderConflict{
		BaseEntity:  shared.NewBaseEntity(),
		OrderNumber: "600500",
		Status:      alert.StatusActive,
		RemoteIDs:   `[111,222,333]`,
		IDCount:     3,
		LastSeenAt:  time.Now(),
	}
	require.NoError(t, repo.Upsert(ctx, update))

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, 3, active[0].IDCount)

	require.NoError(t, repo.ResolveByOrderNumber(ctx, "600500", "ops", "merged"))
	active, err = repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}
