package persistence

import (
	"context"

	"gorm.io/gorm"

	appsync "github.com/oracare/fulfillment/internal/application/sync"
	"github.com/oracare/fulfillment/internal/domain/alert"
	"github.com/oracare/fulfillment/internal/domain/inventory"
	"github.com/oracare/fulfillment/internal/domain/order"
	"github.com/oracare/fulfillment/internal/domain/shipping"
	"github.com/oracare/fulfillment/internal/domain/syncstate"
)

// GormSyncScope implements appsync.TransactionScope using GORM transactions.
// A whole sync batch commits or rolls back as one unit, including the
// watermark advance that gates it.
type GormSyncScope struct {
	db *gorm.DB
}

// NewGormSyncScope creates a new GormSyncScope
func NewGormSyncScope(db *gorm.DB) *GormSyncScope {
	return &GormSyncScope{db: db}
}

// Execute runs the given function within a database transaction. If the
// function returns an error, every write of the batch is rolled back.
func (s *GormSyncScope) Execute(ctx context.Context, fn func(repos appsync.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormSyncRepositories{tx: tx})
	})
}

// gormSyncRepositories provides access to all sync repositories scoped to one
// transaction.
type gormSyncRepositories struct {
	tx *gorm.DB
}

func (r *gormSyncRepositories) Orders() order.Repository {
	return NewGormOrderRepository(r.tx)
}

func (r *gormSyncRepositories) Origins() order.OriginRepository {
	return NewGormOrderOriginRepository(r.tx)
}

func (r *gormSyncRepositories) Shipped() shipping.Repository {
	return NewGormShippedRepository(r.tx)
}

func (r *gormSyncRepositories) Watermarks() syncstate.WatermarkRepository {
	return NewGormWatermarkRepository(r.tx)
}

func (r *gormSyncRepositories) Duplicates() alert.DuplicateRepository {
	return NewGormDuplicateAlertRepository(r.tx)
}

func (r *gormSyncRepositories) LotMismatches() alert.LotMismatchRepository {
	return NewGormLotMismatchAlertRepository(r.tx)
}

func (r *gormSyncRepositories) Conflicts() alert.ConflictRepository {
	return NewGormConflictRepository(r.tx)
}

func (r *gormSyncRepositories) Ledger() inventory.TransactionRepository {
	return NewGormInventoryTransactionRepository(r.tx)
}

func (r *gormSyncRepositories) CurrentInventory() inventory.CurrentRepository {
	return NewGormInventoryCurrentRepository(r.tx)
}

func (r *gormSyncRepositories) Lots() inventory.LotRepository {
	return NewGormLotInventoryRepository(r.tx)
}

var _ appsync.TransactionScope = (*GormSyncScope)(nil)
var _ appsync.Repositories = (*gormSyncRepositories)(nil)
