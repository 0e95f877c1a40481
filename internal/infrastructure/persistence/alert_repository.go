package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oracare/fulfillment/internal/domain/alert"
	"github.com/oracare/fulfillment/internal/domain/shared"
)

// GormDuplicateAlertRepository implements alert.DuplicateRepository using GORM
type GormDuplicateAlertRepository struct {
	db *gorm.DB
}

// NewGormDuplicateAlertRepository creates a new GormDuplicateAlertRepository
func NewGormDuplicateAlertRepository(db *gorm.DB) *GormDuplicateAlertRepository {
	return &GormDuplicateAlertRepository{db: db}
}

// Upsert creates or refreshes an alert by its natural key. A resolved alert
// whose condition recurs goes back to active with the resolution cleared.
func (r *GormDuplicateAlertRepository) Upsert(ctx context.Context, a *alert.DuplicateAlert) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "order_number"}, {Name: "sku"}},
		DoUpdates: clause.Assignments(map[string]any{
			"status":       alert.StatusActive,
			"records":      a.Records,
			"record_count": a.RecordCount,
			"last_seen_at": a.LastSeenAt,
			"resolved_at":  nil,
			"resolved_by":  "",
			"note":         "",
			"updated_at":   time.Now(),
		}),
	}).Create(a).Error
}

// ListActive returns all active duplicate alerts
func (r *GormDuplicateAlertRepository) ListActive(ctx context.Context) ([]alert.DuplicateAlert, error) {
	var rows []alert.DuplicateAlert
	err := r.db.WithContext(ctx).
		Where("status = ?", alert.StatusActive).
		Order("last_seen_at DESC").
		Find(&rows).Error
	return rows, err
}

// List returns all duplicate alerts, active and resolved
func (r *GormDuplicateAlertRepository) List(ctx context.Context) ([]alert.DuplicateAlert, error) {
	var rows []alert.DuplicateAlert
	err := r.db.WithContext(ctx).Order("last_seen_at DESC").Find(&rows).Error
	return rows, err
}

// ResolveByKey resolves the active alert for a natural key
func (r *GormDuplicateAlertRepository) ResolveByKey(ctx context.Context, key alert.Key, by, note string) error {
	return resolveAlert(r.db.WithContext(ctx).Model(&alert.DuplicateAlert{}).
		Where("order_number = ? AND sku = ?", key.OrderNumber, key.SKU), by, note)
}

// GormLotMismatchAlertRepository implements alert.LotMismatchRepository using GORM
type GormLotMismatchAlertRepository struct {
	db *gorm.DB
}

// NewGormLotMismatchAlertRepository creates a new GormLotMismatchAlertRepository
func NewGormLotMismatchAlertRepository(db *gorm.DB) *GormLotMismatchAlertRepository {
	return &GormLotMismatchAlertRepository{db: db}
}

// Upsert creates or refreshes an alert by its natural key
func (r *GormLotMismatchAlertRepository) Upsert(ctx context.Context, a *alert.LotMismatchAlert) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "order_number"}, {Name: "sku"}},
		DoUpdates: clause.Assignments(map[string]any{
			"order_lot":    a.OrderLot,
			"active_lot":   a.ActiveLot,
			"last_seen_at": a.LastSeenAt,
			"updated_at":   time.Now(),
		}),
	}).Create(a).Error
}

// ListActive returns all active lot-mismatch alerts
func (r *GormLotMismatchAlertRepository) ListActive(ctx context.Context) ([]alert.LotMismatchAlert, error) {
	var rows []alert.LotMismatchAlert
	err := r.db.WithContext(ctx).
		Where("status = ?", alert.StatusActive).
		Order("last_seen_at DESC").
		Find(&rows).Error
	return rows, err
}

// List returns all lot-mismatch alerts
func (r *GormLotMismatchAlertRepository) List(ctx context.Context) ([]alert.LotMismatchAlert, error) {
	var rows []alert.LotMismatchAlert
	err := r.db.WithContext(ctx).Order("last_seen_at DESC").Find(&rows).Error
	return rows, err
}

// ResolveByKey resolves the active alert for a natural key
func (r *GormLotMismatchAlertRepository) ResolveByKey(ctx context.Context, key alert.Key, by, note string) error {
	return resolveAlert(r.db.WithContext(ctx).Model(&alert.LotMismatchAlert{}).
		Where("order_number = ? AND sku = ?", key.OrderNumber, key.SKU), by, note)
}

// GormConflictRepository implements alert.ConflictRepository using GORM
type GormConflictRepository struct {
	db *gorm.DB
}

// NewGormConflictRepository creates a new GormConflictRepository
func NewGormConflictRepository(db *gorm.DB) *GormConflictRepository {
	return &GormConflictRepository{db: db}
}

// Upsert creates or refreshes a conflict by order number
func (r *GormConflictRepository) Upsert(ctx context.Context, c *alert.ManualOrderConflict) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "order_number"}},
		DoUpdates: clause.Assignments(map[string]any{
			"status":       alert.StatusActive,
			"remote_ids":   c.RemoteIDs,
			"id_count":     c.IDCount,
			"last_seen_at": c.LastSeenAt,
			"resolved_at":  nil,
			"resolved_by":  "",
			"note":         "",
			"updated_at":   time.Now(),
		}),
	}).Create(c).Error
}

// ListActive returns all active conflicts
func (r *GormConflictRepository) ListActive(ctx context.Context) ([]alert.ManualOrderConflict, error) {
	var rows []alert.ManualOrderConflict
	err := r.db.WithContext(ctx).
		Where("status = ?", alert.StatusActive).
		Order("last_seen_at DESC").
		Find(&rows).Error
	return rows, err
}

// List returns all conflicts
func (r *GormConflictRepository) List(ctx context.Context) ([]alert.ManualOrderConflict, error) {
	var rows []alert.ManualOrderConflict
	err := r.db.WithContext(ctx).Order("last_seen_at DESC").Find(&rows).Error
	return rows, err
}

// ResolveByOrderNumber resolves the active conflict for an order number
func (r *GormConflictRepository) ResolveByOrderNumber(ctx context.Context, orderNumber, by, note string) error {
	return resolveAlert(r.db.WithContext(ctx).Model(&alert.ManualOrderConflict{}).
		Where("order_number = ?", orderNumber), by, note)
}

// resolveAlert closes whatever active alert rows the query selects
func resolveAlert(query *gorm.DB, by, note string) error {
	now := time.Now()
	result := query.Where("status = ?", alert.StatusActive).
		Updates(map[string]any{
			"status":      alert.StatusResolved,
			"resolved_at": now,
			"resolved_by": by,
			"note":        note,
			"updated_at":  now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ alert.DuplicateRepository = (*GormDuplicateAlertRepository)(nil)
var _ alert.LotMismatchRepository = (*GormLotMismatchAlertRepository)(nil)
var _ alert.ConflictRepository = (*GormConflictRepository)(nil)
