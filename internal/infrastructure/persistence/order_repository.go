package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oracare/fulfillment/internal/domain/order"
	"github.com/oracare/fulfillment/internal/domain/shared"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Save creates or updates an order. Item rows are managed separately through
// ReplaceItems, so associations are skipped here.
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Omit("Items").Save(o).Error
}

// FindByID finds an order by its surrogate ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByOrderNumber finds an order by its natural key, items included
func (r *GormOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).Preload("Items").
		Where("order_number = ?", orderNumber).
		First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByRemoteID finds an order by the platform's order ID
func (r *GormOrderRepository) FindByRemoteID(ctx context.Context, remoteID int64) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).Preload("Items").
		Where("remote_id = ?", remoteID).
		First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// ExistsByOrderNumber reports whether the natural key is already known
func (r *GormOrderRepository) ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("order_number = ?", orderNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// List returns orders matching the filter with a total count
func (r *GormOrderRepository) List(ctx context.Context, filter order.Filter) ([]order.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&order.Order{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.IsFlagged != nil {
		query = query.Where("is_flagged = ?", *filter.IsFlagged)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("order_number LIKE ? OR customer_name LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	var orders []order.Order
	if err := query.Preload("Items").
		Order("order_date DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ReplaceItems deletes and reinserts the full item set of an order
func (r *GormOrderRepository) ReplaceItems(ctx context.Context, orderID uuid.UUID, items []order.Item) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("order_id = ?", orderID).Delete(&order.Item{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].OrderID = orderID
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
	}
	return tx.Create(&items).Error
}

// FindGhostOrders returns orders that carry a remote ID but have zero local
// item rows
func (r *GormOrderRepository) FindGhostOrders(ctx context.Context, limit int) ([]order.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var orders []order.Order
	err := r.db.WithContext(ctx).
		Where("remote_id IS NOT NULL").
		Where("NOT EXISTS (SELECT 1 FROM order_items_inbox WHERE order_items_inbox.order_id = orders_inbox.id)").
		Order("order_date ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// FindPendingUpload returns feed-sourced orders not yet pushed to the
// platform, oldest first
func (r *GormOrderRepository) FindPendingUpload(ctx context.Context, limit int) ([]order.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var orders []order.Order
	err := r.db.WithContext(ctx).Preload("Items").
		Where("source = ?", order.SourceXMLFeed).
		Where("remote_id IS NULL").
		Where("status = ?", order.StatusPending).
		Order("order_date ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// FindCancelledUploads returns feed-sourced orders cancelled locally that
// still carry a platform ID
func (r *GormOrderRepository) FindCancelledUploads(ctx context.Context, limit int) ([]order.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var orders []order.Order
	err := r.db.WithContext(ctx).
		Where("source = ?", order.SourceXMLFeed).
		Where("remote_id IS NOT NULL").
		Where("status = ?", order.StatusCancelled).
		Order("order_date ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// DeleteOlderThan removes terminal orders whose order date precedes the cutoff
func (r *GormOrderRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("order_date < ?", cutoff).
		Where("status IN ?", []order.Status{order.StatusShipped, order.StatusCancelled}).
		Delete(&order.Order{})
	return result.RowsAffected, result.Error
}

// localOrderOrigin links a remote order ID back to the local order whose
// upload created it on the platform.
type localOrderOrigin struct {
	RemoteID    int64  `gorm:"primaryKey;autoIncrement:false"`
	OrderNumber string `gorm:"size:64;not null;index"`
	CreatedAt   time.Time
}

// TableName returns the table name for GORM
func (localOrderOrigin) TableName() string {
	return "local_order_origins"
}

// GormOrderOriginRepository implements order.OriginRepository using GORM
type GormOrderOriginRepository struct {
	db *gorm.DB
}

// NewGormOrderOriginRepository creates a new GormOrderOriginRepository
func NewGormOrderOriginRepository(db *gorm.DB) *GormOrderOriginRepository {
	return &GormOrderOriginRepository{db: db}
}

// IsLocalOrigin reports whether the remote order ID came from our own uploads
func (r *GormOrderOriginRepository) IsLocalOrigin(ctx context.Context, remoteID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&localOrderOrigin{}).
		Where("remote_id = ?", remoteID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// RecordOrigin links a remote order ID to the local order that produced it
func (r *GormOrderOriginRepository) RecordOrigin(ctx context.Context, remoteID int64, orderNumber string) error {
	origin := localOrderOrigin{
		RemoteID:    remoteID,
		OrderNumber: orderNumber,
		CreatedAt:   time.Now(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&origin).Error
}

var _ order.Repository = (*GormOrderRepository)(nil)
var _ order.OriginRepository = (*GormOrderOriginRepository)(nil)
