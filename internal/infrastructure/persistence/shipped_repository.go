package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oracare/fulfillment/internal/domain/shipping"
)

// GormShippedRepository implements shipping.Repository using GORM
type GormShippedRepository struct {
	db *gorm.DB
}

// NewGormShippedRepository creates a new GormShippedRepository
func NewGormShippedRepository(db *gorm.DB) *GormShippedRepository {
	return &GormShippedRepository{db: db}
}

// UpsertOrder inserts or updates a shipped order by its natural key
func (r *GormShippedRepository) UpsertOrder(ctx context.Context, o *shipping.ShippedOrder) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "order_number"}, {Name: "remote_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"ship_date", "carrier_code", "service_code", "tracking_number",
			"customer_name", "ship_city", "ship_state", "ship_country", "updated_at",
		}),
	}).Create(o).Error
}

// UpsertItems inserts or updates shipped item rows by their natural key
func (r *GormShippedRepository) UpsertItems(ctx context.Context, items []shipping.ShippedItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "order_number"}, {Name: "remote_id"}, {Name: "sku"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"lot_number", "quantity", "unit_price", "updated_at",
		}),
	}).Create(&items).Error
}

// ListOrders returns shipped orders matching the filter with a total count
func (r *GormShippedRepository) ListOrders(ctx context.Context, filter shipping.Filter) ([]shipping.ShippedOrder, int64, error) {
	query := r.db.WithContext(ctx).Model(&shipping.ShippedOrder{})

	if filter.OrderNumber != "" {
		query = query.Where("order_number = ?", filter.OrderNumber)
	}
	if filter.ShippedFrom != nil {
		query = query.Where("ship_date >= ?", *filter.ShippedFrom)
	}
	if filter.ShippedTo != nil {
		query = query.Where("ship_date < ?", *filter.ShippedTo)
	}
	if filter.SKU != "" {
		query = query.Where(
			"order_number IN (SELECT order_number FROM shipped_items WHERE sku = ?)",
			filter.SKU,
		)
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

	var orders []shipping.ShippedOrder
	if err := query.Order("ship_date DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListItemsByOrder returns shipped item rows for one order number
func (r *GormShippedRepository) ListItemsByOrder(ctx context.Context, orderNumber string) ([]shipping.ShippedItem, error) {
	var items []shipping.ShippedItem
	if err := r.db.WithContext(ctx).
		Where("order_number = ?", orderNumber).
		Order("sku ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// VolumeBySKU returns shipped quantity per SKU within a window
func (r *GormShippedRepository) VolumeBySKU(ctx context.Context, from, to time.Time) (map[string]int, error) {
	type row struct {
		SKU   string
		Total int
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&shipping.ShippedItem{}).
		Select("shipped_items.sku AS sku, SUM(shipped_items.quantity) AS total").
		Joins("JOIN shipped_orders ON shipped_orders.order_number = shipped_items.order_number AND shipped_orders.remote_id = shipped_items.remote_id").
		Where("shipped_orders.ship_date >= ? AND shipped_orders.ship_date < ?", from, to).
		Group("shipped_items.sku").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	volume := make(map[string]int, len(rows))
	for _, r := range rows {
		volume[r.SKU] = r.Total
	}
	return volume, nil
}

var _ shipping.Repository = (*GormShippedRepository)(nil)
