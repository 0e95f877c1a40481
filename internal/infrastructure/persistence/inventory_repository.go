package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oracare/fulfillment/internal/domain/inventory"
	"github.com/oracare/fulfillment/internal/domain/shared"
)

// GormInventoryTransactionRepository implements inventory.TransactionRepository using GORM
type GormInventoryTransactionRepository struct {
	db *gorm.DB
}

// NewGormInventoryTransactionRepository creates a new GormInventoryTransactionRepository
func NewGormInventoryTransactionRepository(db *gorm.DB) *GormInventoryTransactionRepository {
	return &GormInventoryTransactionRepository{db: db}
}

// Append writes a ledger row. Ledger rows are never updated or deleted.
func (r *GormInventoryTransactionRepository) Append(ctx context.Context, tx *inventory.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// List returns ledger rows matching the filter with a total count
func (r *GormInventoryTransactionRepository) List(ctx context.Context, filter inventory.TransactionFilter) ([]inventory.Transaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&inventory.Transaction{})

	if filter.SKU != "" {
		query = query.Where("sku = ?", filter.SKU)
	}
	if filter.Lot != "" {
		query = query.Where("lot_number = ?", filter.Lot)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
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

	var rows []inventory.Transaction
	if err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ledgerDecreaseTypes lists the types whose quantity counts negative
var ledgerDecreaseTypes = []inventory.TransactionType{
	inventory.TransactionTypeShip,
	inventory.TransactionTypeAdjustDown,
	inventory.TransactionTypeRepackOut,
}

type ledgerSumRow struct {
	SKU       string
	LotNumber string
	Total     int
}

// SumBySKU returns the signed quantity sum per SKU over the whole ledger
func (r *GormInventoryTransactionRepository) SumBySKU(ctx context.Context) (map[string]int, error) {
	var rows []ledgerSumRow
	err := r.db.WithContext(ctx).Model(&inventory.Transaction{}).
		Select("sku, SUM(CASE WHEN type IN ? THEN -quantity ELSE quantity END) AS total", ledgerDecreaseTypes).
		Group("sku").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sums := make(map[string]int, len(rows))
	for _, row := range rows {
		sums[row.SKU] = row.Total
	}
	return sums, nil
}

// SumByLot returns the signed quantity sum per (SKU, lot) pair
func (r *GormInventoryTransactionRepository) SumByLot(ctx context.Context) (map[inventory.LotKey]int, error) {
	var rows []ledgerSumRow
	err := r.db.WithContext(ctx).Model(&inventory.Transaction{}).
		Select("sku, lot_number, SUM(CASE WHEN type IN ? THEN -quantity ELSE quantity END) AS total", ledgerDecreaseTypes).
		Group("sku, lot_number").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sums := make(map[inventory.LotKey]int, len(rows))
	for _, row := range rows {
		sums[inventory.LotKey{SKU: row.SKU, Lot: row.LotNumber}] = row.Total
	}
	return sums, nil
}

// GormInventoryCurrentRepository implements inventory.CurrentRepository using GORM
type GormInventoryCurrentRepository struct {
	db *gorm.DB
}

// NewGormInventoryCurrentRepository creates a new GormInventoryCurrentRepository
func NewGormInventoryCurrentRepository(db *gorm.DB) *GormInventoryCurrentRepository {
	return &GormInventoryCurrentRepository{db: db}
}

// Get returns the cached current quantity for a SKU
func (r *GormInventoryCurrentRepository) Get(ctx context.Context, sku string) (*inventory.Current, error) {
	var c inventory.Current
	if err := r.db.WithContext(ctx).First(&c, "sku = ?", sku).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// List returns all cached rows
func (r *GormInventoryCurrentRepository) List(ctx context.Context) ([]inventory.Current, error) {
	var rows []inventory.Current
	if err := r.db.WithContext(ctx).Order("sku ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ApplyDelta adjusts a SKU's cached quantity by a signed delta, creating the
// row when absent
func (r *GormInventoryCurrentRepository) ApplyDelta(ctx context.Context, sku string, delta int, at time.Time) error {
	row := inventory.Current{
		SKU:             sku,
		CurrentQuantity: delta,
		LastUpdated:     at,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sku"}},
		DoUpdates: clause.Assignments(map[string]any{
			"current_quantity": gorm.Expr("inventory_current.current_quantity + ?", delta),
			"last_updated":     at,
		}),
	}).Create(&row).Error
}

// Replace overwrites the whole cache with recomputed values
func (r *GormInventoryCurrentRepository) Replace(ctx context.Context, rows []inventory.Current) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&inventory.Current{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

// GormLotInventoryRepository implements inventory.LotRepository using GORM
type GormLotInventoryRepository struct {
	db *gorm.DB
}

// NewGormLotInventoryRepository creates a new GormLotInventoryRepository
func NewGormLotInventoryRepository(db *gorm.DB) *GormLotInventoryRepository {
	return &GormLotInventoryRepository{db: db}
}

// Get returns the balance row for a (SKU, lot) pair
func (r *GormLotInventoryRepository) Get(ctx context.Context, sku, lot string) (*inventory.Lot, error) {
	var l inventory.Lot
	if err := r.db.WithContext(ctx).
		Where("sku = ? AND lot_number = ?", sku, lot).
		First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

// ListBySKU returns all lots known for a SKU
func (r *GormLotInventoryRepository) ListBySKU(ctx context.Context, sku string) ([]inventory.Lot, error) {
	var rows []inventory.Lot
	if err := r.db.WithContext(ctx).
		Where("sku = ?", sku).
		Order("lot_number ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ActiveLot returns the currently-active lot for a SKU
func (r *GormLotInventoryRepository) ActiveLot(ctx context.Context, sku string) (*inventory.Lot, error) {
	var l inventory.Lot
	if err := r.db.WithContext(ctx).
		Where("sku = ? AND is_active = ?", sku, true).
		First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

// ActiveLots returns the active lot number per SKU for all SKUs
func (r *GormLotInventoryRepository) ActiveLots(ctx context.Context) (map[string]string, error) {
	var rows []inventory.Lot
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	active := make(map[string]string, len(rows))
	for _, row := range rows {
		active[row.SKU] = row.LotNumber
	}
	return active, nil
}

// SetActive marks one lot active for a SKU and clears the flag on others
func (r *GormLotInventoryRepository) SetActive(ctx context.Context, sku, lot string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&inventory.Lot{}).
			Where("sku = ? AND is_active = ?", sku, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		result := tx.Model(&inventory.Lot{}).
			Where("sku = ? AND lot_number = ?", sku, lot).
			Update("is_active", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// ApplyDelta adjusts a lot balance by a signed delta, creating the row when
// absent
func (r *GormLotInventoryRepository) ApplyDelta(ctx context.Context, sku, lot string, delta int) error {
	row := inventory.Lot{
		BaseEntity: shared.NewBaseEntity(),
		SKU:        sku,
		LotNumber:  lot,
		Quantity:   delta,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sku"}, {Name: "lot_number"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("lot_inventory.quantity + ?", delta),
			"updated_at": time.Now(),
		}),
	}).Create(&row).Error
}

// Replace overwrites all lot balances with recomputed values, preserving
// active-lot flags
func (r *GormLotInventoryRepository) Replace(ctx context.Context, rows []inventory.Lot) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		active, err := NewGormLotInventoryRepository(tx).ActiveLots(ctx)
		if err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&inventory.Lot{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		for i := range rows {
			if rows[i].ID == uuid.Nil {
				rows[i].BaseEntity = shared.NewBaseEntity()
			}
			rows[i].IsActive = active[rows[i].SKU] == rows[i].LotNumber
		}
		return tx.Create(&rows).Error
	})
}

var _ inventory.TransactionRepository = (*GormInventoryTransactionRepository)(nil)
var _ inventory.CurrentRepository = (*GormInventoryCurrentRepository)(nil)
var _ inventory.LotRepository = (*GormLotInventoryRepository)(nil)
