package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oracare/fulfillment/internal/domain/settings"
	"github.com/oracare/fulfillment/internal/domain/shared"
)

// GormSettingsRepository implements settings.Repository using GORM
type GormSettingsRepository struct {
	db *gorm.DB
}

// NewGormSettingsRepository creates a new GormSettingsRepository
func NewGormSettingsRepository(db *gorm.DB) *GormSettingsRepository {
	return &GormSettingsRepository{db: db}
}

// Get returns a parameter by key
func (r *GormSettingsRepository) Get(ctx context.Context, key string) (*settings.Param, error) {
	var p settings.Param
	if err := r.db.WithContext(ctx).First(&p, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Set creates or replaces a parameter
func (r *GormSettingsRepository) Set(ctx context.Context, p *settings.Param) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
	}).Create(p).Error
}

// List returns all parameters
func (r *GormSettingsRepository) List(ctx context.Context) ([]settings.Param, error) {
	var rows []settings.Param
	if err := r.db.WithContext(ctx).Order("key ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

var _ settings.Repository = (*GormSettingsRepository)(nil)
