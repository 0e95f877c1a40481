package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oracare/fulfillment/internal/domain/syncstate"
)

// GormWatermarkRepository implements syncstate.WatermarkRepository using GORM
type GormWatermarkRepository struct {
	db *gorm.DB
}

// NewGormWatermarkRepository creates a new GormWatermarkRepository
func NewGormWatermarkRepository(db *gorm.DB) *GormWatermarkRepository {
	return &GormWatermarkRepository{db: db}
}

// Get returns the watermark for a workflow, creating it at the initial
// timestamp when no row exists yet
func (r *GormWatermarkRepository) Get(ctx context.Context, workflow syncstate.Workflow, initial time.Time) (*syncstate.Watermark, error) {
	var w syncstate.Watermark
	err := r.db.WithContext(ctx).First(&w, "workflow = ?", workflow).Error
	if err == nil {
		return &w, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	w = syncstate.Watermark{
		Workflow:    workflow,
		ProcessedTo: initial,
		UpdatedAt:   time.Now(),
	}
	// A concurrent initializer may win the insert; re-read in that case.
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&w).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).First(&w, "workflow = ?", workflow).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// Advance moves the workflow's watermark forward. Stale timestamps are a
// no-op so the watermark stays monotonic.
func (r *GormWatermarkRepository) Advance(ctx context.Context, workflow syncstate.Workflow, to time.Time) error {
	return r.db.WithContext(ctx).Model(&syncstate.Watermark{}).
		Where("workflow = ? AND processed_to < ?", workflow, to).
		Updates(map[string]any{
			"processed_to": to,
			"updated_at":   time.Now(),
		}).Error
}

// List returns all watermark rows
func (r *GormWatermarkRepository) List(ctx context.Context) ([]syncstate.Watermark, error) {
	var rows []syncstate.Watermark
	if err := r.db.WithContext(ctx).Order("workflow ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GormWorkflowControlRepository implements syncstate.WorkflowControlRepository using GORM
type GormWorkflowControlRepository struct {
	db *gorm.DB
}

// NewGormWorkflowControlRepository creates a new GormWorkflowControlRepository
func NewGormWorkflowControlRepository(db *gorm.DB) *GormWorkflowControlRepository {
	return &GormWorkflowControlRepository{db: db}
}

// IsEnabled reports whether a workflow is enabled. Missing rows default to
// enabled.
func (r *GormWorkflowControlRepository) IsEnabled(ctx context.Context, workflow syncstate.Workflow) (bool, error) {
	var c syncstate.WorkflowControl
	err := r.db.WithContext(ctx).First(&c, "workflow = ?", workflow).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return c.Enabled, nil
}

// SetEnabled flips the switch for a workflow
func (r *GormWorkflowControlRepository) SetEnabled(ctx context.Context, workflow syncstate.Workflow, enabled bool, by string) error {
	c := syncstate.WorkflowControl{
		Workflow:  workflow,
		Enabled:   enabled,
		UpdatedBy: by,
		UpdatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "workflow"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "updated_by", "updated_at"}),
	}).Create(&c).Error
}

// List returns all control rows
func (r *GormWorkflowControlRepository) List(ctx context.Context) ([]syncstate.WorkflowControl, error) {
	var rows []syncstate.WorkflowControl
	if err := r.db.WithContext(ctx).Order("workflow ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

var _ syncstate.WatermarkRepository = (*GormWatermarkRepository)(nil)
var _ syncstate.WorkflowControlRepository = (*GormWorkflowControlRepository)(nil)
