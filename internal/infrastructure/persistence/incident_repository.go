package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oracare/fulfillment/internal/domain/incident"
	"github.com/oracare/fulfillment/internal/domain/shared"
)

// GormIncidentRepository implements incident.Repository using GORM
type GormIncidentRepository struct {
	db *gorm.DB
}

// NewGormIncidentRepository creates a new GormIncidentRepository
func NewGormIncidentRepository(db *gorm.DB) *GormIncidentRepository {
	return &GormIncidentRepository{db: db}
}

// Save creates or updates an incident
func (r *GormIncidentRepository) Save(ctx context.Context, inc *incident.Incident) error {
	return r.db.WithContext(ctx).Omit("Screenshots").Save(inc).Error
}

// FindByID finds an incident with its screenshots
func (r *GormIncidentRepository) FindByID(ctx context.Context, id uuid.UUID) (*incident.Incident, error) {
	var inc incident.Incident
	if err := r.db.WithContext(ctx).Preload("Screenshots").First(&inc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &inc, nil
}

// List returns incidents, newest first, optionally filtered by status
func (r *GormIncidentRepository) List(ctx context.Context, status *incident.Status, page, pageSize int) ([]incident.Incident, int64, error) {
	query := r.db.WithContext(ctx).Model(&incident.Incident{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	var rows []incident.Incident
	if err := query.Preload("Screenshots").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// AddScreenshot attaches a screenshot row to an incident
func (r *GormIncidentRepository) AddScreenshot(ctx context.Context, s *incident.Screenshot) error {
	return r.db.WithContext(ctx).Create(s).Error
}

var _ incident.Repository = (*GormIncidentRepository)(nil)
