package incident

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oracare/fulfillment/internal/domain/shared"
)

// Status represents the state of an incident ticket
type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

// IsValid returns true if the status is valid
func (s Status) IsValid() bool {
	return s == StatusOpen || s == StatusResolved
}

// Incident is an operator-filed fulfillment incident, optionally tied to an
// order number, with screenshot attachments stored in object storage.
type Incident struct {
	shared.BaseEntity
	Title       string `gorm:"size:255;not null"`
	Description string `gorm:"size:4096"`
	OrderNumber string `gorm:"size:64;index"`
	Status      Status `gorm:"size:16;not null;default:open;index"`
	ReportedBy  string `gorm:"size:128"`
	ResolvedAt  *time.Time
	ResolvedBy  string `gorm:"size:128"`

	Screenshots []Screenshot `gorm:"foreignKey:IncidentID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (Incident) TableName() string {
	return "incidents"
}

// Screenshot is one uploaded attachment; ObjectKey addresses the stored blob.
type Screenshot struct {
	shared.BaseEntity
	IncidentID  uuid.UUID `gorm:"type:uuid;not null;index"`
	FileName    string    `gorm:"size:255;not null"`
	ContentType string    `gorm:"size:128"`
	SizeBytes   int64     `gorm:"not null"`
	ObjectKey   string    `gorm:"size:512;not null"`
}

// TableName returns the table name for GORM
func (Screenshot) TableName() string {
	return "incident_screenshots"
}

// Resolve closes the incident
func (i *Incident) Resolve(by string) {
	now := time.Now()
	i.Status = StatusResolved
	i.ResolvedAt = &now
	i.ResolvedBy = by
	i.UpdatedAt = now
}

// Repository persists incidents and their screenshots
type Repository interface {
	// Save creates or updates an incident
	Save(ctx context.Context, inc *Incident) error

	// FindByID finds an incident with its screenshots
	FindByID(ctx context.Context, id uuid.UUID) (*Incident, error)

	// List returns incidents, newest first, optionally filtered by status
	List(ctx context.Context, status *Status, page, pageSize int) ([]Incident, int64, error)

	// AddScreenshot attaches a screenshot row to an incident
	AddScreenshot(ctx context.Context, s *Screenshot) error
}
