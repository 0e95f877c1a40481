package incident

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oracare/fulfillment/internal/domain/incident"
	"github.com/oracare/fulfillment/internal/domain/shared"
)

// maxScreenshotBytes caps a single screenshot upload
const maxScreenshotBytes = 10 << 20

// downloadURLExpiry bounds presigned screenshot links
const downloadURLExpiry = 15 * time.Minute

// ObjectStore is the blob storage behind screenshot attachments
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
	DownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error)
}

// CreateIncidentInput carries a new incident ticket
type CreateIncidentInput struct {
	Title       string
	Description string
	OrderNumber string
	ReportedBy  string
}

// IncidentService manages operator-filed incident tickets and their
// screenshot attachments
type IncidentService struct {
	incidents incident.Repository
	store     ObjectStore
	logger    *zap.Logger
}

// NewIncidentService creates a new IncidentService
func NewIncidentService(incidents incident.Repository, store ObjectStore, logger *zap.Logger) *IncidentService {
	return &IncidentService{incidents: incidents, store: store, logger: logger}
}

// Create files a new incident
func (s *IncidentService) Create(ctx context.Context, input CreateIncidentInput) (*incident.Incident, error) {
	if input.Title == "" {
		return nil, shared.NewDomainError("INVALID_INCIDENT", "Title is required")
	}
	inc := &incident.Incident{
		BaseEntity:  shared.NewBaseEntity(),
		Title:       input.Title,
		Description: input.Description,
		OrderNumber: input.OrderNumber,
		Status:      incident.StatusOpen,
		ReportedBy:  input.ReportedBy,
	}
	if err := s.incidents.Save(ctx, inc); err != nil {
		return nil, err
	}
	s.logger.Info("incident filed",
		zap.String("title", input.Title),
		zap.String("order_number", input.OrderNumber),
		zap.String("reported_by", input.ReportedBy),
	)
	return inc, nil
}

// Get returns one incident with its screenshots
func (s *IncidentService) Get(ctx context.Context, id uuid.UUID) (*incident.Incident, error) {
	return s.incidents.FindByID(ctx, id)
}

// List returns incidents, newest first
func (s *IncidentService) List(ctx context.Context, status *incident.Status, page, pageSize int) ([]incident.Incident, int64, error) {
	return s.incidents.List(ctx, status, page, pageSize)
}

// Resolve closes an incident
func (s *IncidentService) Resolve(ctx context.Context, id uuid.UUID, by string) (*incident.Incident, error) {
	inc, err := s.incidents.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inc.Status == incident.StatusResolved {
		return nil, shared.NewDomainError("INCIDENT_RESOLVED", "Incident is already resolved")
	}
	inc.Resolve(by)
	if err := s.incidents.Save(ctx, inc); err != nil {
		return nil, err
	}
	return inc, nil
}

// AttachScreenshot stores an uploaded screenshot and records it on the
// incident. The blob is written first; a failed row insert cleans it up.
func (s *IncidentService) AttachScreenshot(ctx context.Context, incidentID uuid.UUID, fileName, contentType string, data io.Reader, size int64) (*incident.Screenshot, error) {
	if size <= 0 || size > maxScreenshotBytes {
		return nil, shared.NewDomainError("INVALID_SCREENSHOT", "Screenshot size out of bounds")
	}

	inc, err := s.incidents.FindByID(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	shot := &incident.Screenshot{
		BaseEntity:  shared.NewBaseEntity(),
		IncidentID:  inc.ID,
		FileName:    fileName,
		ContentType: contentType,
		SizeBytes:   size,
	}
	shot.ObjectKey = fmt.Sprintf("incidents/%s/%s%s", inc.ID, shot.ID, path.Ext(fileName))

	if err := s.store.Put(ctx, shot.ObjectKey, contentType, data, size); err != nil {
		return nil, fmt.Errorf("store screenshot: %w", err)
	}
	if err := s.incidents.AddScreenshot(ctx, shot); err != nil {
		if delErr := s.store.Delete(ctx, shot.ObjectKey); delErr != nil {
			s.logger.Warn("orphaned screenshot blob", zap.String("key", shot.ObjectKey), zap.Error(delErr))
		}
		return nil, err
	}

	s.logger.Info("screenshot attached",
		zap.String("incident_id", inc.ID.String()),
		zap.String("file", fileName),
		zap.Int64("bytes", size),
	)
	return shot, nil
}

// ScreenshotURL returns a short-lived download link for a screenshot
func (s *IncidentService) ScreenshotURL(ctx context.Context, incidentID, screenshotID uuid.UUID) (string, error) {
	inc, err := s.incidents.FindByID(ctx, incidentID)
	if err != nil {
		return "", err
	}
	for _, shot := range inc.Screenshots {
		if shot.ID == screenshotID {
			return s.store.DownloadURL(ctx, shot.ObjectKey, downloadURLExpiry)
		}
	}
	return "", shared.ErrNotFound
}
