package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/oracare/fulfillment/internal/domain/order"
)

// CleanupService prunes terminal inbox orders past the retention window.
// Shipped history tables are kept forever; only the working inbox shrinks.
type CleanupService struct {
	orders    order.Repository
	retention time.Duration
	logger    *zap.Logger
}

// NewCleanupService builds the inbox cleanup service
func NewCleanupService(orders order.Repository, retention time.Duration, logger *zap.Logger) *CleanupService {
	return &CleanupService{orders: orders, retention: retention, logger: logger}
}

// Run deletes terminal orders older than the retention window
func (s *CleanupService) Run(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.retention)
	deleted, err := s.orders.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete aged orders: %w", err)
	}
	s.logger.Info("inbox cleanup finished", zap.Time("cutoff", cutoff), zap.Int64("deleted", deleted))
	return deleted, nil
}
