package sync

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/oracare/fulfillment/internal/domain/order"
	"github.com/oracare/fulfillment/internal/domain/shared"
)

// BackfillResult summarizes one ghost-backfill cycle
type BackfillResult struct {
	Examined   int
	Backfilled int
	Orphaned   int
	Skipped    int
}

// GhostBackfillService repairs orders that hold a remote ID but no local
// item rows, a leftover of earlier partial syncs. Each ghost is refetched
// individually; a 404 from the platform marks the local order cancelled
// instead of retrying forever.
type GhostBackfillService struct {
	client PlatformClient
	orders order.Repository
	limit  int
	logger *zap.Logger
}

// NewGhostBackfillService builds the ghost-order backfill service
func NewGhostBackfillService(client PlatformClient, orders order.Repository, limit int, logger *zap.Logger) *GhostBackfillService {
	if limit <= 0 {
		limit = 50
	}
	return &GhostBackfillService{client: client, orders: orders, limit: limit, logger: logger}
}

// Run executes one backfill cycle
func (s *GhostBackfillService) Run(ctx context.Context) (*BackfillResult, error) {
	ghosts, err := s.orders.FindGhostOrders(ctx, s.limit)
	if err != nil {
		return nil, fmt.Errorf("find ghost orders: %w", err)
	}

	result := &BackfillResult{Examined: len(ghosts)}
	for i := range ghosts {
		g := ghosts[i]
		if g.RemoteID == nil {
			result.Skipped++
			continue
		}

		ro, err := s.client.GetOrder(ctx, *g.RemoteID)
		if err != nil {
			if errors.Is(err, shared.ErrRemoteOrderNotFound) {
				// the platform no longer knows this order
				if err := g.TransitionTo(order.StatusCancelled); err != nil {
					return result, err
				}
				if err := s.orders.Save(ctx, &g); err != nil {
					return result, fmt.Errorf("cancel orphan order: %w", err)
				}
				s.logger.Warn("ghost order orphaned, cancelled locally",
					zap.String("order_number", g.OrderNumber),
					zap.Int64("remote_id", *g.RemoteID),
				)
				result.Orphaned++
				continue
			}
			if errors.Is(err, shared.ErrRateLimited) {
				return result, err
			}
			return result, fmt.Errorf("refetch order %s: %w", g.OrderNumber, err)
		}

		items := mapRemoteItems(ro)
		if len(items) == 0 {
			result.Skipped++
			continue
		}
		if order.HasDuplicateSKU(items) {
			s.logger.Warn("ghost order carries a repeated SKU, left flagged",
				zap.String("order_number", g.OrderNumber),
			)
			g.Flag()
			if err := s.orders.Save(ctx, &g); err != nil {
				return result, err
			}
			result.Skipped++
			continue
		}

		if err := s.orders.ReplaceItems(ctx, g.ID, items); err != nil {
			return result, fmt.Errorf("backfill items for %s: %w", g.OrderNumber, err)
		}
		result.Backfilled++
	}

	s.logger.Info("ghost backfill finished",
		zap.Int("examined", result.Examined),
		zap.Int("backfilled", result.Backfilled),
		zap.Int("orphaned", result.Orphaned),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}
