package order

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oracare/fulfillment/internal/domain/order"
	"github.com/oracare/fulfillment/internal/domain/shared"
	"github.com/oracare/fulfillment/internal/infrastructure/xmlfeed"
)

// ImportResult summarizes one XML feed import
type ImportResult struct {
	Total    int
	Imported int
	Skipped  int
	Rejected []RejectedOrder
}

// RejectedOrder names a feed order that could not be imported and why
type RejectedOrder struct {
	OrderNumber string `json:"order_number"`
	Reason      string `json:"reason"`
}

// OrderService manages the order inbox and the XML feed intake
type OrderService struct {
	orders order.Repository
	parser *xmlfeed.Parser
	logger *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(orders order.Repository, parser *xmlfeed.Parser, logger *zap.Logger) *OrderService {
	return &OrderService{orders: orders, parser: parser, logger: logger}
}

// ImportFeed parses an XML order feed and loads new orders into the inbox.
// Orders already known by order number are skipped, not updated; the feed is
// an intake channel, not a source of corrections.
func (s *OrderService) ImportFeed(ctx context.Context, r io.Reader) (*ImportResult, error) {
	feed, err := s.parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse order feed: %w", err)
	}

	result := &ImportResult{Total: len(feed.Orders)}
	for i := range feed.Orders {
		fo := feed.Orders[i]

		exists, err := s.orders.ExistsByOrderNumber(ctx, fo.OrderNumber)
		if err != nil {
			return nil, fmt.Errorf("check order %s: %w", fo.OrderNumber, err)
		}
		if exists {
			result.Skipped++
			continue
		}

		o, err := fo.ToOrder()
		if err != nil {
			result.Rejected = append(result.Rejected, RejectedOrder{
				OrderNumber: fo.OrderNumber,
				Reason:      err.Error(),
			})
			continue
		}

		items := o.Items
		o.Items = nil
		if err := s.orders.Save(ctx, o); err != nil {
			return nil, fmt.Errorf("save order %s: %w", o.OrderNumber, err)
		}
		if err := s.orders.ReplaceItems(ctx, o.ID, items); err != nil {
			return nil, fmt.Errorf("save items for %s: %w", o.OrderNumber, err)
		}
		result.Imported++
	}

	s.logger.Info("order feed imported",
		zap.Int("total", result.Total),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("rejected", len(result.Rejected)),
	)
	return result, nil
}

// List returns inbox orders matching a filter
func (s *OrderService) List(ctx context.Context, filter order.Filter) ([]order.Order, int64, error) {
	return s.orders.List(ctx, filter)
}

// Get returns one order with its items
func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return s.orders.FindByID(ctx, id)
}

// GetByOrderNumber returns one order by its natural key
func (s *OrderService) GetByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	return s.orders.FindByOrderNumber(ctx, orderNumber)
}

// SetFlagged marks or clears the attention flag on an order
func (s *OrderService) SetFlagged(ctx context.Context, id uuid.UUID, flagged bool) (*order.Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if flagged {
		o.Flag()
	} else {
		o.Unflag()
	}
	if err := s.orders.Save(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Cancel transitions an order to cancelled. Terminal orders stay put.
func (s *OrderService) Cancel(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status.IsTerminal() {
		return nil, shared.NewDomainError("ORDER_TERMINAL", "Order is already in a final state")
	}
	if err := o.TransitionTo(order.StatusCancelled); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, o); err != nil {
		return nil, err
	}
	s.logger.Info("order cancelled", zap.String("order_number", o.OrderNumber))
	return o, nil
}

// IsKnownOrder reports whether an order number exists in the inbox
func (s *OrderService) IsKnownOrder(ctx context.Context, orderNumber string) (bool, error) {
	_, err := s.orders.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
