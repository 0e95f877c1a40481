package inventory

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	appsync "github.com/oracare/fulfillment/internal/application/sync"
	"github.com/oracare/fulfillment/internal/domain/inventory"
	"github.com/oracare/fulfillment/internal/domain/shared"
)

// PostTransactionInput carries one manual ledger posting
type PostTransactionInput struct {
	SKU       string
	LotNumber string
	Type      inventory.TransactionType
	Quantity  int
	Reference string
	Operator  string
	Notes     string
}

// InventoryService owns the append-only ledger and its two derived caches.
// Every posting writes the ledger row and the cache deltas in one
// transaction, so the caches never drift ahead of or behind the ledger.
type InventoryService struct {
	scope   appsync.TransactionScope
	ledger  inventory.TransactionRepository
	current inventory.CurrentRepository
	lots    inventory.LotRepository
	logger  *zap.Logger
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(
	scope appsync.TransactionScope,
	ledger inventory.TransactionRepository,
	current inventory.CurrentRepository,
	lots inventory.LotRepository,
	logger *zap.Logger,
) *InventoryService {
	return &InventoryService{
		scope:   scope,
		ledger:  ledger,
		current: current,
		lots:    lots,
		logger:  logger,
	}
}

// PostTransaction validates and appends a ledger row, applying the signed
// delta to the current-quantity and per-lot caches in the same transaction.
func (s *InventoryService) PostTransaction(ctx context.Context, input PostTransactionInput) (*inventory.Transaction, error) {
	tx, err := inventory.NewTransaction(input.SKU, input.LotNumber, input.Type, input.Quantity, input.Reference, input.Operator)
	if err != nil {
		return nil, err
	}
	tx.Notes = input.Notes

	delta := tx.Type.SignedQuantity(tx.Quantity)
	now := time.Now().UTC()

	err = s.scope.Execute(ctx, func(repos appsync.Repositories) error {
		if err := repos.Ledger().Append(ctx, tx); err != nil {
			return err
		}
		if err := repos.CurrentInventory().ApplyDelta(ctx, tx.SKU, delta, now); err != nil {
			return err
		}
		if tx.LotNumber != "" {
			if err := repos.Lots().ApplyDelta(ctx, tx.SKU, tx.LotNumber, delta); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("post inventory transaction: %w", err)
	}

	s.logger.Info("inventory transaction posted",
		zap.String("sku", tx.SKU),
		zap.String("lot", tx.LotNumber),
		zap.String("type", tx.Type.String()),
		zap.Int("delta", delta),
	)
	return tx, nil
}

// Repack moves quantity from one lot of a SKU to another. Both ledger rows
// and every cache delta commit in one transaction, so a repack can never
// half-apply.
func (s *InventoryService) Repack(ctx context.Context, sku, fromLot, toLot string, quantity int, operator, notes string) ([]*inventory.Transaction, error) {
	if fromLot == "" || toLot == "" {
		return nil, shared.NewDomainError("INVALID_LOT", "Repack requires both lot numbers")
	}
	if fromLot == toLot {
		return nil, shared.NewDomainError("INVALID_LOT", "Repack lots must differ")
	}

	out, err := inventory.NewTransaction(sku, fromLot, inventory.TransactionTypeRepackOut, quantity, "", operator)
	if err != nil {
		return nil, err
	}
	in, err := inventory.NewTransaction(sku, toLot, inventory.TransactionTypeRepackIn, quantity, "", operator)
	if err != nil {
		return nil, err
	}
	out.Notes, in.Notes = notes, notes

	now := time.Now().UTC()
	err = s.scope.Execute(ctx, func(repos appsync.Repositories) error {
		for _, tx := range []*inventory.Transaction{out, in} {
			if err := repos.Ledger().Append(ctx, tx); err != nil {
				return err
			}
			delta := tx.Type.SignedQuantity(tx.Quantity)
			if err := repos.CurrentInventory().ApplyDelta(ctx, tx.SKU, delta, now); err != nil {
				return err
			}
			if err := repos.Lots().ApplyDelta(ctx, tx.SKU, tx.LotNumber, delta); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("repack inventory: %w", err)
	}

	s.logger.Info("inventory repacked",
		zap.String("sku", sku),
		zap.String("from_lot", fromLot),
		zap.String("to_lot", toLot),
		zap.Int("quantity", quantity),
	)
	return []*inventory.Transaction{out, in}, nil
}

// Recompute rebuilds both derived caches from ledger sums. Active-lot flags
// survive the rebuild.
func (s *InventoryService) Recompute(ctx context.Context) error {
	err := s.scope.Execute(ctx, func(repos appsync.Repositories) error {
		bySKU, err := repos.Ledger().SumBySKU(ctx)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		currentRows := make([]inventory.Current, 0, len(bySKU))
		for sku, qty := range bySKU {
			currentRows = append(currentRows, inventory.Current{
				SKU:             sku,
				CurrentQuantity: qty,
				LastUpdated:     now,
			})
		}
		if err := repos.CurrentInventory().Replace(ctx, currentRows); err != nil {
			return err
		}

		byLot, err := repos.Ledger().SumByLot(ctx)
		if err != nil {
			return err
		}
		lotRows := make([]inventory.Lot, 0, len(byLot))
		for key, qty := range byLot {
			if key.Lot == "" {
				continue
			}
			lotRows = append(lotRows, inventory.Lot{
				SKU:       key.SKU,
				LotNumber: key.Lot,
				Quantity:  qty,
			})
		}
		return repos.Lots().Replace(ctx, lotRows)
	})
	if err != nil {
		return fmt.Errorf("recompute inventory caches: %w", err)
	}

	s.logger.Info("inventory caches recomputed from ledger")
	return nil
}

// CurrentLevels returns all cached current quantities
func (s *InventoryService) CurrentLevels(ctx context.Context) ([]inventory.Current, error) {
	return s.current.List(ctx)
}

// CurrentLevel returns the cached current quantity for one SKU
func (s *InventoryService) CurrentLevel(ctx context.Context, sku string) (*inventory.Current, error) {
	return s.current.Get(ctx, sku)
}

// LotsForSKU returns all lot balances for a SKU
func (s *InventoryService) LotsForSKU(ctx context.Context, sku string) ([]inventory.Lot, error) {
	return s.lots.ListBySKU(ctx, sku)
}

// SetActiveLot designates the active lot for a SKU. The lot must exist.
func (s *InventoryService) SetActiveLot(ctx context.Context, sku, lot string) error {
	if sku == "" || lot == "" {
		return shared.NewDomainError("INVALID_LOT", "SKU and lot number are required")
	}
	if err := s.lots.SetActive(ctx, sku, lot); err != nil {
		return err
	}
	s.logger.Info("active lot changed", zap.String("sku", sku), zap.String("lot", lot))
	return nil
}

// ListTransactions returns ledger rows matching a filter
func (s *InventoryService) ListTransactions(ctx context.Context, filter inventory.TransactionFilter) ([]inventory.Transaction, int64, error) {
	return s.ledger.List(ctx, filter)
}
