package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/oracare/fulfillment/internal/domain/inventory"
	"github.com/oracare/fulfillment/internal/domain/settings"
	"github.com/oracare/fulfillment/internal/domain/shared"
	"github.com/oracare/fulfillment/internal/domain/shipping"
)

const (
	// ReportShipmentVolume is the per-SKU shipped-volume and charges workbook
	ReportShipmentVolume = "shipment_volume"
	// ReportInventory is the current-levels and lot-balances workbook
	ReportInventory = "inventory"
)

// ReportService builds operator-facing Excel workbooks. Each report name can
// run once at a time; a second request while one is building is refused
// rather than queued.
type ReportService struct {
	shipped  shipping.Repository
	current  inventory.CurrentRepository
	lots     inventory.LotRepository
	settings settings.Repository
	logger   *zap.Logger

	mu      sync.Mutex
	running map[string]bool
}

// NewReportService creates a new ReportService
func NewReportService(
	shipped shipping.Repository,
	current inventory.CurrentRepository,
	lots inventory.LotRepository,
	settingsRepo settings.Repository,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		shipped:  shipped,
		current:  current,
		lots:     lots,
		settings: settingsRepo,
		logger:   logger,
		running:  make(map[string]bool),
	}
}

func (s *ReportService) acquire(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[name] {
		return shared.ErrReportAlreadyRunning
	}
	s.running[name] = true
	return nil
}

func (s *ReportService) release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, name)
}

// Running reports which report names are currently building
func (s *ReportService) Running() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.running))
	for name := range s.running {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ShipmentVolume builds the shipped-volume workbook for a ship-date window.
// Each SKU row carries units shipped, per-unit charges priced from the
// configured rates, and the pallet count derived from pallet capacity.
func (s *ReportService) ShipmentVolume(ctx context.Context, from, to time.Time) (*excelize.File, error) {
	if err := s.acquire(ReportShipmentVolume); err != nil {
		return nil, err
	}
	defer s.release(ReportShipmentVolume)

	volume, err := s.shipped.VolumeBySKU(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load shipped volume: %w", err)
	}

	rates, err := s.chargeRates(ctx)
	if err != nil {
		return nil, err
	}
	capacity, err := s.palletCapacity(ctx)
	if err != nil {
		return nil, err
	}

	categories := make([]string, 0, len(rates))
	for category := range rates {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	skus := make([]string, 0, len(volume))
	for sku := range volume {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	f := excelize.NewFile()
	sheet := "Shipment Volume"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"SKU", "Units Shipped", "Pallets"}
	for _, category := range categories {
		headers = append(headers, category)
	}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, sku := range skus {
		units := volume[sku]
		values := []any{sku, units, palletCount(units, capacity[sku])}
		for _, category := range categories {
			charge := rates[category].Mul(decimal.NewFromInt(int64(units)))
			amount, _ := charge.Float64()
			values = append(values, amount)
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	s.logger.Info("shipment volume report built",
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("skus", len(skus)),
	)
	return f, nil
}

// Inventory builds the current-levels workbook with a lot-balance sheet
func (s *ReportService) Inventory(ctx context.Context) (*excelize.File, error) {
	if err := s.acquire(ReportInventory); err != nil {
		return nil, err
	}
	defer s.release(ReportInventory)

	levels, err := s.current.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load current levels: %w", err)
	}
	activeLots, err := s.lots.ActiveLots(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active lots: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Current Levels"
	f.SetSheetName("Sheet1", sheet)

	for col, h := range []string{"SKU", "Quantity", "Active Lot", "Last Updated"} {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].SKU < levels[j].SKU })
	for row, level := range levels {
		values := []any{level.SKU, level.CurrentQuantity, activeLots[level.SKU], level.LastUpdated.Format("2006-01-02 15:04")}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	lotSheet := "Lot Balances"
	if _, err := f.NewSheet(lotSheet); err != nil {
		return nil, err
	}
	for col, h := range []string{"SKU", "Lot", "Quantity", "Active"} {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(lotSheet, cell, h)
	}
	row := 2
	for _, level := range levels {
		lots, err := s.lots.ListBySKU(ctx, level.SKU)
		if err != nil {
			return nil, err
		}
		for _, lot := range lots {
			values := []any{lot.SKU, lot.LotNumber, lot.Quantity, lot.IsActive}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				f.SetCellValue(lotSheet, cell, v)
			}
			row++
		}
	}

	return f, nil
}

// chargeRates loads the per-unit charge rate table; missing config means no
// charge columns rather than a failed report
func (s *ReportService) chargeRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	p, err := s.settings.Get(ctx, settings.ParamPerUnitChargeRates)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return map[string]decimal.Decimal{}, nil
		}
		return nil, fmt.Errorf("load charge rates: %w", err)
	}
	return settings.DecodeChargeRates(p.Value)
}

func (s *ReportService) palletCapacity(ctx context.Context) (map[string]int, error) {
	p, err := s.settings.Get(ctx, settings.ParamPalletCapacity)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return map[string]int{}, nil
		}
		return nil, fmt.Errorf("load pallet capacity: %w", err)
	}
	return settings.DecodePalletCapacity(p.Value)
}

// palletCount rounds units up to whole pallets; zero capacity yields zero
func palletCount(units, capacity int) int {
	if capacity <= 0 || units <= 0 {
		return 0
	}
	return (units + capacity - 1) / capacity
}
