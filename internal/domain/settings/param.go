package settings

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Well-known configuration parameter keys
const (
	// ParamKeyProductSKUs is the JSON array of key-product SKUs the pipeline
	// actually processes; all other SKUs are ignored on import.
	ParamKeyProductSKUs = "key_product_skus"
	// ParamPerUnitChargeRates is a JSON object of per-unit charge rates by
	// charge category.
	ParamPerUnitChargeRates = "per_unit_charge_rates"
	// ParamPalletCapacity is a JSON object of pallet capacity per SKU.
	ParamPalletCapacity = "pallet_capacity"
)

// Param is one business configuration parameter. Values are JSON documents
// so list- and map-shaped parameters share one table.
type Param struct {
	Key       string `gorm:"size:128;primaryKey"`
	Value     string `gorm:"type:jsonb;not null"`
	UpdatedBy string `gorm:"size:128"`
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (Param) TableName() string {
	return "configuration_params"
}

// Repository persists configuration parameters
type Repository interface {
	// Get returns a parameter by key, or shared.ErrNotFound
	Get(ctx context.Context, key string) (*Param, error)

	// Set creates or replaces a parameter
	Set(ctx context.Context, p *Param) error

	// List returns all parameters
	List(ctx context.Context) ([]Param, error)
}

// KeyProductSet is the decoded key-product SKU allow-list
type KeyProductSet map[string]struct{}

// Contains reports membership of a base SKU
func (s KeyProductSet) Contains(sku string) bool {
	_, ok := s[sku]
	return ok
}

// DecodeKeyProductSKUs decodes the allow-list parameter value
func DecodeKeyProductSKUs(value string) (KeyProductSet, error) {
	var skus []string
	if err := json.Unmarshal([]byte(value), &skus); err != nil {
		return nil, err
	}
	set := make(KeyProductSet, len(skus))
	for _, sku := range skus {
		set[sku] = struct{}{}
	}
	return set, nil
}

// DecodeChargeRates decodes the per-unit charge rate parameter value
func DecodeChargeRates(value string) (map[string]decimal.Decimal, error) {
	var rates map[string]decimal.Decimal
	if err := json.Unmarshal([]byte(value), &rates); err != nil {
		return nil, err
	}
	return rates, nil
}

// DecodePalletCapacity decodes the pallet capacity parameter value
func DecodePalletCapacity(value string) (map[string]int, error) {
	var capacity map[string]int
	if err := json.Unmarshal([]byte(value), &capacity); err != nil {
		return nil, err
	}
	return capacity, nil
}
