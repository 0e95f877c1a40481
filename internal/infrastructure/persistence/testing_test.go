package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oracare/fulfillment/internal/domain/alert"
	"github.com/oracare/fulfillment/internal/domain/identity"
	"github.com/oracare/fulfillment/internal/domain/incident"
	"github.com/oracare/fulfillment/internal/domain/inventory"
	"github.com/oracare/fulfillment/internal/domain/order"
	"github.com/oracare/fulfillment/internal/domain/settings"
	"github.com/oracare/fulfillment/internal/domain/shipping"
	"github.com/oracare/fulfillment/internal/domain/syncstate"
)

// setupTestDB creates an in-memory SQLite database with the full schema
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&order.Order{},
		&order.Item{},
		&localOrderOrigin{},
		&shipping.ShippedOrder{},
		&shipping.ShippedItem{},
		&syncstate.Watermark{},
		&syncstate.WorkflowControl{},
		&alert.DuplicateAlert{},
		&alert.LotMismatchAlert{},
		&alert.ManualOrderConflict{},
		&inventory.Transaction{},
		&inventory.Current{},
		&inventory.Lot{},
		&settings.Param{},
		&identity.User{},
		&incident.Incident{},
		&incident.Screenshot{},
	)
	require.NoError(t, err)

	return db
}
