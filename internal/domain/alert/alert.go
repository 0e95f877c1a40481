package alert

import (
	"time"

	"github.com/oracare/fulfillment/internal/domain/shared"
)

// Status represents the lifecycle of an alert row
type Status string

const (
	// StatusActive means the alerted condition currently holds
	StatusActive Status = "active"
	// StatusResolved means the condition cleared, automatically or manually
	StatusResolved Status = "resolved"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is valid
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusResolved
}

// Resolution records how an alert was closed
type Resolution struct {
	ResolvedAt *time.Time
	ResolvedBy string `gorm:"size:128"` // operator name, or "auto" for scanner resolution
	Note       string `gorm:"size:1024"`
}

// DuplicateAlert flags more than one remote record for the same
// (order number, base SKU) pair. The pair is the natural key while the
// alert is active.
type DuplicateAlert struct {
	shared.BaseEntity
	OrderNumber string `gorm:"size:64;not null;uniqueIndex:idx_duplicate_alerts_key,priority:1"`
	SKU         string `gorm:"size:64;not null;uniqueIndex:idx_duplicate_alerts_key,priority:2"`
	Status      Status `gorm:"size:16;not null;default:active;index"`
	// Records holds the offending remote records as a JSON array
	Records     string `gorm:"type:jsonb;not null;default:'[]'"`
	RecordCount int    `gorm:"not null"`
	LastSeenAt  time.Time
	Resolution
}

// TableName returns the table name for GORM
func (DuplicateAlert) TableName() string {
	return "duplicate_alerts"
}

// LotMismatchAlert flags a remote order whose embedded lot suffix diverges
// from the currently-active lot for that SKU. There is no auto-resolution
// path: masking an inventory traceability error silently is worse than a
// stale alert.
type LotMismatchAlert struct {
	shared.BaseEntity
	OrderNumber string `gorm:"size:64;not null;uniqueIndex:idx_lot_mismatch_alerts_key,priority:1"`
	SKU         string `gorm:"size:64;not null;uniqueIndex:idx_lot_mismatch_alerts_key,priority:2"`
	Status      Status `gorm:"size:16;not null;default:active;index"`
	OrderLot    string `gorm:"size:64"`
	ActiveLot   string `gorm:"size:64"`
	LastSeenAt  time.Time
	Resolution
}

// TableName returns the table name for GORM
func (LotMismatchAlert) TableName() string {
	return "lot_mismatch_alerts"
}

// ManualOrderConflict flags an order number that spans more than one distinct
// remote order ID, independent of item content. It catches manually recreated
// or reused order numbers.
type ManualOrderConflict struct {
	shared.BaseEntity
	OrderNumber string `gorm:"size:64;not null;uniqueIndex:idx_manual_order_conflicts_key"`
	Status      Status `gorm:"size:16;not null;default:active;index"`
	// RemoteIDs holds the conflicting remote order IDs as a JSON array
	RemoteIDs  string `gorm:"type:jsonb;not null;default:'[]'"`
	IDCount    int    `gorm:"not null"`
	LastSeenAt time.Time
	Resolution
}

// TableName returns the table name for GORM
func (ManualOrderConflict) TableName() string {
	return "manual_order_conflicts"
}

// Resolve closes an alert resolution block
func (r *Resolution) Resolve(by, note string) {
	now := time.Now()
	r.ResolvedAt = &now
	r.ResolvedBy = by
	r.Note = note
}
