package syncstate

import (
	"time"
)

// Workflow identifies a named background sync workflow
type Workflow string

const (
	// WorkflowUnifiedSync is the 5-minute ShipStation reconciliation sync
	WorkflowUnifiedSync Workflow = "unified_sync"
	// WorkflowDuplicateScan is the 15-minute duplicate/collision scanner
	WorkflowDuplicateScan Workflow = "duplicate_scan"
	// WorkflowLotMismatchScan is the 15-minute lot-mismatch scanner
	WorkflowLotMismatchScan Workflow = "lot_mismatch_scan"
	// WorkflowGhostBackfill is the ghost-order item backfill
	WorkflowGhostBackfill Workflow = "ghost_backfill"
	// WorkflowCleanup is the daily 60-day inbox cleanup
	WorkflowCleanup Workflow = "cleanup"
)

// String returns the string representation of Workflow
func (w Workflow) String() string {
	return string(w)
}

// IsValid returns true if the workflow name is known
func (w Workflow) IsValid() bool {
	switch w {
	case WorkflowUnifiedSync,
		WorkflowDuplicateScan,
		WorkflowLotMismatchScan,
		WorkflowGhostBackfill,
		WorkflowCleanup:
		return true
	}
	return false
}

// Watermark holds the last successfully-processed modification timestamp for
// one workflow. It is monotonically non-decreasing and only moves inside the
// same transaction as the order writes it gates.
type Watermark struct {
	Workflow    Workflow  `gorm:"size:64;primaryKey"`
	ProcessedTo time.Time `gorm:"not null"`
	UpdatedAt   time.Time
}

// TableName returns the table name for GORM
func (Watermark) TableName() string {
	return "sync_watermarks"
}

// Advance moves the watermark forward. Moves backward are ignored so the
// watermark stays monotonic even if a caller passes a stale timestamp.
func (w *Watermark) Advance(to time.Time) bool {
	if !to.After(w.ProcessedTo) {
		return false
	}
	w.ProcessedTo = to
	w.UpdatedAt = time.Now()
	return true
}

// WorkflowControl is the persisted on/off switch per workflow, toggled from
// the dashboard.
type WorkflowControl struct {
	Workflow  Workflow `gorm:"size:64;primaryKey"`
	Enabled   bool     `gorm:"not null;default:true"`
	UpdatedBy string   `gorm:"size:128"`
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (WorkflowControl) TableName() string {
	return "workflow_controls"
}
