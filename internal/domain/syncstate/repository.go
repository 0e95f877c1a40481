package syncstate

import (
	"context"
	"time"
)

// WatermarkRepository persists per-workflow watermarks
type WatermarkRepository interface {
	// Get returns the watermark for a workflow, creating it at the given
	// initial timestamp when the row does not exist yet.
	Get(ctx context.Context, workflow Workflow, initial time.Time) (*Watermark, error)

	// Advance moves the workflow's watermark forward. Passing a timestamp at
	// or before the stored value is a no-op, keeping the watermark monotonic.
	Advance(ctx context.Context, workflow Workflow, to time.Time) error

	// List returns all watermark rows
	List(ctx context.Context) ([]Watermark, error)
}

// WorkflowControlRepository persists workflow enable/disable switches
type WorkflowControlRepository interface {
	// IsEnabled reports whether a workflow is enabled. Missing rows default
	// to enabled.
	IsEnabled(ctx context.Context, workflow Workflow) (bool, error)

	// SetEnabled flips the switch for a workflow
	SetEnabled(ctx context.Context, workflow Workflow, enabled bool, by string) error

	// List returns all control rows
	List(ctx context.Context) ([]WorkflowControl, error)
}
