package syncstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWatermark_Advance(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	w := &Watermark{Workflow: WorkflowUnifiedSync, ProcessedTo: base}

	t.Run("moves forward", func(t *testing.T) {
		assert.True(t, w.Advance(base.Add(5*time.Minute)))
		assert.Equal(t, base.Add(5*time.Minute), w.ProcessedTo)
	})

	t.Run("ignores equal timestamp", func(t *testing.T) {
		assert.False(t, w.Advance(w.ProcessedTo))
	})

	t.Run("ignores backward move", func(t *testing.T) {
		before := w.ProcessedTo
		assert.False(t, w.Advance(base))
		assert.Equal(t, before, w.ProcessedTo)
	})
}

func TestWorkflow_IsValid(t *testing.T) {
	for _, w := range []Workflow{
		WorkflowUnifiedSync,
		WorkflowDuplicateScan,
		WorkflowLotMismatchScan,
		WorkflowGhostBackfill,
		WorkflowCleanup,
	} {
		assert.True(t, w.IsValid(), "%s should be valid", w)
	}
	assert.False(t, Workflow("nightly_magic").IsValid())
	assert.False(t, Workflow("").IsValid())
}
