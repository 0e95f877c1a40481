package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFiles(t *testing.T) {
	dir := t.TempDir()

	up, down, err := CreateFiles(dir, "Add Shipped Orders!")
	require.NoError(t, err)

	assert.Contains(t, filepath.Base(up), "_add_shipped_orders.up.sql")
	assert.Contains(t, filepath.Base(down), "_add_shipped_orders.down.sql")

	for _, p := range []string{up, down} {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Contains(t, string(data), "add_shipped_orders")
	}
}

func TestCreateFilesEmptyName(t *testing.T) {
	_, _, err := CreateFiles(t.TempDir(), "!!!")
	assert.Error(t, err)
}
