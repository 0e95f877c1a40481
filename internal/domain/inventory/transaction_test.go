package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionType_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		txType   TransactionType
		expected bool
	}{
		{"Receive is valid", TransactionTypeReceive, true},
		{"Ship is valid", TransactionTypeShip, true},
		{"Adjust Up is valid", TransactionTypeAdjustUp, true},
		{"Adjust Down is valid", TransactionTypeAdjustDown, true},
		{"Repack In is valid", TransactionTypeRepackIn, true},
		{"Repack Out is valid", TransactionTypeRepackOut, true},
		{"unknown is not valid", TransactionType("Backorder"), false},
		{"empty is not valid", TransactionType(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.txType.IsValid())
		})
	}
}

func TestTransactionType_Direction(t *testing.T) {
	increases := []TransactionType{TransactionTypeReceive, TransactionTypeAdjustUp, TransactionTypeRepackIn}
	decreases := []TransactionType{TransactionTypeShip, TransactionTypeAdjustDown, TransactionTypeRepackOut}

	for _, txType := range increases {
		assert.True(t, txType.IsIncrease(), "%s should increase", txType)
		assert.False(t, txType.IsDecrease(), "%s should not decrease", txType)
	}
	for _, txType := range decreases {
		assert.True(t, txType.IsDecrease(), "%s should decrease", txType)
		assert.False(t, txType.IsIncrease(), "%s should not increase", txType)
	}
}

func TestTransactionType_SignedQuantity(t *testing.T) {
	assert.Equal(t, 5, TransactionTypeReceive.SignedQuantity(5))
	assert.Equal(t, -5, TransactionTypeAdjustDown.SignedQuantity(5))
	assert.Equal(t, -12, TransactionTypeShip.SignedQuantity(12))
	assert.Equal(t, 12, TransactionTypeRepackIn.SignedQuantity(12))
}

func TestNewTransaction(t *testing.T) {
	t.Run("creates valid transaction", func(t *testing.T) {
		tx, err := NewTransaction("18675", "240901", TransactionTypeAdjustDown, 5, "cycle count", "maria")
		require.NoError(t, err)
		assert.Equal(t, "18675", tx.SKU)
		assert.Equal(t, TransactionTypeAdjustDown, tx.Type)
		assert.Equal(t, 5, tx.Quantity)
	})

	t.Run("rejects empty SKU", func(t *testing.T) {
		_, err := NewTransaction("", "", TransactionTypeReceive, 1, "", "")
		assert.Error(t, err)
	})

	t.Run("rejects invalid type", func(t *testing.T) {
		_, err := NewTransaction("18675", "", TransactionType("Teleport"), 1, "", "")
		assert.Error(t, err)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := NewTransaction("18675", "", TransactionTypeReceive, 0, "", "")
		assert.Error(t, err)
		_, err = NewTransaction("18675", "", TransactionTypeReceive, -3, "", "")
		assert.Error(t, err)
	})
}
