package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/line-order/utils"
)

func TestBagLabel(t *testing.T) {
	db := setupTestDB(t)
	customer := seedCustomer(t, db, "Somchai", "0812345678")
	order := seedOrder(t, db, "SO-2026-00001", customer.ID, 130)
	require.NoError(t, db.Model(&order).Update("note", "leave at the gate").Error)

	svc := NewLabelService(db, "", "Baan Kanom")
	pdf, err := svc.BagLabel(context.Background(), "SO-2026-00001")
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
	assert.Contains(t, string(pdf), "%%EOF")
}

func TestBagLabelUnknownOrder(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLabelService(db, "", "")

	_, err := svc.BagLabel(context.Background(), "SO-2026-09999")
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
}
