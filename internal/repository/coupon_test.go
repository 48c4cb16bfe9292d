package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/coupon-service/internal/domain/coupon"
)

func TestProductSetCodec(t *testing.T) {
	set := []coupon.ProductQuantity{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 1},
	}

	data := encodeProductSet(set)
	assert.JSONEq(t, `[{"product_id":"p1","quantity":2},{"product_id":"p2","quantity":1}]`, string(data))

	got, err := decodeProductSet(data)
	require.NoError(t, err)
	assert.Equal(t, set, got)
}

func TestDecodeProductSetTolerance(t *testing.T) {
	// NULL column.
	got, err := decodeProductSet(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Unknown keys are skipped, not rejected.
	got, err = decodeProductSet([]byte(`[{"product_id":"p1","quantity":3,"note":"legacy"}]`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, coupon.ProductQuantity{ProductID: "p1", Quantity: 3}, got[0])

	_, err = decodeProductSet([]byte(`{not json`))
	require.Error(t, err)
}
