package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestProductStockPredicates(t *testing.T) {
	tests := []struct {
		name     string
		qty      int
		minStock *int
		out, low bool
	}{
		{"out of stock", 0, nil, true, false},
		{"default threshold edge", 5, nil, false, true},
		{"above default", 6, nil, false, false},
		{"custom threshold", 8, intPtr(10), false, true},
		{"zero threshold", 1, intPtr(0), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Product{Quantity: tt.qty, MinStock: tt.minStock}
			assert.Equal(t, tt.out, p.IsOutOfStock())
			assert.Equal(t, tt.low, p.IsLowStock())
		})
	}
}

func TestProductValidate(t *testing.T) {
	valid := Product{
		ID: "p1", NameAr: "ضاغط", Category: "1", Quantity: 3,
		BuyingPrice: Money("100"), SellingPrice: Money("150"), Price: Money("150"),
		CreatedAt: t0, UpdatedAt: t0,
	}
	require.NoError(t, valid.Validate())

	neg := valid
	neg.Quantity = -1
	err := neg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantity")

	price := valid
	price.BuyingPrice = Money("-0.5")
	err = price.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "buyingPrice")

	noName := valid
	noName.NameAr = ""
	assert.Error(t, noName.Validate())

	noTime := valid
	noTime.CreatedAt = time.Time{}
	assert.Error(t, noTime.Validate())
}

func TestProductNormalize_LegacyPrice(t *testing.T) {
	p := Product{NameAr: " ab ", Price: Money("20"), CreatedAt: t0}
	p.Normalize()

	assert.Equal(t, "ab", p.NameAr)
	assert.True(t, p.SellingPrice.Equal(Money("20")))
	assert.Equal(t, t0, p.UpdatedAt)
}

func TestProductJSON_NumericMoney(t *testing.T) {
	p := Product{ID: "p1", NameAr: "x", Category: "1", SellingPrice: Money("12.5"), CreatedAt: t0, UpdatedAt: t0}
	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sellingPrice":12.5`)
	assert.NotContains(t, string(data), "minStock")
}

func TestContainsFold(t *testing.T) {
	assert.True(t, ContainsFold("Copper Pipe", "copper"))
	assert.True(t, ContainsFold("anything", ""))
	// "é" precomposed vs combining sequence.
	assert.True(t, ContainsFold("Café", "café"))
	assert.False(t, ContainsFold("Valve", "pump"))
}

func TestLookupCategory(t *testing.T) {
	c, ok := LookupCategory("2")
	require.True(t, ok)
	assert.Equal(t, "Refrigerants", c.NameEn)

	_, ok = LookupCategory("99")
	assert.False(t, ok)
}
