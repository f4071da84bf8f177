package legacy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stockroom/internal/model"
)

var testTime = time.Date(2024, 5, 2, 14, 0, 0, 0, time.UTC)

func newTestFile(t *testing.T) *File {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultPath)
	return NewFile(path, WithClock(func() time.Time { return testTime }))
}

func TestFile_MissingFileIsEmpty(t *testing.T) {
	f := newTestFile(t)

	_, ok, err := f.GetItem(ProductsKey)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, f.LoadProducts())
	assert.NotNil(t, f.LoadProducts())
}

func TestFile_SetGetRemove(t *testing.T) {
	f := newTestFile(t)

	require.NoError(t, f.SetItem("a", "1"))
	require.NoError(t, f.SetItem("b", "2"))

	v, ok, err := f.GetItem("a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	require.NoError(t, f.RemoveItem("a"))
	require.NoError(t, f.RemoveItem("a"))

	_, ok, err = f.GetItem("a")
	require.NoError(t, err)
	assert.False(t, ok)

	v, _, err = f.GetItem("b")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestFile_WriteLeavesNoTempFiles(t *testing.T) {
	f := newTestFile(t)
	require.NoError(t, f.SetItem("a", "1"))

	entries, err := os.ReadDir(filepath.Dir(f.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, DefaultPath, entries[0].Name())
}

func TestFile_CorruptFile(t *testing.T) {
	f := newTestFile(t)
	require.NoError(t, os.WriteFile(f.Path(), []byte("{not json"), 0o644))

	_, _, err := f.GetItem(ProductsKey)
	assert.Error(t, err)
	assert.Empty(t, f.LoadProducts())
	assert.Error(t, f.SetItem("a", "1"), "a corrupt file is not silently overwritten")
}

func TestFile_SaveAndLoadProducts(t *testing.T) {
	f := newTestFile(t)
	products := []model.Product{{
		ID:           "p1",
		NameAr:       "مفتاح",
		Category:     "3",
		Quantity:     4,
		SellingPrice: model.Money("120.5"),
		Price:        model.Money("120.5"),
		CreatedAt:    testTime.Add(-time.Hour),
		UpdatedAt:    testTime,
	}}

	require.True(t, f.SaveProducts(products))

	loaded := f.LoadProducts()
	require.Len(t, loaded, 1)
	assert.Equal(t, "p1", loaded[0].ID)
	assert.True(t, loaded[0].SellingPrice.Equal(model.Money("120.5")))
	assert.True(t, loaded[0].CreatedAt.Equal(testTime.Add(-time.Hour)))
	assert.True(t, loaded[0].UpdatedAt.Equal(testTime))

	last, ok := f.LastSync()
	require.True(t, ok)
	assert.True(t, last.Equal(testTime))
}

func TestFile_ClearData(t *testing.T) {
	f := newTestFile(t)
	require.NoError(t, f.SetItem("other", "kept"))
	require.True(t, f.SaveProducts(nil))

	require.True(t, f.ClearData())

	_, ok := f.LastSync()
	assert.False(t, ok)
	_, ok, err := f.GetItem(ProductsKey)
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err := f.GetItem("other")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "kept", v)
}

func TestParseProducts_TimestampLayouts(t *testing.T) {
	raw := `[
		{"id":"a","nameAr":"أ","category":"1","quantity":1,"price":10,"createdAt":"2024-01-02T03:04:05.678Z","updatedAt":"2024-01-03T00:00:00Z"},
		{"id":"b","nameAr":"ب","category":"1","quantity":0,"price":"7.25","createdAt":"2024-01-02"}
	]`

	products, err := ParseProducts(raw)
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.True(t, products[0].CreatedAt.Equal(time.Date(2024, 1, 2, 3, 4, 5, 678e6, time.UTC)))
	assert.True(t, products[0].Price.Equal(model.Money("10")))
	assert.True(t, products[1].CreatedAt.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))
	assert.True(t, products[1].UpdatedAt.IsZero())
	assert.True(t, products[1].Price.Equal(model.Money("7.25")))
}

func TestParseProducts_Malformed(t *testing.T) {
	tests := map[string]string{
		"not an array":  `{"id":"a"}`,
		"bad timestamp": `[{"id":"a","createdAt":"yesterday"}]`,
		"bad price":     `[{"id":"a","price":"cheap","createdAt":"2024-01-02"}]`,
		"truncated":     `[{"id":"a"`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseProducts(raw)
			assert.Error(t, err)
		})
	}
}
