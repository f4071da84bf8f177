package datasync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stockroom/internal/model"
	"github.com/roach88/stockroom/internal/store"
)

func seed(t *testing.T, f *Facade) {
	t.Helper()
	ctx := context.Background()
	require.True(t, f.SaveProducts(ctx, []model.Product{product("p1", 3), product("p2", 0)}))
	require.True(t, f.SaveMissingItems(ctx, []model.MissingItem{missingItem("m1")}))
	require.True(t, f.SaveSales(ctx, []model.Sale{sale("s1"), sale("s2")}))
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newFacade(t, Options{})
	seed(t, src)

	snap, err := src.ExportAll(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Products, 2)
	assert.Len(t, snap.MissingItems, 1)
	assert.Len(t, snap.Sales, 2)

	dst := newFacade(t, Options{})
	require.NoError(t, dst.ImportAll(ctx, ImportData(snap), ReplaceAll))

	again, err := dst.ExportAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids(snap.Products), ids(again.Products))
	assert.Equal(t, ids(snap.MissingItems), ids(again.MissingItems))
	assert.Equal(t, ids(snap.Sales), ids(again.Sales))
	assert.True(t, again.Sales[0].TotalAmount.Equal(snap.Sales[0].TotalAmount))
}

func TestExportAll_EmptyStore(t *testing.T) {
	snap, err := newFacade(t, Options{}).ExportAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snap.Products)
	assert.Empty(t, snap.Products)
	assert.Empty(t, snap.Sales)
}

func TestImportAll_ReplaceAllDropsOmittedKinds(t *testing.T) {
	ctx := context.Background()
	f := newFacade(t, Options{})
	seed(t, f)

	require.NoError(t, f.ImportAll(ctx, ImportData{Products: []model.Product{product("new", 1)}}, ReplaceAll))

	assert.Equal(t, []string{"new"}, ids(f.LoadProducts(ctx)))
	assert.Empty(t, f.LoadSales(ctx), "omitted sales are cleared")
	assert.Empty(t, f.LoadMissingItems(ctx), "omitted missing items are cleared")
}

func TestImportAll_ReplacePresentKeepsOmittedKinds(t *testing.T) {
	ctx := context.Background()
	f := newFacade(t, Options{})
	seed(t, f)

	require.NoError(t, f.ImportAll(ctx, ImportData{Products: []model.Product{product("new", 1)}}, ReplacePresent))

	assert.Equal(t, []string{"new"}, ids(f.LoadProducts(ctx)))
	assert.Equal(t, []string{"s1", "s2"}, ids(f.LoadSales(ctx)))
	assert.Equal(t, []string{"m1"}, ids(f.LoadMissingItems(ctx)))
}

func TestImportAll_PresentButEmptyClears(t *testing.T) {
	ctx := context.Background()
	f := newFacade(t, Options{})
	seed(t, f)

	data := ImportData{Products: []model.Product{}, Sales: []model.Sale{}}
	require.NoError(t, f.ImportAll(ctx, data, ReplacePresent))

	assert.Empty(t, f.LoadProducts(ctx))
	assert.Empty(t, f.LoadSales(ctx))
	assert.Len(t, f.LoadMissingItems(ctx), 1)
}

func TestImportAll_InvalidRecordLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFacade(t, Options{})
	seed(t, f)

	bad := sale("bad")
	bad.Items = nil
	err := f.ImportAll(ctx, ImportData{
		Products: []model.Product{product("new", 1)},
		Sales:    []model.Sale{sale("ok"), bad},
	}, ReplaceAll)

	require.Error(t, err)
	require.True(t, IsImportError(err))
	var ie *ImportError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, store.KindSales, ie.Kind)
	assert.Equal(t, 1, ie.Index)
	assert.Equal(t, "bad", ie.ID)
	assert.True(t, model.IsValidationError(err))

	assert.Equal(t, []string{"p1", "p2"}, ids(f.LoadProducts(ctx)))
	assert.Equal(t, []string{"s1", "s2"}, ids(f.LoadSales(ctx)))
}

func TestImportAll_DuplicateIDsLastWins(t *testing.T) {
	ctx := context.Background()
	f := newFacade(t, Options{})

	require.NoError(t, f.ImportAll(ctx, ImportData{
		Products: []model.Product{product("dup", 1), product("dup", 9)},
	}, ReplaceAll))

	products := f.LoadProducts(ctx)
	require.Len(t, products, 1)
	assert.Equal(t, 9, products[0].Quantity)
}

func TestImportAll_StampsLastSync(t *testing.T) {
	ctx := context.Background()
	f := newFacade(t, Options{})

	require.NoError(t, f.ImportAll(ctx, ImportData{}, ReplaceAll))
	last, ok, err := f.LastSync(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, last.Equal(testTime))
}

func TestImportAll_UnknownMode(t *testing.T) {
	err := newFacade(t, Options{}).ImportAll(context.Background(), ImportData{}, ImportMode(7))
	assert.Error(t, err)
	assert.Equal(t, "ImportMode(7)", ImportMode(7).String())
}
