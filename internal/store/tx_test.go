package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stockroom/internal/model"
)

func TestMetadata_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	var flag bool
	ok, err := s.GetMetadata(ctx, model.MetaMigratedFromLegacy, &flag)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetMetadata(ctx, model.MetaMigratedFromLegacy, true))
	ok, err = s.GetMetadata(ctx, model.MetaMigratedFromLegacy, &flag)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, flag)

	entry, ok, err := Get[model.Metadata](ctx, s, KindMetadata, model.MetaMigratedFromLegacy)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testTime, entry.UpdatedAt)
	assert.JSONEq(t, "true", string(entry.Value))
}

func TestUpdate_CommitsTogether(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.Update(ctx, func(tx *Tx) error {
		if err := tx.BulkPut(ctx, KindProducts, Records([]model.Product{
			createTestProduct("p1", "A", "1", 1),
		})); err != nil {
			return err
		}
		return tx.SetMetadata(ctx, model.MetaLastSync, "2024-03-01T09:30:00Z")
	})
	require.NoError(t, err)

	n, err := s.Count(ctx, KindProducts)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var last string
	ok, err := s.GetMetadata(ctx, model.MetaLastSync, &last)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2024-03-01T09:30:00Z", last)
}

func TestUpdate_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, KindSales, createTestSale("s1")))

	boom := errors.New("boom")
	err := s.Update(ctx, func(tx *Tx) error {
		if err := tx.Clear(ctx, KindSales); err != nil {
			return err
		}
		if err := tx.Put(ctx, KindProducts, createTestProduct("p1", "A", "1", 1)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	sales, err := GetAll[model.Sale](ctx, s, KindSales)
	require.NoError(t, err)
	assert.Len(t, sales, 1)

	n, err := s.Count(ctx, KindProducts)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestUpdate_ReadsOwnWrites(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.Update(ctx, func(tx *Tx) error {
		require.NoError(t, tx.Add(ctx, KindProducts, createTestProduct("p1", "A", "1", 1)))
		got, ok, err := Get[model.Product](ctx, tx, KindProducts, "p1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "A", got.NameAr)
		return tx.Delete(ctx, KindProducts, "p1")
	})
	require.NoError(t, err)

	n, err := s.Count(ctx, KindProducts)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestView_ConsistentSnapshot(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, KindProducts, createTestProduct("p1", "A", "1", 1)))
	require.NoError(t, s.Put(ctx, KindSales, createTestSale("s1")))

	var products []model.Product
	var sales []model.Sale
	err := s.View(ctx, func(tx *ReadTx) error {
		var err error
		if products, err = GetAll[model.Product](ctx, tx, KindProducts); err != nil {
			return err
		}
		sales, err = GetAll[model.Sale](ctx, tx, KindSales)
		return err
	})
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Len(t, sales, 1)
}
