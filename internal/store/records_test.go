package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stockroom/internal/model"
)

func TestAdd_DuplicateKey(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	p := createTestProduct("p1", "Valve", "3", 4)
	require.NoError(t, s.Add(ctx, KindProducts, p))

	err := s.Add(ctx, KindProducts, p)
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))

	var de *DuplicateKeyError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindProducts, de.Kind)
	assert.Equal(t, "p1", de.ID)
}

func TestPut_Upserts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	p := createTestProduct("p1", "Valve", "3", 4)
	require.NoError(t, s.Put(ctx, KindProducts, p))

	p.Quantity = 9
	require.NoError(t, s.Put(ctx, KindProducts, p))

	got, ok, err := Get[model.Product](ctx, s, KindProducts, "p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 9, got.Quantity)

	n, err := s.Count(ctx, KindProducts)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGet_Absent(t *testing.T) {
	s := createTestStore(t)

	_, ok, err := Get[model.Product](context.Background(), s, KindProducts, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetAll_EmptyIsNotNil(t *testing.T) {
	s := createTestStore(t)

	got, err := GetAll[model.Sale](context.Background(), s, KindSales)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDelete_AbsentIsNoop(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	assert.NoError(t, s.Delete(ctx, KindSales, "missing"))

	require.NoError(t, s.Put(ctx, KindSales, createTestSale("s1")))
	require.NoError(t, s.Delete(ctx, KindSales, "s1"))

	_, ok, err := Get[model.Sale](ctx, s, KindSales, "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClear_LeavesOtherKinds(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.BulkPut(ctx, KindProducts, Records([]model.Product{
		createTestProduct("p1", "A", "1", 1),
		createTestProduct("p2", "B", "1", 2),
	})))
	require.NoError(t, s.Put(ctx, KindSales, createTestSale("s1")))

	require.NoError(t, s.Clear(ctx, KindProducts))

	products, err := GetAll[model.Product](ctx, s, KindProducts)
	require.NoError(t, err)
	assert.Empty(t, products)

	sales, err := GetAll[model.Sale](ctx, s, KindSales)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, "s1", sales[0].ID)
}

func TestBulkPut_LastWriteWins(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, KindProducts, createTestProduct("p0", "Existing", "1", 1)))

	r1 := createTestProduct("p1", "First", "1", 1)
	r2 := createTestProduct("p1", "Second", "2", 7)
	require.NoError(t, s.BulkPut(ctx, KindProducts, Records([]model.Product{r1, r2})))

	all, err := GetAll[model.Product](ctx, s, KindProducts)
	require.NoError(t, err)
	assert.Len(t, all, 2, "cardinality grows by at most one new id")

	got, ok, err := Get[model.Product](ctx, s, KindProducts, "p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Second", got.NameAr)
	assert.Equal(t, 7, got.Quantity)

	// Index columns follow the last write too.
	byCat, err := FindBy[model.Product](ctx, s, KindProducts, "category", "1")
	require.NoError(t, err)
	require.Len(t, byCat, 1)
	assert.Equal(t, "p0", byCat[0].ID)
}

func TestBulkAdd_RollsBackWholeBatch(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	batch := []model.Product{
		createTestProduct("p1", "A", "1", 1),
		createTestProduct("p2", "B", "1", 1),
		createTestProduct("p1", "A again", "1", 1),
	}
	err := s.BulkAdd(ctx, KindProducts, Records(batch))
	require.Error(t, err)

	var be *BulkError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 2, be.Index)
	assert.Equal(t, "p1", be.ID)
	assert.True(t, IsDuplicateKey(err))

	n, err := s.Count(ctx, KindProducts)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "no record of a failed batch may remain")
}

func TestBulk_EmptyIsNoop(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	assert.NoError(t, s.BulkAdd(ctx, KindSales, nil))
	assert.NoError(t, s.BulkPut(ctx, KindSales, []Record{}))
}

func TestFindBy_Indexes(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.BulkPut(ctx, KindMissingItems, Records([]model.MissingItem{
		createTestMissingItem("m1", false),
		createTestMissingItem("m2", true),
		createTestMissingItem("m3", false),
	})))

	open, err := FindBy[model.MissingItem](ctx, s, KindMissingItems, "isResolved", false)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "m1", open[0].ID)
	assert.Equal(t, "m3", open[1].ID)

	require.NoError(t, s.BulkPut(ctx, KindProducts, Records([]model.Product{
		createTestProduct("p1", "A", "1", 0),
		createTestProduct("p2", "B", "1", 3),
	})))
	empty, err := FindBy[model.Product](ctx, s, KindProducts, "quantity", 0)
	require.NoError(t, err)
	require.Len(t, empty, 1)
	assert.Equal(t, "p1", empty[0].ID)

	_, err = FindBy[model.Product](ctx, s, KindProducts, "supplier", "x")
	assert.ErrorIs(t, err, ErrUnknownIndex)
}

func TestFindBy_TimestampIndexes(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	later := createTestProduct("p2", "B", "1", 3)
	later.CreatedAt = testTime.Add(500 * time.Millisecond)
	require.NoError(t, s.Put(ctx, KindProducts, createTestProduct("p1", "A", "1", 0)))
	require.NoError(t, s.Put(ctx, KindProducts, later))

	tests := []struct {
		name  string
		value any
		want  []string
	}{
		{"time value", testTime, []string{"p1"}},
		{"time in another zone", testTime.In(time.FixedZone("AST", 3*3600)), []string{"p1"}},
		{"fractional time", later.CreatedAt, []string{"p2"}},
		{"RFC 3339 string", "2024-03-01T09:30:00Z", []string{"p1"}},
		{"no match", testTime.Add(time.Second), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := FindBy[model.Product](ctx, s, KindProducts, "createdAt", tt.value)
			require.NoError(t, err)
			var ids []string
			for _, p := range found {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	require.NoError(t, s.Put(ctx, KindMissingItems, createTestMissingItem("m1", false)))
	missing, err := FindBy[model.MissingItem](ctx, s, KindMissingItems, "detectedAt", testTime)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "m1", missing[0].ID)
}

func TestTimestampIndexes_SortChronologically(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	whole := createTestProduct("a", "A", "1", 1)
	whole.CreatedAt = testTime.Add(time.Second)
	half := createTestProduct("b", "B", "1", 1)
	half.CreatedAt = testTime.Add(500 * time.Millisecond)
	require.NoError(t, s.BulkPut(ctx, KindProducts, Records([]model.Product{whole, half})))

	db, err := s.handle(ctx)
	require.NoError(t, err)
	rows, err := db.QueryContext(ctx, "SELECT id FROM products ORDER BY created_at")
	require.NoError(t, err)
	defer rows.Close()

	var order []string
	for rows.Next() {
		var id string
		require.NoError(t, rows.Scan(&id))
		order = append(order, id)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"b", "a"}, order)
}

func TestUnknownKind(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.Put(ctx, Kind("customers"), createTestSale("s1"))
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = GetAll[model.Sale](ctx, s, Kind("customers"))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestRoundTrip_PreservesRecords(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	minStock := 2
	p := createTestProduct("p1", "ضاغط", "1", 3)
	p.NameEn = "Compressor"
	p.Supplier = "Frigo"
	p.MinStock = &minStock

	require.NoError(t, s.Put(ctx, KindProducts, p))
	got, ok, err := Get[model.Product](ctx, s, KindProducts, "p1")
	require.NoError(t, err)
	require.True(t, ok)
	assertSameJSON(t, p, got)

	debt := model.NewDebt("d1", model.DebtForm{
		ClientName: "Sami",
		Items:      []model.LineItem{model.NewLineItem("p1", "ضاغط", 1, model.Money("250"))},
	}, testTime)
	require.NoError(t, debt.ApplyPayment(model.Money("100"), "first", testTime))
	require.NoError(t, s.Put(ctx, KindDebts, debt))

	gotDebt, ok, err := Get[model.Debt](ctx, s, KindDebts, "d1")
	require.NoError(t, err)
	require.True(t, ok)
	assertSameJSON(t, debt, gotDebt)

	unpaid, err := FindBy[model.Debt](ctx, s, KindDebts, "isPaid", false)
	require.NoError(t, err)
	assert.Len(t, unpaid, 1)
}
