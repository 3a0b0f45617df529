package product

import (
	"context"
	"testing"

	"WooWithBizimHesap/internal/database/dbtest"
	"WooWithBizimHesap/pkg/logging"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64p(v int64) *int64 { return &v }

func newStore(t *testing.T) *Store {
	return NewStore(dbtest.New(t), logging.Discard())
}

func TestUpsertIsKeyedBySKU(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	p := &Product{SKU: "SKU-1", WooID: int64p(10), Name: "Kahve", RegularPrice: decimal.RequireFromString("12.50"), SyncStatus: SyncSynced}
	require.NoError(t, s.Upsert(ctx, p))
	firstID := p.ID
	require.NotZero(t, firstID)

	again := &Product{SKU: "SKU-1", WooID: int64p(10), Name: "Kahve 250g", RegularPrice: decimal.RequireFromString("13.00"), SyncStatus: SyncSynced}
	require.NoError(t, s.Upsert(ctx, again))
	assert.Equal(t, firstID, again.ID)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.FindBySKU(ctx, "SKU-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Kahve 250g", got.Name)
	assert.True(t, decimal.RequireFromString("13").Equal(got.RegularPrice))
	require.NotNil(t, got.WooID)
	assert.EqualValues(t, 10, *got.WooID)
	assert.NotNil(t, got.SyncedAt)
}

func TestUpsertKeepsERPID(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Upsert(ctx, &Product{SKU: "A", ERPID: "erp-1"}))
	require.NoError(t, s.Upsert(ctx, &Product{SKU: "A", Name: "renamed"}))

	got, err := s.FindBySKU(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "erp-1", got.ERPID)
	assert.Equal(t, "renamed", got.Name)
}

func TestUpsertRejectsSyncedWithoutWooID(t *testing.T) {
	s := newStore(t)
	err := s.Upsert(context.Background(), &Product{SKU: "X", SyncStatus: SyncSynced})
	assert.True(t, errors.Is(err, ErrSyncedWithoutWooID))
}

func TestFindMissing(t *testing.T) {
	s := newStore(t)
	got, err := s.FindBySKU(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.FindByWooID(context.Background(), 99)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestReplaceImagesAndVariations(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	p := &Product{SKU: "V", WooID: int64p(5), Type: TypeVariable, SyncStatus: SyncSynced}
	require.NoError(t, s.Upsert(ctx, p))

	require.NoError(t, s.ReplaceImages(ctx, p.ID, []Image{{Src: "a.jpg"}, {Src: "b.jpg"}, {Src: "c.jpg"}}))
	require.NoError(t, s.ReplaceImages(ctx, p.ID, []Image{{Src: "z.jpg"}, {Src: "a.jpg"}}))

	imgs, err := s.Images(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, imgs, 2)
	assert.Equal(t, "z.jpg", imgs[0].Src)
	assert.Equal(t, 0, imgs[0].Position)
	assert.Equal(t, 1, imgs[1].Position)

	vars := []Variation{
		{WooID: 51, SKU: "V-S", Price: decimal.NewFromInt(10)},
		{WooID: 52, SKU: "V-M", Price: decimal.NewFromInt(11)},
	}
	require.NoError(t, s.ReplaceVariations(ctx, p.ID, vars))
	require.NoError(t, s.ReplaceVariations(ctx, p.ID, vars))

	got, err := s.Variations(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "V-S", got[0].SKU)
	assert.Equal(t, "[]", got[0].Attributes.String())
}

func TestFindVariationBySKU(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	p := &Product{SKU: "V", WooID: int64p(5), Type: TypeVariable, SyncStatus: SyncSynced}
	require.NoError(t, s.Upsert(ctx, p))
	require.NoError(t, s.ReplaceVariations(ctx, p.ID, []Variation{
		{WooID: 51, SKU: "V-S", RegularPrice: decimal.NewFromInt(10)},
		{WooID: 52, SKU: "", RegularPrice: decimal.NewFromInt(11)},
	}))

	v, err := s.FindVariationBySKU(ctx, "V-S")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.EqualValues(t, 51, v.WooID)
	assert.EqualValues(t, 5, v.ParentWooID)
	assert.Equal(t, p.ID, v.ProductID)

	require.NoError(t, s.SetVariationStock(ctx, v.ID, decimal.RequireFromString("12.75"), 4))
	v, err = s.FindVariationBySKU(ctx, "V-S")
	require.NoError(t, err)
	assert.True(t, v.RegularPrice.Equal(decimal.RequireFromString("12.75")))
	require.NotNil(t, v.StockQuantity)
	assert.Equal(t, 4, *v.StockQuantity)

	for _, sku := range []string{"", "V-X"} {
		v, err = s.FindVariationBySKU(ctx, sku)
		assert.NoError(t, err)
		assert.Nil(t, v, sku)
	}
}

func TestReplaceAssociations(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	p := &Product{SKU: "C"}
	require.NoError(t, s.Upsert(ctx, p))

	require.NoError(t, s.UpsertCategory(ctx, Category{WooID: 1, Name: "Çay"}))
	require.NoError(t, s.UpsertCategory(ctx, Category{WooID: 1, Name: "Çaylar"}))
	require.NoError(t, s.UpsertBrand(ctx, Brand{WooID: 7, Name: "Doğuş"}))

	require.NoError(t, s.ReplaceCategories(ctx, p.ID, []int64{1, 2, 3}))
	require.NoError(t, s.ReplaceCategories(ctx, p.ID, []int64{3, 4}))
	require.NoError(t, s.ReplaceBrands(ctx, p.ID, []int64{7, 7}))

	cats, err := s.CategoryIDs(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4}, cats)

	brands, err := s.BrandIDs(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, brands)
}

func TestReplaceImagesRollsBackOnInsertFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	s := NewStore(sqlx.NewDb(mockDB, "sqlite3"), logging.Discard())

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM product_images").WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO product_images").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO product_images").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err = s.ReplaceImages(context.Background(), 3, []Image{{Src: "a.jpg"}, {Src: "b.jpg"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}
