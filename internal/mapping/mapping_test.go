package mapping

import (
	"encoding/json"
	"testing"
	"time"

	"WooWithBizimHesap/internal/database/model/product"
	"WooWithBizimHesap/internal/wooapi/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct(t *testing.T) {
	qty := 7
	p, err := Product(models.Product{
		ID: 10, Sku: " A-1 ", Name: "Çay", Type: "variable", Status: "publish",
		RegularPrice: "12.50", SalePrice: "", Price: "12.50", StockQuantity: &qty, StockStatus: "instock",
		Categories: []models.Categories{{Id: 3, Name: "İçecek", Slug: "icecek"}},
		Brands:     []models.Categories{{Id: 9, Name: "Doğuş", Slug: "dogus"}},
		Images:     []models.ProductImage{{Id: 1, Src: "a.jpg"}, {Id: 2, Src: "b.jpg"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "A-1", p.SKU)
	assert.EqualValues(t, 10, *p.WooID)
	assert.Equal(t, product.SyncSynced, p.SyncStatus)
	assert.True(t, p.RegularPrice.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, p.SalePrice.IsZero())
	assert.True(t, p.HasVariations())
	assert.Equal(t, 7, *p.StockQuantity)
	require.Len(t, p.Categories, 1)
	require.Len(t, p.Brands, 1)
	assert.EqualValues(t, 9, p.Brands[0].WooID)
	require.Len(t, p.Images, 2)
	assert.Equal(t, 1, p.Images[1].Position)
}

func TestProductMissingSKU(t *testing.T) {
	_, err := Product(models.Product{ID: 1, Name: "no sku"})
	assert.True(t, errors.Is(err, ErrMissingSKU))
}

func TestProductBadPrice(t *testing.T) {
	_, err := Product(models.Product{ID: 1, Sku: "A", RegularPrice: "abc"})
	require.Error(t, err)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "regular_price", pe.Field)
}

func TestProductBrandFromAttribute(t *testing.T) {
	src := models.Product{ID: 1, Sku: "A", Attributes: []models.ProductAttribute{
		{Id: 4, Name: "Renk", Options: []string{"Kırmızı"}},
		{Id: 6, Name: "Marka", Options: []string{"Doğuş", " "}},
	}}
	p, err := Product(src)
	require.NoError(t, err)
	require.Len(t, p.Brands, 1)
	assert.Equal(t, "Doğuş", p.Brands[0].Name)
	assert.Zero(t, p.Brands[0].WooID)
	assert.EqualValues(t, 6, BrandAttributeID(src))
	assert.True(t, IsBrandAttribute(models.Attribute{Slug: "pa_brand"}))
}

func TestVariation(t *testing.T) {
	v, err := Variation(models.Variation{ID: 5, Sku: "A-S", Price: "3", Attributes: []models.VariationAttribute{{Name: "Size", Option: "S"}}})
	require.NoError(t, err)
	assert.EqualValues(t, 5, v.WooID)
	assert.Contains(t, string(v.Attributes), `"option":"S"`)

	v, err = Variation(models.Variation{ID: 6})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(v.Attributes))
}

func TestOrder(t *testing.T) {
	raw := json.RawMessage(`{"id":100,"status":"processing","total":"118.00","total_tax":"18.00","date_created_gmt":"2024-05-01T10:00:00","date_paid_gmt":"2024-05-01T10:05:00","coupon_lines":[{"code":"AFF10"}],"billing":{"email":"a@b.c","first_name":"Ayşe"},"line_items":[{"id":1,"sku":"A","quantity":2,"price":50,"subtotal":"100.00","total":"100.00","total_tax":"18.00"}]}`)
	var src models.Order
	require.NoError(t, json.Unmarshal(raw, &src))

	o, err := Order(src, raw)
	require.NoError(t, err)
	assert.EqualValues(t, 100, o.WooID)
	assert.Equal(t, "100", o.Number)
	assert.Equal(t, "AFF10", o.CouponCode)
	assert.True(t, o.Total.Equal(decimal.NewFromInt(118)))
	assert.True(t, o.Subtotal.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC), *o.DatePaid)
	assert.JSONEq(t, string(raw), string(o.Raw))
	assert.Contains(t, string(o.Customer), `"first_name":"Ayşe"`)
	assert.Equal(t, "{}", string(o.Shipping))
	require.Len(t, o.Items, 1)
	assert.True(t, o.Items[0].Price.Equal(decimal.NewFromInt(50)))
	assert.True(t, o.IsPaid())
}

func TestOrderErrors(t *testing.T) {
	_, err := Order(models.Order{Status: "processing"}, nil)
	assert.True(t, IsParseError(err))

	_, err = Order(models.Order{ID: 1, Status: "processing", LineItems: []models.LineItem{{ID: 1, Total: "x"}}}, nil)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "line_items[0].total", pe.Field)

	_, err = Order(models.Order{ID: 1}, nil)
	assert.True(t, IsParseError(err), "status is required")
}

func TestCatalogItemSpellings(t *testing.T) {
	bizim, err := CatalogItem(json.RawMessage(`{"guid":"g-1","barcode":"869","code":"SKU1","title":"Çay","price":"12,50","quantity":"4.000","vat":18,"brand":"Doğuş","photo":"https://x/y.jpg"}`))
	require.NoError(t, err)
	assert.Equal(t, "g-1", bizim.ExternalID)
	assert.Equal(t, "SKU1", bizim.SKU)
	assert.True(t, bizim.Price.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, 4, bizim.Stock)
	assert.True(t, bizim.VatRate.Equal(decimal.NewFromInt(18)))
	assert.Equal(t, "https://x/y.jpg", bizim.ImageURL)
	assert.Equal(t, "pending", bizim.SyncStatus)

	kozvit, err := CatalogItem(json.RawMessage(`{"barkod":"870","urunAdi":"Kahve","fiyat":99.9,"stok":-2,"kdv":"10","marka":"Kurukahveci","kategori":"Kahve","images":[{"src":"k.jpg"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "870", kozvit.ExternalID)
	assert.Equal(t, "870", kozvit.SKU)
	assert.Equal(t, 0, kozvit.Stock)
	assert.Equal(t, "k.jpg", kozvit.ImageURL)
	assert.Equal(t, "Kurukahveci", kozvit.Brand)
}

func TestCatalogItemErrors(t *testing.T) {
	for name, raw := range map[string]string{
		"not an object": `[1,2]`,
		"no id":         `{"title":"x"}`,
		"no name":       `{"id":"1"}`,
		"bad price":     `{"id":"1","title":"x","price":"ücretsiz"}`,
	} {
		_, err := CatalogItem(json.RawMessage(raw))
		assert.True(t, IsParseError(err), name)
	}
}

func TestStagingToWoo(t *testing.T) {
	rec, err := CatalogItem(json.RawMessage(`{"id":"1","barcode":"869","title":"Çay","price":"10","stok":3,"kdv":1,"image":"a.jpg"}`))
	require.NoError(t, err)

	p, err := StagingToWoo(rec)
	require.NoError(t, err)
	assert.Equal(t, "869", p.Sku)
	assert.Equal(t, "10.00", p.RegularPrice)
	assert.Equal(t, 3, *p.StockQuantity)
	assert.Equal(t, "reduced-rate-1", p.TaxClass)
	require.Len(t, p.Images, 1)

	rec.Price = decimal.Zero
	_, err = StagingToWoo(rec)
	assert.True(t, IsParseError(err))
}

func TestMoneySeparators(t *testing.T) {
	for in, want := range map[string]string{
		"12.50":        "12.5",
		"12,50":        "12.5",
		"1.234,50":     "1234.5",
		"1,234.50":     "1234.5",
		"1.234.567,89": "1234567.89",
		"1,234,567":    "1234567",
		"1.234.567":    "1234567",
		" 7 ":          "7",
		"":             "0",
	} {
		d, err := money("price", in)
		require.NoError(t, err, in)
		assert.Equal(t, want, d.String(), in)
	}

	for _, bad := range []string{"12,5x", "1.2.3,4,5", "abc"} {
		_, err := money("price", bad)
		assert.True(t, IsParseError(err), bad)
	}
}

func TestCatalogItemTurkishPrice(t *testing.T) {
	rec, err := CatalogItem(json.RawMessage(`{"id":"1","barcode":"869","title":"Semaver","fiyat":"1.234,50","kdv":"20"}`))
	require.NoError(t, err)
	assert.Equal(t, "1234.5", rec.Price.String())
}
