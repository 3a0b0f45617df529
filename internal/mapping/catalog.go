package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"WooWithBizimHesap/internal/database/model/staging"
	"WooWithBizimHesap/internal/wooapi/models"
	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

// Field spellings of the BizimHesap export and the Kozvit catalog, in
// order of preference.
var (
	keyID       = []string{"id", "guid", "productId", "productGuid", "urunId"}
	keyBarcode  = []string{"barcode", "barkod", "ean", "gtin"}
	keySKU      = []string{"sku", "code", "productCode", "stokKodu", "stockCode"}
	keyName     = []string{"title", "name", "productName", "urunAdi"}
	keyDesc     = []string{"description", "detail", "aciklama"}
	keyPrice    = []string{"price", "salePrice", "fiyat", "satisFiyati"}
	keyStock    = []string{"quantity", "stock", "stok", "miktar"}
	keyVat      = []string{"vat", "vatRate", "tax", "kdv"}
	keyBrand    = []string{"brand", "marka"}
	keyCategory = []string{"category", "categoryName", "kategori"}
	keyImage    = []string{"photo", "image", "imageUrl", "images", "resim"}
)

// CatalogItem maps one ERP catalog row to a pending staging record. The
// external id falls back to the barcode, the sku to the barcode.
func CatalogItem(raw json.RawMessage) (*staging.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return nil, &ParseError{Field: "item", Reason: "not a JSON object"}
	}

	r := &staging.Record{
		ExternalID:  pick(fields, keyID),
		Barcode:     pick(fields, keyBarcode),
		SKU:         pick(fields, keySKU),
		Name:        pick(fields, keyName),
		Description: pick(fields, keyDesc),
		Brand:       pick(fields, keyBrand),
		Category:    pick(fields, keyCategory),
		ImageURL:    pick(fields, keyImage),
		SyncStatus:  staging.SyncPending,
	}
	if r.ExternalID == "" {
		r.ExternalID = r.Barcode
	}
	if r.SKU == "" {
		r.SKU = r.Barcode
	}
	if r.ExternalID == "" {
		return nil, &ParseError{Field: "id", Reason: "neither id nor barcode present"}
	}
	if r.Name == "" {
		return nil, &ParseError{Field: "name", Value: r.ExternalID, Reason: "missing"}
	}

	var err error
	if r.Price, err = money("price", pick(fields, keyPrice)); err != nil {
		return nil, err
	}
	if r.VatRate, err = money("vat", pick(fields, keyVat)); err != nil {
		return nil, err
	}
	stock, err := money("stock", pick(fields, keyStock))
	if err != nil {
		return nil, err
	}
	if stock.IsNegative() {
		stock = decimal.Zero
	}
	r.Stock = int(stock.IntPart())

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return nil, &ParseError{Field: "item", Reason: err.Error()}
	}
	r.Raw = types.JSONText(compact.Bytes())

	if err := check(r); err != nil {
		return nil, err
	}
	return r, nil
}

// pick returns the first non-empty value under any of keys, compared
// case-insensitively. Arrays yield their first element.
func pick(fields map[string]interface{}, keys []string) string {
	for _, key := range keys {
		for k, v := range fields {
			if !strings.EqualFold(k, key) {
				continue
			}
			if s := scalar(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func scalar(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return fmt.Sprint(t)
	case []interface{}:
		for _, e := range t {
			if s := scalar(e); s != "" {
				return s
			}
		}
	case map[string]interface{}:
		return pick(t, []string{"src", "url", "name"})
	}
	return ""
}

// StagingToWoo builds the WooCommerce product a staging record is pushed as.
// Records without a name, a sku or a positive price are refused.
func StagingToWoo(r *staging.Record) (*models.Product, error) {
	if r == nil {
		return nil, &ParseError{Field: "record", Reason: "missing"}
	}
	if strings.TrimSpace(r.Name) == "" {
		return nil, &ParseError{Field: "name", Value: r.ExternalID, Reason: "missing"}
	}
	if strings.TrimSpace(r.SKU) == "" {
		return nil, &ParseError{Field: "sku", Value: r.ExternalID, Reason: "missing"}
	}
	if !r.Price.IsPositive() {
		return nil, &ParseError{Field: "price", Value: r.Price.String(), Reason: "must be positive"}
	}

	stock := r.Stock
	p := &models.Product{
		Name:          r.Name,
		Type:          "simple",
		Status:        "publish",
		Description:   r.Description,
		Sku:           r.SKU,
		RegularPrice:  r.Price.StringFixed(2),
		ManageStock:   true,
		StockQuantity: &stock,
	}
	if r.ImageURL != "" {
		p.Images = []models.ProductImage{{Src: r.ImageURL, Name: r.Name, Alt: r.Name}}
	}
	if r.Barcode != "" {
		p.MetaData = append(p.MetaData, models.MetaData{Key: "_barcode", Value: r.Barcode})
	}
	if r.VatRate.IsPositive() {
		p.TaxClass = TaxClass(r.VatRate)
	}
	return p, nil
}

// TaxClass names the WooCommerce tax class configured for a VAT rate; the
// standard class carries the general rate.
func TaxClass(rate decimal.Decimal) string {
	switch rate.IntPart() {
	case 1:
		return "reduced-rate-1"
	case 8, 10:
		return "reduced-rate"
	default:
		return ""
	}
}
