package mapping

import (
	"encoding/json"
	"strings"

	"WooWithBizimHesap/internal/database/model/product"
	"WooWithBizimHesap/internal/wooapi/models"
	"github.com/jmoiron/sqlx/types"
)

// brandAttributes are the attribute names stores use for the brand taxonomy.
var brandAttributes = []string{"pa_brand", "brand", "marka"}

// Product maps a WooCommerce product to a synced canonical product with its
// categories, brands and images. Variations are fetched separately.
func Product(p models.Product) (*product.Product, error) {
	sku := strings.TrimSpace(p.Sku)
	if sku == "" {
		return nil, ErrMissingSKU
	}
	if p.ID <= 0 {
		return nil, &ParseError{Field: "id", Reason: "missing"}
	}

	regular, err := money("regular_price", p.RegularPrice)
	if err != nil {
		return nil, err
	}
	sale, err := money("sale_price", p.SalePrice)
	if err != nil {
		return nil, err
	}
	price, err := money("price", p.Price)
	if err != nil {
		return nil, err
	}

	wooID := p.ID
	out := &product.Product{
		SKU:           sku,
		WooID:         &wooID,
		Name:          p.Name,
		Type:          p.Type,
		Status:        p.Status,
		RegularPrice:  regular,
		SalePrice:     sale,
		Price:         price,
		StockQuantity: p.StockQuantity,
		StockStatus:   p.StockStatus,
		SyncStatus:    product.SyncSynced,
	}
	if out.Type == "" {
		out.Type = product.TypeSimple
	}

	for _, c := range p.Categories {
		if c.Id > 0 {
			out.Categories = append(out.Categories, product.Category{WooID: c.Id, Name: c.Name, Slug: c.Slug})
		}
	}
	out.Brands = brands(p)
	for i, img := range p.Images {
		out.Images = append(out.Images, product.Image{WooID: img.Id, Src: img.Src, Name: img.Name, Alt: img.Alt, Position: i})
	}

	if err := check(out); err != nil {
		return nil, err
	}
	return out, nil
}

// brands prefers the brands taxonomy. Brands taken from the brand attribute
// only carry a name; their WooID is 0 until resolved against the terms.
func brands(p models.Product) []product.Brand {
	var out []product.Brand
	for _, b := range p.Brands {
		if b.Id > 0 {
			out = append(out, product.Brand{WooID: b.Id, Name: b.Name, Slug: b.Slug})
		}
	}
	if len(out) > 0 {
		return out
	}
	if attr := brandAttribute(p); attr != nil {
		for _, name := range attr.Options {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, product.Brand{Name: name})
			}
		}
	}
	return out
}

func brandAttribute(p models.Product) *models.ProductAttribute {
	for i := range p.Attributes {
		for _, name := range brandAttributes {
			if strings.EqualFold(p.Attributes[i].Name, name) {
				return &p.Attributes[i]
			}
		}
	}
	return nil
}

// BrandAttributeID returns the global attribute id the product's brand
// options belong to, 0 when the brand is not an attribute.
func BrandAttributeID(p models.Product) int64 {
	if attr := brandAttribute(p); attr != nil {
		return attr.Id
	}
	return 0
}

// IsBrandAttribute reports whether a global attribute holds brands.
func IsBrandAttribute(a models.Attribute) bool {
	for _, name := range brandAttributes {
		if strings.EqualFold(a.Slug, name) || strings.EqualFold(a.Name, name) {
			return true
		}
	}
	return false
}

func Variation(v models.Variation) (product.Variation, error) {
	if v.ID <= 0 {
		return product.Variation{}, &ParseError{Field: "id", Reason: "missing"}
	}
	regular, err := money("regular_price", v.RegularPrice)
	if err != nil {
		return product.Variation{}, err
	}
	sale, err := money("sale_price", v.SalePrice)
	if err != nil {
		return product.Variation{}, err
	}
	price, err := money("price", v.Price)
	if err != nil {
		return product.Variation{}, err
	}
	attrs := types.JSONText("[]")
	if len(v.Attributes) > 0 {
		b, err := json.Marshal(v.Attributes)
		if err != nil {
			return product.Variation{}, &ParseError{Field: "attributes", Reason: err.Error()}
		}
		attrs = b
	}
	return product.Variation{
		WooID:         v.ID,
		SKU:           strings.TrimSpace(v.Sku),
		RegularPrice:  regular,
		SalePrice:     sale,
		Price:         price,
		StockQuantity: v.StockQuantity,
		StockStatus:   v.StockStatus,
		Attributes:    attrs,
	}, nil
}
