package models

// Product is a WooCommerce product as returned by /products.
// Prices are decimal strings; StockQuantity is null when stock is unmanaged.
type Product struct {
	ID                int64              `json:"id,omitempty"`
	Name              string             `json:"name,omitempty"`
	Slug              string             `json:"slug,omitempty"`
	Permalink         string             `json:"permalink,omitempty"`
	DateCreated       string             `json:"date_created,omitempty"`
	DateModified      string             `json:"date_modified,omitempty"`
	Type              string             `json:"type,omitempty"`
	Status            string             `json:"status,omitempty"`
	Featured          bool               `json:"featured,omitempty"`
	CatalogVisibility string             `json:"catalog_visibility,omitempty"`
	Description       string             `json:"description,omitempty"`
	ShortDescription  string             `json:"short_description,omitempty"`
	Sku               string             `json:"sku,omitempty"`
	Price             string             `json:"price,omitempty"`
	RegularPrice      string             `json:"regular_price,omitempty"`
	SalePrice         string             `json:"sale_price,omitempty"`
	OnSale            bool               `json:"on_sale,omitempty"`
	TaxStatus         string             `json:"tax_status,omitempty"`
	TaxClass          string             `json:"tax_class,omitempty"`
	ManageStock       bool               `json:"manage_stock,omitempty"`
	StockQuantity     *int               `json:"stock_quantity,omitempty"`
	StockStatus       string             `json:"stock_status,omitempty"`
	Weight            string             `json:"weight,omitempty"`
	Dimensions        *Dimensions        `json:"dimensions,omitempty"`
	ParentId          int64              `json:"parent_id,omitempty"`
	Categories        []Categories       `json:"categories,omitempty"`
	Tags              []Categories       `json:"tags,omitempty"`
	Brands            []Categories       `json:"brands,omitempty"`
	Images            []ProductImage     `json:"images,omitempty"`
	Attributes        []ProductAttribute `json:"attributes,omitempty"`
	Variations        []int64            `json:"variations,omitempty"`
	MenuOrder         int                `json:"menu_order,omitempty"`
	MetaData          []MetaData         `json:"meta_data,omitempty"`
}

type ProductImage struct {
	Id           int64  `json:"id,omitempty"`
	DateCreated  string `json:"date_created,omitempty"`
	DateModified string `json:"date_modified,omitempty"`
	Src          string `json:"src,omitempty"`
	Name         string `json:"name,omitempty"`
	Alt          string `json:"alt,omitempty"`
}

type ProductAttribute struct {
	Id        int64    `json:"id,omitempty"`
	Name      string   `json:"name,omitempty"`
	Position  int      `json:"position,omitempty"`
	Visible   bool     `json:"visible,omitempty"`
	Variation bool     `json:"variation,omitempty"`
	Options   []string `json:"options,omitempty"`
}

type Dimensions struct {
	Length string `json:"length,omitempty"`
	Width  string `json:"width,omitempty"`
	Height string `json:"height,omitempty"`
}

// Categories is the id/name/slug reference WooCommerce embeds for
// categories, tags and brands.
type Categories struct {
	Id   int64  `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Slug string `json:"slug,omitempty"`
}

type MetaData struct {
	Id    int64       `json:"id,omitempty"`
	Key   string      `json:"key,omitempty"`
	Value interface{} `json:"value,omitempty"`
}
