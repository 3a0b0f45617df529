package models

type Variation struct {
	ID            int64                `json:"id,omitempty"`
	Sku           string               `json:"sku,omitempty"`
	Price         string               `json:"price,omitempty"`
	RegularPrice  string               `json:"regular_price,omitempty"`
	SalePrice     string               `json:"sale_price,omitempty"`
	Status        string               `json:"status,omitempty"`
	ManageStock   bool                 `json:"manage_stock,omitempty"`
	StockQuantity *int                 `json:"stock_quantity,omitempty"`
	StockStatus   string               `json:"stock_status,omitempty"`
	Image         *ProductImage        `json:"image,omitempty"`
	Attributes    []VariationAttribute `json:"attributes,omitempty"`
}

type VariationAttribute struct {
	ID     int64  `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Option string `json:"option,omitempty"`
}
