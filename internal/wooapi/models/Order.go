package models

import "encoding/json"

type Order struct {
	ID                 int64        `json:"id"`
	ParentID           int64        `json:"parent_id,omitempty"`
	Number             string       `json:"number,omitempty"`
	Status             string       `json:"status,omitempty"`
	Currency           string       `json:"currency,omitempty"`
	DateCreated        string       `json:"date_created,omitempty"`
	DateCreatedGmt     string       `json:"date_created_gmt,omitempty"`
	DateModified       string       `json:"date_modified,omitempty"`
	DiscountTotal      string       `json:"discount_total,omitempty"`
	ShippingTotal      string       `json:"shipping_total,omitempty"`
	Total              string       `json:"total,omitempty"`
	TotalTax           string       `json:"total_tax,omitempty"`
	PricesIncludeTax   bool         `json:"prices_include_tax,omitempty"`
	CustomerID         int64        `json:"customer_id,omitempty"`
	CustomerNote       string       `json:"customer_note,omitempty"`
	Billing            *Address     `json:"billing,omitempty"`
	Shipping           *Address     `json:"shipping,omitempty"`
	PaymentMethod      string       `json:"payment_method,omitempty"`
	PaymentMethodTitle string       `json:"payment_method_title,omitempty"`
	TransactionID      string       `json:"transaction_id,omitempty"`
	DatePaid           *string      `json:"date_paid,omitempty"`
	DatePaidGmt        *string      `json:"date_paid_gmt,omitempty"`
	DateCompleted      *string      `json:"date_completed,omitempty"`
	LineItems          []LineItem   `json:"line_items,omitempty"`
	CouponLines        []CouponLine `json:"coupon_lines,omitempty"`
	MetaData           []MetaData   `json:"meta_data,omitempty"`
}

type Address struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Company   string `json:"company,omitempty"`
	Address1  string `json:"address_1,omitempty"`
	Address2  string `json:"address_2,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Postcode  string `json:"postcode,omitempty"`
	Country   string `json:"country,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// LineItem price is a JSON number while the totals are decimal strings.
type LineItem struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name,omitempty"`
	ProductID   int64       `json:"product_id,omitempty"`
	VariationID int64       `json:"variation_id,omitempty"`
	Quantity    int         `json:"quantity,omitempty"`
	TaxClass    string      `json:"tax_class,omitempty"`
	Subtotal    string      `json:"subtotal,omitempty"`
	SubtotalTax string      `json:"subtotal_tax,omitempty"`
	Total       string      `json:"total,omitempty"`
	TotalTax    string      `json:"total_tax,omitempty"`
	Sku         string      `json:"sku,omitempty"`
	Price       json.Number `json:"price,omitempty"`
}

type CouponLine struct {
	ID       int64  `json:"id,omitempty"`
	Code     string `json:"code,omitempty"`
	Discount string `json:"discount,omitempty"`
}

// OrderStatusUpdate is the body for PUT /orders/{id}.
type OrderStatusUpdate struct {
	Status string `json:"status"`
}
