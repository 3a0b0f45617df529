package bizimhesap

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

const invoiceTypeSales = 3

// Invoice is the body of POST /addinvoice.
type Invoice struct {
	FirmID      string          `json:"firmId"`
	InvoiceNo   string          `json:"invoiceNo"`
	InvoiceType int             `json:"invoiceType"`
	Note        string          `json:"note,omitempty"`
	Dates       InvoiceDates    `json:"dates"`
	Customer    InvoiceCustomer `json:"customer"`
	Amounts     InvoiceAmounts  `json:"amounts"`
	Details     []InvoiceLine   `json:"details"`
}

type InvoiceDates struct {
	InvoiceDate string `json:"invoiceDate"`
	DueDate     string `json:"dueDate"`
}

type InvoiceCustomer struct {
	CustomerID string `json:"customerId"`
	Title      string `json:"title"`
	TaxOffice  string `json:"taxOffice,omitempty"`
	TaxNo      string `json:"taxNo,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
}

type InvoiceAmounts struct {
	Currency string          `json:"currency"`
	Gross    decimal.Decimal `json:"gross"`
	Discount decimal.Decimal `json:"discount"`
	Net      decimal.Decimal `json:"net"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// InvoiceLine amounts are line totals; UnitPrice and GrossPrice are per unit.
type InvoiceLine struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Barcode     string          `json:"barcode,omitempty"`
	TaxRate     decimal.Decimal `json:"taxRate"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	GrossPrice  decimal.Decimal `json:"grossPrice"`
	Discount    decimal.Decimal `json:"discount"`
	Net         decimal.Decimal `json:"net"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
}

type invoiceResponse struct {
	Error string `json:"error"`
	GUID  string `json:"guid"`
	URL   string `json:"url"`
}

// productsEnvelope covers the object shapes the products endpoint answers
// with; a bare array is handled separately.
type productsEnvelope struct {
	ResultCode *int              `json:"resultCode"`
	ErrorText  string            `json:"errorText"`
	Products   []json.RawMessage `json:"products"`
	Data       json.RawMessage   `json:"data"`
}
