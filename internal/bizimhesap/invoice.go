package bizimhesap

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"WooWithBizimHesap/internal/database/model/order"
	"WooWithBizimHesap/internal/wooapi/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// VAT rates in use in Turkey; derived rates snap to the closest one.
var vatRates = []int64{0, 1, 8, 10, 18, 20}

var hundred = decimal.NewFromInt(100)

// vatRate derives the rate in percent from a net amount and its tax.
func vatRate(net, tax decimal.Decimal) decimal.Decimal {
	if !net.IsPositive() || !tax.IsPositive() {
		return decimal.Zero
	}
	pct := tax.Mul(hundred).Div(net)
	best := vatRates[0]
	for _, r := range vatRates {
		if pct.Sub(decimal.NewFromInt(r)).Abs().LessThan(pct.Sub(decimal.NewFromInt(best)).Abs()) {
			best = r
		}
	}
	return decimal.NewFromInt(best)
}

// grossLine splits a tax-inclusive line total into net and tax. Net is
// gross/(1+rate) rounded half away from zero to 2 places; tax is the rest,
// so net+tax always equals gross.
func grossLine(id, name, barcode string, qty int, gross, rate decimal.Decimal) InvoiceLine {
	gross = gross.Round(2)
	net := gross.Div(decimal.NewFromInt(1).Add(rate.Div(hundred))).Round(2)
	q := decimal.NewFromInt(int64(qty))
	unitGross, unitNet := gross, net
	if qty > 0 {
		unitGross = gross.Div(q).Round(2)
		unitNet = net.Div(q).Round(2)
	}
	return InvoiceLine{
		ProductID:   id,
		ProductName: name,
		Barcode:     barcode,
		TaxRate:     rate,
		Quantity:    q,
		UnitPrice:   unitNet,
		GrossPrice:  unitGross,
		Discount:    decimal.Zero,
		Net:         net,
		Tax:         gross.Sub(net),
		Total:       gross,
	}
}

// BuildInvoice turns a paid order into a sales invoice. Each line is priced
// tax-inclusive with the VAT rate implied by WooCommerce's line tax; shipping
// becomes an extra line carrying the order tax not assigned to items.
// Invoice totals are the sums of the rounded lines.
func BuildInvoice(o *order.Order, firmID string, now time.Time) (*Invoice, error) {
	if o == nil || o.WooID == 0 {
		return nil, errors.New("order is empty")
	}
	if len(o.Items) == 0 {
		return nil, errors.Errorf("order %d has no line items", o.WooID)
	}

	inv := &Invoice{
		FirmID:      firmID,
		InvoiceNo:   "WC-" + orderNumber(o),
		InvoiceType: invoiceTypeSales,
		Note:        "WooCommerce #" + orderNumber(o),
		Dates: InvoiceDates{
			InvoiceDate: now.Format(time.RFC3339),
			DueDate:     now.Format(time.RFC3339),
		},
		Customer: customer(o),
	}

	itemTax := decimal.Zero
	for _, it := range o.Items {
		rate := vatRate(it.Total, it.TaxTotal)
		id := it.SKU
		if id == "" {
			id = strconv.FormatInt(it.ProductWooID, 10)
		}
		inv.Details = append(inv.Details, grossLine(id, it.Name, it.SKU, it.Quantity, it.Total.Add(it.TaxTotal), rate))
		itemTax = itemTax.Add(it.TaxTotal)
	}

	if o.ShippingTotal.IsPositive() {
		shippingTax := o.TotalTax.Sub(itemTax)
		if shippingTax.IsNegative() {
			shippingTax = decimal.Zero
		}
		rate := vatRate(o.ShippingTotal, shippingTax)
		inv.Details = append(inv.Details, grossLine("SHIPPING", "Kargo", "", 1, o.ShippingTotal.Add(shippingTax), rate))
	}

	currency := o.Currency
	if currency == "" {
		currency = "TRY"
	}
	amounts := InvoiceAmounts{Currency: currency, Gross: decimal.Zero, Discount: decimal.Zero, Net: decimal.Zero, Tax: decimal.Zero, Total: decimal.Zero}
	for _, l := range inv.Details {
		amounts.Gross = amounts.Gross.Add(l.Net)
		amounts.Net = amounts.Net.Add(l.Net)
		amounts.Tax = amounts.Tax.Add(l.Tax)
		amounts.Total = amounts.Total.Add(l.Total)
	}
	inv.Amounts = amounts
	return inv, nil
}

func orderNumber(o *order.Order) string {
	if o.Number != "" {
		return o.Number
	}
	return strconv.FormatInt(o.WooID, 10)
}

func customer(o *order.Order) InvoiceCustomer {
	var billing models.Address
	if len(o.Billing) > 0 {
		_ = json.Unmarshal(o.Billing, &billing)
	}
	title := strings.TrimSpace(billing.Company)
	if title == "" {
		title = strings.TrimSpace(billing.FirstName + " " + billing.LastName)
	}
	if title == "" {
		title = "WooCommerce Müşterisi"
	}
	id := billing.Email
	if o.CustomerID > 0 {
		id = strconv.FormatInt(o.CustomerID, 10)
	}
	address := strings.TrimSpace(strings.Join([]string{billing.Address1, billing.Address2, billing.Postcode, billing.City, billing.State, billing.Country}, " "))
	return InvoiceCustomer{
		CustomerID: id,
		Title:      title,
		Email:      billing.Email,
		Phone:      billing.Phone,
		Address:    strings.Join(strings.Fields(address), " "),
	}
}
