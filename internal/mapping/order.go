package mapping

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"WooWithBizimHesap/internal/database/model/order"
	"WooWithBizimHesap/internal/wooapi/models"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
)

// customerSnapshot is stored with the order so it survives later edits of
// the customer account.
type customerSnapshot struct {
	ID        int64  `json:"id"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Note      string `json:"note,omitempty"`
}

// Order maps a WooCommerce order and the body it came from. raw is kept
// verbatim; when nil the decoded order is re-encoded instead.
func Order(o models.Order, raw json.RawMessage) (*order.Order, error) {
	if o.ID <= 0 {
		return nil, &ParseError{Field: "id", Reason: "missing"}
	}

	out := &order.Order{
		WooID:         o.ID,
		Number:        o.Number,
		Status:        o.Status,
		Currency:      o.Currency,
		CustomerID:    o.CustomerID,
		PaymentMethod: o.PaymentMethod,
	}
	if out.Number == "" {
		out.Number = strconv.FormatInt(o.ID, 10)
	}

	var err error
	if out.Total, err = money("total", o.Total); err != nil {
		return nil, err
	}
	if out.TotalTax, err = money("total_tax", o.TotalTax); err != nil {
		return nil, err
	}
	if out.ShippingTotal, err = money("shipping_total", o.ShippingTotal); err != nil {
		return nil, err
	}
	if out.DiscountTotal, err = money("discount_total", o.DiscountTotal); err != nil {
		return nil, err
	}
	if out.DateCreated, err = timestamp("date_created", &o.DateCreatedGmt, &o.DateCreated); err != nil {
		return nil, err
	}
	if out.DatePaid, err = timestamp("date_paid", o.DatePaidGmt, o.DatePaid); err != nil {
		return nil, err
	}

	for _, c := range o.CouponLines {
		if code := strings.TrimSpace(c.Code); code != "" {
			out.CouponCode = code
			break
		}
	}

	snap := customerSnapshot{ID: o.CustomerID, Note: o.CustomerNote}
	if o.Billing != nil {
		snap.Email, snap.FirstName, snap.LastName, snap.Phone = o.Billing.Email, o.Billing.FirstName, o.Billing.LastName, o.Billing.Phone
	}
	if out.Customer, err = jsonText("customer", snap); err != nil {
		return nil, err
	}
	if out.Billing, err = address("billing", o.Billing); err != nil {
		return nil, err
	}
	if out.Shipping, err = address("shipping", o.Shipping); err != nil {
		return nil, err
	}

	if len(raw) > 0 {
		out.Raw = types.JSONText(raw)
	} else if out.Raw, err = jsonText("raw", o); err != nil {
		return nil, err
	}

	for i, li := range o.LineItems {
		item, err := lineItem(li)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Field = fmt.Sprintf("line_items[%d].%s", i, pe.Field)
			}
			return nil, err
		}
		out.Items = append(out.Items, item)
		out.Subtotal = out.Subtotal.Add(item.Subtotal)
	}

	if err := check(out); err != nil {
		return nil, err
	}
	return out, nil
}

func lineItem(li models.LineItem) (order.LineItem, error) {
	item := order.LineItem{
		WooLineID:      li.ID,
		ProductWooID:   li.ProductID,
		VariationWooID: li.VariationID,
		SKU:            strings.TrimSpace(li.Sku),
		Name:           li.Name,
		Quantity:       li.Quantity,
	}
	var err error
	if item.Price, err = money("price", li.Price.String()); err != nil {
		return item, err
	}
	if item.Subtotal, err = money("subtotal", li.Subtotal); err != nil {
		return item, err
	}
	if item.Total, err = money("total", li.Total); err != nil {
		return item, err
	}
	if item.TaxTotal, err = money("total_tax", li.TotalTax); err != nil {
		return item, err
	}
	return item, nil
}

func address(field string, a *models.Address) (types.JSONText, error) {
	if a == nil {
		return types.JSONText("{}"), nil
	}
	return jsonText(field, a)
}

func jsonText(field string, v interface{}) (types.JSONText, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, &ParseError{Field: field, Reason: err.Error()}
	}
	return types.JSONText(b), nil
}
