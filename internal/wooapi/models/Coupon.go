package models

type Coupon struct {
	ID                int64      `json:"id,omitempty"`
	Code              string     `json:"code,omitempty"`
	Amount            string     `json:"amount,omitempty"`
	DiscountType      string     `json:"discount_type,omitempty"`
	Description       string     `json:"description,omitempty"`
	DateExpires       *string    `json:"date_expires,omitempty"`
	UsageCount        int        `json:"usage_count,omitempty"`
	EmailRestrictions []string   `json:"email_restrictions,omitempty"`
	MetaData          []MetaData `json:"meta_data,omitempty"`
}
