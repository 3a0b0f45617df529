package mapping

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// wooTime is how WooCommerce renders its *_gmt timestamps.
const wooTime = "2006-01-02T15:04:05"

// money parses a decimal string; empty means zero. Both 1.234,50 and
// 1,234.50 are read as 1234.50; the last separator is the decimal one.
func money(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(normalizeDecimal(s))
	if err != nil {
		return decimal.Zero, &ParseError{Field: field, Value: s, Reason: "not a decimal"}
	}
	return d, nil
}

func normalizeDecimal(s string) string {
	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			// Turkish sources write 1.234,50
			return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		if strings.Count(s, ",") > 1 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

// timestamp prefers the GMT rendering and falls back to the site-local one,
// which is then taken as UTC. Nil and empty values give nil.
func timestamp(field string, gmt, local *string) (*time.Time, error) {
	s := ""
	switch {
	case gmt != nil && *gmt != "":
		s = *gmt
	case local != nil && *local != "":
		s = *local
	default:
		return nil, nil
	}
	t, err := time.ParseInLocation(wooTime, strings.TrimSuffix(s, "Z"), time.UTC)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, &ParseError{Field: field, Value: s, Reason: "not a timestamp"}
		}
	}
	t = t.UTC()
	return &t, nil
}
