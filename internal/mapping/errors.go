// Package mapping turns remote payloads into canonical values. Every function
// returns either a fully populated value or an error; nothing is defaulted
// silently at the read site.
package mapping

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// ErrMissingSKU marks a remote product that cannot be reconciled because it
// has no join key.
var ErrMissingSKU = errors.New("missing sku")

// ParseError reports the first field of a payload that could not be mapped.
type ParseError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("field %s %q: %s", e.Field, e.Value, e.Reason)
}

// IsParseError reports whether err is, or wraps, a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

var validate = validator.New()

// check runs struct validation and reports the first violation as a ParseError.
func check(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ParseError{Field: fe.Field(), Value: fmt.Sprint(fe.Value()), Reason: "failed " + fe.Tag()}
	}
	return errors.Wrap(err, "failed validate")
}
