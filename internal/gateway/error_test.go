package gateway

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	e := &Error{Remote: RemoteWoo, Op: "GetProduct", Status: 400, Code: "woocommerce_rest_invalid", Message: "bad id"}
	assert.Equal(t, "woocommerce GetProduct: 400 woocommerce_rest_invalid: bad id", e.Error())
	assert.False(t, e.Temporary())

	transport := &Error{Remote: RemoteBizimHesap, Op: "CreateInvoice", Message: "connection refused"}
	assert.Equal(t, "bizimhesap CreateInvoice: connection refused", transport.Error())
	assert.True(t, transport.Temporary())
	assert.True(t, (&Error{Status: 503}).Temporary())

	wrapped := errors.Wrap(e, "sku A")
	got, ok := AsError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, 400, got.Status)

	_, ok = AsError(errors.New("plain"))
	assert.False(t, ok)
}
