package request

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

// Request describes one call to the WooCommerce REST API.
type Request struct {
	Method   string
	Endpoint string
	Values   url.Values
	Body     interface{}
}

// Payload is the JSON body of a POST or PUT; nil for other methods.
func (r Request) Payload() (io.Reader, error) {
	if r.Body == nil || (r.Method != http.MethodPost && r.Method != http.MethodPut) {
		return nil, nil
	}
	b, err := json.Marshal(r.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed json.Marshal body for %s", r.Endpoint)
	}
	return bytes.NewReader(b), nil
}
