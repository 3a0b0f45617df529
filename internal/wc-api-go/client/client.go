package client // import "WooWithBizimHesap/internal/wc-api-go/client"

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"WooWithBizimHesap/internal/wc-api-go/auth"
	wcnet "WooWithBizimHesap/internal/wc-api-go/net"
	"WooWithBizimHesap/internal/wc-api-go/options"
	"WooWithBizimHesap/internal/wc-api-go/request"
)

// Client is upper level class which delegate all work to Sender
type Client struct {
	sender Sender
}

// New builds a client for the store described by o.
func New(o options.Basic) Client {
	timeout := o.Options.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	sender := wcnet.NewSender(auth.New(o), wcnet.NewURLBuilder(o), &http.Client{Timeout: timeout})
	return Client{sender: sender}
}

// NewWithSender is used by tests to substitute the transport.
func NewWithSender(s Sender) Client {
	return Client{sender: s}
}

// Get Method loads data from Endpoint with specified parameters
func (c *Client) Get(ctx context.Context, endpoint string, parameters url.Values) (*http.Response, error) {
	return c.sender.Send(ctx, request.Request{
		Method:   http.MethodGet,
		Endpoint: endpoint,
		Values:   parameters,
	})
}

// Post Method usually creates new instances
func (c *Client) Post(ctx context.Context, endpoint string, parameters url.Values, body interface{}) (*http.Response, error) {
	return c.sender.Send(ctx, request.Request{
		Method:   http.MethodPost,
		Endpoint: endpoint,
		Values:   parameters,
		Body:     body,
	})
}

// Put Method usually update existing instances
func (c *Client) Put(ctx context.Context, endpoint string, body interface{}) (*http.Response, error) {
	return c.sender.Send(ctx, request.Request{
		Method:   http.MethodPut,
		Endpoint: endpoint,
		Body:     body,
	})
}

// Delete Method usually removes existing instances
func (c *Client) Delete(ctx context.Context, endpoint string, parameters url.Values) (*http.Response, error) {
	return c.sender.Send(ctx, request.Request{
		Method:   http.MethodDelete,
		Endpoint: endpoint,
		Values:   parameters,
	})
}
