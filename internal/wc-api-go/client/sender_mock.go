package client

import (
	"context"
	"net/http"

	"WooWithBizimHesap/internal/wc-api-go/request"
)

// SenderMock imitates sending requests and records the last one.
type SenderMock struct {
	Response *http.Response
	Err      error
	Last     request.Request
}

// Send ...
func (r *SenderMock) Send(_ context.Context, req request.Request) (*http.Response, error) {
	r.Last = req
	return r.Response, r.Err
}
