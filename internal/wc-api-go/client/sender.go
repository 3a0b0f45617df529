package client // import "WooWithBizimHesap/internal/wc-api-go/client"

import (
	"context"
	"net/http"

	"WooWithBizimHesap/internal/wc-api-go/request"
)

// Sender interface
type Sender interface {
	Send(ctx context.Context, req request.Request) (resp *http.Response, err error)
}
