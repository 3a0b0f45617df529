package net // import "WooWithBizimHesap/internal/wc-api-go/net"

import (
	"context"
	"net/http"

	"WooWithBizimHesap/internal/wc-api-go/request"
	"github.com/pkg/errors"
)

// Sender provides HTTP Requests
type Sender struct {
	requestEnricher RequestEnricher
	urlBuilder      URLBuilder
	httpClient      Client
}

func NewSender(e RequestEnricher, b URLBuilder, c Client) *Sender {
	return &Sender{requestEnricher: e, urlBuilder: b, httpClient: c}
}

// Send method sends requests to WooCommerce API
func (s *Sender) Send(ctx context.Context, req request.Request) (*http.Response, error) {
	r, err := s.prepareRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.httpClient.Do(r)
}

func (s *Sender) prepareRequest(ctx context.Context, req request.Request) (*http.Request, error) {
	URL := s.urlBuilder.GetURL(req)

	body, err := req.Payload()
	if err != nil {
		return nil, err
	}

	r, err := http.NewRequestWithContext(ctx, req.Method, URL, body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed http.NewRequest %s", URL)
	}
	if s.requestEnricher != nil {
		s.requestEnricher.EnrichRequest(r)
	}
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "application/json")
	return r, nil
}

// SetRequestEnricher ...
func (s *Sender) SetRequestEnricher(a RequestEnricher) {
	s.requestEnricher = a
}

// SetURLBuilder ...
func (s *Sender) SetURLBuilder(urlBuilder URLBuilder) {
	s.urlBuilder = urlBuilder
}

// SetHTTPClient ...
func (s *Sender) SetHTTPClient(c Client) {
	s.httpClient = c
}
