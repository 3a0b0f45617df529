package net

import "net/http"

// RequestEnricher adds authentication to an outgoing request.
type RequestEnricher interface {
	EnrichRequest(r *http.Request)
}

// Client is the subset of *http.Client the sender needs.
type Client interface {
	Do(req *http.Request) (*http.Response, error)
}
