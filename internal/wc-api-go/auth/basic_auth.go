package auth // import "WooWithBizimHesap/internal/wc-api-go/auth"

import (
	"net/http"

	"WooWithBizimHesap/internal/wc-api-go/options"
)

// BasicAuthentication signs requests with the consumer key and secret.
type BasicAuthentication struct {
	Key             string
	Secret          string
	QueryStringAuth bool
}

func New(o options.Basic) *BasicAuthentication {
	return &BasicAuthentication{Key: o.Key, Secret: o.Secret, QueryStringAuth: o.Options.QueryStringAuth}
}

// EnrichRequest adds credentials either as basic auth or, for plain http
// stores and QueryStringAuth, as consumer_key/consumer_secret parameters.
func (b *BasicAuthentication) EnrichRequest(r *http.Request) {
	if b.QueryStringAuth || r.URL.Scheme == "http" {
		q := r.URL.Query()
		q.Set("consumer_key", b.Key)
		q.Set("consumer_secret", b.Secret)
		r.URL.RawQuery = q.Encode()
		return
	}
	r.SetBasicAuth(b.Key, b.Secret)
}
