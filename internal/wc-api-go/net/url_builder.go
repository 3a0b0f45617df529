package net // import "WooWithBizimHesap/internal/wc-api-go/net"

import (
	"strings"

	"WooWithBizimHesap/internal/wc-api-go/options"
	"WooWithBizimHesap/internal/wc-api-go/request"
)

// URLBuilder interface
type URLBuilder interface {
	GetURL(req request.Request) string
}

// RESTURLBuilder joins store URL, prefix, version and endpoint.
type RESTURLBuilder struct {
	base string
}

func NewURLBuilder(o options.Basic) *RESTURLBuilder {
	prefix := o.Options.WPAPIPrefix
	if prefix == "" {
		prefix = "/wp-json/"
	}
	version := o.Options.Version
	if version == "" {
		version = "wc/v3"
	}
	base := strings.TrimRight(o.URL, "/") + "/" + strings.Trim(prefix, "/") + "/" + strings.Trim(version, "/") + "/"
	return &RESTURLBuilder{base: base}
}

func (b *RESTURLBuilder) GetURL(req request.Request) string {
	u := b.base + strings.TrimLeft(req.Endpoint, "/")
	if len(req.Values) > 0 {
		u += "?" + req.Values.Encode()
	}
	return u
}
