package options // import "WooWithBizimHesap/internal/wc-api-go/options"

import "time"

// Basic holds the store address and REST credentials.
type Basic struct {
	URL     string
	Key     string
	Secret  string
	Options Advanced
}

// Advanced tunes how requests are built.
type Advanced struct {
	WPAPIPrefix     string // "/wp-json/"
	Version         string // "wc/v3"
	QueryStringAuth bool   // send credentials as query parameters instead of basic auth
	Timeout         time.Duration
}
