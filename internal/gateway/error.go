// Package gateway declares the remote capabilities the sync engines consume
// and the single error type adapters are allowed to return.
package gateway

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	RemoteWoo        = "woocommerce"
	RemoteBizimHesap = "bizimhesap"
)

// Error is a failed remote call. Adapters convert every transport, HTTP and
// decoding failure into an *Error; callers treat it as "nothing now, try later".
type Error struct {
	Remote  string
	Op      string
	Status  int    // HTTP status, 0 for transport failures
	Code    string // remote error code when the body carried one
	Message string
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %s", e.Remote, e.Op, e.Message)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Remote, e.Op, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s: %d: %s", e.Remote, e.Op, e.Status, e.Message)
}

// Temporary reports whether retrying later may succeed.
func (e *Error) Temporary() bool {
	return e.Status == 0 || e.Status == 429 || e.Status >= 500
}

// AsError unwraps err to an *Error.
func AsError(err error) (*Error, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}
