package middleware

import (
	"fmt"
	"net/http"

	"github.com/niktheblak/waterlevel-uploader/pkg/auth"
)

type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Authorizer returns a transport that adds credentials to every request
// before handing it to base. A nil base means http.DefaultTransport.
func Authorizer(base http.RoundTripper, authorizer auth.Authorizer) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		// RoundTrippers must not modify the caller's request
		r := req.Clone(req.Context())
		if err := authorizer.Authorize(r.Context(), r); err != nil {
			closeBody(req)
			return nil, fmt.Errorf("authorize request: %w", err)
		}
		return base.RoundTrip(r)
	})
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		req.Body.Close()
	}
}
