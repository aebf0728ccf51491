package auth

import (
	"context"
	"errors"
	"net/http"
)

var ErrNoCredentials = errors.New("no credentials")

// Authorizer adds credentials to an outgoing request.
type Authorizer interface {
	Authorize(ctx context.Context, req *http.Request) error
}

type NoneAuthorizer struct {
}

func (a *NoneAuthorizer) Authorize(ctx context.Context, req *http.Request) error {
	return nil
}

// None sends requests as they are, e.g. to a local emulator.
func None() *NoneAuthorizer {
	return &NoneAuthorizer{}
}
