package auth

import (
	"context"
	"net/http"
)

type BearerAuthorizer struct {
	Token string
}

func (a *BearerAuthorizer) Authorize(ctx context.Context, req *http.Request) error {
	if a.Token == "" {
		return ErrNoCredentials
	}
	req.Header.Set("Authorization", "Bearer "+a.Token)
	return nil
}

func Bearer(token string) *BearerAuthorizer {
	return &BearerAuthorizer{
		Token: token,
	}
}

// APIKeyAuthorizer passes a web API key as the key query parameter.
type APIKeyAuthorizer struct {
	Key string
}

func (a *APIKeyAuthorizer) Authorize(ctx context.Context, req *http.Request) error {
	if a.Key == "" {
		return ErrNoCredentials
	}
	q := req.URL.Query()
	q.Set("key", a.Key)
	req.URL.RawQuery = q.Encode()
	return nil
}

func APIKey(key string) *APIKeyAuthorizer {
	return &APIKeyAuthorizer{
		Key: key,
	}
}

// FromConfig picks a bearer token over an API key and falls back to None.
func FromConfig(token, apiKey string) Authorizer {
	switch {
	case token != "":
		return Bearer(token)
	case apiKey != "":
		return APIKey(apiKey)
	default:
		return None()
	}
}
