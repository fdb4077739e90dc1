// Package auth verifies bearer tokens presented to the API.
package auth

import (
	"errors"
	"strings"
)

var (
	ErrMissingToken  = errors.New("missing bearer token")
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrNotConfigured = errors.New("authentication not configured")
)

// Identity is the caller extracted from a verified token
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// Verifier checks a raw token and returns the caller identity
type Verifier interface {
	Verify(token string) (*Identity, error)
}

// Chain tries each verifier in order and accepts the first success
type Chain []Verifier

func (c Chain) Verify(token string) (*Identity, error) {
	if len(c) == 0 {
		return nil, ErrNotConfigured
	}
	var last error
	for _, v := range c {
		id, err := v.Verify(token)
		if err == nil {
			return id, nil
		}
		last = err
	}
	return nil, errors.Join(ErrInvalidToken, last)
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}
