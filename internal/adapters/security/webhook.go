// Package security holds the inbound webhook credential check. Verification
// lives at adapter level so the application layer stays crypto-library
// agnostic.
package security

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// WebhookVerifier validates HS256 bearer tokens minted by upstream intake
// platforms with a shared secret.
type WebhookVerifier struct {
	secret   []byte
	audience string
}

func NewWebhookVerifier(secret, audience string) (*WebhookVerifier, error) {
	if secret == "" {
		return nil, errors.New("webhook secret is required")
	}
	return &WebhookVerifier{secret: []byte(secret), audience: audience}, nil
}

// Verify parses and validates the token signature and expiry. The issuer
// claim comes back so handlers can log which platform delivered.
func (v *WebhookVerifier) Verify(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, verifyOptions(v.audience)...)
	if err != nil {
		return "", err
	}
	issuer, _ := parsed.Claims.GetIssuer()
	return issuer, nil
}

func verifyOptions(audience string) []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return opts
}
