package platform

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource acquires a fresh Authorization header value. It is supplied by
// the caller because each upstream platform has its own token dance; the
// client only owns caching and invalidation.
type TokenSource func(ctx context.Context) (string, error)

// ensureAuth returns the cached header value, re-acquiring it when empty or
// when the embedded bearer token has visibly expired. Concurrent requests may
// race and redundantly refetch; token acquisition is idempotent so this is
// accepted rather than locked around the network call.
func (c *Client) ensureAuth(ctx context.Context) (string, error) {
	if c.cfg.Token == nil {
		return "", nil
	}
	c.mu.Lock()
	cached := c.authHeader
	c.mu.Unlock()
	if cached != "" && !bearerExpired(cached, c.nowFn()) {
		return cached, nil
	}

	header, err := c.cfg.Token(ctx)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.authHeader = header
	c.mu.Unlock()
	return header, nil
}

// invalidateAuth drops the cached Authorization header so the next attempt
// re-acquires it. Only the auth-failure retry path calls this.
func (c *Client) invalidateAuth() {
	c.mu.Lock()
	c.authHeader = ""
	c.mu.Unlock()
}

// AuthHeaderCached reports whether an Authorization header is currently
// cached. Exposed for observability and tests.
func (c *Client) AuthHeaderCached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authHeader != ""
}

// bearerExpired inspects a cached "Bearer <jwt>" header and reports whether
// the token's exp claim is already in the past. Opaque or non-JWT tokens are
// never treated as expired; they stay cached until a 401 proves otherwise.
func bearerExpired(header string, now time.Time) bool {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
