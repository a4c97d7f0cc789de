package platform

import (
	"context"
	"net/http"
	"time"
)

// attemptResult is one observed outcome of the transport call: either a
// response or a transport error, never both.
type attemptResult struct {
	resp *http.Response
	err  error
}

type attemptFn func(ctx context.Context) attemptResult

// retryPolicy is one predicate+backoff layer. Policies nest: each layer
// re-invokes everything inside it, so the ordering of the policy list fixes
// which failure category's backoff governs a given retry.
type retryPolicy struct {
	name        string
	maxAttempts int
	base        time.Duration
	// matches reports whether the outcome belongs to this policy's failure
	// category. onRetry, when set, runs before each re-invocation.
	matches func(attemptResult) bool
	onRetry func()
}

// newPolicyChain builds the standard chain, outermost first: auth failures,
// then rate limiting, then server errors, then transport exceptions. The
// exception policy is innermost so a network-level retry can never be
// interleaved with an unrelated rate-limit retry.
func (c *Client) newPolicyChain() []retryPolicy {
	max := c.cfg.MaxAttempts
	base := c.cfg.BackoffBase
	return []retryPolicy{
		{
			name:        "auth",
			maxAttempts: max,
			base:        base,
			matches:     func(r attemptResult) bool { return r.err == nil && r.resp.StatusCode == http.StatusUnauthorized },
			onRetry:     c.invalidateAuth,
		},
		{
			name:        "rate-limit",
			maxAttempts: max,
			base:        base,
			matches:     func(r attemptResult) bool { return r.err == nil && r.resp.StatusCode == http.StatusTooManyRequests },
		},
		{
			name:        "server-error",
			maxAttempts: max,
			base:        base,
			matches:     func(r attemptResult) bool { return r.err == nil && r.resp.StatusCode >= 500 },
		},
		{
			name:        "exception",
			maxAttempts: max,
			base:        base,
			matches:     func(r attemptResult) bool { return r.err != nil },
		},
	}
}

// runPolicies evaluates the chain recursively. The head policy loops over
// the tail (or the raw attempt, once the chain is exhausted) until its own
// budget runs out or the outcome stops matching its category.
func (c *Client) runPolicies(ctx context.Context, policies []retryPolicy, attempt attemptFn) attemptResult {
	if len(policies) == 0 {
		return attempt(ctx)
	}
	policy := policies[0]
	inner := func(ctx context.Context) attemptResult {
		return c.runPolicies(ctx, policies[1:], attempt)
	}

	var result attemptResult
	for try := 1; ; try++ {
		result = inner(ctx)
		if !policy.matches(result) || try >= policy.maxAttempts {
			return result
		}
		discardBody(result.resp)
		if policy.onRetry != nil {
			policy.onRetry()
		}
		c.logger.WarnContext(ctx, "retrying request",
			"module", "platform.client",
			"layer", "adapter",
			"policy", policy.name,
			"attempt", try,
		)
		if err := c.sleep(ctx, backoffDelay(policy.base, try)); err != nil {
			return attemptResult{err: err}
		}
	}
}

// backoffDelay is exponential in the retry count within one policy layer.
func backoffDelay(base time.Duration, try int) time.Duration {
	return base << (try - 1)
}

// discardBody releases a response that is about to be retried over.
func discardBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
