// Package platform is the resilient HTTP client every outbound call to an
// external platform (Actionstep, Pipedrive, Dataverse) funnels through. It
// layers four retry policies over a plain transport, caches the auth header,
// and normalizes every ordinary HTTP outcome into a success-or-failure
// envelope instead of an error.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 200 * time.Millisecond
	defaultAuthHeader  = "Authorization"
	defaultClientIDKey = "x-client-id"

	headerCorrelationID = "x-correlation-id"
)

// Doer is the fetch-capable transport the client wraps.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config is the per-instance client configuration.
type Config struct {
	BaseURL        string
	ClientID       string
	ClientIDHeader string
	AuthHeaderKey  string
	Token          TokenSource
	MaxAttempts    int
	BackoffBase    time.Duration
	// SuppressBodyLogging disables response-body logging for
	// payload-sensitive endpoints.
	SuppressBodyLogging bool
	Logger              *slog.Logger
	HTTPClient          Doer
}

// Request describes one outbound call.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	RawBody []byte
	Headers map[string]string
	// CorrelationID is propagated as x-correlation-id; generated when empty.
	CorrelationID string
	// Schema, when set, validates the decoded response body. A mismatch is
	// the one condition Do reports as a *ResponseValidationError.
	Schema Schema
	// Stream exposes the response body as a byte stream instead of
	// buffering it; used for large file downloads.
	Stream bool
}

// Response is the uniform envelope for every ordinary HTTP outcome. OK
// distinguishes the success shape (Status, Data) from the failure shape
// (Status, StatusText, Data carrying the parsed-or-raw body).
type Response struct {
	OK         bool
	Status     int
	StatusText string
	Header     http.Header
	Data       any
	// Stream is set instead of Data when Request.Stream was true. The
	// caller owns closing it.
	Stream io.ReadCloser
}

// Client performs HTTP requests with automatic retry across four failure
// categories. One instance per upstream platform; the cached auth header is
// instance state with an explicit invalidate-and-refetch lifecycle.
type Client struct {
	cfg    Config
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
	nowFn  func() time.Time

	mu         sync.Mutex
	authHeader string
}

// NewClient applies defaults and returns a ready client.
func NewClient(cfg Config) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	if cfg.AuthHeaderKey == "" {
		cfg.AuthHeaderKey = defaultAuthHeader
	}
	if cfg.ClientIDHeader == "" {
		cfg.ClientIDHeader = defaultClientIDKey
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		// default to a no-op logger; the client never fails because of logging
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	}
	return &Client{
		cfg:    cfg,
		logger: logger,
		sleep:  sleepContext,
		nowFn:  time.Now,
	}
}

// Do executes the request through the retry chain. Ordinary HTTP failures,
// including exhausted retries on 401/429/5xx, come back as a failure
// envelope with the last observed status. The error return is reserved for
// programming/integration conditions: unreachable transport after the
// exception policy gives up, request construction problems, and schema
// validation mismatches.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	body, err := encodeBody(req)
	if err != nil {
		return Response{}, fmt.Errorf("encode request body: %w", err)
	}

	c.logger.InfoContext(ctx, "outbound request",
		"module", "platform.client",
		"layer", "adapter",
		"method", req.Method,
		"path", req.Path,
		"correlation_id", correlationID,
	)

	result := c.runPolicies(ctx, c.newPolicyChain(), func(ctx context.Context) attemptResult {
		hreq, err := c.buildRequest(ctx, req, body, correlationID)
		if err != nil {
			return attemptResult{err: err}
		}
		resp, err := c.cfg.HTTPClient.Do(hreq)
		return attemptResult{resp: resp, err: err}
	})
	if result.err != nil {
		return Response{}, fmt.Errorf("request %s %s: %w", req.Method, req.Path, result.err)
	}

	// A 401 surviving the auth policy means the cached header is bad for
	// good; drop it so the next call re-acquires a token.
	if result.resp.StatusCode == http.StatusUnauthorized {
		c.invalidateAuth()
	}

	return c.decodeResponse(ctx, req, result.resp, correlationID)
}

func (c *Client) buildRequest(ctx context.Context, req Request, body []byte, correlationID string) (*http.Request, error) {
	target := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/" + strings.TrimPrefix(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Accept", "application/json")
	hreq.Header.Set(headerCorrelationID, correlationID)
	if c.cfg.ClientID != "" {
		hreq.Header.Set(c.cfg.ClientIDHeader, c.cfg.ClientID)
	}
	for k, v := range req.Headers {
		hreq.Header.Set(k, v)
	}

	auth, err := c.ensureAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire auth header: %w", err)
	}
	if auth != "" {
		hreq.Header.Set(c.cfg.AuthHeaderKey, auth)
	}
	return hreq, nil
}

func (c *Client) decodeResponse(ctx context.Context, req Request, resp *http.Response, correlationID string) (Response, error) {
	out := Response{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Header:     resp.Header,
	}

	if resp.StatusCode == http.StatusNoContent {
		discardBody(resp)
		out.OK = true
		c.logResponse(ctx, req, out, correlationID, nil)
		return out, nil
	}

	if req.Stream && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		out.OK = true
		out.Stream = resp.Body
		c.logResponse(ctx, req, out, correlationID, nil)
		return out, nil
	}

	raw, err := io.ReadAll(resp.Body)
	discardBody(resp)
	if err != nil {
		return Response{}, fmt.Errorf("read response body: %w", err)
	}

	out.OK = resp.StatusCode >= 200 && resp.StatusCode < 300

	if out.OK && req.Schema != nil {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return Response{}, &ResponseValidationError{Violations: []Violation{{
				Path:    "$",
				Value:   string(raw),
				Message: "body is not valid JSON",
			}}}
		}
		if violations := Validate(req.Schema, decoded); len(violations) > 0 {
			return Response{}, &ResponseValidationError{Violations: violations}
		}
		out.Data = decoded
		c.logResponse(ctx, req, out, correlationID, raw)
		return out, nil
	}

	// No schema: opportunistic parse, degrading to the raw text.
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err == nil {
		out.Data = decoded
	} else if len(raw) > 0 {
		out.Data = string(raw)
	}
	c.logResponse(ctx, req, out, correlationID, raw)
	return out, nil
}

func (c *Client) logResponse(ctx context.Context, req Request, resp Response, correlationID string, raw []byte) {
	fields := []any{
		"module", "platform.client",
		"layer", "adapter",
		"method", req.Method,
		"path", req.Path,
		"status", resp.Status,
		"correlation_id", correlationID,
	}
	if !c.cfg.SuppressBodyLogging && raw != nil {
		fields = append(fields, "body", string(raw))
	}
	if resp.OK {
		c.logger.DebugContext(ctx, "outbound response", fields...)
		return
	}
	c.logger.WarnContext(ctx, "outbound response failed", fields...)
}

func encodeBody(req Request) ([]byte, error) {
	if req.RawBody != nil {
		return req.RawBody, nil
	}
	if req.Body == nil {
		return nil, nil
	}
	return json.Marshal(req.Body)
}
