package platform

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func makeExpiredJWT() (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	return tok.SignedString([]byte("test-secret"))
}

// scriptedTransport returns canned outcomes in order, then repeats the last.
type scriptedTransport struct {
	outcomes []attemptResult
	requests []*http.Request
}

func (s *scriptedTransport) Do(req *http.Request) (*http.Response, error) {
	s.requests = append(s.requests, req)
	idx := len(s.requests) - 1
	if idx >= len(s.outcomes) {
		idx = len(s.outcomes) - 1
	}
	o := s.outcomes[idx]
	return o.resp, o.err
}

func respWith(status int, body string) attemptResult {
	return attemptResult{resp: &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}}
}

func newTestClient(t *testing.T, transport *scriptedTransport, mutate func(*Config)) *Client {
	t.Helper()
	cfg := Config{
		BaseURL:    "https://api.example.test",
		ClientID:   "conveyor",
		HTTPClient: transport,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	c := NewClient(cfg)
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestSuccessEnvelopeParsesJSON(t *testing.T) {
	transport := &scriptedTransport{outcomes: []attemptResult{
		respWith(200, `{"matters":{"id":42}}`),
	}}
	c := newTestClient(t, transport, nil)

	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/matters/42"})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if !resp.OK || resp.Status != 200 {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	body, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected decoded object, got %T", resp.Data)
	}
	if body["matters"].(map[string]any)["id"].(float64) != 42 {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestStandardHeadersAndCorrelationID(t *testing.T) {
	transport := &scriptedTransport{outcomes: []attemptResult{respWith(200, `{}`)}}
	c := newTestClient(t, transport, nil)

	_, err := c.Do(context.Background(), Request{
		Method:        http.MethodPost,
		Path:          "actions",
		Body:          map[string]string{"name": "x"},
		CorrelationID: "corr-77",
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	req := transport.requests[0]
	if got := req.Header.Get("Content-Type"); got != "application/json" {
		t.Fatalf("content-type: %q", got)
	}
	if got := req.Header.Get("Accept"); got != "application/json" {
		t.Fatalf("accept: %q", got)
	}
	if got := req.Header.Get("x-client-id"); got != "conveyor" {
		t.Fatalf("client id header: %q", got)
	}
	if got := req.Header.Get("x-correlation-id"); got != "corr-77" {
		t.Fatalf("correlation id: %q", got)
	}
	if req.URL.String() != "https://api.example.test/actions" {
		t.Fatalf("url: %q", req.URL)
	}
}

func TestGeneratedCorrelationIDWhenAbsent(t *testing.T) {
	transport := &scriptedTransport{outcomes: []attemptResult{respWith(200, `{}`)}}
	c := newTestClient(t, transport, nil)

	if _, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"}); err != nil {
		t.Fatalf("do: %v", err)
	}
	if transport.requests[0].Header.Get("x-correlation-id") == "" {
		t.Fatal("expected generated correlation id")
	}
}

func TestNoContentShortCircuits(t *testing.T) {
	transport := &scriptedTransport{outcomes: []attemptResult{respWith(204, "")}}
	c := newTestClient(t, transport, nil)

	resp, err := c.Do(context.Background(), Request{Method: http.MethodDelete, Path: "/links/1"})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if !resp.OK || resp.Status != 204 || resp.Data != nil {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
}

func TestNonJSONBodyDegradesToRawText(t *testing.T) {
	transport := &scriptedTransport{outcomes: []attemptResult{respWith(200, "plain text, not json")}}
	c := newTestClient(t, transport, nil)

	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if resp.Data != "plain text, not json" {
		t.Fatalf("expected raw text, got=%v", resp.Data)
	}
}

func TestNonSuccessReturnsFailureEnvelopeNotError(t *testing.T) {
	transport := &scriptedTransport{outcomes: []attemptResult{
		respWith(404, `{"error":"no such matter"}`),
	}}
	c := newTestClient(t, transport, nil)

	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/matters/0"})
	if err != nil {
		t.Fatalf("expected envelope, got error: %v", err)
	}
	if resp.OK || resp.Status != 404 || resp.StatusText != "Not Found" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if len(transport.requests) != 1 {
		t.Fatalf("404 must not be retried, got %d attempts", len(transport.requests))
	}
}

func TestAuthRetryExhaustionClearsHeader(t *testing.T) {
	transport := &scriptedTransport{outcomes: []attemptResult{
		respWith(401, ""), respWith(401, ""), respWith(401, ""),
	}}
	tokenCalls := 0
	c := newTestClient(t, transport, func(cfg *Config) {
		cfg.Token = func(context.Context) (string, error) {
			tokenCalls++
			return "Bearer opaque-token", nil
		}
	})

	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/secure"})
	if err != nil {
		t.Fatalf("expected envelope, got error: %v", err)
	}
	if resp.OK || resp.Status != 401 {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if len(transport.requests) != 3 {
		t.Fatalf("expected maxAttempts=3 attempts, got %d", len(transport.requests))
	}
	// Each retry re-acquires after invalidation, and the final 401 clears
	// the cache for the next call.
	if tokenCalls != 3 {
		t.Fatalf("expected 3 token acquisitions, got %d", tokenCalls)
	}
	if c.AuthHeaderCached() {
		t.Fatal("expected cached auth header to be cleared after 401 exhaustion")
	}
}

func TestRateLimitThenSuccess(t *testing.T) {
	transport := &scriptedTransport{outcomes: []attemptResult{
		respWith(429, ""),
		respWith(200, `{"ok":true}`),
	}}
	c := newTestClient(t, transport, nil)

	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if !resp.OK || resp.Status != 200 {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if len(transport.requests) != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", len(transport.requests))
	}
}

func TestServerErrorRetried(t *testing.T) {
	transport := &scriptedTransport{outcomes: []attemptResult{
		respWith(503, ""), respWith(502, ""),
		respWith(200, `{"ok":true}`),
	}}
	c := newTestClient(t, transport, nil)

	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if !resp.OK || len(transport.requests) != 3 {
		t.Fatalf("expected success on third attempt, envelope=%+v attempts=%d", resp, len(transport.requests))
	}
}

func TestServerErrorExhaustionReturnsEnvelope(t *testing.T) {
	transport := &scriptedTransport{outcomes: []attemptResult{respWith(500, "boom")}}
	c := newTestClient(t, transport, nil)

	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"})
	if err != nil {
		t.Fatalf("expected envelope, got error: %v", err)
	}
	if resp.OK || resp.Status != 500 {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if len(transport.requests) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(transport.requests))
	}
}

func TestTransportErrorRetriedThenSucceeds(t *testing.T) {
	transport := &scriptedTransport{outcomes: []attemptResult{
		{err: errors.New("connection reset")},
		respWith(200, `{}`),
	}}
	c := newTestClient(t, transport, nil)

	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if !resp.OK || len(transport.requests) != 2 {
		t.Fatalf("expected recovery on second attempt, got %+v after %d attempts", resp, len(transport.requests))
	}
}

func TestTransportErrorExhaustionSurfacesError(t *testing.T) {
	boom := errors.New("dial tcp: connection refused")
	transport := &scriptedTransport{outcomes: []attemptResult{{err: boom}}}
	c := newTestClient(t, transport, nil)

	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if len(transport.requests) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(transport.requests))
	}
}

func TestSchemaViolationIsTheOneThrowingCase(t *testing.T) {
	transport := &scriptedTransport{outcomes: []attemptResult{
		respWith(200, `{"id":"not-a-number","name":"ok"}`),
	}}
	c := newTestClient(t, transport, nil)

	_, err := c.Do(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "/matters/1",
		Schema: Object(map[string]Schema{"id": Number(), "name": String()}),
	})
	var verr *ResponseValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ResponseValidationError, got %v", err)
	}
	first := verr.Violations[0]
	if first.Path != "$.id" || first.Value != "not-a-number" || first.Message != "expected number" {
		t.Fatalf("unexpected first violation: %+v", first)
	}
	if !strings.Contains(verr.Error(), "$.id") || !strings.Contains(verr.Error(), "expected number") {
		t.Fatalf("error text must carry the first violation: %q", verr.Error())
	}
}

func TestSchemaValidResponsePasses(t *testing.T) {
	transport := &scriptedTransport{outcomes: []attemptResult{
		respWith(200, `{"id":7,"name":"NSW-BUY-SMITH-REVIEW-7","notes":null}`),
	}}
	c := newTestClient(t, transport, nil)

	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "/matters/7",
		Schema: Object(map[string]Schema{
			"id":    Number(),
			"name":  String(),
			"notes": Optional(String()),
		}),
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if !resp.OK {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
}

func TestStreamingResponse(t *testing.T) {
	transport := &scriptedTransport{outcomes: []attemptResult{
		respWith(200, "file-bytes-here"),
	}}
	c := newTestClient(t, transport, nil)

	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/files/1", Stream: true})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if resp.Stream == nil {
		t.Fatal("expected stream body")
	}
	defer resp.Stream.Close()
	raw, err := io.ReadAll(resp.Stream)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if string(raw) != "file-bytes-here" {
		t.Fatalf("unexpected stream content: %q", raw)
	}
	if resp.Data != nil {
		t.Fatal("streaming mode must not buffer into Data")
	}
}

func TestExpiredBearerTokenRefetchedProactively(t *testing.T) {
	transport := &scriptedTransport{outcomes: []attemptResult{respWith(200, `{}`)}}
	tokenCalls := 0
	c := newTestClient(t, transport, func(cfg *Config) {
		cfg.Token = func(context.Context) (string, error) {
			tokenCalls++
			return "Bearer opaque", nil
		}
	})

	// Seed the cache with a JWT whose exp is in the past; unsigned header
	// and payload are enough for expiry inspection.
	expired, err := makeExpiredJWT()
	if err != nil {
		t.Fatalf("make jwt: %v", err)
	}
	c.mu.Lock()
	c.authHeader = "Bearer " + expired
	c.mu.Unlock()

	if _, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"}); err != nil {
		t.Fatalf("do: %v", err)
	}
	if tokenCalls != 1 {
		t.Fatalf("expected proactive refetch of expired token, calls=%d", tokenCalls)
	}
	if got := transport.requests[0].Header.Get("Authorization"); got != "Bearer opaque" {
		t.Fatalf("expected refreshed header on the wire, got %q", got)
	}
}
