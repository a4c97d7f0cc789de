package trustlink

import (
	"net/url"
	"strings"
	"testing"
)

func testService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(DeriveKeys("tenant-secret"), "cca.com.au")
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func validPayload() map[string]string {
	return map[string]string{
		"email": "client@example.com",
		"name":  "Jane Client",
		"ref":   "NSW-BUY-SMITH-REVIEW-12345",
	}
}

func TestGenerateLinkRoundTrip(t *testing.T) {
	svc := testService(t)

	link, err := svc.GenerateLink(validPayload())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(link, "https://www.trustpilot.com/evaluate/cca.com.au?p=") {
		t.Fatalf("unexpected link shape: %q", link)
	}

	parsed, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	payload, err := svc.Open(parsed.Query().Get("p"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if payload["email"] != "client@example.com" || payload["ref"] != "NSW-BUY-SMITH-REVIEW-12345" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestGenerateLinkCarriesExtraFields(t *testing.T) {
	svc := testService(t)
	p := validPayload()
	p["campaign"] = "post-settlement"

	link, err := svc.GenerateLink(p)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	parsed, _ := url.Parse(link)
	payload, err := svc.Open(parsed.Query().Get("p"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if payload["campaign"] != "post-settlement" {
		t.Fatalf("extra field lost: %+v", payload)
	}
}

func TestGenerateLinkMissingRequiredField(t *testing.T) {
	svc := testService(t)
	for _, field := range []string{"email", "name", "ref"} {
		p := validPayload()
		delete(p, field)
		if _, err := svc.GenerateLink(p); err == nil {
			t.Fatalf("expected error for missing %s", field)
		}
	}
}

func TestFreshIVPerLink(t *testing.T) {
	svc := testService(t)
	first, err := svc.GenerateLink(validPayload())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, err := svc.GenerateLink(validPayload())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if first == second {
		t.Fatal("identical payloads must not produce identical links")
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	svc := testService(t)
	link, err := svc.GenerateLink(validPayload())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	parsed, _ := url.Parse(link)
	token := parsed.Query().Get("p")

	// Flip one character in the middle of the token.
	raw := []byte(token)
	mid := len(raw) / 2
	if raw[mid] == 'A' {
		raw[mid] = 'B'
	} else {
		raw[mid] = 'A'
	}
	if _, err := svc.Open(string(raw)); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}
}

func TestOpenWithWrongAuthKeyRejected(t *testing.T) {
	svc := testService(t)
	link, err := svc.GenerateLink(validPayload())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	parsed, _ := url.Parse(link)

	other, err := NewService(DeriveKeys("different-secret"), "cca.com.au")
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := other.Open(parsed.Query().Get("p")); err == nil {
		t.Fatal("expected authentication failure under a different key")
	}
}
