package matter

import (
	"strings"
	"testing"

	"github.com/settleline/conveyor/internal/domain"
)

func baseParams() NameParams {
	return NameParams{
		IsCompany:      true,
		CompanyName:    "Test Company Pty Ltd",
		LastName:       "Smith",
		State:          "NSW",
		Intent:         domain.IntentBuy,
		MatterID:       "12345",
		TestMode:       false,
		AdditionalInfo: "Review",
	}
}

func TestBuildEndToEnd(t *testing.T) {
	got, err := FromData(baseParams()).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got != "NSW-BUY-TEST COMPANY PTY LTD-REVIEW-12345" {
		t.Fatalf("unexpected matter name: %q", got)
	}
}

func TestBuildIsUppercase(t *testing.T) {
	p := baseParams()
	p.IsCompany = false
	p.LastName = "van der Berg"
	got, err := FromData(p).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got != strings.ToUpper(got) {
		t.Fatalf("expected uppercase name, got=%q", got)
	}
	if !strings.Contains(got, "-VAN DER BERG-") {
		t.Fatalf("expected last name segment, got=%q", got)
	}
}

func TestBuildTestModePrefix(t *testing.T) {
	p := baseParams()
	p.TestMode = true
	got, err := FromData(p).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.HasPrefix(got, "TEST-NSW-") {
		t.Fatalf("expected TEST- prefix, got=%q", got)
	}
}

func TestCompanyNameTruncatedAtTwentyChars(t *testing.T) {
	p := baseParams()
	p.CompanyName = "Test Company Pty Ltd Holdings" // 29 chars
	got, err := FromData(p).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// Exactly the first 20 characters survive: "Test Company Pty Ltd".
	if got != "NSW-BUY-TEST COMPANY PTY LTD-REVIEW-12345" {
		t.Fatalf("unexpected truncation: %q", got)
	}

	p.CompanyName = "ABCDEFGHIJKLMNOPQRSTU" // 21 chars, boundary check
	got, err = FromData(p).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(got, "-ABCDEFGHIJKLMNOPQRST-") {
		t.Fatalf("expected 20-char boundary truncation, got=%q", got)
	}
}

func TestStepCodeNamingMethods(t *testing.T) {
	cases := []struct {
		method NamingMethod
		want   string
	}{
		{NamingMethodContractDrafting, "DRAFT"},
		{NamingMethodContractReview, "REVIEW"},
		{NamingMethodSellerDisclosureStatement, "SDS"},
	}
	for _, tc := range cases {
		p := baseParams()
		p.AdditionalInfo = "Conveyance" // method must win over classification
		got, err := FromData(p).WithNamingMethod(tc.method).Build()
		if err != nil {
			t.Fatalf("method %s: %v", tc.method, err)
		}
		if !strings.Contains(got, "-"+tc.want+"-12345") {
			t.Fatalf("method %s: expected step code %s, got=%q", tc.method, tc.want, got)
		}
	}
}

func TestPreSettlementUsesRoleInitials(t *testing.T) {
	p := baseParams()
	p.RoleInitials = "jd"
	got, err := FromData(p).WithNamingMethod(NamingMethodPreSettlement).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(got, "-JD-12345") {
		t.Fatalf("expected role initials step code, got=%q", got)
	}
}

func TestPreSettlementMissingInitialsMessage(t *testing.T) {
	_, err := FromData(baseParams()).WithNamingMethod(NamingMethodPreSettlement).Build()
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "Missing roleInitials for Pre-Settlement" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestConveyanceMissingInitialsMessage(t *testing.T) {
	p := baseParams()
	p.AdditionalInfo = "Conveyance"
	_, err := FromData(p).Build()
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "Missing roleInitials for Conveyance" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestAdditionalInfoClassification(t *testing.T) {
	cases := []struct {
		info   string
		intent domain.Intent
		want   string
	}{
		{"", domain.IntentSell, "DRAFT"},
		{"", domain.IntentBuy, "REVIEW"},
		{"", domain.IntentTransfer, "REVIEW"},
		{"Drafting", domain.IntentBuy, "DRAFT"},
		{"Review", domain.IntentSell, "REVIEW"},
		{"Self-service Review", domain.IntentSell, "REVIEW"},
		{"Seller disclosure statement", domain.IntentBuy, "SDS"},
	}
	for _, tc := range cases {
		p := baseParams()
		p.AdditionalInfo = tc.info
		p.Intent = tc.intent
		got, err := FromData(p).Build()
		if err != nil {
			t.Fatalf("info=%q intent=%s: %v", tc.info, tc.intent, err)
		}
		if !strings.Contains(got, "-"+tc.want+"-12345") {
			t.Fatalf("info=%q intent=%s: expected step code %s, got=%q", tc.info, tc.intent, tc.want, got)
		}
	}
}

func TestUnrecognisedAdditionalInfoYieldsEmptyStepCode(t *testing.T) {
	p := baseParams()
	p.AdditionalInfo = "Something else"
	got, err := FromData(p).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(got, "PTY LTD--12345") {
		t.Fatalf("expected empty step code segment, got=%q", got)
	}
}

func TestMissingRequiredFieldsMessage(t *testing.T) {
	cases := []NameParams{
		{Intent: domain.IntentBuy, MatterID: "1"},
		{State: "QLD", MatterID: "1"},
		{State: "QLD", Intent: domain.IntentBuy},
		{State: "QLD", Intent: domain.IntentBuy, MatterID: "12a45"},
	}
	for i, p := range cases {
		_, err := FromData(p).Build()
		if err == nil {
			t.Fatalf("case %d: expected error", i)
		}
		if err.Error() != "Missing required meta fields: state, intent, or matterId" {
			t.Fatalf("case %d: unexpected message: %q", i, err.Error())
		}
	}
}

func TestMetaRoundTrip(t *testing.T) {
	p := baseParams()
	p.RoleInitials = "AB"
	p.TestMode = true

	b := FromData(p)
	rebuilt := FromMeta(b.Meta())

	first, err := b.Build()
	if err != nil {
		t.Fatalf("build original: %v", err)
	}
	second, err := rebuilt.Build()
	if err != nil {
		t.Fatalf("build rebuilt: %v", err)
	}
	if first != second {
		t.Fatalf("round trip mismatch: %q vs %q", first, second)
	}
	if rebuilt.Params() != p {
		t.Fatalf("round trip params mismatch: %+v vs %+v", rebuilt.Params(), p)
	}
}

func TestFromMetaCopiesDefensively(t *testing.T) {
	meta := []domain.ManifestMeta{
		{Key: "state", Value: "VIC"},
		{Key: "intent", Value: "sell"},
		{Key: "matterId", Value: "99"},
		{Key: "lastName", Value: "Jones"},
	}
	b := FromMeta(meta)
	meta[0].Value = "NSW"
	meta[3].Value = "Changed"

	got, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got != "VIC-SELL-JONES-DRAFT-99" {
		t.Fatalf("builder observed external mutation: %q", got)
	}
}
