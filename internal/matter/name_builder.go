// Package matter computes the canonical matter reference string shown to
// staff and matched on by downstream systems. The step-code precedence and
// the exact error message text are load-bearing: automation on the platform
// side matches on both.
package matter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/settleline/conveyor/internal/domain"
)

// NamingMethod selects an explicit step-code branch ahead of the
// additional-info classification fallback.
type NamingMethod string

const (
	NamingMethodDefault                   NamingMethod = ""
	NamingMethodContractDrafting          NamingMethod = "ContractDrafting"
	NamingMethodContractReview            NamingMethod = "ContractReview"
	NamingMethodSellerDisclosureStatement NamingMethod = "SellerDisclosureStatement"
	NamingMethodPreSettlement             NamingMethod = "PreSettlement"
)

const companyNameMaxLen = 20

// Exact message contracts. Downstream alerting matches on these strings.
var (
	errMissingRequired              = errors.New("Missing required meta fields: state, intent, or matterId")
	errMissingInitialsPreSettlement = errors.New("Missing roleInitials for Pre-Settlement")
	errMissingInitialsConveyance    = errors.New("Missing roleInitials for Conveyance")
)

// NameParams is the full categorical input set for one matter-name request.
// It is constructed once, consumed by Build, and discarded.
type NameParams struct {
	IsCompany      bool
	CompanyName    string
	LastName       string
	State          string
	Intent         domain.Intent
	MatterID       string
	RoleInitials   string
	AdditionalInfo string
	TestMode       bool
}

// Builder holds an immutable parameter set plus an optional naming method.
type Builder struct {
	params NameParams
	method NamingMethod
}

// FromData constructs a builder from structured parameters.
func FromData(p NameParams) *Builder {
	return &Builder{params: p}
}

// FromMeta reconstructs a builder from flattened key/value metadata, the
// form used when name-building state crosses a queue boundary. Entries are
// copied up front so later mutation of the input slice has no effect.
func FromMeta(meta []domain.ManifestMeta) *Builder {
	var p NameParams
	for _, m := range meta {
		switch m.Key {
		case "isCompany":
			p.IsCompany = m.Value == "true"
		case "companyName":
			p.CompanyName = m.Value
		case "lastName":
			p.LastName = m.Value
		case "state":
			p.State = m.Value
		case "intent":
			p.Intent = domain.Intent(m.Value)
		case "matterId":
			p.MatterID = m.Value
		case "roleInitials":
			p.RoleInitials = m.Value
		case "additionalInfo":
			p.AdditionalInfo = m.Value
		case "testMode":
			p.TestMode = m.Value == "true"
		}
	}
	return &Builder{params: p}
}

// WithNamingMethod returns a builder with the explicit naming method set.
// The receiver is not modified.
func (b *Builder) WithNamingMethod(m NamingMethod) *Builder {
	return &Builder{params: b.params, method: m}
}

// Params returns the builder's parameter set.
func (b *Builder) Params() NameParams {
	return b.params
}

// Meta flattens the parameter set for persistence or queue transport.
// FromMeta(b.Meta()) builds the same string as b.
func (b *Builder) Meta() []domain.ManifestMeta {
	p := b.params
	return []domain.ManifestMeta{
		{Key: "isCompany", Value: strconv.FormatBool(p.IsCompany)},
		{Key: "companyName", Value: p.CompanyName},
		{Key: "lastName", Value: p.LastName},
		{Key: "state", Value: p.State},
		{Key: "intent", Value: string(p.Intent)},
		{Key: "matterId", Value: p.MatterID},
		{Key: "roleInitials", Value: p.RoleInitials},
		{Key: "additionalInfo", Value: p.AdditionalInfo},
		{Key: "testMode", Value: strconv.FormatBool(p.TestMode)},
	}
}

// Build computes the canonical reference string:
//
//	[TEST-]STATE-INTENT-ENTITYNAME-STEPCODE-MATTERID
//
// uppercased. It fails only on invariant violations: missing required
// fields, or a step-code branch that demands role initials none were
// supplied for.
func (b *Builder) Build() (string, error) {
	p := b.params
	if p.State == "" || p.Intent == "" || !isNumeric(p.MatterID) {
		return "", errMissingRequired
	}

	stepCode, err := b.stepCode()
	if err != nil {
		return "", err
	}

	entityName := p.LastName
	if p.IsCompany {
		entityName = truncate(p.CompanyName, companyNameMaxLen)
	}

	name := fmt.Sprintf("%s-%s-%s-%s-%s", p.State, p.Intent, entityName, stepCode, p.MatterID)
	if p.TestMode {
		name = "TEST-" + name
	}
	return strings.ToUpper(name), nil
}

// stepCode resolves the STEPCODE segment. Explicit naming methods win; an
// unset or unrecognised method falls back to additional-info classification.
func (b *Builder) stepCode() (string, error) {
	switch b.method {
	case NamingMethodContractDrafting:
		return "DRAFT", nil
	case NamingMethodContractReview:
		return "REVIEW", nil
	case NamingMethodSellerDisclosureStatement:
		return "SDS", nil
	case NamingMethodPreSettlement:
		if b.params.RoleInitials == "" {
			return "", errMissingInitialsPreSettlement
		}
		return b.params.RoleInitials, nil
	}

	switch b.params.AdditionalInfo {
	case "":
		if b.params.Intent == domain.IntentSell {
			return "DRAFT", nil
		}
		return "REVIEW", nil
	case "Drafting":
		return "DRAFT", nil
	case "Review", "Self-service Review":
		return "REVIEW", nil
	case "Conveyance":
		if b.params.RoleInitials == "" {
			return "", errMissingInitialsConveyance
		}
		return b.params.RoleInitials, nil
	case "Seller disclosure statement":
		return "SDS", nil
	}
	return "", nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.Atoi(s)
	return err == nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
