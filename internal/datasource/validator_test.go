package datasource

import (
	"context"
	"errors"
	"testing"

	"github.com/settleline/conveyor/internal/domain"
)

type stubResolver struct {
	serviceType string
	err         error
}

func (s stubResolver) ServiceType(context.Context, string) (string, error) {
	return s.serviceType, s.err
}

type stubRequirements struct {
	fields []domain.FieldRequirement
}

func (s stubRequirements) RequiredFields(context.Context, string) ([]domain.FieldRequirement, error) {
	return s.fields, nil
}

func conveyanceRequirements() stubRequirements {
	return stubRequirements{fields: []domain.FieldRequirement{
		{ServiceType: "conveyance-buy", FieldName: "purchasePrice", FieldType: domain.DataTypeCurrency},
		{ServiceType: "conveyance-buy", FieldName: "settlementDate", FieldType: domain.DataTypeDate},
		{ServiceType: "conveyance-buy", FieldName: "vendorName", FieldType: domain.DataTypeString},
	}}
}

func TestValidateAllPresent(t *testing.T) {
	source := &mapSource{items: map[string]domain.DataItem{
		"purchasePrice":  {Name: "purchasePrice", Value: strPtr("500000")},
		"settlementDate": {Name: "settlementDate", Value: strPtr("2026-10-01")},
		"vendorName":     {Name: "vendorName", Value: strPtr("Smith")},
	}}
	v := NewValidator(stubResolver{serviceType: "conveyance-buy"}, conveyanceRequirements())

	res, err := v.Validate(context.Background(), "job-1", source)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !res.Valid || len(res.Missing) != 0 {
		t.Fatalf("expected valid result, got=%+v", res)
	}
}

func TestValidateReportsMissingAndEmpty(t *testing.T) {
	source := &mapSource{items: map[string]domain.DataItem{
		"purchasePrice":  {Name: "purchasePrice", Value: strPtr("500000")},
		"settlementDate": {Name: "settlementDate", Value: strPtr("")},
		// vendorName entirely absent
	}}
	v := NewValidator(stubResolver{serviceType: "conveyance-buy"}, conveyanceRequirements())

	res, err := v.Validate(context.Background(), "job-1", source)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if res.Valid || len(res.Missing) != 2 {
		t.Fatalf("expected 2 missing fields, got=%+v", res)
	}
	names := map[string]bool{}
	for _, item := range res.Missing {
		names[item.Name] = true
		if !item.Required {
			t.Fatalf("missing item not flagged required: %+v", item)
		}
	}
	if !names["settlementDate"] || !names["vendorName"] {
		t.Fatalf("unexpected missing set: %v", names)
	}
}

func TestValidateMissingItemInheritsRequirementType(t *testing.T) {
	source := &mapSource{items: map[string]domain.DataItem{}}
	v := NewValidator(stubResolver{serviceType: "conveyance-buy"}, stubRequirements{fields: []domain.FieldRequirement{
		{ServiceType: "conveyance-buy", FieldName: "purchasePrice", FieldType: domain.DataTypeCurrency},
	}})

	res, err := v.Validate(context.Background(), "job-1", source)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(res.Missing) != 1 {
		t.Fatalf("expected 1 missing field, got=%+v", res)
	}
	if res.Missing[0].Name != "purchasePrice" || res.Missing[0].Type != domain.DataTypeCurrency {
		t.Fatalf("expected requirement metadata on missing item, got=%+v", res.Missing[0])
	}
}

func TestValidateUnresolvableServiceType(t *testing.T) {
	v := NewValidator(stubResolver{serviceType: ""}, conveyanceRequirements())

	_, err := v.Validate(context.Background(), "job-1", &mapSource{})
	if !errors.Is(err, domain.ErrServiceTypeUnresolved) {
		t.Fatalf("expected ErrServiceTypeUnresolved, got=%v", err)
	}
}
