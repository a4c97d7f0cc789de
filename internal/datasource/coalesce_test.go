package datasource

import (
	"context"
	"errors"
	"testing"

	"github.com/settleline/conveyor/internal/domain"
)

type mapSource struct {
	items map[string]domain.DataItem
	calls int
}

func (s *mapSource) Get(_ context.Context, name string) (domain.DataItem, error) {
	s.calls++
	return s.items[name], nil
}

type errSource struct{ err error }

func (s errSource) Get(context.Context, string) (domain.DataItem, error) {
	return domain.DataItem{}, s.err
}

func strPtr(s string) *string { return &s }

func TestCoalescingOverrideWins(t *testing.T) {
	base := &mapSource{items: map[string]domain.DataItem{
		"purchasePrice": {Name: "purchasePrice", Value: strPtr("500000")},
	}}
	override := &mapSource{items: map[string]domain.DataItem{
		"purchasePrice": {Name: "purchasePrice", Value: strPtr("550000")},
	}}

	got, err := NewCoalescing(base, override).Get(context.Background(), "purchasePrice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.StringValue() != "550000" {
		t.Fatalf("expected override value, got=%q", got.StringValue())
	}
}

func TestCoalescingEmptyStringOverrideWins(t *testing.T) {
	// An explicit empty string is a correction meaning "clear this field".
	base := &mapSource{items: map[string]domain.DataItem{
		"settlementDate": {Name: "settlementDate", Value: strPtr("2026-10-01")},
	}}
	override := &mapSource{items: map[string]domain.DataItem{
		"settlementDate": {Name: "settlementDate", Value: strPtr("")},
	}}

	got, err := NewCoalescing(base, override).Get(context.Background(), "settlementDate")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.HasValue() || got.StringValue() != "" {
		t.Fatalf("expected empty-string override to win, got=%+v", got)
	}
}

func TestCoalescingNilOverrideFallsBack(t *testing.T) {
	base := &mapSource{items: map[string]domain.DataItem{
		"vendorName": {Name: "vendorName", Value: strPtr("Smith"), Type: domain.DataTypeString},
	}}
	override := &mapSource{items: map[string]domain.DataItem{
		"vendorName": {Name: "vendorName", Value: nil},
	}}

	got, err := NewCoalescing(base, override).Get(context.Background(), "vendorName")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.StringValue() != "Smith" || got.Type != domain.DataTypeString {
		t.Fatalf("expected base item unchanged, got=%+v", got)
	}
}

func TestCoalescingNoCachingBetweenCalls(t *testing.T) {
	base := &mapSource{items: map[string]domain.DataItem{}}
	override := &mapSource{items: map[string]domain.DataItem{}}
	src := NewCoalescing(base, override)

	for i := 0; i < 3; i++ {
		if _, err := src.Get(context.Background(), "field"); err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
	}
	if base.calls != 3 || override.calls != 3 {
		t.Fatalf("expected 3 calls to each source, got base=%d override=%d", base.calls, override.calls)
	}

	// A late update to the override must be visible on the next call.
	override.items["field"] = domain.DataItem{Name: "field", Value: strPtr("late")}
	got, err := src.Get(context.Background(), "field")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.StringValue() != "late" {
		t.Fatalf("expected live override value, got=%q", got.StringValue())
	}
}

func TestCoalescingPropagatesSourceErrors(t *testing.T) {
	boom := errors.New("source down")
	_, err := NewCoalescing(errSource{err: boom}, &mapSource{}).Get(context.Background(), "x")
	if !errors.Is(err, boom) {
		t.Fatalf("expected base error, got=%v", err)
	}
}
