// Package datasource composes the contract-extraction output and the
// human-correction store into one logical field-value source, and gates
// matter creation on the required fields for a job's service type.
package datasource

import (
	"context"

	"github.com/settleline/conveyor/internal/domain"
	"github.com/settleline/conveyor/internal/ports"
)

// Coalescing merges two prioritized sources. Override is the correction
// source; Base is the original extracted data. An override value that was
// actually supplied wins, where an explicit empty string counts as supplied:
// it is a correction meaning "clear this field". A nil override value means
// no correction exists and the base item is returned unchanged.
type Coalescing struct {
	base     ports.DataSource
	override ports.DataSource
}

// NewCoalescing builds the composed source. Neither input may be nil.
func NewCoalescing(base, override ports.DataSource) *Coalescing {
	return &Coalescing{base: base, override: override}
}

// Get re-queries both underlying sources on every call, so the composed view
// reflects live updates to either. Nothing is cached.
func (c *Coalescing) Get(ctx context.Context, name string) (domain.DataItem, error) {
	baseItem, err := c.base.Get(ctx, name)
	if err != nil {
		return domain.DataItem{}, err
	}
	overrideItem, err := c.override.Get(ctx, name)
	if err != nil {
		return domain.DataItem{}, err
	}
	if overrideItem.HasValue() {
		return overrideItem, nil
	}
	return baseItem, nil
}
