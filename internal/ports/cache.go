package ports

import (
	"context"
	"encoding/json"
)

// BlobCache is a key/value blob store with JSON-encoded values. It backs the
// feedback-link manager; keys are hierarchical strings such as
// "cca/matter:12345". Absent keys surface as domain.ErrNotFound so callers
// can branch on the outcome without adapter-specific error knowledge.
type BlobCache interface {
	Set(ctx context.Context, key string, value any) error
	GetValue(ctx context.Context, key string, out any) error
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

// CloneJSON deep-copies JSON-serializable values.
// It is used to avoid accidental mutation sharing in cached state objects.
func CloneJSON[T any](in T) (T, error) {
	var out T
	raw, err := json.Marshal(in)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}
