package trustlink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/settleline/conveyor/internal/domain"
	"github.com/settleline/conveyor/internal/ports"
)

// Record is the stored link payload under the primary key.
type Record struct {
	ClientID  string            `json:"client_id"`
	MatterID  string            `json:"matter_id"`
	URL       string            `json:"url"`
	Payload   map[string]string `json:"payload"`
	CreatedAt time.Time         `json:"created_at"`
}

// symlink is the matter-only indirection object. Matter-driven lookups
// often do not know which client participant a link was issued for; the
// symlink at the matter key points at the primary record.
type symlink struct {
	Type      string    `json:"type"`
	Target    string    `json:"target"`
	CreatedAt time.Time `json:"createdAt"`
}

const symlinkType = "symlink"

// Manager stores link records in a key/value blob cache with one level of
// symlink indirection for matter-only lookups.
type Manager struct {
	cache ports.BlobCache
	nowFn func() time.Time
}

func NewManager(cache ports.BlobCache) *Manager {
	return &Manager{
		cache: cache,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

func primaryKey(clientID, matterID string) string {
	return clientID + "/matter:" + matterID
}

func matterKey(matterID string) string {
	return "matter:" + matterID
}

// Store writes the primary record and its matter symlink. The record is
// cloned first so later mutation of the caller's Payload map cannot leak
// into what a BlobCache implementation holds.
func (m *Manager) Store(ctx context.Context, rec Record) error {
	if rec.ClientID == "" || rec.MatterID == "" {
		return fmt.Errorf("link record requires client and matter ids: %w", domain.ErrInvalidInput)
	}
	rec, err := ports.CloneJSON(rec)
	if err != nil {
		return fmt.Errorf("clone link record: %w", err)
	}
	rec.CreatedAt = m.nowFn()

	key := primaryKey(rec.ClientID, rec.MatterID)
	if err := m.cache.Set(ctx, key, rec); err != nil {
		return fmt.Errorf("store link record: %w", err)
	}
	link := symlink{Type: symlinkType, Target: key, CreatedAt: rec.CreatedAt}
	if err := m.cache.Set(ctx, matterKey(rec.MatterID), link); err != nil {
		return fmt.Errorf("store link symlink: %w", err)
	}
	return nil
}

// ResolveByMatter follows the matter symlink to the primary record. An
// absent symlink maps to domain.ErrLinkNotFound and a malformed one to
// domain.ErrSymlinkInvalid; both are ordinary outcomes for the caller to
// branch on.
func (m *Manager) ResolveByMatter(ctx context.Context, matterID string) (Record, error) {
	var link symlink
	if err := m.cache.GetValue(ctx, matterKey(matterID), &link); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Record{}, fmt.Errorf("matter %s: %w", matterID, domain.ErrLinkNotFound)
		}
		return Record{}, fmt.Errorf("load link symlink: %w", err)
	}
	if link.Type != symlinkType || link.Target == "" {
		return Record{}, fmt.Errorf("matter %s: %w", matterID, domain.ErrSymlinkInvalid)
	}

	var rec Record
	if err := m.cache.GetValue(ctx, link.Target, &rec); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Record{}, fmt.Errorf("target %s: %w", link.Target, domain.ErrLinkNotFound)
		}
		return Record{}, fmt.Errorf("load link record: %w", err)
	}
	return rec, nil
}

// Get fetches the primary record directly when the client id is known.
func (m *Manager) Get(ctx context.Context, clientID, matterID string) (Record, error) {
	var rec Record
	if err := m.cache.GetValue(ctx, primaryKey(clientID, matterID), &rec); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Record{}, fmt.Errorf("matter %s: %w", matterID, domain.ErrLinkNotFound)
		}
		return Record{}, fmt.Errorf("load link record: %w", err)
	}
	return rec, nil
}

// ListForClient returns the primary keys stored for a client.
func (m *Manager) ListForClient(ctx context.Context, clientID string) ([]string, error) {
	keys, err := m.cache.ListKeys(ctx, clientID+"/")
	if err != nil {
		return nil, fmt.Errorf("list link keys: %w", err)
	}
	return keys, nil
}
