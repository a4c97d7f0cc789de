package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/settleline/conveyor/internal/domain"
)

type matterRepository struct {
	db *gorm.DB
}

func (r *matterRepository) Create(ctx context.Context, m domain.Matter) error {
	rec := matterModel{
		MatterID:   m.MatterID,
		PlatformID: m.PlatformID,
		TenantID:   m.TenantID,
		JobID:      m.JobID,
		Name:       m.Name,
		State:      m.State,
		Intent:     string(m.Intent),
		Status:     string(m.Status),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *matterRepository) GetByID(ctx context.Context, matterID string) (domain.Matter, error) {
	var rec matterModel
	if err := r.db.WithContext(ctx).Where("matter_id = ?", matterID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Matter{}, domain.ErrNotFound
		}
		return domain.Matter{}, err
	}
	return toDomainMatter(rec), nil
}

func (r *matterRepository) GetByPlatformID(ctx context.Context, platformID int) (domain.Matter, error) {
	var rec matterModel
	if err := r.db.WithContext(ctx).Where("platform_id = ?", platformID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Matter{}, domain.ErrNotFound
		}
		return domain.Matter{}, err
	}
	return toDomainMatter(rec), nil
}

func (r *matterRepository) UpdateStatus(ctx context.Context, matterID string, status domain.MatterStatus, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&matterModel{}).
		Where("matter_id = ?", matterID).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *matterRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]domain.Matter, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []matterModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Matter, 0, len(rows))
	for _, rec := range rows {
		out = append(out, toDomainMatter(rec))
	}
	return out, nil
}

func toDomainMatter(rec matterModel) domain.Matter {
	return domain.Matter{
		MatterID:   rec.MatterID,
		PlatformID: rec.PlatformID,
		TenantID:   rec.TenantID,
		JobID:      rec.JobID,
		Name:       rec.Name,
		State:      rec.State,
		Intent:     domain.Intent(rec.Intent),
		Status:     domain.MatterStatus(rec.Status),
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}
