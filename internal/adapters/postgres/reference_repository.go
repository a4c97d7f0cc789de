package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/settleline/conveyor/internal/domain"
)

// jobRepository resolves intake jobs; it backs ports.ServiceTypeResolver.
type jobRepository struct {
	db *gorm.DB
}

func (r *jobRepository) ServiceType(ctx context.Context, jobID string) (string, error) {
	var rec jobModel
	if err := r.db.WithContext(ctx).Where("job_id = ?", jobID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return rec.ServiceType, nil
}

// fieldRequirementRepository loads the reference metadata describing which
// fields each service type requires.
type fieldRequirementRepository struct {
	db *gorm.DB
}

func (r *fieldRequirementRepository) RequiredFields(ctx context.Context, serviceType string) ([]domain.FieldRequirement, error) {
	var rows []fieldRequirementModel
	err := r.db.WithContext(ctx).
		Where("service_type = ?", serviceType).
		Order("field_name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.FieldRequirement, 0, len(rows))
	for _, rec := range rows {
		out = append(out, domain.FieldRequirement{
			ServiceType: rec.ServiceType,
			FieldName:   rec.FieldName,
			FieldType:   domain.DataType(rec.FieldType),
		})
	}
	return out, nil
}
