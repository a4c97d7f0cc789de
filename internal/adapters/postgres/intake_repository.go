package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/settleline/conveyor/internal/domain"
	"github.com/settleline/conveyor/internal/ports"
)

// intakeRepository writes inbound submissions: the job row plus its field
// values as extraction-pipeline output. Writes run in one transaction so a
// half-recorded submission never becomes visible to matter creation.
type intakeRepository struct {
	db *gorm.DB
}

func (r *intakeRepository) RecordSubmission(ctx context.Context, job ports.IntakeJob, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := jobModel{
			JobID:       job.JobID,
			TenantID:    job.TenantID,
			ServiceType: job.ServiceType,
			Intent:      job.Intent,
			CreatedAt:   at,
			UpdatedAt:   at,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "job_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"service_type", "intent", "updated_at"}),
		}).Create(&rec).Error
		if err != nil {
			return err
		}

		for _, field := range job.Fields {
			row := extractedFieldModel{
				JobID:     job.JobID,
				FieldName: field.Name,
				Value:     field.Value,
				FieldType: string(field.Type),
				CreatedAt: at,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "job_id"}, {Name: "field_name"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "field_type"}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// correctionStore upserts human corrections keyed by job and field.
type correctionStore struct {
	db *gorm.DB
}

func (r *correctionStore) Put(ctx context.Context, jobID string, item domain.DataItem, at time.Time) error {
	row := correctedFieldModel{
		JobID:     jobID,
		FieldName: item.Name,
		Value:     item.StringValue(),
		FieldType: string(item.Type),
		CreatedAt: at,
		UpdatedAt: at,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}, {Name: "field_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "field_type", "updated_at"}),
	}).Create(&row).Error
}

// sourceFactory hands the application per-job data sources without exposing
// the gorm handle.
type sourceFactory struct {
	db *gorm.DB
}

func (f *sourceFactory) Extraction(jobID string) ports.DataSource {
	return NewExtractionSource(f.db, jobID)
}

func (f *sourceFactory) Correction(jobID string) ports.DataSource {
	return NewCorrectionSource(f.db, jobID)
}
