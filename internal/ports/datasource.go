package ports

import (
	"context"
	"time"

	"github.com/settleline/conveyor/internal/domain"
)

// DataSource is anything that can produce the current DataItem for a named
// field. Concrete sources are the contract-extraction pipeline output and the
// human-correction store; the coalescing source composes the two.
type DataSource interface {
	Get(ctx context.Context, name string) (domain.DataItem, error)
}

// ServiceTypeResolver maps a job/file identifier to the service type that
// governs which fields its matter requires.
type ServiceTypeResolver interface {
	ServiceType(ctx context.Context, jobID string) (string, error)
}

// FieldRequirementRepository loads the reference metadata describing which
// fields a service type requires.
type FieldRequirementRepository interface {
	RequiredFields(ctx context.Context, serviceType string) ([]domain.FieldRequirement, error)
}

// DataSourceFactory builds the per-job concrete sources: the extraction
// pipeline output as the base, human corrections as the override.
type DataSourceFactory interface {
	Extraction(jobID string) DataSource
	Correction(jobID string) DataSource
}

// IntakeJob is one recorded form submission together with the field values
// it carried.
type IntakeJob struct {
	JobID       string
	TenantID    string
	ServiceType string
	Intent      string
	Fields      []domain.DataItem
}

// IntakeRepository persists inbound submissions so later matter creation
// can re-read them as a DataSource.
type IntakeRepository interface {
	RecordSubmission(ctx context.Context, job IntakeJob, at time.Time) error
}

// CorrectionStore records a human correction for one field of a job. An
// explicit empty value is a valid correction that clears the field.
type CorrectionStore interface {
	Put(ctx context.Context, jobID string, item domain.DataItem, at time.Time) error
}
