package postgres

import (
	"gorm.io/gorm"

	"github.com/settleline/conveyor/internal/ports"
)

// Repositories bundles the Postgres-backed ports so bootstrap wires one
// value instead of five constructors.
type Repositories struct {
	Matters           ports.MatterRepository
	Jobs              ports.ServiceTypeResolver
	FieldRequirements ports.FieldRequirementRepository
	Intake            ports.IntakeRepository
	Corrections       ports.CorrectionStore
	Sources           ports.DataSourceFactory
	Outbox            ports.OutboxRepository
	Idempotency       ports.IdempotencyRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Matters:           &matterRepository{db: db},
		Jobs:              &jobRepository{db: db},
		FieldRequirements: &fieldRequirementRepository{db: db},
		Intake:            &intakeRepository{db: db},
		Corrections:       &correctionStore{db: db},
		Sources:           &sourceFactory{db: db},
		Outbox:            &outboxRepository{db: db},
		Idempotency:       &idempotencyRepository{db: db},
	}
}
