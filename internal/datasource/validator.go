package datasource

import (
	"context"
	"fmt"

	"github.com/settleline/conveyor/internal/domain"
	"github.com/settleline/conveyor/internal/ports"
)

// ValidationResult is the outcome of a required-field check. Missing holds
// the required items that were empty or absent; Valid is true when it is
// empty. It is a read-time gate only; nothing is mutated.
type ValidationResult struct {
	Valid   bool
	Missing []domain.DataItem
}

// Validator checks a job's required fields against a data source. Required
// field names come from reference metadata keyed by the job's service type.
type Validator struct {
	resolver     ports.ServiceTypeResolver
	requirements ports.FieldRequirementRepository
}

func NewValidator(resolver ports.ServiceTypeResolver, requirements ports.FieldRequirementRepository) *Validator {
	return &Validator{resolver: resolver, requirements: requirements}
}

// Validate resolves the job's service type, loads its required fields, and
// queries source for each. A job with no resolvable service type is a setup
// mistake and comes back as an error wrapping domain.ErrServiceTypeUnresolved,
// not as a validation result.
func (v *Validator) Validate(ctx context.Context, jobID string, source ports.DataSource) (ValidationResult, error) {
	serviceType, err := v.resolver.ServiceType(ctx, jobID)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("resolve service type for job %s: %w", jobID, err)
	}
	if serviceType == "" {
		return ValidationResult{}, fmt.Errorf("job %s: %w", jobID, domain.ErrServiceTypeUnresolved)
	}

	required, err := v.requirements.RequiredFields(ctx, serviceType)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("load required fields for %s: %w", serviceType, err)
	}

	var missing []domain.DataItem
	for _, req := range required {
		item, err := source.Get(ctx, req.FieldName)
		if err != nil {
			return ValidationResult{}, fmt.Errorf("get field %s: %w", req.FieldName, err)
		}
		item.Required = true
		if !item.IsPopulated() {
			if item.Name == "" {
				item.Name = req.FieldName
			}
			if item.Type == "" {
				item.Type = req.FieldType
			}
			missing = append(missing, item)
		}
	}
	return ValidationResult{Valid: len(missing) == 0, Missing: missing}, nil
}
