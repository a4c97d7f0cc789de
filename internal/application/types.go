package application

import (
	"time"

	"github.com/settleline/conveyor/internal/domain"
)

// Config carries tenant wiring the orchestration needs: which platform
// action type to open, which participant slot the client occupies, and which
// CRM pipeline stage a created matter moves its deal to.
type Config struct {
	TenantID                string
	ActionTypeID            int
	ClientParticipantTypeID int
	CRMStageMatterCreated   int
	TestMode                bool
	IdempotencyTTL          time.Duration
}

// IntakeRequest is a normalized form submission from the webhook surface.
type IntakeRequest struct {
	JobID         string
	ServiceType   string
	Intent        string
	Fields        []domain.DataItem
	CorrelationID string
}

// CreateMatterRequest asks for a matter to be created from a recorded job.
type CreateMatterRequest struct {
	JobID         string
	DealID        int
	CorrelationID string
}

// CreateMatterResult reports the outcome. Accepted is false when required
// fields are still missing; MissingFields then names them and nothing was
// created upstream.
type CreateMatterResult struct {
	Accepted      bool     `json:"accepted"`
	MatterID      string   `json:"matter_id,omitempty"`
	PlatformID    int      `json:"platform_id,omitempty"`
	Name          string   `json:"name,omitempty"`
	FeedbackURL   string   `json:"feedback_url,omitempty"`
	MissingFields []string `json:"missing_fields,omitempty"`
}

// CorrectionRequest records one human correction against a job's field. An
// explicit empty Value clears the field.
type CorrectionRequest struct {
	JobID     string
	FieldName string
	FieldType domain.DataType
	Value     string
}
