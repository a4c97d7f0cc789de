package postgres

import (
	"time"

	"github.com/google/uuid"
)

type matterModel struct {
	MatterID   string     `gorm:"column:matter_id;primaryKey"`
	PlatformID int        `gorm:"column:platform_id"`
	TenantID   string     `gorm:"column:tenant_id"`
	JobID      string     `gorm:"column:job_id"`
	Name       string     `gorm:"column:name"`
	State      string     `gorm:"column:state"`
	Intent     string     `gorm:"column:intent"`
	Status     string     `gorm:"column:status"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at"`
	DeletedAt  *time.Time `gorm:"column:deleted_at"`
}

func (matterModel) TableName() string { return "matters" }

// jobModel is one intake job: a collected form submission or extraction run
// awaiting matter creation. ServiceType is resolved at intake from the
// tenant's product configuration and may legitimately be empty for jobs the
// pipeline cannot yet classify.
type jobModel struct {
	JobID       string    `gorm:"column:job_id;primaryKey"`
	TenantID    string    `gorm:"column:tenant_id"`
	ServiceType string    `gorm:"column:service_type"`
	Intent      string    `gorm:"column:intent"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (jobModel) TableName() string { return "jobs" }

type fieldRequirementModel struct {
	ID          int64  `gorm:"column:id;primaryKey"`
	ServiceType string `gorm:"column:service_type"`
	FieldName   string `gorm:"column:field_name"`
	FieldType   string `gorm:"column:field_type"`
}

func (fieldRequirementModel) TableName() string { return "field_requirements" }

// extractedFieldModel holds the document-extraction pipeline's output per
// job and field. Value is nullable: an extraction run can record that it
// looked for a field and found nothing.
type extractedFieldModel struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	JobID     string    `gorm:"column:job_id"`
	FieldName string    `gorm:"column:field_name"`
	Value     *string   `gorm:"column:value"`
	FieldType string    `gorm:"column:field_type"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (extractedFieldModel) TableName() string { return "extracted_fields" }

// correctedFieldModel holds human corrections. An empty-string value is a
// deliberate "clear this field" correction and stays distinct from no row
// at all.
type correctedFieldModel struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	JobID     string    `gorm:"column:job_id"`
	FieldName string    `gorm:"column:field_name"`
	Value     string    `gorm:"column:value"`
	FieldType string    `gorm:"column:field_type"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (correctedFieldModel) TableName() string { return "corrected_fields" }

type outboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (outboxModel) TableName() string { return "matter_outbox" }

type idempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	Status         string    `gorm:"column:status"`
	ResponseCode   int       `gorm:"column:response_code"`
	ResponseBody   *string   `gorm:"column:response_body;type:jsonb"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (idempotencyModel) TableName() string { return "webhook_idempotency" }
