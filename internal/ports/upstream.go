package ports

import "context"

// MatterCreation is the payload for opening a matter in the practice-
// management platform, expressed without platform-specific field names.
type MatterCreation struct {
	Name          string
	ActionTypeID  int
	Intent        string
	Participants  []MatterParticipant
	CollectedData map[string]string
}

type MatterParticipant struct {
	TypeID    int
	Email     string
	FirstName string
	LastName  string
	Company   string
	Address   any
}

// CreatedMatter is the platform's view of a matter after creation.
type CreatedMatter struct {
	ID     int
	Name   string
	Status string
}

// MatterPlatform is the outbound port for the practice-management platform.
type MatterPlatform interface {
	CreateMatter(ctx context.Context, correlationID string, create MatterCreation) (CreatedMatter, error)
	GetMatter(ctx context.Context, correlationID string, id int) (CreatedMatter, error)
	UpdateStep(ctx context.Context, correlationID string, id, stepID int) error
}

type CRMPerson struct {
	ID    int
	Name  string
	Email string
}

// CRM is the outbound port for deal and person sync.
type CRM interface {
	UpsertPerson(ctx context.Context, correlationID, name, email string) (CRMPerson, error)
	UpdateDealStage(ctx context.Context, correlationID string, dealID, stageID int) error
	AttachNote(ctx context.Context, correlationID string, dealID int, content string) error
}
