package domain

import "time"

// Intent is the transaction direction of a conveyancing matter.
type Intent string

const (
	IntentBuy      Intent = "buy"
	IntentSell     Intent = "sell"
	IntentTransfer Intent = "transfer"
	IntentUnknown  Intent = "unknown"
)

// MatterStatus tracks the lifecycle of a matter record on our side.
type MatterStatus string

const (
	MatterStatusPending MatterStatus = "pending"
	MatterStatusCreated MatterStatus = "created"
	MatterStatusFailed  MatterStatus = "failed"
)

// Matter is the local record of a case created in the practice-management
// platform. PlatformID is the id assigned by the external platform; Name is
// the canonical reference string built by the name builder.
type Matter struct {
	MatterID   string
	PlatformID int
	TenantID   string
	JobID      string
	Name       string
	State      string
	Intent     Intent
	Status     MatterStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ManifestMeta is one flattened key/value pair of name-building state, used
// when parameters must cross a queue or persistence boundary.
type ManifestMeta struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// AddressType distinguishes the two address slots a matter participant has.
type AddressType string

const (
	AddressTypePhysical AddressType = "physical"
	AddressTypeMailing  AddressType = "mailing"
)

// MatterCreateDetailAddress is the structured output of the address parser.
// Fields are empty strings when not recoverable from the input, never nil.
type MatterCreateDetailAddress struct {
	Line1    string      `json:"line1"`
	Suburb   string      `json:"suburb"`
	State    string      `json:"state"`
	Postcode string      `json:"postcode"`
	Type     AddressType `json:"type"`
}

// FieldRequirement is one row of reference metadata: a field a given service
// type must have populated before a matter can be created.
type FieldRequirement struct {
	ServiceType string
	FieldName   string
	FieldType   DataType
}
