// Package application orchestrates matter creation: coalesce the job's
// field sources, gate on required fields, build the canonical matter name,
// open the matter upstream, then fan out CRM sync, the feedback link, and
// the outbox event.
package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/settleline/conveyor/internal/address"
	"github.com/settleline/conveyor/internal/datasource"
	"github.com/settleline/conveyor/internal/domain"
	"github.com/settleline/conveyor/internal/matter"
	"github.com/settleline/conveyor/internal/ports"
	"github.com/settleline/conveyor/internal/trustlink"
)

// Canonical field names shared by the form mapping, the extraction pipeline
// and the reference metadata.
const (
	fieldState          = "state"
	fieldIntent         = "intent"
	fieldMatterID       = "matterId"
	fieldClientType     = "clientType"
	fieldCompanyName    = "companyName"
	fieldFirstName      = "firstName"
	fieldLastName       = "lastName"
	fieldClientEmail    = "clientEmail"
	fieldRoleInitials   = "roleInitials"
	fieldAdditionalInfo = "additionalInfo"
	fieldClientAddress  = "clientAddress"
)

type Service struct {
	cfg         Config
	matters     ports.MatterRepository
	intake      ports.IntakeRepository
	corrections ports.CorrectionStore
	sources     ports.DataSourceFactory
	validator   *datasource.Validator
	outbox      ports.OutboxRepository
	idempotency ports.IdempotencyRepository
	platform    ports.MatterPlatform
	crm         ports.CRM
	links       *trustlink.Manager
	linkSvc     *trustlink.Service
	logger      *slog.Logger
	nowFn       func() time.Time
}

type Dependencies struct {
	Config      Config
	Matters     ports.MatterRepository
	Intake      ports.IntakeRepository
	Corrections ports.CorrectionStore
	Sources     ports.DataSourceFactory
	Validator   *datasource.Validator
	Outbox      ports.OutboxRepository
	Idempotency ports.IdempotencyRepository
	Platform    ports.MatterPlatform
	CRM         ports.CRM
	Links       *trustlink.Manager
	LinkService *trustlink.Service
	Logger      *slog.Logger
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:         deps.Config,
		matters:     deps.Matters,
		intake:      deps.Intake,
		corrections: deps.Corrections,
		sources:     deps.Sources,
		validator:   deps.Validator,
		outbox:      deps.Outbox,
		idempotency: deps.Idempotency,
		platform:    deps.Platform,
		crm:         deps.CRM,
		links:       deps.Links,
		linkSvc:     deps.LinkService,
		logger:      logger.With("module", "conveyor", "layer", "application"),
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}

// RecordIntake persists a normalized form submission as a job plus its
// extracted field values. Replayed deliveries are absorbed by the
// idempotency key.
func (s *Service) RecordIntake(ctx context.Context, req IntakeRequest, idempotencyKey string) error {
	if strings.TrimSpace(req.JobID) == "" {
		return fmt.Errorf("%w: jobId is required", domain.ErrInvalidInput)
	}
	if idempotencyKey == "" {
		return domain.ErrIdempotencyRequired
	}

	requestHash := hashRequest(req)
	if err := s.idempotency.Reserve(ctx, idempotencyKey, requestHash, s.nowFn().Add(s.idempotencyTTL())); err != nil {
		if replayed, _ := s.replayCompleted(ctx, idempotencyKey, requestHash, nil); replayed {
			return nil
		}
		return fmt.Errorf("%w: %v", domain.ErrIdempotencyConflict, err)
	}

	now := s.nowFn()
	err := s.intake.RecordSubmission(ctx, ports.IntakeJob{
		JobID:       req.JobID,
		TenantID:    s.cfg.TenantID,
		ServiceType: req.ServiceType,
		Intent:      strings.ToLower(strings.TrimSpace(req.Intent)),
		Fields:      req.Fields,
	}, now)
	if err != nil {
		s.releaseIdempotency(ctx, idempotencyKey)
		return fmt.Errorf("record submission: %w", err)
	}

	payload, _ := json.Marshal(map[string]any{
		"job_id":       req.JobID,
		"tenant_id":    s.cfg.TenantID,
		"service_type": req.ServiceType,
		"recorded_at":  now,
	})
	_ = s.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    "intake.recorded",
		PartitionKey: req.JobID,
		Payload:      payload,
		OccurredAt:   now,
	})

	_ = s.idempotency.Complete(ctx, idempotencyKey, 202, nil, s.nowFn())
	return nil
}

// SubmitCorrection records one human correction. An empty value is the
// explicit "clear this field" correction and still wins over extraction.
func (s *Service) SubmitCorrection(ctx context.Context, req CorrectionRequest) error {
	if strings.TrimSpace(req.JobID) == "" || strings.TrimSpace(req.FieldName) == "" {
		return fmt.Errorf("%w: jobId and fieldName are required", domain.ErrInvalidInput)
	}
	fieldType := req.FieldType
	if fieldType == "" {
		fieldType = domain.DataTypeString
	}
	value := req.Value
	return s.corrections.Put(ctx, req.JobID, domain.DataItem{
		Name:  req.FieldName,
		Value: &value,
		Type:  fieldType,
	}, s.nowFn())
}

// ValidateJob runs the required-field gate for a job without creating
// anything.
func (s *Service) ValidateJob(ctx context.Context, jobID string) (datasource.ValidationResult, error) {
	if strings.TrimSpace(jobID) == "" {
		return datasource.ValidationResult{}, fmt.Errorf("%w: jobId is required", domain.ErrInvalidInput)
	}
	source := s.jobSource(jobID)
	return s.validator.Validate(ctx, jobID, source)
}

// CreateMatter is the main orchestration. Missing required fields come back
// as an unaccepted result, not an error; the caller can resubmit once
// corrections land.
func (s *Service) CreateMatter(ctx context.Context, req CreateMatterRequest, idempotencyKey string) (CreateMatterResult, error) {
	if strings.TrimSpace(req.JobID) == "" {
		return CreateMatterResult{}, fmt.Errorf("%w: jobId is required", domain.ErrInvalidInput)
	}
	if idempotencyKey == "" {
		return CreateMatterResult{}, domain.ErrIdempotencyRequired
	}
	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	requestHash := hashRequest(req)
	if err := s.idempotency.Reserve(ctx, idempotencyKey, requestHash, s.nowFn().Add(s.idempotencyTTL())); err != nil {
		var replay CreateMatterResult
		if replayed, replayErr := s.replayCompleted(ctx, idempotencyKey, requestHash, &replay); replayed {
			return replay, replayErr
		}
		return CreateMatterResult{}, fmt.Errorf("%w: %v", domain.ErrIdempotencyConflict, err)
	}
	// Only a created matter pins the delivery key. Rejections and failures
	// release the reservation so the same key can retry once corrections
	// land or the upstream recovers.
	completed := false
	defer func() {
		if !completed {
			s.releaseIdempotency(ctx, idempotencyKey)
		}
	}()

	source := s.jobSource(req.JobID)

	validation, err := s.validator.Validate(ctx, req.JobID, source)
	if err != nil {
		return CreateMatterResult{}, err
	}
	if !validation.Valid {
		result := CreateMatterResult{Accepted: false}
		for _, item := range validation.Missing {
			result.MissingFields = append(result.MissingFields, item.Name)
		}
		return result, nil
	}

	fields, err := s.readFields(ctx, source,
		fieldState, fieldIntent, fieldMatterID, fieldClientType,
		fieldCompanyName, fieldFirstName, fieldLastName, fieldClientEmail,
		fieldRoleInitials, fieldAdditionalInfo, fieldClientAddress,
	)
	if err != nil {
		return CreateMatterResult{}, err
	}

	intent := parseIntent(fields[fieldIntent])
	builder := matter.FromData(matter.NameParams{
		IsCompany:      strings.EqualFold(fields[fieldClientType], "company"),
		CompanyName:    fields[fieldCompanyName],
		LastName:       fields[fieldLastName],
		State:          fields[fieldState],
		Intent:         intent,
		MatterID:       fields[fieldMatterID],
		RoleInitials:   fields[fieldRoleInitials],
		AdditionalInfo: fields[fieldAdditionalInfo],
		TestMode:       s.cfg.TestMode,
	})
	name, err := builder.Build()
	if err != nil {
		return CreateMatterResult{}, err
	}

	participant := ports.MatterParticipant{
		TypeID:    s.cfg.ClientParticipantTypeID,
		Email:     fields[fieldClientEmail],
		FirstName: fields[fieldFirstName],
		LastName:  fields[fieldLastName],
	}
	if strings.EqualFold(fields[fieldClientType], "company") {
		participant.Company = fields[fieldCompanyName]
	}
	if raw := fields[fieldClientAddress]; strings.TrimSpace(raw) != "" {
		participant.Address = address.Parse(raw)
	}

	now := s.nowFn()
	created, err := s.platform.CreateMatter(ctx, correlationID, ports.MatterCreation{
		Name:         name,
		ActionTypeID: s.cfg.ActionTypeID,
		Intent:       string(intent),
		Participants: []ports.MatterParticipant{participant},
	})
	if err != nil {
		_ = s.matters.Create(ctx, domain.Matter{
			MatterID:  fields[fieldMatterID],
			TenantID:  s.cfg.TenantID,
			JobID:     req.JobID,
			Name:      name,
			State:     strings.ToUpper(fields[fieldState]),
			Intent:    intent,
			Status:    domain.MatterStatusFailed,
			CreatedAt: now,
			UpdatedAt: now,
		})
		return CreateMatterResult{}, fmt.Errorf("create matter upstream: %w", err)
	}

	record := domain.Matter{
		MatterID:   fields[fieldMatterID],
		PlatformID: created.ID,
		TenantID:   s.cfg.TenantID,
		JobID:      req.JobID,
		Name:       name,
		State:      strings.ToUpper(fields[fieldState]),
		Intent:     intent,
		Status:     domain.MatterStatusCreated,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.matters.Create(ctx, record); err != nil {
		return CreateMatterResult{}, fmt.Errorf("persist matter: %w", err)
	}

	payload, _ := json.Marshal(map[string]any{
		"matter_id":   record.MatterID,
		"platform_id": record.PlatformID,
		"tenant_id":   record.TenantID,
		"job_id":      record.JobID,
		"name":        record.Name,
		"created_at":  now,
	})
	_ = s.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    "matter.created",
		PartitionKey: record.MatterID,
		Payload:      payload,
		OccurredAt:   now,
	})

	s.syncCRM(ctx, correlationID, req.DealID, record, fields)
	feedbackURL := s.issueFeedbackLink(ctx, correlationID, record, fields)

	result := CreateMatterResult{
		Accepted:    true,
		MatterID:    record.MatterID,
		PlatformID:  record.PlatformID,
		Name:        record.Name,
		FeedbackURL: feedbackURL,
	}
	s.completeIdempotency(ctx, idempotencyKey, 201, result)
	completed = true
	return result, nil
}

func (s *Service) GetMatter(ctx context.Context, matterID string) (domain.Matter, error) {
	if strings.TrimSpace(matterID) == "" {
		return domain.Matter{}, fmt.Errorf("%w: matterId is required", domain.ErrInvalidInput)
	}
	return s.matters.GetByID(ctx, matterID)
}

func (s *Service) ListMatters(ctx context.Context, limit, offset int) ([]domain.Matter, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.matters.ListByTenant(ctx, s.cfg.TenantID, limit, offset)
}

// FeedbackLink resolves the stored review link for a matter through the
// symlink indirection.
func (s *Service) FeedbackLink(ctx context.Context, matterID string) (trustlink.Record, error) {
	if strings.TrimSpace(matterID) == "" {
		return trustlink.Record{}, fmt.Errorf("%w: matterId is required", domain.ErrInvalidInput)
	}
	return s.links.ResolveByMatter(ctx, matterID)
}

func (s *Service) jobSource(jobID string) ports.DataSource {
	return datasource.NewCoalescing(s.sources.Extraction(jobID), s.sources.Correction(jobID))
}

func (s *Service) readFields(ctx context.Context, source ports.DataSource, names ...string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	for _, name := range names {
		item, err := source.Get(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("read field %s: %w", name, err)
		}
		out[name] = item.StringValue()
	}
	return out, nil
}

// syncCRM is best-effort: a CRM outage must not fail a matter that already
// exists upstream.
func (s *Service) syncCRM(ctx context.Context, correlationID string, dealID int, record domain.Matter, fields map[string]string) {
	if s.crm == nil || dealID == 0 {
		return
	}
	log := s.logger.With("operation", "crm_sync", "matter_id", record.MatterID, "deal_id", dealID)

	clientName := strings.TrimSpace(fields[fieldFirstName] + " " + fields[fieldLastName])
	if email := fields[fieldClientEmail]; email != "" {
		if _, err := s.crm.UpsertPerson(ctx, correlationID, clientName, email); err != nil {
			log.WarnContext(ctx, "crm person upsert failed", "outcome", "degraded", "error", err)
		}
	}
	if err := s.crm.AttachNote(ctx, correlationID, dealID, "Matter created: "+record.Name); err != nil {
		log.WarnContext(ctx, "crm note failed", "outcome", "degraded", "error", err)
	}
	if s.cfg.CRMStageMatterCreated > 0 {
		if err := s.crm.UpdateDealStage(ctx, correlationID, dealID, s.cfg.CRMStageMatterCreated); err != nil {
			log.WarnContext(ctx, "crm stage update failed", "outcome", "degraded", "error", err)
		}
	}
}

// issueFeedbackLink generates and stores the review invitation link. Also
// best-effort; the link can be re-issued later.
func (s *Service) issueFeedbackLink(ctx context.Context, correlationID string, record domain.Matter, fields map[string]string) string {
	if s.linkSvc == nil || s.links == nil {
		return ""
	}
	email := fields[fieldClientEmail]
	if email == "" {
		return ""
	}
	log := s.logger.With("operation", "feedback_link", "matter_id", record.MatterID, "correlation_id", correlationID)

	clientName := strings.TrimSpace(fields[fieldFirstName] + " " + fields[fieldLastName])
	if strings.EqualFold(fields[fieldClientType], "company") {
		clientName = fields[fieldCompanyName]
	}
	url, err := s.linkSvc.GenerateLink(map[string]string{
		"email": email,
		"name":  clientName,
		"ref":   record.MatterID,
	})
	if err != nil {
		log.WarnContext(ctx, "link generation failed", "outcome", "degraded", "error", err)
		return ""
	}
	err = s.links.Store(ctx, trustlink.Record{
		ClientID: email,
		MatterID: record.MatterID,
		URL:      url,
		Payload:  map[string]string{"email": email, "name": clientName, "ref": record.MatterID},
	})
	if err != nil {
		log.WarnContext(ctx, "link store failed", "outcome", "degraded", "error", err)
		return ""
	}
	return url
}

func (s *Service) idempotencyTTL() time.Duration {
	if s.cfg.IdempotencyTTL > 0 {
		return s.cfg.IdempotencyTTL
	}
	return 7 * 24 * time.Hour
}

func (s *Service) completeIdempotency(ctx context.Context, key string, code int, result CreateMatterResult) {
	body, _ := json.Marshal(result)
	_ = s.idempotency.Complete(ctx, key, code, body, s.nowFn())
}

func (s *Service) releaseIdempotency(ctx context.Context, key string) {
	if err := s.idempotency.Release(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "idempotency release failed",
			"operation", "idempotency_release", "outcome", "degraded", "error", err)
	}
}

// replayCompleted checks whether a reserve conflict is a replay of an
// already-completed delivery with the same payload. When out is non-nil the
// stored response body is decoded into it.
func (s *Service) replayCompleted(ctx context.Context, key, requestHash string, out *CreateMatterResult) (bool, error) {
	rec, err := s.idempotency.Get(ctx, key)
	if err != nil || rec == nil {
		return false, nil
	}
	if rec.Status != "COMPLETED" || rec.RequestHash != requestHash {
		return false, nil
	}
	if out != nil && len(rec.ResponseBody) > 0 {
		if err := json.Unmarshal(rec.ResponseBody, out); err != nil {
			return true, fmt.Errorf("decode replayed response: %w", err)
		}
	}
	return true, nil
}

func parseIntent(raw string) domain.Intent {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy", "buying", "purchase":
		return domain.IntentBuy
	case "sell", "selling", "sale":
		return domain.IntentSell
	case "transfer":
		return domain.IntentTransfer
	default:
		return domain.IntentUnknown
	}
}

func hashRequest(req any) string {
	raw, _ := json.Marshal(req)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
