package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/settleline/conveyor/internal/application"
)

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ready")
}

type createMatterBody struct {
	JobID  string `json:"job_id"`
	DealID int    `json:"deal_id"`
}

func (h *Handler) createMatter(w http.ResponseWriter, r *http.Request) {
	var body createMatterBody
	if err := decodeBody(r, &body); err != nil {
		writeValidationError(r.Context(), w, "create_matter", err)
		return
	}

	result, err := h.service.CreateMatter(r.Context(), application.CreateMatterRequest{
		JobID:         body.JobID,
		DealID:        body.DealID,
		CorrelationID: requestIDFromContext(r.Context()),
	}, strings.TrimSpace(r.Header.Get("Idempotency-Key")))
	if err != nil {
		writeMappedError(r.Context(), w, "create_matter", err)
		return
	}
	if !result.Accepted {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"status": "error",
			"code":   "MISSING_REQUIRED_FIELDS",
			"data":   result,
		})
		return
	}
	writeSuccess(w, http.StatusCreated, result)
}

func (h *Handler) getMatter(w http.ResponseWriter, r *http.Request) {
	matterID := chi.URLParam(r, "matter_id")
	record, err := h.service.GetMatter(r.Context(), matterID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_matter", err)
		return
	}
	writeSuccess(w, http.StatusOK, record)
}

func (h *Handler) listMatters(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 20)
	offset := parseIntDefault(r.URL.Query().Get("offset"), 0)
	records, err := h.service.ListMatters(r.Context(), limit, offset)
	if err != nil {
		writeMappedError(r.Context(), w, "list_matters", err)
		return
	}
	writeSuccess(w, http.StatusOK, records)
}

func (h *Handler) feedbackLink(w http.ResponseWriter, r *http.Request) {
	matterID := chi.URLParam(r, "matter_id")
	record, err := h.service.FeedbackLink(r.Context(), matterID)
	if err != nil {
		writeMappedError(r.Context(), w, "feedback_link", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"matter_id":  record.MatterID,
		"url":        record.URL,
		"created_at": record.CreatedAt,
	})
}

type correctionBody struct {
	FieldName string `json:"field_name"`
	FieldType string `json:"field_type"`
	Value     string `json:"value"`
}

func (h *Handler) submitCorrection(w http.ResponseWriter, r *http.Request) {
	var body correctionBody
	if err := decodeBody(r, &body); err != nil {
		writeValidationError(r.Context(), w, "submit_correction", err)
		return
	}

	err := h.service.SubmitCorrection(r.Context(), application.CorrectionRequest{
		JobID:     chi.URLParam(r, "job_id"),
		FieldName: body.FieldName,
		FieldType: dataTypeFromString(body.FieldType),
		Value:     body.Value,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "submit_correction", err)
		return
	}
	writeMessage(w, http.StatusOK, "correction recorded")
}

func (h *Handler) validateJob(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ValidateJob(r.Context(), chi.URLParam(r, "job_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "validate_job", err)
		return
	}
	missing := make([]string, 0, len(result.Missing))
	for _, item := range result.Missing {
		missing = append(missing, item.Name)
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"valid":          result.Valid,
		"missing_fields": missing,
	})
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

func parseIntDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func writeMappedError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	status, code, msg := mapDomainError(err)
	logHTTPOperationError(ctx, operation, status, code, msg, err)
	writeError(w, status, code, msg)
}

func writeValidationError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	code := "VALIDATION_ERROR"
	msg := err.Error()
	logHTTPOperationError(ctx, operation, http.StatusBadRequest, code, msg, err)
	writeError(w, http.StatusBadRequest, code, msg)
}
