package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/settleline/conveyor/internal/application"
	"github.com/settleline/conveyor/internal/domain"
)

// typeformPayload is the subset of the form webhook we consume. The form is
// built so every answer field's ref matches a canonical field name.
type typeformPayload struct {
	EventID      string `json:"event_id"`
	EventType    string `json:"event_type"`
	FormResponse struct {
		Token   string            `json:"token"`
		Hidden  map[string]string `json:"hidden"`
		Answers []typeformAnswer  `json:"answers"`
	} `json:"form_response"`
}

type typeformAnswer struct {
	Type  string `json:"type"`
	Field struct {
		Ref string `json:"ref"`
	} `json:"field"`
	Text        string   `json:"text"`
	Email       string   `json:"email"`
	PhoneNumber string   `json:"phone_number"`
	Date        string   `json:"date"`
	Number      *float64 `json:"number"`
	Boolean     *bool    `json:"boolean"`
	Choice      struct {
		Label string `json:"label"`
	} `json:"choice"`
}

func (h *Handler) typeformWebhook(w http.ResponseWriter, r *http.Request) {
	var payload typeformPayload
	if err := decodeLenient(r, &payload); err != nil {
		writeValidationError(r.Context(), w, "typeform_webhook", err)
		return
	}
	if payload.EventType != "form_response" {
		writeMessage(w, http.StatusOK, "ignored")
		return
	}
	if payload.FormResponse.Token == "" {
		writeValidationError(r.Context(), w, "typeform_webhook", fmt.Errorf("form_response.token is required"))
		return
	}

	fields := make([]domain.DataItem, 0, len(payload.FormResponse.Answers))
	for _, answer := range payload.FormResponse.Answers {
		if answer.Field.Ref == "" {
			continue
		}
		value, fieldType := answerValue(answer)
		fields = append(fields, domain.DataItem{
			Name:  answer.Field.Ref,
			Value: &value,
			Type:  fieldType,
		})
	}

	err := h.service.RecordIntake(r.Context(), application.IntakeRequest{
		JobID:         payload.FormResponse.Token,
		ServiceType:   payload.FormResponse.Hidden["service_type"],
		Intent:        payload.FormResponse.Hidden["intent"],
		Fields:        fields,
		CorrelationID: requestIDFromContext(r.Context()),
	}, payload.EventID)
	if err != nil {
		writeMappedError(r.Context(), w, "typeform_webhook", err)
		return
	}
	writeMessage(w, http.StatusAccepted, "recorded")
}

// pipedrivePayload carries the deal update that triggers matter creation.
// job_id is a deal custom field populated at intake.
type pipedrivePayload struct {
	Event   string `json:"event"`
	Current struct {
		ID    int    `json:"id"`
		JobID string `json:"job_id"`
	} `json:"current"`
}

func (h *Handler) pipedriveWebhook(w http.ResponseWriter, r *http.Request) {
	var payload pipedrivePayload
	if err := decodeLenient(r, &payload); err != nil {
		writeValidationError(r.Context(), w, "pipedrive_webhook", err)
		return
	}
	if payload.Current.JobID == "" {
		writeMessage(w, http.StatusOK, "ignored")
		return
	}

	// The broker retries deliveries without a dedupe id, so the key is
	// derived from the triggering state itself.
	idempotencyKey := "pipedrive:" + payload.Event + ":" + strconv.Itoa(payload.Current.ID) + ":" + payload.Current.JobID

	result, err := h.service.CreateMatter(r.Context(), application.CreateMatterRequest{
		JobID:         payload.Current.JobID,
		DealID:        payload.Current.ID,
		CorrelationID: requestIDFromContext(r.Context()),
	}, idempotencyKey)
	if err != nil {
		writeMappedError(r.Context(), w, "pipedrive_webhook", err)
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

// decodeLenient parses webhook bodies without DisallowUnknownFields; the
// delivering platforms add fields without notice.
func decodeLenient(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func answerValue(answer typeformAnswer) (string, domain.DataType) {
	switch answer.Type {
	case "email":
		return answer.Email, domain.DataTypeString
	case "phone_number":
		return answer.PhoneNumber, domain.DataTypeString
	case "date":
		return answer.Date, domain.DataTypeDate
	case "number":
		if answer.Number == nil {
			return "", domain.DataTypeNumber
		}
		return strconv.FormatFloat(*answer.Number, 'f', -1, 64), domain.DataTypeNumber
	case "boolean":
		if answer.Boolean == nil {
			return "", domain.DataTypeBoolean
		}
		return strconv.FormatBool(*answer.Boolean), domain.DataTypeBoolean
	case "choice":
		return answer.Choice.Label, domain.DataTypeString
	default:
		return answer.Text, domain.DataTypeString
	}
}

func dataTypeFromString(raw string) domain.DataType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "number":
		return domain.DataTypeNumber
	case "boolean":
		return domain.DataTypeBoolean
	case "date":
		return domain.DataTypeDate
	case "currency":
		return domain.DataTypeCurrency
	default:
		return domain.DataTypeString
	}
}
