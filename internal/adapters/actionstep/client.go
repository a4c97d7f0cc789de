// Package actionstep is the typed client for the practice-management
// platform's REST API. All calls go through the resilient platform client;
// this layer only owns shapes and endpoints.
package actionstep

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/settleline/conveyor/internal/adapters/platform"
	"github.com/settleline/conveyor/internal/ports"
)

type Client struct {
	http *platform.Client
}

func NewClient(httpClient *platform.Client) *Client {
	return &Client{http: httpClient}
}

// actionSchema pins down the fields we read from an action payload; the
// platform adds fields freely and those are ignored.
func actionSchema() platform.Schema {
	return platform.Object(map[string]platform.Schema{
		"actions": platform.Object(map[string]platform.Schema{
			"id":     platform.Number(),
			"name":   platform.String(),
			"status": platform.OptionalField(platform.String()),
		}),
	})
}

// CreateMatter opens a new action (the platform's term for a matter). A
// malformed success body surfaces as a *platform.ResponseValidationError;
// a non-2xx outcome as a plain error carrying the final status.
func (c *Client) CreateMatter(ctx context.Context, correlationID string, create ports.MatterCreation) (ports.CreatedMatter, error) {
	participants := make([]map[string]any, 0, len(create.Participants))
	for _, p := range create.Participants {
		entry := map[string]any{"typeId": p.TypeID}
		if p.Email != "" {
			entry["email"] = p.Email
		}
		if p.FirstName != "" {
			entry["firstName"] = p.FirstName
		}
		if p.LastName != "" {
			entry["lastName"] = p.LastName
		}
		if p.Company != "" {
			entry["company"] = p.Company
		}
		if p.Address != nil {
			entry["address"] = p.Address
		}
		participants = append(participants, entry)
	}

	body := map[string]any{
		"name":         create.Name,
		"actionTypeId": create.ActionTypeID,
		"intent":       create.Intent,
	}
	if len(participants) > 0 {
		body["participants"] = participants
	}
	if len(create.CollectedData) > 0 {
		body["collectedData"] = create.CollectedData
	}

	resp, err := c.http.Do(ctx, platform.Request{
		Method:        http.MethodPost,
		Path:          "/api/rest/actions",
		Body:          map[string]any{"actions": body},
		CorrelationID: correlationID,
		Schema:        actionSchema(),
	})
	if err != nil {
		return ports.CreatedMatter{}, err
	}
	if !resp.OK {
		return ports.CreatedMatter{}, fmt.Errorf("actionstep create matter: %d %s", resp.Status, resp.StatusText)
	}
	return decodeMatter(resp.Data), nil
}

func (c *Client) GetMatter(ctx context.Context, correlationID string, id int) (ports.CreatedMatter, error) {
	resp, err := c.http.Do(ctx, platform.Request{
		Method:        http.MethodGet,
		Path:          "/api/rest/actions/" + strconv.Itoa(id),
		CorrelationID: correlationID,
		Schema:        actionSchema(),
	})
	if err != nil {
		return ports.CreatedMatter{}, err
	}
	if !resp.OK {
		return ports.CreatedMatter{}, fmt.Errorf("actionstep get matter %d: %d %s", id, resp.Status, resp.StatusText)
	}
	return decodeMatter(resp.Data), nil
}

// UpdateStep moves an action to a new workflow step.
func (c *Client) UpdateStep(ctx context.Context, correlationID string, id, stepID int) error {
	resp, err := c.http.Do(ctx, platform.Request{
		Method:        http.MethodPut,
		Path:          fmt.Sprintf("/api/rest/actions/%d/step", id),
		Body:          map[string]any{"stepId": stepID},
		CorrelationID: correlationID,
	})
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("actionstep update step: %d %s", resp.Status, resp.StatusText)
	}
	return nil
}

// DownloadDocument streams a stored document; the caller owns closing the
// returned reader.
func (c *Client) DownloadDocument(ctx context.Context, correlationID string, documentID string) (io.ReadCloser, error) {
	resp, err := c.http.Do(ctx, platform.Request{
		Method:        http.MethodGet,
		Path:          "/api/rest/documents/" + url.PathEscape(documentID) + "/download",
		CorrelationID: correlationID,
		Stream:        true,
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("actionstep download document %s: %d %s", documentID, resp.Status, resp.StatusText)
	}
	return resp.Stream, nil
}

func decodeMatter(data any) ports.CreatedMatter {
	body, ok := data.(map[string]any)
	if !ok {
		return ports.CreatedMatter{}
	}
	action, ok := body["actions"].(map[string]any)
	if !ok {
		return ports.CreatedMatter{}
	}
	out := ports.CreatedMatter{}
	if id, ok := action["id"].(float64); ok {
		out.ID = int(id)
	}
	if name, ok := action["name"].(string); ok {
		out.Name = name
	}
	if status, ok := action["status"].(string); ok {
		out.Status = status
	}
	return out
}
