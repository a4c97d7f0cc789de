// Package pipedrive is the typed client for the CRM. Deal and person sync
// runs through the resilient platform client like every upstream call.
package pipedrive

import (
	"context"
	"fmt"
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

// APITokenSource adapts a long-lived API token to the platform client's
// token dance; there is nothing to refresh.
func APITokenSource(token string) platform.TokenSource {
	return func(context.Context) (string, error) {
		return "Bearer " + token, nil
	}
}

func personSchema() platform.Schema {
	return platform.Object(map[string]platform.Schema{
		"success": platform.Bool(),
		"data": platform.Object(map[string]platform.Schema{
			"id":   platform.Number(),
			"name": platform.String(),
		}),
	})
}

// UpsertPerson finds a person by email, creating one when absent.
func (c *Client) UpsertPerson(ctx context.Context, correlationID, name, email string) (ports.CRMPerson, error) {
	found, ok, err := c.searchPerson(ctx, correlationID, email)
	if err != nil {
		return ports.CRMPerson{}, err
	}
	if ok {
		return found, nil
	}
	resp, err := c.http.Do(ctx, platform.Request{
		Method: http.MethodPost,
		Path:   "/v1/persons",
		Body: map[string]any{
			"name":  name,
			"email": []map[string]any{{"value": email, "primary": true}},
		},
		CorrelationID: correlationID,
		Schema:        personSchema(),
	})
	if err != nil {
		return ports.CRMPerson{}, err
	}
	if !resp.OK {
		return ports.CRMPerson{}, fmt.Errorf("pipedrive create person: %d %s", resp.Status, resp.StatusText)
	}
	person := decodePerson(resp.Data)
	person.Email = email
	return person, nil
}

func (c *Client) searchPerson(ctx context.Context, correlationID, email string) (ports.CRMPerson, bool, error) {
	resp, err := c.http.Do(ctx, platform.Request{
		Method:        http.MethodGet,
		Path:          "/v1/persons/search",
		Query:         url.Values{"term": {email}, "fields": {"email"}, "exact_match": {"true"}},
		CorrelationID: correlationID,
	})
	if err != nil {
		return ports.CRMPerson{}, false, err
	}
	if !resp.OK {
		return ports.CRMPerson{}, false, fmt.Errorf("pipedrive search person: %d %s", resp.Status, resp.StatusText)
	}
	body, ok := resp.Data.(map[string]any)
	if !ok {
		return ports.CRMPerson{}, false, nil
	}
	data, ok := body["data"].(map[string]any)
	if !ok {
		return ports.CRMPerson{}, false, nil
	}
	items, ok := data["items"].([]any)
	if !ok || len(items) == 0 {
		return ports.CRMPerson{}, false, nil
	}
	first, ok := items[0].(map[string]any)
	if !ok {
		return ports.CRMPerson{}, false, nil
	}
	item, ok := first["item"].(map[string]any)
	if !ok {
		return ports.CRMPerson{}, false, nil
	}
	person := ports.CRMPerson{Email: email}
	if id, ok := item["id"].(float64); ok {
		person.ID = int(id)
	}
	if name, ok := item["name"].(string); ok {
		person.Name = name
	}
	return person, person.ID != 0, nil
}

// UpdateDealStage moves a deal through the pipeline after the matter is
// opened upstream.
func (c *Client) UpdateDealStage(ctx context.Context, correlationID string, dealID, stageID int) error {
	resp, err := c.http.Do(ctx, platform.Request{
		Method:        http.MethodPut,
		Path:          "/v1/deals/" + strconv.Itoa(dealID),
		Body:          map[string]any{"stage_id": stageID},
		CorrelationID: correlationID,
	})
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("pipedrive update deal %d: %d %s", dealID, resp.Status, resp.StatusText)
	}
	return nil
}

// AttachNote records the matter reference against the deal.
func (c *Client) AttachNote(ctx context.Context, correlationID string, dealID int, content string) error {
	resp, err := c.http.Do(ctx, platform.Request{
		Method:        http.MethodPost,
		Path:          "/v1/notes",
		Body:          map[string]any{"deal_id": dealID, "content": content},
		CorrelationID: correlationID,
	})
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("pipedrive attach note: %d %s", resp.Status, resp.StatusText)
	}
	return nil
}

func decodePerson(data any) ports.CRMPerson {
	body, ok := data.(map[string]any)
	if !ok {
		return ports.CRMPerson{}
	}
	inner, ok := body["data"].(map[string]any)
	if !ok {
		return ports.CRMPerson{}
	}
	out := ports.CRMPerson{}
	if id, ok := inner["id"].(float64); ok {
		out.ID = int(id)
	}
	if name, ok := inner["name"].(string); ok {
		out.Name = name
	}
	return out
}
