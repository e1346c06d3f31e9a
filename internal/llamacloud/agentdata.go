package llamacloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// AgentData is a single record in the Agent Data store.
type AgentData struct {
	ID             string          `json:"id"`
	DeploymentName string          `json:"deployment_name"`
	Collection     string          `json:"collection"`
	Data           json.RawMessage `json:"data"`
	CreatedAt      *time.Time      `json:"created_at,omitempty"`
	UpdatedAt      *time.Time      `json:"updated_at,omitempty"`
}

type createAgentDataRequest struct {
	DeploymentName string          `json:"deployment_name"`
	Collection     string          `json:"collection"`
	Data           json.RawMessage `json:"data"`
}

// SearchRequest filters Agent Data records.
type SearchRequest struct {
	DeploymentName string         `json:"deployment_name"`
	Collection     string         `json:"collection,omitempty"`
	Filter         map[string]any `json:"filter,omitempty"`
	OrderBy        string         `json:"order_by,omitempty"`
	PageSize       int            `json:"page_size,omitempty"`
	PageToken      string         `json:"page_token,omitempty"`
}

// SearchResponse is one page of search results.
type SearchResponse struct {
	Items         []AgentData `json:"items"`
	NextPageToken string      `json:"next_page_token,omitempty"`
	TotalSize     int         `json:"total_size,omitempty"`
}

// CreateAgentData stores data under a collection and returns the created
// record, including its service-generated id.
func (c *Client) CreateAgentData(ctx context.Context, deployment, collection string, data json.RawMessage) (*AgentData, error) {
	req := createAgentDataRequest{
		DeploymentName: deployment,
		Collection:     collection,
		Data:           data,
	}
	var out AgentData
	if err := c.doJSON(ctx, "POST", "/api/v1/beta/agent-data", nil, req, &out); err != nil {
		return nil, fmt.Errorf("failed to create agent data in %s: %w", collection, err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("agent data service returned a record without id")
	}
	return &out, nil
}

// GetAgentData fetches a record by id.
func (c *Client) GetAgentData(ctx context.Context, id string) (*AgentData, error) {
	var out AgentData
	if err := c.doJSON(ctx, "GET", "/api/v1/beta/agent-data/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAgentData deletes a record by id.
func (c *Client) DeleteAgentData(ctx context.Context, id string) error {
	return c.doJSON(ctx, "DELETE", "/api/v1/beta/agent-data/"+url.PathEscape(id), nil, nil, nil)
}

// SearchAgentData returns one page of records matching req.
func (c *Client) SearchAgentData(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var out SearchResponse
	if err := c.doJSON(ctx, "POST", "/api/v1/beta/agent-data/:search", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
