package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackzampolin/filings/internal/llamacloud"
)

// DefaultDeployment is the deployment name records are scoped to when none is configured.
const DefaultDeployment = "filings"

// AgentData stores records in the LlamaCloud Agent Data API.
type AgentData struct {
	client     *llamacloud.Client
	deployment string
}

// NewAgentData creates a store scoped to deployment.
func NewAgentData(client *llamacloud.Client, deployment string) *AgentData {
	if deployment == "" {
		deployment = DefaultDeployment
	}
	return &AgentData{client: client, deployment: deployment}
}

// Insert creates a record and returns the service-generated id.
func (s *AgentData) Insert(ctx context.Context, collection string, data json.RawMessage) (string, error) {
	rec, err := s.client.CreateAgentData(ctx, s.deployment, collection, data)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// Get fetches a record by id.
func (s *AgentData) Get(ctx context.Context, id string) (*Record, error) {
	rec, err := s.client.GetAgentData(ctx, id)
	if err != nil {
		if errors.Is(err, llamacloud.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return fromAgentData(rec), nil
}

// Delete removes a record by id.
func (s *AgentData) Delete(ctx context.Context, id string) error {
	if err := s.client.DeleteAgentData(ctx, id); err != nil {
		if errors.Is(err, llamacloud.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	return nil
}

// List returns up to limit records of collection, newest first.
func (s *AgentData) List(ctx context.Context, collection string, limit int) ([]Record, error) {
	req := llamacloud.SearchRequest{
		DeploymentName: s.deployment,
		Collection:     collection,
		OrderBy:        "created_at desc",
		PageSize:       limit,
	}

	var out []Record
	for {
		page, err := s.client.SearchAgentData(ctx, req)
		if err != nil {
			return nil, err
		}
		for i := range page.Items {
			out = append(out, *fromAgentData(&page.Items[i]))
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
		if page.NextPageToken == "" {
			return out, nil
		}
		req.PageToken = page.NextPageToken
	}
}

// Ping issues a minimal search to check credentials and reachability.
func (s *AgentData) Ping(ctx context.Context) error {
	_, err := s.client.SearchAgentData(ctx, llamacloud.SearchRequest{
		DeploymentName: s.deployment,
		PageSize:       1,
	})
	return err
}

// Close is a no-op.
func (s *AgentData) Close() error {
	return nil
}

func fromAgentData(a *llamacloud.AgentData) *Record {
	rec := &Record{
		ID:         a.ID,
		Collection: a.Collection,
		Data:       a.Data,
	}
	if a.CreatedAt != nil {
		rec.CreatedAt = a.CreatedAt.In(time.UTC)
	}
	return rec
}
