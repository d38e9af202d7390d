// Package sherlock implements the semantic gap engine: it ingests client
// and competitor pages into a vector index, extracts topics, compares the
// two topic spaces, and turns the gaps into actionable missions.
package sherlock

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Vector is one record in the index.
type Vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Match is one query hit.
type Match struct {
	ID       string         `json:"id"`
	Score    float32        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// VectorIndex is the slice of the vector store the engine needs.
type VectorIndex interface {
	Upsert(ctx context.Context, vectors []Vector) error
	Query(ctx context.Context, vector []float32, filter map[string]any, topK int) ([]Match, error)
}

// PineconeIndex talks to a Pinecone serverless index over its data-plane
// host URL.
type PineconeIndex struct {
	apiKey string
	host   string
	client *http.Client
}

// NewPineconeIndex builds a client for the given index host
// (e.g. https://my-index-abc123.svc.aped-4627-b74a.pinecone.io).
func NewPineconeIndex(apiKey, host string) *PineconeIndex {
	if !strings.HasPrefix(host, "http") {
		host = "https://" + host
	}
	return &PineconeIndex{
		apiKey: apiKey,
		host:   strings.TrimRight(host, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type upsertRequest struct {
	Vectors []Vector `json:"vectors"`
}

// Upsert writes vectors to the index.
func (p *PineconeIndex) Upsert(ctx context.Context, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	var resp upsertResponse
	if err := p.post(ctx, "/vectors/upsert", upsertRequest{Vectors: vectors}, &resp); err != nil {
		return err
	}
	return nil
}

type upsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

type queryRequest struct {
	Vector          []float32      `json:"vector"`
	Filter          map[string]any `json:"filter,omitempty"`
	TopK            int            `json:"topK"`
	IncludeMetadata bool           `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []Match `json:"matches"`
}

// Query retrieves the topK nearest vectors, optionally filtered by metadata.
func (p *PineconeIndex) Query(ctx context.Context, vector []float32, filter map[string]any, topK int) ([]Match, error) {
	req := queryRequest{
		Vector:          vector,
		Filter:          filter,
		TopK:            topK,
		IncludeMetadata: true,
	}
	var resp queryResponse
	if err := p.post(ctx, "/query", req, &resp); err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

func (p *PineconeIndex) post(ctx context.Context, path string, payload, out any) error {
	if p.apiKey == "" {
		return fmt.Errorf("pinecone: API key not set")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("pinecone: failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("pinecone: failed to create request: %w", err)
	}
	httpReq.Header.Set("Api-Key", p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("pinecone: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("pinecone: failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pinecone: API error (%d): %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("pinecone: failed to decode response: %w", err)
		}
	}
	return nil
}
