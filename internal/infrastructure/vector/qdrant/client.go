// Package qdrant is a thin REST client for the Qdrant vector store with
// a named dense vector plus a named sparse vector per point.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/docs-assistant/internal/core/domain"
)

const (
	denseVectorName  = "dense"
	sparseVectorName = "sparse"
)

type Client struct {
	baseURL    string
	collection string
	apiKey     string
	hnswEf     int
	httpClient *http.Client

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection, apiKey string, hnswEf int) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		apiKey:     apiKey,
		hnswEf:     hnswEf,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// UpsertChunks writes chunk points with deterministic content-derived
// ids. The sparse vector is attached only when the service produced one
// for that chunk.
func (c *Client) UpsertChunks(ctx context.Context, chunks []domain.Chunk, dense [][]float32, sparse []domain.SparseVector) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(dense) {
		return fmt.Errorf("chunks/vectors mismatch: %d chunks, %d dense vectors", len(chunks), len(dense))
	}
	if len(sparse) != 0 && len(sparse) != len(chunks) {
		return fmt.Errorf("chunks/sparse mismatch: %d chunks, %d sparse vectors", len(chunks), len(sparse))
	}

	if err := c.ensureCollection(ctx, len(dense[0])); err != nil {
		return err
	}

	type sparseVector struct {
		Indices []uint32  `json:"indices"`
		Values  []float32 `json:"values"`
	}
	type point struct {
		ID      string         `json:"id"`
		Vector  map[string]any `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(chunks))
	for i, chunk := range chunks {
		id := chunk.PointID()
		vector := map[string]any{denseVectorName: dense[i]}
		if len(sparse) != 0 && !sparse[i].IsEmpty() {
			vector[sparseVectorName] = sparseVector{Indices: sparse[i].Indices, Values: sparse[i].Values}
		}
		points = append(points, point{
			ID:     id,
			Vector: vector,
			Payload: map[string]any{
				"url":       chunk.Payload.URL,
				"title":     chunk.Payload.Title,
				"text":      chunk.Payload.Text,
				"page_type": chunk.Payload.PageType,
				"source":    chunk.Payload.Source,
				"language":  chunk.Payload.Language,
				"hash":      id,
			},
		})
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	return c.do(ctx, http.MethodPut, url, map[string]any{"points": points}, nil)
}

// SearchDense runs a similarity search against the dense vector index.
func (c *Client) SearchDense(ctx context.Context, vector []float32, limit int) ([]domain.Candidate, error) {
	reqBody := map[string]any{
		"vector": map[string]any{
			"name":   denseVectorName,
			"vector": vector,
		},
		"limit":        limit,
		"with_payload": true,
	}
	if c.hnswEf > 0 {
		reqBody["params"] = map[string]any{"hnsw_ef": c.hnswEf}
	}

	var searchResp struct {
		Result []scoredPoint `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	if err := c.do(ctx, http.MethodPost, url, reqBody, &searchResp); err != nil {
		return nil, err
	}
	return toCandidates(searchResp.Result), nil
}

// SearchSparse runs a similarity search against the sparse vector index.
// An empty query vector yields no hits without a round trip.
func (c *Client) SearchSparse(ctx context.Context, vector domain.SparseVector, limit int) ([]domain.Candidate, error) {
	if vector.IsEmpty() {
		return nil, nil
	}

	reqBody := map[string]any{
		"query": map[string]any{
			"indices": vector.Indices,
			"values":  vector.Values,
		},
		"using":        sparseVectorName,
		"limit":        limit,
		"with_payload": true,
	}

	var queryResp struct {
		Result struct {
			Points []scoredPoint `json:"points"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/query", c.baseURL, c.collection)
	if err := c.do(ctx, http.MethodPost, url, reqBody, &queryResp); err != nil {
		return nil, err
	}
	return toCandidates(queryResp.Result.Points), nil
}

type scoredPoint struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

func toCandidates(points []scoredPoint) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(points))
	for _, p := range points {
		out = append(out, domain.Candidate{
			ID:    fmt.Sprintf("%v", p.ID),
			Score: p.Score,
			Payload: domain.PassagePayload{
				URL:      getStringPayload(p.Payload, "url"),
				Title:    getStringPayload(p.Payload, "title"),
				Text:     getStringPayload(p.Payload, "text"),
				PageType: getStringPayload(p.Payload, "page_type"),
				Source:   getStringPayload(p.Payload, "source"),
				Language: getStringPayload(p.Payload, "language"),
				Hash:     getStringPayload(p.Payload, "hash"),
			},
		})
	}
	return out
}

// ensureCollection creates the collection with both named vector indexes
// on first write. A 409 means another writer got there first.
func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			denseVectorName: map[string]any{
				"size":     vectorSize,
				"distance": "Cosine",
			},
		},
		"sparse_vectors": map[string]any{
			sparseVectorName: map[string]any{},
		},
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	if err := c.do(ctx, http.MethodPut, url, reqBody, nil); err != nil {
		if strings.Contains(err.Error(), "409") {
			c.markCollectionEnsured(vectorSize)
			return nil
		}
		return err
	}
	c.markCollectionEnsured(vectorSize)
	return nil
}

func (c *Client) markCollectionEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
}

func (c *Client) do(ctx context.Context, method, url string, reqBody any, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if trimmed := strings.TrimSpace(string(msg)); trimmed != "" {
			return fmt.Errorf("qdrant status %d: %s", resp.StatusCode, trimmed)
		}
		return fmt.Errorf("qdrant status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
