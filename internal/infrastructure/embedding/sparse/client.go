// Package sparse talks to the remote lexical embedding service. The
// service is optional infrastructure: every failure path degrades to an
// empty vector so the retrieval pipeline keeps running dense-only.
package sparse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/kirillkom/docs-assistant/internal/core/domain"
)

const requestTimeout = 60 * time.Second

type Client struct {
	baseURL string
	enabled bool
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, enabled bool, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		enabled: enabled,
		client:  &http.Client{Timeout: requestTimeout},
		logger:  logger,
	}
}

type embedRequest struct {
	Text string `json:"text"`
}

// EmbedQuery requests a sparse representation for one text. A disabled
// service, transport error, non-2xx status or unparseable body all yield
// an empty vector, never an error.
func (c *Client) EmbedQuery(ctx context.Context, text string) (domain.SparseVector, error) {
	if !c.enabled {
		return domain.SparseVector{}, nil
	}

	vector, err := c.embed(ctx, text)
	if err != nil {
		c.logger.Warn("sparse embedding service failed", "error", err)
		return domain.SparseVector{}, nil
	}
	return vector, nil
}

func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([]domain.SparseVector, error) {
	out := make([]domain.SparseVector, len(texts))
	for i, text := range texts {
		vector, err := c.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vector
	}
	return out, nil
}

func (c *Client) embed(ctx context.Context, text string) (domain.SparseVector, error) {
	body, err := json.Marshal(embedRequest{Text: text})
	if err != nil {
		return domain.SparseVector{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return domain.SparseVector{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.SparseVector{}, fmt.Errorf("call sparse service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.SparseVector{}, fmt.Errorf("sparse service returned status %d", resp.StatusCode)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return domain.SparseVector{}, fmt.Errorf("decode response: %w", err)
	}
	return parseSparseBody(raw)
}

// parseSparseBody accepts both response shapes the service is known to
// produce: an explicit {indices, values} pair or a flat term-id to
// weight map.
func parseSparseBody(raw json.RawMessage) (domain.SparseVector, error) {
	var explicit struct {
		Indices []uint32  `json:"indices"`
		Values  []float32 `json:"values"`
	}
	if err := json.Unmarshal(raw, &explicit); err == nil && len(explicit.Indices) > 0 {
		if len(explicit.Indices) != len(explicit.Values) {
			return domain.SparseVector{}, fmt.Errorf("mismatched sparse lengths: %d indices, %d values", len(explicit.Indices), len(explicit.Values))
		}
		return domain.SparseVector{Indices: explicit.Indices, Values: explicit.Values}, nil
	}

	var weights map[string]float32
	if err := json.Unmarshal(raw, &weights); err != nil {
		return domain.SparseVector{}, fmt.Errorf("unrecognized sparse body: %w", err)
	}

	terms := make([]uint32, 0, len(weights))
	byTerm := make(map[uint32]float32, len(weights))
	for key, weight := range weights {
		id, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			return domain.SparseVector{}, fmt.Errorf("non-numeric term id %q", key)
		}
		terms = append(terms, uint32(id))
		byTerm[uint32(id)] = weight
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i] < terms[j] })

	vector := domain.SparseVector{
		Indices: terms,
		Values:  make([]float32, len(terms)),
	}
	for i, id := range terms {
		vector.Values[i] = byTerm[id]
	}
	return vector, nil
}
