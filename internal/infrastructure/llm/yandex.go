package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// YandexConfig carries the YandexGPT credentials and model selection.
type YandexConfig struct {
	APIURL    string
	APIKey    string
	CatalogID string
	Model     string
	MaxTokens int
}

// YandexProvider calls the YandexGPT text generation API.
type YandexProvider struct {
	cfg    YandexConfig
	client *http.Client
}

func NewYandexProvider(cfg YandexConfig) *YandexProvider {
	return &YandexProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *YandexProvider) Name() string { return "YANDEX" }

func (p *YandexProvider) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if p.cfg.APIKey == "" || p.cfg.CatalogID == "" {
		return "", fmt.Errorf("yandex credentials are not set")
	}
	if p.cfg.MaxTokens > 0 && maxTokens > p.cfg.MaxTokens {
		maxTokens = p.cfg.MaxTokens
	}

	// The API expects maxTokens as a string.
	payload := map[string]any{
		"modelUri":    fmt.Sprintf("gpt://%s/%s", p.cfg.CatalogID, p.cfg.Model),
		"maxTokens":   strconv.Itoa(maxTokens),
		"temperature": 0.2,
		"texts":       []string{prompt},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal yandex request: %w", err)
	}

	url := strings.TrimRight(p.cfg.APIURL, "/") + "/text:generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create yandex request: %w", err)
	}
	req.Header.Set("Authorization", "Api-Key "+p.cfg.APIKey)
	req.Header.Set("x-folder-id", p.cfg.CatalogID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("yandex request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("yandex status: %s", resp.Status)
	}

	var completion struct {
		Result struct {
			Alternatives []struct {
				Text string `json:"text"`
			} `json:"alternatives"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("decode yandex response: %w", err)
	}
	if len(completion.Result.Alternatives) == 0 {
		return "", fmt.Errorf("yandex returned no alternatives")
	}
	return completion.Result.Alternatives[0].Text, nil
}
