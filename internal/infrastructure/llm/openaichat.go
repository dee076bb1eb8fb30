package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// ChatConfig configures one OpenAI-compatible chat completion backend.
// Both the GPT5 gateway and DeepSeek speak this protocol.
type ChatConfig struct {
	Name    string
	APIKey  string
	BaseURL string
	Model   string
}

// ChatProvider is a completion provider backed by an OpenAI-compatible
// chat API.
type ChatProvider struct {
	cfg    ChatConfig
	client *openai.Client
}

func NewChatProvider(cfg ChatConfig) *ChatProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &ChatProvider{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
	}
}

func (p *ChatProvider) Name() string { return p.cfg.Name }

func (p *ChatProvider) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if p.cfg.APIKey == "" || p.cfg.BaseURL == "" {
		return "", fmt.Errorf("%s credentials are not set", p.cfg.Name)
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", p.cfg.Name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", p.cfg.Name)
	}
	return resp.Choices[0].Message.Content, nil
}
