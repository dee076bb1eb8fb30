package llm

import (
	"context"
	"log/slog"

	"github.com/kirillkom/docs-assistant/internal/core/domain"
)

// apologyAnswer is returned when every provider in the chain fails. By
// that point retrieval has already succeeded, so the user gets a fixed
// apology instead of an error envelope.
const apologyAnswer = "Извините, провайдеры LLM недоступны. Попробуйте позже."

// Generator tries providers in a fixed priority order and returns the
// first successful completion, reformatted for the chat surface.
type Generator struct {
	providers []Provider
	maxTokens int
	logger    *slog.Logger
}

func NewGenerator(providers []Provider, maxTokens int, logger *slog.Logger) *Generator {
	if maxTokens <= 0 {
		maxTokens = 800
	}
	return &Generator{
		providers: providers,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// OrderProviders arranges the chain with the configured default first,
// followed by the remaining providers in their fixed order.
func OrderProviders(defaultName string, providers ...Provider) []Provider {
	ordered := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p.Name() == defaultName {
			ordered = append(ordered, p)
			break
		}
	}
	for _, p := range providers {
		if p.Name() == defaultName {
			continue
		}
		ordered = append(ordered, p)
	}
	return ordered
}

func (g *Generator) GenerateAnswer(ctx context.Context, question string, passages []domain.Candidate) (string, error) {
	prompt := buildPrompt(question, passages)

	for _, provider := range g.providers {
		answer, err := provider.Complete(ctx, prompt, g.maxTokens)
		if err != nil {
			g.logger.Warn("llm provider failed, trying next", "provider", provider.Name(), "error", err)
			continue
		}
		return formatForTelegram(answer), nil
	}

	g.logger.Error("all llm providers failed")
	return apologyAnswer, nil
}
