package llm

import (
	"strings"

	"github.com/kirillkom/docs-assistant/internal/core/domain"
)

// buildPrompt assembles the grounded prompt: fixed system framing, the
// user's question and a sources block of title/URL lines. Passages
// without a URL are left out of the sources block.
func buildPrompt(question string, passages []domain.Candidate) string {
	lines := make([]string, 0, len(passages))
	for _, p := range passages {
		if p.Payload.URL == "" {
			continue
		}
		title := p.Payload.Title
		if title == "" {
			title = "Источник"
		}
		lines = append(lines, "- "+title+": "+p.Payload.URL)
	}

	var b strings.Builder
	b.WriteString("Вы — ассистент по документации продукта. Используйте только предоставленный контекст.\n")
	b.WriteString("Отвечайте структурировано с заголовками, списками и ссылками.\n")
	b.WriteString("Используйте markdown форматирование: **жирный текст**, ### заголовки, * списки.\n")
	b.WriteString("В конце добавьте ссылку 'Подробнее' на основную страницу документации.\n")
	b.WriteString("Вопрос: ")
	b.WriteString(question)
	b.WriteString("\n\nКонтекст:\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n")
	return b.String()
}
