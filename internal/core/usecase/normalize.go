package usecase

import (
	"errors"
	"strings"
	"unicode"

	"github.com/kirillkom/docs-assistant/internal/core/domain"
)

var errEmptyQuery = errors.New("empty message after cleanup")

// boostRules maps query keywords to page-type boost factors. A query that
// looks like an API question should prefer api pages, and so on. Factors
// are multiplicative and applied after rank fusion.
var boostRules = []struct {
	keywords []string
	pageType string
	factor   float64
}{
	{[]string{"api", "endpoint", "метод", "запрос к api", "token", "токен"}, "api", 1.5},
	{[]string{"faq", "почему", "можно ли", "что делать", "ошибка", "error"}, "faq", 1.3},
	{[]string{"релиз", "release", "changelog", "версия", "обновление"}, "release_notes", 1.4},
	{[]string{"как", "настроить", "установить", "инструкция", "пример"}, "guide", 1.2},
}

// normalizeQuery cleans the raw user message and derives page-type boosts
// from its wording. Control characters are stripped and whitespace runs
// collapsed; matching is case-insensitive. A message that is empty after
// cleanup is invalid input.
func normalizeQuery(raw string) (domain.Query, error) {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsControl(r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	normalized := strings.Join(strings.Fields(b.String()), " ")
	if normalized == "" {
		return domain.Query{}, domain.WrapError(domain.ErrInvalidInput, "normalize query", errEmptyQuery)
	}

	lower := strings.ToLower(normalized)
	boosts := make(map[string]float64)
	for _, rule := range boostRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				if rule.factor > boosts[rule.pageType] {
					boosts[rule.pageType] = rule.factor
				}
				break
			}
		}
	}

	return domain.Query{
		Raw:        raw,
		Normalized: normalized,
		Boosts:     boosts,
	}, nil
}
