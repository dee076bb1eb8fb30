package llm

import "strings"

// sectionEmoji prefixes well-known section names so answers scan better
// in chat clients.
var sectionEmoji = []struct {
	section string
	marked  string
}{
	{"Быстрый старт", "🚀 Быстрый старт"},
	{"Администрирование", "⚙️ Администрирование"},
	{"Мониторинг", "📊 Мониторинг"},
	{"Настройка", "🔧 Настройка"},
	{"Создание", "➕ Создание"},
	{"Интеграция", "🔗 Интеграция"},
	{"Дополнительные", "⚡ Дополнительные"},
}

// formatForTelegram reshapes structural markdown into Telegram-friendly
// markup: single-star bold and bullet glyphs instead of heading levels.
func formatForTelegram(text string) string {
	for _, e := range sectionEmoji {
		if strings.Contains(text, e.marked) {
			continue
		}
		text = strings.ReplaceAll(text, e.section, e.marked)
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "### "):
			lines[i] = "🔹 " + strings.TrimPrefix(line, "### ")
		case strings.HasPrefix(line, "## "):
			lines[i] = "🔸 " + strings.TrimPrefix(line, "## ")
		case strings.HasPrefix(line, "# "):
			lines[i] = "🔸 " + strings.TrimPrefix(line, "# ")
		}
	}
	text = strings.Join(lines, "\n")

	return strings.ReplaceAll(text, "**", "*")
}
