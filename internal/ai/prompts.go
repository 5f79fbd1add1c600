package ai

import (
	"fmt"
	"strings"
)

// DefaultLocale is the language posts are written in.
const DefaultLocale = "pt-BR"

// ExampleCategories guide the model towards a small, consistent set of
// categories. The model may still pick another one.
var ExampleCategories = []string{
	"Ciência", "História", "Animais", "Natureza", "Corpo Humano",
	"Tecnologia", "Cultura", "Geografia", "Esportes", "Curiosidades",
}

var localeNames = map[string]string{
	"pt-BR": "Brazilian Portuguese",
	"pt-PT": "European Portuguese",
	"es":    "Spanish",
	"en":    "English",
}

// BuildPostPrompt constructs the prompt that turns one raw fact into a post.
func BuildPostPrompt(fact, locale string) string {
	if locale == "" {
		locale = DefaultLocale
	}
	language, ok := localeNames[locale]
	if !ok {
		language = locale
	}

	var sb strings.Builder

	sb.WriteString("You are a creative writer for a trivia blog. ")
	sb.WriteString(fmt.Sprintf("Take the fact below, translate it into %s (%s) ", language, locale))
	sb.WriteString("and write one short, fun and engaging paragraph about it in the same language.\n\n")

	sb.WriteString(fmt.Sprintf("Fact: %q\n\n", fact))

	sb.WriteString("Also pick a single category for the fact. Prefer one of: ")
	sb.WriteString(strings.Join(ExampleCategories, ", "))
	sb.WriteString(". Use a different short category only if none of these fit.\n\n")

	sb.WriteString("IMPORTANT: Return ONLY a valid JSON object and nothing else, with exactly this structure:\n")
	sb.WriteString(`{"title": "THE TRANSLATED FACT", "content": "YOUR PARAGRAPH", "category": "THE CATEGORY"}`)

	return sb.String()
}
