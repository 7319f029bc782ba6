package llm

import (
	_ "embed"
	"strings"
)

var (
	//go:embed prompts/enhance_system.txt
	enhanceSystemPrompt string
	//go:embed prompts/enhance_user.txt
	enhanceUserPrompt string
)

// DefaultLanguage is used when no audience language is configured.
const DefaultLanguage = "English"

// MaxPromptContentChars bounds the resume text embedded in the prompt.
const MaxPromptContentChars = 50000

// BuildEnhancePrompt returns the system and user messages for one enhancement request.
// Response keys stay fixed; only the content is written in language.
func BuildEnhancePrompt(content, language string) []Message {
	if strings.TrimSpace(language) == "" {
		language = DefaultLanguage
	}
	user := strings.ReplaceAll(enhanceUserPrompt, "{{LANGUAGE}}", language)
	user = strings.ReplaceAll(user, "{{RESUME_TEXT}}", truncateRunes(content, MaxPromptContentChars))
	return []Message{
		{Role: "system", Content: strings.TrimSpace(strings.ReplaceAll(enhanceSystemPrompt, "{{LANGUAGE}}", language))},
		{Role: "user", Content: strings.TrimSpace(user)},
	}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
