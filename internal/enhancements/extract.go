package enhancements

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"
)

// Canonical keys of the upstream response object.
const (
	KeyEnhancedContent        = "enhanced_content"
	KeyEnhancementSuggestions = "enhancement_suggestions"
	KeyKeywordAnalysis        = "keyword_analysis"
	KeyFormatSuggestions      = "format_suggestions"
	KeySkillSuggestions       = "skill_suggestions"
	KeyOverallFeedback        = "overall_feedback"
	KeyScore                  = "score"
)

// Fields is a partially populated set of response values keyed by the canonical keys.
// Values are whatever the extraction tier produced; Finalize coerces them.
type Fields map[string]any

// Tier names the cascade stage that produced a Fields value.
type Tier string

const (
	TierJSON     Tier = "json"
	TierFenced   Tier = "fenced"
	TierEmbedded Tier = "embedded"
	TierSections Tier = "sections"
	TierFallback Tier = "fallback"
)

// FallbackFeedbackPrefix precedes the raw upstream text when nothing could be extracted.
const FallbackFeedbackPrefix = "The enhancement response could not be parsed into structured sections. Raw response follows:\n\n"

type extractor struct {
	tier  Tier
	parse func(raw string) (Fields, bool)
}

// cascade is ordered from strictest to most permissive; the first match wins.
var cascade = []extractor{
	{tier: TierJSON, parse: parseJSONObject},
	{tier: TierFenced, parse: parseFencedBlock},
	{tier: TierEmbedded, parse: parseEmbeddedObject},
	{tier: TierSections, parse: sniffSections},
}

// Extract turns raw upstream text into partial fields. It never fails: when no
// tier matches, the raw text is preserved inside overall_feedback.
func Extract(raw string) (Fields, Tier) {
	for _, ex := range cascade {
		if fields, ok := ex.parse(raw); ok {
			return fields, ex.tier
		}
	}
	return Fields{KeyOverallFeedback: FallbackFeedbackPrefix + raw}, TierFallback
}

func parseJSONObject(raw string) (Fields, bool) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	// Numbers stay json.Number so an out-of-range value does not reject the object.
	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}
	return canonicalize(obj), true
}

var fencePattern = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \t]*\r?\n?(.*?)```")

func parseFencedBlock(raw string) (Fields, bool) {
	for _, m := range fencePattern.FindAllStringSubmatch(raw, -1) {
		if fields, ok := parseJSONObject(m[1]); ok {
			return fields, true
		}
	}
	return nil, false
}

func parseEmbeddedObject(raw string) (Fields, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	return parseJSONObject(raw[start : end+1])
}

// keyAliases maps squashed key spellings onto canonical keys.
var keyAliases = map[string]string{
	"enhancedcontent":        KeyEnhancedContent,
	"enhancedresume":         KeyEnhancedContent,
	"enhancementsuggestions": KeyEnhancementSuggestions,
	"suggestions":            KeyEnhancementSuggestions,
	"keywordanalysis":        KeyKeywordAnalysis,
	"keywords":               KeyKeywordAnalysis,
	"formatsuggestions":      KeyFormatSuggestions,
	"formattingsuggestions":  KeyFormatSuggestions,
	"skillsuggestions":       KeySkillSuggestions,
	"skills":                 KeySkillSuggestions,
	"overallfeedback":        KeyOverallFeedback,
	"feedback":               KeyOverallFeedback,
	"score":                  KeyScore,
	"overallscore":           KeyScore,
}

// canonicalize folds alias spellings (camelCase, spaces, dashes) onto canonical keys.
// An exact canonical key always wins over an alias.
func canonicalize(obj map[string]any) Fields {
	out := make(Fields, len(obj))
	for k, v := range obj {
		canonical, ok := keyAliases[squashKey(k)]
		if !ok {
			out[k] = v
			continue
		}
		if _, exists := obj[canonical]; exists && k != canonical {
			continue
		}
		if _, exists := out[canonical]; exists && k != canonical {
			continue
		}
		out[canonical] = v
	}
	return out
}

func squashKey(k string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(k) {
		switch r {
		case '_', '-', ' ':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
