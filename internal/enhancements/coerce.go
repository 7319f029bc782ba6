package enhancements

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

const (
	MinScore     = 0.0
	MaxScore     = 10.0
	DefaultScore = 5.0

	DefaultOverallFeedback = "No overall feedback was provided for this resume."
)

// itemKeys is the single key used for items of each list field.
var itemKeys = map[string]string{
	KeyEnhancementSuggestions: "suggestion",
	KeyKeywordAnalysis:        "keyword",
	KeyFormatSuggestions:      "suggestion",
	KeySkillSuggestions:       "skill",
}

var defaultItemText = map[string]string{
	KeyEnhancementSuggestions: "No enhancement suggestions were provided.",
	KeyKeywordAnalysis:        "No keyword analysis was provided.",
	KeyFormatSuggestions:      "No format suggestions were provided.",
	KeySkillSuggestions:       "No skill suggestions were provided.",
}

// Finalize coerces partial fields into a complete Result. It is total: any input,
// including nil, yields every field populated and the score within [0, 10].
func Finalize(partial Fields, original string) Result {
	enhanced, _ := partial[KeyEnhancedContent].(string)
	if strings.TrimSpace(enhanced) == "" {
		enhanced = coerceText(partial[KeyEnhancedContent])
	}
	if strings.TrimSpace(enhanced) == "" {
		enhanced = original
	}
	feedback := coerceText(partial[KeyOverallFeedback])
	if feedback == "" {
		feedback = DefaultOverallFeedback
	}
	score := DefaultScore
	if raw, ok := partial[KeyScore]; ok && raw != nil {
		score = coerceScore(raw)
	}
	return Result{
		EnhancedContent:   enhanced,
		Suggestions:       normalizeList(partial, KeyEnhancementSuggestions),
		KeywordAnalysis:   normalizeList(partial, KeyKeywordAnalysis),
		FormatSuggestions: normalizeList(partial, KeyFormatSuggestions),
		SkillSuggestions:  normalizeList(partial, KeySkillSuggestions),
		OverallFeedback:   feedback,
		Score:             score,
	}
}

func normalizeList(partial Fields, key string) []Item {
	items := normalizeItems(partial[key], itemKeys[key])
	if len(items) == 0 {
		return []Item{{Key: itemKeys[key], Text: defaultItemText[key]}}
	}
	return items
}

// normalizeItems wraps any value into a list of single-key items. Bare strings and
// objects become one item; sequences are flattened element by element.
func normalizeItems(v any, key string) []Item {
	switch val := v.(type) {
	case nil:
		return nil
	case []Item:
		out := make([]Item, 0, len(val))
		for _, it := range val {
			if text := strings.TrimSpace(it.Text); text != "" {
				out = append(out, Item{Key: key, Text: text})
			}
		}
		return out
	case []any:
		out := make([]Item, 0, len(val))
		for _, elem := range val {
			if text := itemText(elem, key); text != "" {
				out = append(out, Item{Key: key, Text: text})
			}
		}
		return out
	case []string:
		out := make([]Item, 0, len(val))
		for _, s := range val {
			if text := strings.TrimSpace(s); text != "" {
				out = append(out, Item{Key: key, Text: text})
			}
		}
		return out
	default:
		if text := itemText(val, key); text != "" {
			return []Item{{Key: key, Text: text}}
		}
		return nil
	}
}

// itemText picks the text of one list element. For objects the preferred key is
// used when present, otherwise the first non-empty string value by key order.
func itemText(elem any, key string) string {
	obj, ok := elem.(map[string]any)
	if !ok {
		return coerceText(elem)
	}
	if text := coerceText(obj[key]); text != "" {
		return text
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 1 {
		return coerceText(obj[keys[0]])
	}
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return coerceText(obj)
}

func coerceText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return strings.TrimSpace(fmt.Sprintf("%v", val))
		}
		if string(data) == "null" || string(data) == "[]" || string(data) == "{}" {
			return ""
		}
		return string(data)
	}
}

// coerceScore converts v to a number clamped to [0, 10] with one decimal.
// Values with no numeric reading fall back to DefaultScore.
func coerceScore(v any) float64 {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case json.Number:
		// Out-of-range values parse to ±Inf with an error and still clamp.
		parsed, err := val.Float64()
		if err != nil && !math.IsInf(parsed, 0) {
			return DefaultScore
		}
		f = parsed
	case string:
		parsed, ok := firstNumber(val)
		if !ok {
			return DefaultScore
		}
		f = parsed
	default:
		return DefaultScore
	}
	if math.IsNaN(f) {
		return DefaultScore
	}
	return clampScore(f)
}

func clampScore(f float64) float64 {
	if math.IsNaN(f) {
		return DefaultScore
	}
	f = math.Max(MinScore, math.Min(MaxScore, f))
	return math.Round(f*10) / 10
}
