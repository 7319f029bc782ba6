package enhancements

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assertComplete(t *testing.T, res Result) {
	t.Helper()
	assert.NotEmpty(t, res.EnhancedContent)
	assert.NotEmpty(t, res.Suggestions)
	assert.NotEmpty(t, res.KeywordAnalysis)
	assert.NotEmpty(t, res.FormatSuggestions)
	assert.NotEmpty(t, res.SkillSuggestions)
	assert.NotEmpty(t, res.OverallFeedback)
	assert.GreaterOrEqual(t, res.Score, MinScore)
	assert.LessOrEqual(t, res.Score, MaxScore)
}

func TestFinalizeIsTotal(t *testing.T) {
	inputs := map[string]Fields{
		"nil":   nil,
		"empty": {},
		"wrong types": {
			KeyEnhancedContent:        42.0,
			KeyEnhancementSuggestions: "just one string",
			KeyKeywordAnalysis:        map[string]any{"keyword": "Go"},
			KeyFormatSuggestions:      true,
			KeySkillSuggestions:       []any{nil, "", 3.0},
			KeyOverallFeedback:        []any{"a", "b"},
			KeyScore:                  "excellent",
		},
		"nulls": {
			KeyEnhancedContent: nil,
			KeyScore:           nil,
		},
		"blank strings": {
			KeyEnhancedContent: "   ",
			KeyOverallFeedback: "\n",
		},
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			assertComplete(t, Finalize(in, "original resume"))
		})
	}
}

func TestFinalizeIsIdempotent(t *testing.T) {
	inputs := []Fields{
		nil,
		{KeyScore: 15.0, KeyEnhancementSuggestions: "Add metrics"},
		{KeyEnhancedContent: "  padded  ", KeySkillSuggestions: []any{map[string]any{"skill": "Go"}}},
		{KeyKeywordAnalysis: []any{map[string]any{"term": "SQL", "weight": 2.0}}, KeyScore: "8/10"},
	}
	for _, in := range inputs {
		once := Finalize(in, " original ")
		twice := Finalize(once.Fields(), " original ")
		assert.Equal(t, once, twice)
	}
}

func TestFinalizeClampsScore(t *testing.T) {
	cases := []struct {
		in   any
		want float64
	}{
		{in: 15.0, want: 10},
		{in: -3.0, want: 0},
		{in: 7.26, want: 7.3},
		{in: "8/10", want: 8},
		{in: "6,5", want: 6.5},
		{in: json.Number("9"), want: 9},
		{in: json.Number("1e400"), want: MaxScore},
		{in: json.Number("-1e400"), want: MinScore},
		{in: 4, want: 4},
		{in: "n/a", want: DefaultScore},
		{in: []any{1.0}, want: DefaultScore},
	}
	for _, tc := range cases {
		res := Finalize(Fields{KeyScore: tc.in}, "orig")
		assert.Equal(t, tc.want, res.Score, "input %v", tc.in)
	}
}

func TestFinalizeWrapsBareValuesIntoItems(t *testing.T) {
	res := Finalize(Fields{
		KeyEnhancementSuggestions: "Add metrics",
		KeyKeywordAnalysis:        []string{"Go", " ", "SQL"},
		KeySkillSuggestions:       map[string]any{"skill": "Terraform"},
	}, "orig")

	assert.Equal(t, []Item{{Key: "suggestion", Text: "Add metrics"}}, res.Suggestions)
	assert.Equal(t, []Item{{Key: "keyword", Text: "Go"}, {Key: "keyword", Text: "SQL"}}, res.KeywordAnalysis)
	assert.Equal(t, []Item{{Key: "skill", Text: "Terraform"}}, res.SkillSuggestions)
}

func TestFinalizeDefaults(t *testing.T) {
	res := Finalize(Fields{}, "orig")

	assert.Equal(t, "orig", res.EnhancedContent)
	assert.Equal(t, DefaultOverallFeedback, res.OverallFeedback)
	assert.Equal(t, DefaultScore, res.Score)
	assert.Equal(t, []Item{{Key: "suggestion", Text: defaultItemText[KeyEnhancementSuggestions]}}, res.Suggestions)
	assert.Equal(t, []Item{{Key: "skill", Text: defaultItemText[KeySkillSuggestions]}}, res.SkillSuggestions)
}

func TestItemTextPrefersListKey(t *testing.T) {
	assert.Equal(t, "Go", itemText(map[string]any{"keyword": "Go", "other": "x"}, "keyword"))
	assert.Equal(t, "x", itemText(map[string]any{"other": "x"}, "keyword"))
	assert.Equal(t, "a", itemText(map[string]any{"b": 1.0, "a": "a"}, "keyword"))
	assert.Equal(t, "3", itemText(3.0, "keyword"))
}
