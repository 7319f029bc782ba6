package enhancements

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Status is the lifecycle state of an enhancement record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions may occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether s -> next is a legal lifecycle step:
// pending -> processing -> completed | failed.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// Item is a single-key structured list entry, serialized as {"<key>": "<text>"}.
type Item struct {
	Key  string
	Text string
}

// MarshalJSON encodes the item as a one-entry object.
func (i Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{i.Key: i.Text})
}

// UnmarshalJSON decodes a one-entry object. Objects with several entries keep the
// first key in sorted order.
func (i *Item) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode item: %w", err)
	}
	if len(raw) == 0 {
		*i = Item{}
		return nil
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	i.Key = keys[0]
	i.Text = coerceText(raw[keys[0]])
	return nil
}

// Result holds the enhancement output fields of a record.
type Result struct {
	EnhancedContent   string  `json:"enhancedContent"`
	Suggestions       []Item  `json:"suggestions"`
	KeywordAnalysis   []Item  `json:"keywordAnalysis"`
	FormatSuggestions []Item  `json:"formatSuggestions"`
	SkillSuggestions  []Item  `json:"skillSuggestions"`
	OverallFeedback   string  `json:"overallFeedback"`
	Score             float64 `json:"score"`
}

// Fields converts r back into the extraction key space so it can be finalized again.
func (r Result) Fields() Fields {
	return Fields{
		KeyEnhancedContent:        r.EnhancedContent,
		KeyEnhancementSuggestions: itemsToAny(r.Suggestions),
		KeyKeywordAnalysis:        itemsToAny(r.KeywordAnalysis),
		KeyFormatSuggestions:      itemsToAny(r.FormatSuggestions),
		KeySkillSuggestions:       itemsToAny(r.SkillSuggestions),
		KeyOverallFeedback:        r.OverallFeedback,
		KeyScore:                  r.Score,
	}
}

func itemsToAny(items []Item) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		out = append(out, map[string]any{it.Key: it.Text})
	}
	return out
}

// Record is one enhancement request and its outcome.
type Record struct {
	ID               string `json:"id"`
	OwnerID          string `json:"ownerId"`
	SourceDocumentID string `json:"sourceDocumentId"`
	OriginalContent  string `json:"originalContent"`
	Status           Status `json:"status"`
	Result
	ProcessedAt *time.Time `json:"processedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// pendingResult is the placeholder output stored before the upstream call returns.
func pendingResult(original string) Result {
	return Result{
		EnhancedContent:   original,
		Suggestions:       []Item{},
		KeywordAnalysis:   []Item{},
		FormatSuggestions: []Item{},
		SkillSuggestions:  []Item{},
	}
}
