package enhancements

import (
	"regexp"
	"strconv"
	"strings"
)

// section is the sniffer state: which response field subsequent lines belong to.
type section int

const (
	sectionNone section = iota
	sectionEnhancedContent
	sectionEnhancementSuggestions
	sectionKeywordAnalysis
	sectionFormatSuggestions
	sectionSkillSuggestions
	sectionOverallFeedback
)

type sectionRule struct {
	section  section
	key      string
	keywords [2]string
	list     bool
}

// sectionRules are checked in order; a header line must contain both keywords.
var sectionRules = []sectionRule{
	{section: sectionEnhancedContent, key: KeyEnhancedContent, keywords: [2]string{"enhanced", "content"}},
	{section: sectionEnhancementSuggestions, key: KeyEnhancementSuggestions, keywords: [2]string{"enhancement", "suggestion"}, list: true},
	{section: sectionKeywordAnalysis, key: KeyKeywordAnalysis, keywords: [2]string{"keyword", "analysis"}, list: true},
	{section: sectionFormatSuggestions, key: KeyFormatSuggestions, keywords: [2]string{"format", "suggestion"}, list: true},
	{section: sectionSkillSuggestions, key: KeySkillSuggestions, keywords: [2]string{"skill", "suggestion"}, list: true},
	{section: sectionOverallFeedback, key: KeyOverallFeedback, keywords: [2]string{"overall", "feedback"}},
}

func ruleFor(s section) (sectionRule, bool) {
	for _, r := range sectionRules {
		if r.section == s {
			return r, true
		}
	}
	return sectionRule{}, false
}

type lineKind int

const (
	lineBlank lineKind = iota
	lineHeader
	lineScore
	lineContent
)

type classifiedLine struct {
	kind     lineKind
	section  section
	score    float64
	hasScore bool
	text     string
}

var numberPattern = regexp.MustCompile(`-?\d+(?:[.,]\d+)?`)

// classifyLine decides how a single line affects the sniffer state. A header
// that also states a score ("Overall feedback and score: 7") carries both.
func classifyLine(line string) classifiedLine {
	text := strings.TrimSpace(line)
	if text == "" {
		return classifiedLine{kind: lineBlank}
	}
	lower := strings.ToLower(text)
	score, hasScore := lineScoreValue(lower, text)
	for _, r := range sectionRules {
		if strings.Contains(lower, r.keywords[0]) && strings.Contains(lower, r.keywords[1]) {
			return classifiedLine{kind: lineHeader, section: r.section, score: score, hasScore: hasScore, text: text}
		}
	}
	if hasScore {
		return classifiedLine{kind: lineScore, score: score, hasScore: true, text: text}
	}
	return classifiedLine{kind: lineContent, text: text}
}

func lineScoreValue(lower, text string) (float64, bool) {
	if !strings.Contains(lower, "score") {
		return 0, false
	}
	score, ok := firstNumber(text)
	if !ok {
		return 0, false
	}
	return clampScore(score), true
}

func firstNumber(s string) (float64, bool) {
	tok := numberPattern.FindString(s)
	if tok == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(tok, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// sniffer is a single-pass reducer over response lines.
type sniffer struct {
	current section
	buffers map[section][]string
	score   *float64
}

func newSniffer() *sniffer {
	return &sniffer{buffers: make(map[section][]string)}
}

func (s *sniffer) step(line string) {
	cl := classifyLine(line)
	switch cl.kind {
	case lineBlank:
	case lineHeader:
		s.current = cl.section
		if cl.hasScore {
			score := cl.score
			s.score = &score
		}
	case lineScore:
		score := cl.score
		s.score = &score
	case lineContent:
		rule, ok := ruleFor(s.current)
		if !ok {
			return
		}
		text := cl.text
		if rule.list {
			text = stripBullet(text)
			if text == "" {
				return
			}
		}
		s.buffers[s.current] = append(s.buffers[s.current], text)
	}
}

func stripBullet(text string) string {
	if strings.HasPrefix(text, "-") || strings.HasPrefix(text, "*") {
		return strings.TrimSpace(text[1:])
	}
	return text
}

// fields converts the buffers into extraction output; ok is false when nothing was found.
func (s *sniffer) fields() (Fields, bool) {
	out := Fields{}
	for _, r := range sectionRules {
		lines := s.buffers[r.section]
		if len(lines) == 0 {
			continue
		}
		if r.list {
			items := make([]any, 0, len(lines))
			for _, l := range lines {
				items = append(items, map[string]any{itemKeys[r.key]: l})
			}
			out[r.key] = items
			continue
		}
		out[r.key] = strings.Join(lines, "\n")
	}
	if s.score != nil {
		out[KeyScore] = *s.score
	}
	return out, len(out) > 0
}

func sniffSections(raw string) (Fields, bool) {
	s := newSniffer()
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		s.step(line)
	}
	return s.fields()
}
