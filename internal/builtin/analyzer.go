package builtin

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/docorg/docorg/internal/plugin"
)

const keywordAnalyzerID = "keyword_analyzer"

// Analysis models. "frequency" ranks raw term counts; "weighted" favors
// longer terms by scaling counts with term length.
var keywordModels = []string{"frequency", "weighted"}

// KeywordAnalyzer derives categories and keywords from term frequency.
// It is the offline fallback when no AI-backed analyzer is active.
type KeywordAnalyzer struct {
	plugin.Base

	mu    sync.RWMutex
	model string
}

// NewKeywordAnalyzer creates a keyword analyzer plugin.
func NewKeywordAnalyzer() *KeywordAnalyzer {
	return &KeywordAnalyzer{
		Base: plugin.Base{
			PluginID:      keywordAnalyzerID,
			PluginType:    plugin.TypeAnalyzer,
			PluginName:    "Keyword Analyzer",
			PluginVersion: "1.0.0",
		},
		model: keywordModels[0],
	}
}

// ConfigSchema declares the analyzer's settings.
func (a *KeywordAnalyzer) ConfigSchema() *plugin.ConfigSchema {
	return &plugin.ConfigSchema{
		Type: "object",
		Properties: map[string]*plugin.SchemaProperty{
			"max_keywords": {
				Type:        "integer",
				Default:     8,
				Description: "number of keywords to extract",
				Minimum:     ptrFloat(1),
			},
			"min_word_length": {
				Type:        "integer",
				Default:     4,
				Description: "shortest word considered a keyword candidate",
				Minimum:     ptrFloat(1),
			},
		},
	}
}

// Models lists the available analysis models.
func (a *KeywordAnalyzer) Models() []string {
	return append([]string(nil), keywordModels...)
}

// SetModel selects a model by name.
func (a *KeywordAnalyzer) SetModel(name string) bool {
	for _, m := range keywordModels {
		if m == name {
			a.mu.Lock()
			a.model = name
			a.mu.Unlock()
			return true
		}
	}
	return false
}

// Model returns the selected model.
func (a *KeywordAnalyzer) Model() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.model
}

// Analyze extracts the most frequent terms as keywords and uses the top
// term as the category.
func (a *KeywordAnalyzer) Analyze(ctx context.Context, text, contentType string) (*plugin.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("analyze: empty input")
	}

	counts := map[string]int{}
	minLen := a.intSetting("min_word_length", 4)
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(word) < minLen || stopWords[word] {
			continue
		}
		counts[word]++
	}

	score := func(term string) int { return counts[term] }
	if a.Model() == "weighted" {
		score = func(term string) int { return counts[term] * len(term) }
	}
	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if score(terms[i]) != score(terms[j]) {
			return score(terms[i]) > score(terms[j])
		}
		return terms[i] < terms[j]
	})

	max := a.intSetting("max_keywords", 8)
	if len(terms) > max {
		terms = terms[:max]
	}

	analysis := &plugin.Analysis{
		Keywords: terms,
		Fields: map[string]any{
			"model":        a.Model(),
			"content_type": contentType,
		},
	}
	if len(terms) > 0 {
		analysis.Category = capitalize(terms[0])
	}
	return analysis, nil
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func (a *KeywordAnalyzer) intSetting(key string, def int) int {
	switch v := a.Setting(key, def).(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

var stopWords = map[string]bool{
	"the": true, "and": true, "that": true, "this": true, "with": true,
	"from": true, "have": true, "been": true, "were": true, "their": true,
	"which": true, "would": true, "there": true, "about": true, "into": true,
	"other": true, "these": true, "than": true, "then": true, "them": true,
	"when": true, "will": true, "more": true, "some": true, "such": true,
}
