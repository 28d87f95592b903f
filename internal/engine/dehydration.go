// Package engine implements the memory lifecycle: ingestion, recall,
// pattern discovery, entity extraction, and background maintenance.
package engine

import (
	"sort"
	"strings"
	"unicode"
)

// Dehydrated is the deterministic rule-based compression of a memory's raw
// content: a trimmed gist plus the keywords/topics/tags surfaced from it.
type Dehydrated struct {
	Gist     string
	Keywords []string
	Topics   []string
	Tags     []string
}

// Dehydrator compresses memory content without calling any external model,
// so ingestion never blocks on — or depends on the availability of — the
// embedding provider to produce a gist. It is rule-based: whitespace
// folding, stop-word-filtered term frequency, and a keyword-pattern topic
// classifier.
type Dehydrator struct {
	maxGistLength int
	maxTopics     int
	maxTags       int
}

// NewDehydrator returns a Dehydrator with the given limits. Zero or
// negative values fall back to sensible defaults.
func NewDehydrator(maxGistLength, maxTopics, maxTags int) *Dehydrator {
	if maxGistLength <= 0 {
		maxGistLength = 200
	}
	if maxTopics <= 0 {
		maxTopics = 5
	}
	if maxTags <= 0 {
		maxTags = 10
	}
	return &Dehydrator{maxGistLength: maxGistLength, maxTopics: maxTopics, maxTags: maxTags}
}

var dehydrationStopWords = map[string]struct{}{
	"the": {}, "is": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "from": {}, "as": {}, "be": {},
	"was": {}, "were": {}, "been": {}, "this": {}, "that": {}, "it": {}, "are": {},
}

// cleanText trims each line, drops blank lines, and joins the rest with a
// single space; whitespace runs inside a line are kept. It is the
// normalization the gist, keyword, and topic passes all build on.
func cleanText(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return strings.Join(lines, " ")
}

func isWordChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-'
}

func isAllWordChars(word string) bool {
	for _, r := range word {
		if !isWordChar(r) {
			return false
		}
	}
	return true
}

// extractKeywords returns up to maxTags tokens ranked by frequency, after
// filtering stop words and single-character tokens.
func (d *Dehydrator) extractKeywords(cleaned string) []string {
	freq := make(map[string]int)
	var order []string
	for _, word := range strings.Fields(cleaned) {
		if len(word) < 2 || !isAllWordChars(word) {
			continue
		}
		lower := strings.ToLower(word)
		if _, stop := dehydrationStopWords[lower]; stop {
			continue
		}
		if _, seen := freq[lower]; !seen {
			order = append(order, lower)
		}
		freq[lower]++
	}

	sort.SliceStable(order, func(i, j int) bool { return freq[order[i]] > freq[order[j]] })
	if len(order) > d.maxTags {
		order = order[:d.maxTags]
	}
	return order
}

var topicPatterns = []struct {
	topic    string
	keywords []string
}{
	{"programming", []string{"code", "function", "class", "api", "programming"}},
	{"ai", []string{"ai", "model", "llm", "gpt", "machine learning", "neural"}},
	{"database", []string{"database", "sql", "query", "db"}},
	{"web", []string{"http", "web", "server", "client", "rest"}},
	{"systems", []string{"system", "os", "linux", "windows", "process", "thread"}},
}

// classifyTopics matches content against a fixed set of keyword patterns;
// when none hit it falls back to the leading keywords so a memory never
// ends up with zero topics.
func (d *Dehydrator) classifyTopics(cleaned string, keywords []string) []string {
	lower := strings.ToLower(cleaned)

	var topics []string
	for _, tp := range topicPatterns {
		for _, kw := range tp.keywords {
			if strings.Contains(lower, kw) {
				topics = append(topics, tp.topic)
				break
			}
		}
	}

	if len(topics) == 0 {
		limit := d.maxTopics
		if limit > len(keywords) {
			limit = len(keywords)
		}
		topics = append(topics, keywords[:limit]...)
	}

	if len(topics) > d.maxTopics {
		topics = topics[:d.maxTopics]
	}
	return topics
}

// Dehydrate produces the gist/keywords/topics/tags for raw content. Tags
// and Keywords are the same frequency-ranked list; they are kept as
// separate fields on Memory because pattern matching and profile display
// use them independently and may diverge later.
func (d *Dehydrator) Dehydrate(content string) Dehydrated {
	cleaned := cleanText(content)

	gist := cleaned
	if runes := []rune(cleaned); len(runes) > d.maxGistLength {
		gist = string(runes[:d.maxGistLength]) + "..."
	}

	keywords := d.extractKeywords(cleaned)
	topics := d.classifyTopics(cleaned, keywords)

	return Dehydrated{
		Gist:     gist,
		Keywords: keywords,
		Topics:   topics,
		Tags:     keywords,
	}
}
