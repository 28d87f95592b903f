package engine

import (
	"strings"

	"github.com/hippos-ai/hippos/pkg/types"
)

var highImportanceKeywords = []string{
	"important", "critical", "urgent", "essential", "vital",
	"remember", "never forget", "always",
	"preference", "allergy", "password", "secret",
}

var mediumImportanceKeywords = []string{
	"should", "might", "could", "probably", "usually",
	"project", "task", "meeting", "deadline", "schedule", "plan",
}

// memoryKindWeight nudges importance by kind: profile facts about a user
// default to mattering more than an arbitrary episodic event, which varies
// on its own merits.
var memoryKindWeight = map[types.MemoryKind]float64{
	types.KindProfile:    0.15,
	types.KindProcedural: 0.10,
	types.KindSemantic:   0.05,
	types.KindEpisodic:   0.0,
}

// ScoreImportance computes a heuristic importance score in [0,1] from
// content length, importance-marker keywords, and memory kind. An explicit
// override (override != nil) takes precedence entirely — the heuristic
// only fills in when the caller did not supply one.
func ScoreImportance(content string, kind types.MemoryKind, override *float64) float64 {
	if override != nil {
		return types.ClampUnit(*override)
	}

	score := 0.5

	wordCount := len(strings.Fields(content))
	switch {
	case wordCount > 100:
		score += 0.15
	case wordCount > 50:
		score += 0.1
	case wordCount < 10:
		score -= 0.1
	}

	if len([]rune(content)) > 500 {
		score += 0.1
	}

	lower := strings.ToLower(content)

	for _, kw := range highImportanceKeywords {
		if strings.Contains(lower, kw) {
			score += 0.15
			break
		}
	}
	for _, kw := range mediumImportanceKeywords {
		if strings.Contains(lower, kw) {
			score += 0.05
			break
		}
	}

	score += memoryKindWeight[kind]

	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "?") || strings.Contains(lower, "how to") ||
		strings.Contains(lower, "what is") || strings.Contains(lower, "?") {
		score -= 0.05
	}

	return types.ClampUnit(score)
}
