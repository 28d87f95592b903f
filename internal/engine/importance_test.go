package engine

import (
	"testing"

	"github.com/hippos-ai/hippos/pkg/types"
)

func TestScoreImportanceHonorsExplicitOverride(t *testing.T) {
	got := ScoreImportance("irrelevant content", types.KindEpisodic, floatPtr(0.42))
	if got != 0.42 {
		t.Errorf("ScoreImportance() with override: got %v, want 0.42", got)
	}
}

func TestScoreImportanceClampsOverrideToUnitRange(t *testing.T) {
	got := ScoreImportance("irrelevant content", types.KindEpisodic, floatPtr(5.0))
	if got != 1.0 {
		t.Errorf("ScoreImportance() with out-of-range override: got %v, want 1.0", got)
	}
}

func TestScoreImportanceRanksMarkerKeywordsHigher(t *testing.T) {
	plain := ScoreImportance("the weather was nice today", types.KindEpisodic, nil)
	marked := ScoreImportance("remember this, it is critical and urgent", types.KindEpisodic, nil)
	if marked <= plain {
		t.Errorf("importance with marker keywords: got %v, want greater than plain %v", marked, plain)
	}
}

func TestScoreImportanceStaysWithinUnitRange(t *testing.T) {
	extreme := "remember critical urgent essential vital password secret allergy preference never forget always"
	got := ScoreImportance(extreme, types.KindProfile, nil)
	if got < 0 || got > 1 {
		t.Errorf("ScoreImportance(): got %v, want within [0,1]", got)
	}
}

func TestScoreImportanceWeightsKindAboveEpisodic(t *testing.T) {
	episodic := ScoreImportance("a short note about something", types.KindEpisodic, nil)
	profile := ScoreImportance("a short note about something", types.KindProfile, nil)
	if profile <= episodic {
		t.Errorf("KindProfile importance: got %v, want greater than KindEpisodic %v", profile, episodic)
	}
}

func floatPtr(v float64) *float64 { return &v }
