package engine

import (
	"math"
	"testing"

	"github.com/hippos-ai/hippos/internal/index"
)

func TestFuseRRFIsDeterministicAcrossRepeatedRuns(t *testing.T) {
	vector := channelRanking{name: "vector", items: scoredIDs("a", "b", "c")}
	lexical := channelRanking{name: "lexical", items: scoredIDs("b", "c", "a")}
	weights := map[string]float64{"vector": 0.6, "lexical": 0.3, "temporal": 0.1}

	first := fuseRRF(60, weights, vector, lexical)
	sortResultsByScore(first)

	for i := 0; i < 10; i++ {
		again := fuseRRF(60, weights, vector, lexical)
		sortResultsByScore(again)
		if len(again) != len(first) {
			t.Fatalf("run %d: got %d results, want %d", i, len(again), len(first))
		}
		for j := range first {
			if again[j].id != first[j].id {
				t.Errorf("run %d position %d: got id %q, want %q", i, j, again[j].id, first[j].id)
			}
			if again[j].score != first[j].score {
				t.Errorf("run %d position %d: got score %v, want %v", i, j, again[j].score, first[j].score)
			}
		}
	}
}

func TestFuseRRFWeightsHigherRankHigherScore(t *testing.T) {
	vector := channelRanking{name: "vector", items: scoredIDs("a", "b")}
	weights := map[string]float64{"vector": 0.6, "lexical": 0.3, "temporal": 0.1}

	fused := fuseRRF(60, weights, vector)
	sortResultsByScore(fused)

	if len(fused) != 2 {
		t.Fatalf("got %d results, want 2", len(fused))
	}
	if fused[0].id != "a" {
		t.Errorf("top result: got %q, want %q (better rank in the only ranked channel)", fused[0].id, "a")
	}
	if fused[0].score <= fused[1].score {
		t.Errorf("scores not strictly decreasing: %v then %v", fused[0].score, fused[1].score)
	}
}

func TestSortResultsByScoreSendsNaNToTail(t *testing.T) {
	results := []fusedResult{
		{id: "nan-1", score: math.NaN()},
		{id: "good-1", score: 0.5},
		{id: "nan-2", score: math.NaN()},
		{id: "good-2", score: 0.9},
	}
	sortResultsByScore(results)

	if results[0].id != "good-2" || results[1].id != "good-1" {
		t.Errorf("non-NaN ordering: got %q then %q, want good-2 then good-1", results[0].id, results[1].id)
	}
	for _, r := range results[2:] {
		if !math.IsNaN(r.score) {
			t.Errorf("expected NaN scores to sort to the tail, found %q with score %v at the tail position", r.id, r.score)
		}
	}
}

func scoredIDs(ids ...string) []index.ScoredID {
	out := make([]index.ScoredID, len(ids))
	for i, id := range ids {
		out[i] = index.ScoredID{ID: id, Score: 1.0 / float64(i+1)}
	}
	return out
}
