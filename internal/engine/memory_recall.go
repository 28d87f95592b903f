package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hippos-ai/hippos/internal/index"
	"github.com/hippos-ai/hippos/internal/llm"
	"github.com/hippos-ai/hippos/internal/storage"
	"github.com/hippos-ai/hippos/pkg/types"
)

// RecallOptions configures a Recall call.
type RecallOptions struct {
	TenantID string
	UserID   string
	Query    string
	Limit    int

	// Mode selects which channel(s) to consult. Empty defaults to Hybrid.
	Mode types.RecallMode

	// Threshold, if non-zero, drops any candidate whose fused score falls
	// below it. Applied after fusion, before the result is truncated to
	// Limit.
	Threshold float64

	// Filters narrows candidates by kind, tag, and creation time, applied
	// alongside Threshold after fusion.
	Filters RecallFilters

	// Weights overrides the configured RRF channel weights for this call.
	Weights RRFWeights

	// K is the RRF rank-damping constant; defaults to 60 if zero.
	K int
}

// RecallFilters narrows fused candidates post-fusion. A zero-valued field
// imposes no restriction on that dimension.
type RecallFilters struct {
	Kinds   []string
	Tags    []string
	Created storage.TimeRange
}

func (f RecallFilters) isZero() bool {
	return len(f.Kinds) == 0 && len(f.Tags) == 0 && f.Created == (storage.TimeRange{})
}

func (f RecallFilters) matches(m *types.Memory) bool {
	if len(f.Kinds) > 0 && !containsString(f.Kinds, string(m.Kind)) {
		return false
	}
	if len(f.Tags) > 0 && !anyTagMatches(f.Tags, m.Tags) {
		return false
	}
	if !f.Created.After.IsZero() && m.CreatedAt.Before(f.Created.After) {
		return false
	}
	if !f.Created.Before.IsZero() && m.CreatedAt.After(f.Created.Before) {
		return false
	}
	return true
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func anyTagMatches(want, have []string) bool {
	for _, w := range want {
		if containsString(have, w) {
			return true
		}
	}
	return false
}

// RRFWeights are the per-channel weights in the RRF fusion formula
// score(d) = sum(w_i / (k + rank_i(d))) across the channels that ranked d.
type RRFWeights struct {
	Vector   float64
	Lexical  float64
	Temporal float64
}

// DefaultRRFWeights matches the component design's defaults.
func DefaultRRFWeights() RRFWeights {
	return RRFWeights{Vector: 0.6, Lexical: 0.3, Temporal: 0.1}
}

// SearchResult is one fused, ranked recall hit, carrying enough per-channel
// detail for a caller to explain why it matched.
type SearchResult struct {
	Memory *types.Memory
	Score  float64

	ChannelScores map[string]float64
	Ranks         map[string]int
	Reasons       []string
}

// MemoryRecall runs hybrid retrieval: vector similarity, lexical keyword
// match, and temporal recency run concurrently, and their rankings are
// fused with Reciprocal Rank Fusion.
type MemoryRecall struct {
	memories storage.MemoryRepository
	vector   index.VectorIndex
	lexical  index.LexicalIndex
	embedder llm.EmbeddingProvider
	decay    DecayConfig
}

// DecayConfig is the subset of IntegrationConfig's importance-decay knobs
// MemoryRecall needs to apply the same decay formula lazily on read (spec
// §4.7 step 5), without depending on the rest of MemoryIntegrator.
type DecayConfig struct {
	Window           time.Duration
	Factor           float64
	ArchiveThreshold float64
}

// NewMemoryRecall wires a MemoryRecall from its collaborators. A zero-value
// decay disables on-read decay (every Get leaves Importance untouched).
func NewMemoryRecall(memories storage.MemoryRepository, vector index.VectorIndex, lexical index.LexicalIndex, embedder llm.EmbeddingProvider, decay DecayConfig) *MemoryRecall {
	return &MemoryRecall{memories: memories, vector: vector, lexical: lexical, embedder: embedder, decay: decay}
}

// channelRanking is one channel's ranked id list, in rank order (best
// first), paired with the raw score so callers can surface it.
type channelRanking struct {
	name  string
	items []index.ScoredID
}

// Recall runs the channels named by opts.Mode in parallel (bounded by ctx,
// which the caller is expected to set a deadline on per the per-call
// timeout configuration). Hybrid mode (the default) runs all three and
// fuses them with RRF; Semantic/Lexical/Temporal run exactly one channel
// and rank by its raw score, skipping fusion. After fusion, any candidate
// that is not Active, falls below opts.Threshold, or fails opts.Filters is
// dropped before the result is truncated to Limit, so a filtered-out
// candidate never displaces one that would otherwise have made the cut.
// Surviving candidates are hydrated from the repository and, on success,
// touch AccessedAt — a candidate dropped by a filter never does. Cancellation
// propagates: a canceled ctx returns types.ErrCancelled and touches no
// AccessedAt fields. Limit == 0 returns an empty result with no side
// effects; it never falls back to a default.
func (r *MemoryRecall) Recall(ctx context.Context, opts RecallOptions) ([]SearchResult, error) {
	if opts.TenantID == "" {
		return nil, fmt.Errorf("engine: %w: tenant_id is required", types.ErrValidation)
	}
	if opts.Limit == 0 {
		return []SearchResult{}, nil
	}
	limit := opts.Limit
	if limit < 0 {
		limit = 10
	}
	k := opts.K
	if k <= 0 {
		k = 60
	}
	weights := opts.Weights
	if weights == (RRFWeights{}) {
		weights = DefaultRRFWeights()
	}

	fanoutLimit := limit * 4
	if fanoutLimit < 50 {
		fanoutLimit = 50
	}

	mode := opts.Mode
	if mode == "" {
		mode = types.RecallHybrid
	}
	wantVector := mode == types.RecallHybrid || mode == types.RecallSemantic
	wantLexical := mode == types.RecallHybrid || mode == types.RecallLexical
	wantTemporal := mode == types.RecallHybrid || mode == types.RecallTemporal

	var vectorRanking, lexicalRanking, temporalRanking channelRanking

	group, gctx := errgroup.WithContext(ctx)

	if wantVector {
		group.Go(func() error {
			if opts.Query == "" {
				return nil
			}
			embedding, err := r.embedder.Embed(gctx, opts.Query)
			if err != nil {
				// Vector channel degrades gracefully: embedding failure drops
				// this channel rather than failing the whole recall.
				return nil
			}
			items, err := r.vector.Query(gctx, opts.TenantID, embedding, fanoutLimit)
			if err != nil {
				return nil
			}
			vectorRanking = channelRanking{name: "vector", items: items}
			return nil
		})
	}

	if wantLexical {
		group.Go(func() error {
			if opts.Query == "" {
				return nil
			}
			items, err := r.lexical.Query(gctx, opts.TenantID, opts.Query, fanoutLimit)
			if err != nil {
				return nil
			}
			lexicalRanking = channelRanking{name: "lexical", items: items}
			return nil
		})
	}

	if wantTemporal {
		group.Go(func() error {
			items, err := r.temporalRanking(gctx, opts.TenantID, opts.UserID, fanoutLimit)
			if err != nil {
				return err
			}
			temporalRanking = channelRanking{name: "temporal", items: items}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(gctx.Err(), context.Canceled) {
			return nil, fmt.Errorf("engine: %w", types.ErrCancelled)
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(gctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("engine: %w", types.ErrTimeout)
		}
		return nil, fmt.Errorf("engine: recall: %w: %v", types.ErrBackend, err)
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("engine: %w", types.ErrCancelled)
	default:
	}

	var fused []fusedResult
	if mode == types.RecallHybrid {
		fused = fuseRRF(k, map[string]float64{
			"vector":   weights.Vector,
			"lexical":  weights.Lexical,
			"temporal": weights.Temporal,
		}, vectorRanking, lexicalRanking, temporalRanking)
	} else {
		// Single-channel modes skip fusion entirely and rank by the raw
		// channel score rather than an RRF rank-damped score.
		var only channelRanking
		switch mode {
		case types.RecallSemantic:
			only = vectorRanking
		case types.RecallLexical:
			only = lexicalRanking
		case types.RecallTemporal:
			only = temporalRanking
		}
		for i, item := range only.items {
			fused = append(fused, fusedResult{
				id:            item.ID,
				score:         item.Score,
				channelScores: map[string]float64{only.name: item.Score},
				ranks:         map[string]int{only.name: i + 1},
			})
		}
	}

	sortResultsByScore(fused)

	hasFilters := opts.Threshold != 0 || !opts.Filters.isZero()
	out := make([]SearchResult, 0, limit)
	for _, f := range fused {
		if len(out) >= limit {
			break
		}
		if opts.Threshold != 0 && f.score < opts.Threshold {
			continue
		}
		mem, err := r.memories.Get(ctx, opts.TenantID, f.id)
		if err != nil {
			continue
		}
		if mem.Status != types.StatusActive {
			continue
		}
		if hasFilters && !opts.Filters.matches(mem) {
			continue
		}
		mem.AccessedAt = time.Now().UTC()
		if r.decay.Window > 0 {
			applyImportanceDecay(mem, r.decay.Window, r.decay.Factor, r.decay.ArchiveThreshold, mem.AccessedAt)
		}
		if err := r.memories.Update(ctx, mem); err != nil {
			log.Printf("engine: failed to persist accessed_at for memory %s: %v", mem.ID, err)
		}

		out = append(out, SearchResult{
			Memory:        mem,
			Score:         f.score,
			ChannelScores: f.channelScores,
			Ranks:         f.ranks,
			Reasons:       reasonsFor(f.ranks),
		})
	}
	return out, nil
}

// temporalRanking ranks a tenant/user's most recently accessed active
// memories, newest first — the third RRF channel, independent of query
// text so a caller with an empty query still gets recency-ordered recall.
func (r *MemoryRecall) temporalRanking(ctx context.Context, tenantID, userID string, limit int) ([]index.ScoredID, error) {
	result, err := r.memories.List(ctx, storage.MemoryQuery{
		TenantID:  tenantID,
		UserID:    userID,
		Statuses:  []string{string(types.StatusActive)},
		SortBy:    storage.SortAccessedAt,
		SortOrder: storage.Desc,
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}
	items := make([]index.ScoredID, 0, len(result.Items))
	for i, m := range result.Items {
		items = append(items, index.ScoredID{ID: m.ID, Score: 1.0 / float64(i+1)})
	}
	return items, nil
}

type fusedResult struct {
	id            string
	score         float64
	channelScores map[string]float64
	ranks         map[string]int
}

// fuseRRF applies score(d) = sum(w_i / (k + rank_i(d))) across channels,
// where rank_i(d) is d's 1-based rank in channel i (channels that did not
// rank d contribute nothing).
func fuseRRF(k int, weights map[string]float64, rankings ...channelRanking) []fusedResult {
	byID := make(map[string]*fusedResult)

	for _, ranking := range rankings {
		weight := weights[ranking.name]
		for i, item := range ranking.items {
			rank := i + 1
			res, ok := byID[item.ID]
			if !ok {
				res = &fusedResult{id: item.ID, channelScores: map[string]float64{}, ranks: map[string]int{}}
				byID[item.ID] = res
			}
			res.score += weight / float64(k+rank)
			res.channelScores[ranking.name] = item.Score
			res.ranks[ranking.name] = rank
		}
	}

	out := make([]fusedResult, 0, len(byID))
	for _, res := range byID {
		out = append(out, *res)
	}
	return out
}

// sortResultsByScore orders by descending score with a total order that
// tolerates NaN: any NaN score sorts to the tail instead of producing an
// undefined comparator result (which, left as Rust's partial_cmp().unwrap()
// would do, panics on the first NaN it meets).
func sortResultsByScore(results []fusedResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].score, results[j].score
		aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
		switch {
		case aNaN && bNaN:
			return false
		case aNaN:
			return false
		case bNaN:
			return true
		default:
			return a > b
		}
	})
}

func reasonsFor(ranks map[string]int) []string {
	var reasons []string
	if _, ok := ranks["vector"]; ok {
		reasons = append(reasons, "semantic match")
	}
	if _, ok := ranks["lexical"]; ok {
		reasons = append(reasons, "keyword match")
	}
	if _, ok := ranks["temporal"]; ok {
		reasons = append(reasons, "recent")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "matched")
	}
	return reasons
}
