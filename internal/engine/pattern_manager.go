package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hippos-ai/hippos/internal/storage"
	"github.com/hippos-ai/hippos/pkg/types"
)

// PatternManager owns Pattern CRUD, keyword-overlap trigger matching, and
// rule-based auto-discovery from high-importance memories.
type PatternManager struct {
	patterns storage.PatternRepository
	memories storage.MemoryRepository
	regexes  *regexCache
}

// NewPatternManager wires a PatternManager from its collaborators.
func NewPatternManager(patterns storage.PatternRepository, memories storage.MemoryRepository) (*PatternManager, error) {
	regexes, err := newRegexCache(0)
	if err != nil {
		return nil, err
	}
	return &PatternManager{patterns: patterns, memories: memories, regexes: regexes}, nil
}

// Create validates and persists a new Pattern.
func (p *PatternManager) Create(ctx context.Context, pattern *types.Pattern) error {
	if pattern.TenantID == "" || pattern.Name == "" || pattern.Trigger == "" {
		return fmt.Errorf("engine: %w: tenant_id, name, and trigger are required", types.ErrValidation)
	}
	if pattern.ID == "" {
		pattern.ID = types.NewID("pat")
	}
	now := time.Now().UTC()
	pattern.CreatedAt, pattern.UpdatedAt = now, now
	pattern.Confidence = types.ClampUnit(pattern.Confidence)
	return p.patterns.Create(ctx, pattern)
}

// MatchScore is a candidate pattern's fit against a free-form context
// string, computed by keyword overlap weighted by track record:
//
//	score = (matched / trigger_keywords) * (1+log(1+success)) / (1+log(1+failure))
type MatchScore struct {
	Pattern *types.Pattern
	Score   float64
}

// Match ranks a tenant's patterns against context by trigger-keyword
// overlap, returning the top matches in descending score order.
func (p *PatternManager) Match(ctx context.Context, tenantID, context_ string, limit int) ([]MatchScore, error) {
	if limit <= 0 {
		limit = 10
	}
	result, err := p.patterns.List(ctx, storage.PatternQuery{TenantID: tenantID, Limit: storage.PaginationMax})
	if err != nil {
		return nil, err
	}

	contextWords := tokenizeSimple(context_)
	contextSet := make(map[string]struct{}, len(contextWords))
	for _, w := range contextWords {
		contextSet[w] = struct{}{}
	}

	var scored []MatchScore
	for i := range result.Items {
		pat := &result.Items[i]

		coverage, ok := p.triggerCoverage(pat.Trigger, context_, contextSet)
		if !ok {
			continue
		}
		trackRecord := (1 + math.Log1p(float64(pat.SuccessCount))) / (1 + math.Log1p(float64(pat.FailureCount)))
		scored = append(scored, MatchScore{Pattern: pat, Score: coverage * trackRecord})
	}

	sortMatchesByScore(scored)
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// regexTriggerPrefix marks a Trigger as a regular expression to match
// directly against the context string, instead of the default
// keyword-overlap heuristic. Compiled regexes are cached in p.regexes so a
// hot pattern's trigger is never recompiled per Match call.
const regexTriggerPrefix = "re:"

// triggerCoverage returns how well pat's trigger fits context, in [0,1],
// and false if it does not match at all.
func (p *PatternManager) triggerCoverage(trigger, context_ string, contextSet map[string]struct{}) (float64, bool) {
	if strings.HasPrefix(trigger, regexTriggerPrefix) {
		re, err := p.regexes.compile(strings.TrimPrefix(trigger, regexTriggerPrefix))
		if err != nil {
			return 0, false
		}
		if re.MatchString(context_) {
			return 1.0, true
		}
		return 0, false
	}

	triggerWords := tokenizeSimple(trigger)
	if len(triggerWords) == 0 {
		return 0, false
	}
	matched := 0
	for _, w := range triggerWords {
		if _, ok := contextSet[w]; ok {
			matched++
		}
	}
	if matched == 0 {
		return 0, false
	}
	return float64(matched) / float64(len(triggerWords)), true
}

func sortMatchesByScore(scored []MatchScore) {
	for i := 1; i < len(scored); i++ {
		for j := i; j > 0 && scored[j].Score > scored[j-1].Score; j-- {
			scored[j], scored[j-1] = scored[j-1], scored[j]
		}
	}
}

// RecordOutcome appends a usage row and updates the pattern's running-mean
// AverageOutcome plus its success/failure counters. outcome is expected in
// [0,1]; values >= 0.5 count as a success.
func (p *PatternManager) RecordOutcome(ctx context.Context, tenantID, patternID string, outcome float64, usageContext string) error {
	pat, err := p.patterns.Get(ctx, tenantID, patternID)
	if err != nil {
		return err
	}

	outcome = types.ClampUnit(outcome)
	usage := &types.PatternUsage{
		ID:        types.NewID("patuse"),
		PatternID: patternID,
		Outcome:   outcome,
		Context:   usageContext,
		UsedAt:    time.Now().UTC(),
	}
	if err := p.patterns.RecordUsage(ctx, tenantID, usage); err != nil {
		return err
	}

	// Running mean: newMean = oldMean + (outcome - oldMean) / (n+1), where n
	// is the number of samples averaged so far (success+failure count).
	n := float64(pat.SuccessCount + pat.FailureCount)
	pat.AverageOutcome += (outcome - pat.AverageOutcome) / (n + 1)
	if outcome >= 0.5 {
		pat.SuccessCount++
	} else {
		pat.FailureCount++
	}
	pat.UsageCount++
	pat.UpdatedAt = time.Now().UTC()
	return p.patterns.Update(ctx, pat)
}

var patternDetectionKeywords = []string{
	"error", "bug", "issue", "problem", "fail", "crash", "slow", "performance",
	"memory", "cpu", "network", "database", "api", "async", "thread", "lock",
}

// DiscoverFromCandidates scans a tenant's PatternCandidate memories (those
// flagged at ingestion time for having crossed the importance threshold)
// and creates a Pattern for each one that does not already have a
// SourceMemoryID pointing back to it, capped at limit per call to bound the
// work an auto-discovery pass does.
func (p *PatternManager) DiscoverFromCandidates(ctx context.Context, tenantID string, limit int) ([]*types.Pattern, error) {
	if limit <= 0 || limit > storage.PaginationMax {
		limit = storage.PaginationMax
	}

	candidates, err := p.memories.List(ctx, storage.MemoryQuery{
		TenantID: tenantID,
		Statuses: []string{string(types.StatusActive)},
		Limit:    limit,
	})
	if err != nil {
		return nil, err
	}

	existing, err := p.patterns.List(ctx, storage.PatternQuery{TenantID: tenantID, Limit: storage.PaginationMax})
	if err != nil {
		return nil, err
	}
	already := make(map[string]struct{}, len(existing.Items))
	for _, pat := range existing.Items {
		if pat.SourceMemoryID != "" {
			already[pat.SourceMemoryID] = struct{}{}
		}
	}

	var discovered []*types.Pattern
	for i := range candidates.Items {
		mem := &candidates.Items[i]
		if !mem.PatternCandidate {
			continue
		}
		if _, done := already[mem.ID]; done {
			continue
		}

		pat := patternFromMemory(mem)
		if err := p.Create(ctx, pat); err != nil {
			continue
		}
		discovered = append(discovered, pat)
	}
	return discovered, nil
}

// patternFromMemory builds a Pattern from a candidate memory using the
// same rule-based inference as trigger/kind/tag extraction: keyword
// presence decides the pattern kind, and the trigger is the set of
// detection keywords found plus the memory's own leading keywords.
func patternFromMemory(mem *types.Memory) *types.Pattern {
	contentLower := strings.ToLower(mem.Content)

	var triggerWords []string
	for _, kw := range patternDetectionKeywords {
		if strings.Contains(contentLower, kw) {
			triggerWords = append(triggerWords, kw)
		}
	}
	for i, kw := range mem.Keywords {
		if i >= 3 {
			break
		}
		triggerWords = appendUnique(triggerWords, kw)
	}

	name := mem.Gist
	if name == "" {
		name = fmt.Sprintf("Pattern from %s memory", mem.Kind)
	}

	return &types.Pattern{
		ID:             types.NewID("pat"),
		TenantID:       mem.TenantID,
		Kind:           inferPatternKind(contentLower),
		Name:           name,
		Description:    fmt.Sprintf("Auto-generated pattern from memory about %s (importance %.2f)", name, mem.Importance),
		Trigger:        strings.Join(triggerWords, " "),
		Context:        fmt.Sprintf("Applies when dealing with: %s. Source: %s", mem.Gist, mem.Source),
		Tags:           mem.Tags,
		SourceMemoryID: mem.ID,
		Confidence:     mem.Importance * 0.8,
	}
}

func inferPatternKind(contentLower string) types.PatternKind {
	switch {
	case containsAny(contentLower, "error", "fail", "bug", "exception"):
		return types.PatternCommonError
	case containsAny(contentLower, "step", "workflow", "process", "flow"):
		return types.PatternWorkflow
	case containsAny(contentLower, "best", "practice", "recommend", "should"):
		return types.PatternBestPractice
	case containsAny(contentLower, "how to", "tutorial", "guide"):
		return types.PatternSkill
	default:
		return types.PatternProblemSolution
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func tokenizeSimple(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r == '_' || r == '-' || ('a' <= r && r <= 'z') || ('0' <= r && r <= '9'))
	})
}
