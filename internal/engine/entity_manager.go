package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hippos-ai/hippos/internal/storage"
	"github.com/hippos-ai/hippos/pkg/types"
)

// properNounPattern matches runs of capitalized words, the cheap heuristic
// for "this text probably names an entity". Compiled once at package
// initialization and reused for every extraction call.
var properNounPattern = regexp.MustCompile(`[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*`)

// relationshipVerb pairs a surface verb phrase with the relationship type it
// implies, plus its already-compiled two-capture-group regex: "X <verb> Y".
type relationshipVerb struct {
	phrase string
	typ    types.RelationshipType
	re     *regexp.Regexp
}

var relationshipVerbs = buildRelationshipVerbs()

func buildRelationshipVerbs() []relationshipVerb {
	specs := []struct {
		phrase string
		typ    types.RelationshipType
	}{
		{"uses", types.RelUses},
		{"depends on", types.RelDependsOn},
		{"works on", types.RelWorksOn},
		{"part of", types.RelPartOf},
		{"belongs to", types.RelBelongsTo},
	}
	verbs := make([]relationshipVerb, 0, len(specs))
	for _, s := range specs {
		pattern := fmt.Sprintf(`(\w+(?:\s+\w+)*)\s+%s\s+(\w+(?:\s+\w+)*)`, regexp.QuoteMeta(s.phrase))
		verbs = append(verbs, relationshipVerb{phrase: s.phrase, typ: s.typ, re: regexp.MustCompile(pattern)})
	}
	return verbs
}

// EntityManager owns Entity/Relationship CRUD and rule-based extraction from
// memory content: proper-noun candidate names and a bounded set of verb
// templates for relationships, both matched against regexes compiled once
// in package init rather than per call.
type EntityManager struct {
	entities      storage.EntityRepository
	relationships storage.RelationshipRepository
}

// NewEntityManager wires an EntityManager from its collaborators.
func NewEntityManager(entities storage.EntityRepository, relationships storage.RelationshipRepository) *EntityManager {
	return &EntityManager{entities: entities, relationships: relationships}
}

// Create validates and persists a new Entity.
func (m *EntityManager) Create(ctx context.Context, e *types.Entity) error {
	if e.TenantID == "" || e.Name == "" {
		return fmt.Errorf("engine: %w: tenant_id and name are required", types.ErrValidation)
	}
	if e.ID == "" {
		e.ID = types.NewID("ent")
	}
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	e.Confidence = types.ClampUnit(e.Confidence)
	return m.entities.Create(ctx, e)
}

// ExtractionResult reports what DiscoverFromContent found or touched.
type ExtractionResult struct {
	Entities      []*types.Entity
	Relationships []*types.Relationship
}

// DiscoverFromContent runs rule-based entity and relationship extraction
// over a memory's content, dedups against existing entities by case-folded
// name, and persists everything it finds. Redetecting an existing entity
// strengthens its confidence instead of creating a duplicate; redetecting an
// existing relationship strengthens its Strength instead of duplicating the
// edge, both capped at 1.0.
func (m *EntityManager) DiscoverFromContent(ctx context.Context, tenantID, sourceMemoryID, content string) (ExtractionResult, error) {
	var result ExtractionResult
	if tenantID == "" || content == "" {
		return result, fmt.Errorf("engine: %w: tenant_id and content are required", types.ErrValidation)
	}

	names := extractEntityNames(content)
	byName := make(map[string]*types.Entity, len(names))
	for _, name := range names {
		ent, err := m.upsertDetectedEntity(ctx, tenantID, sourceMemoryID, name, content)
		if err != nil {
			continue
		}
		byName[strings.ToLower(name)] = ent
		result.Entities = append(result.Entities, ent)
	}

	for _, rel := range m.extractRelationshipCandidates(content) {
		source, ok := byName[strings.ToLower(rel.sourceName)]
		if !ok {
			continue
		}
		target, ok := byName[strings.ToLower(rel.targetName)]
		if !ok || source.ID == target.ID {
			continue
		}
		edge, err := m.upsertDetectedRelationship(ctx, tenantID, source.ID, target.ID, rel.typ, sourceMemoryID, content)
		if err != nil {
			continue
		}
		result.Relationships = append(result.Relationships, edge)
	}

	return result, nil
}

// upsertDetectedEntity finds-or-creates an entity by case-folded name,
// raising confidence by 0.1 on redetect (capped at 1.0) rather than
// duplicating. A new entity starts at entityConfidence's score.
func (m *EntityManager) upsertDetectedEntity(ctx context.Context, tenantID, sourceMemoryID, name, content string) (*types.Entity, error) {
	nameFold := strings.ToLower(name)
	existing, err := m.entities.FindByName(ctx, tenantID, nameFold)
	if err == nil {
		existing.Confidence = types.ClampUnit(existing.Confidence + 0.1)
		existing.SourceMemoryIDs = appendUnique(existing.SourceMemoryIDs, sourceMemoryID)
		existing.UpdatedAt = time.Now().UTC()
		if err := m.entities.Update(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}

	ent := &types.Entity{
		ID:              types.NewID("ent"),
		TenantID:        tenantID,
		Name:            name,
		EntityType:      types.EntityOther,
		Confidence:      entityConfidence(name, content),
		SourceMemoryIDs: []string{sourceMemoryID},
	}
	if err := m.Create(ctx, ent); err != nil {
		return nil, err
	}
	return ent, nil
}

// upsertDetectedRelationship finds-or-creates the edge (tenantID,
// sourceEntityID, targetEntityID, relType), strengthening Strength on
// redetect instead of duplicating.
func (m *EntityManager) upsertDetectedRelationship(ctx context.Context, tenantID, sourceID, targetID string, relType types.RelationshipType, sourceMemoryID, context_ string) (*types.Relationship, error) {
	existing, err := m.relationships.Find(ctx, tenantID, sourceID, targetID, relType)
	if err == nil {
		existing.Strength = types.ClampUnit(existing.Strength + 0.1)
		existing.UpdatedAt = time.Now().UTC()
		if err := m.relationships.Update(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	rel := &types.Relationship{
		ID:             types.NewID("rel"),
		TenantID:       tenantID,
		SourceEntityID: sourceID,
		TargetEntityID: targetID,
		Type:           relType,
		Strength:       0.5,
		Context:        truncateContext(context_, 200),
		SourceMemoryID: sourceMemoryID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := m.relationships.Create(ctx, rel); err != nil {
		return nil, err
	}
	return rel, nil
}

// extractEntityNames finds proper-noun candidates, preserving first-seen
// order and dropping anything shorter than 3 characters (filters stray
// two-letter capitalized words like a sentence-leading "It").
func extractEntityNames(content string) []string {
	matches := properNounPattern.FindAllString(content, -1)
	var names []string
	seen := make(map[string]struct{})
	for _, name := range matches {
		if len(name) <= 2 {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

type relationshipCandidate struct {
	sourceName string
	targetName string
	typ        types.RelationshipType
}

// extractRelationshipCandidates matches content against every bounded verb
// template, returning (source phrase, target phrase, type) triples for the
// caller to resolve against already-extracted entity names.
func (m *EntityManager) extractRelationshipCandidates(content string) []relationshipCandidate {
	var candidates []relationshipCandidate
	lower := strings.ToLower(content)
	for _, verb := range relationshipVerbs {
		if !strings.Contains(lower, verb.phrase) {
			continue
		}
		for _, groups := range verb.re.FindAllStringSubmatch(content, -1) {
			if len(groups) != 3 {
				continue
			}
			candidates = append(candidates, relationshipCandidate{
				sourceName: strings.TrimSpace(groups[1]),
				targetName: strings.TrimSpace(groups[2]),
				typ:        verb.typ,
			})
		}
	}
	return candidates
}

// entityConfidence scores a freshly detected entity by how often its name
// recurs in the source text, with a small boost for leading the text
// (titles and subjects are usually named up front).
func entityConfidence(name, content string) float64 {
	count := strings.Count(content, name)
	base := float64(count) / 10.0
	if base > 1.0 {
		base = 1.0
	}
	if strings.HasPrefix(content, name) {
		base += 0.1
	}
	if base < 0.1 {
		base = 0.1
	}
	if base > 0.9 {
		base = 0.9
	}
	return base
}

func truncateContext(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// PruneWeakRelationships deletes every relationship touching entityID whose
// Strength has decayed below threshold. This is the targeted, single-entity
// counterpart to MemoryIntegrator's tenant-wide relationship refresh sweep,
// for a caller that already knows which entity it cares about and wants its
// dangling edges gone immediately rather than waiting for the next
// maintenance pass.
func (m *EntityManager) PruneWeakRelationships(ctx context.Context, tenantID, entityID string, threshold float64) (int, error) {
	rels, err := m.relationships.ListByEntity(ctx, tenantID, entityID)
	if err != nil {
		return 0, err
	}
	pruned := 0
	for _, rel := range rels {
		if rel.Strength >= threshold {
			continue
		}
		if err := m.relationships.Delete(ctx, tenantID, rel.ID); err != nil {
			continue
		}
		pruned++
	}
	return pruned, nil
}

// MergeEntities merges loser into winner: winner absorbs loser's aliases and
// source memory ids, and every relationship touching loser is repointed to
// winner before loser is deleted. Used when a caller (or a future
// duplicate-detection pass) determines two entities name the same thing.
func (m *EntityManager) MergeEntities(ctx context.Context, tenantID, winnerID, loserID string) error {
	if winnerID == loserID {
		return fmt.Errorf("engine: %w: winner and loser must differ", types.ErrValidation)
	}
	winner, err := m.entities.Get(ctx, tenantID, winnerID)
	if err != nil {
		return err
	}
	loser, err := m.entities.Get(ctx, tenantID, loserID)
	if err != nil {
		return err
	}

	winner.Aliases = appendUnique(winner.Aliases, loser.Name)
	for _, alias := range loser.Aliases {
		winner.Aliases = appendUnique(winner.Aliases, alias)
	}
	for _, id := range loser.SourceMemoryIDs {
		winner.SourceMemoryIDs = appendUnique(winner.SourceMemoryIDs, id)
	}
	winner.Confidence = types.ClampUnit(winner.Confidence + loser.Confidence*0.2)
	winner.UpdatedAt = time.Now().UTC()
	if err := m.entities.Update(ctx, winner); err != nil {
		return err
	}

	rels, err := m.relationships.ListByEntity(ctx, tenantID, loserID)
	if err != nil {
		return err
	}
	for _, rel := range rels {
		if rel.SourceEntityID == loserID {
			rel.SourceEntityID = winnerID
		}
		if rel.TargetEntityID == loserID {
			rel.TargetEntityID = winnerID
		}
		rel.UpdatedAt = time.Now().UTC()
		_ = m.relationships.Update(ctx, rel)
	}

	return m.entities.Delete(ctx, tenantID, loserID)
}
