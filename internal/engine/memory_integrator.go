package engine

import (
	"context"
	"math"
	"time"

	"github.com/hippos-ai/hippos/internal/storage"
	"github.com/hippos-ai/hippos/pkg/types"
)

// IntegrationConfig tunes the background maintenance pass: importance
// decay, redundancy merge, relationship strength pruning, and archival
// purge. All four sub-passes are idempotent — running the same pass twice
// in a row over unchanged data leaves the store in the same final state.
type IntegrationConfig struct {
	DecayWindow      time.Duration
	DecayFactor      float64
	ArchiveThreshold float64

	MergeSimilarityThreshold float64

	// RelationshipRefreshWindow is how recently both endpoints of an edge
	// must have appeared in a memory for the edge to be left alone. An edge
	// whose endpoints have both gone quiet longer than this has its
	// Strength decayed by RelationshipDecayFactor.
	RelationshipRefreshWindow time.Duration
	RelationshipDecayFactor   float64
	StrengthPruneThreshold    float64

	// PurgeWindow is how long a memory stays Archived before the purge pass
	// deletes it. Zero disables the purge pass.
	PurgeWindow time.Duration

	BatchSize int
}

// DefaultIntegrationConfig mirrors the component design's defaults.
func DefaultIntegrationConfig() IntegrationConfig {
	return IntegrationConfig{
		DecayWindow:               30 * 24 * time.Hour,
		DecayFactor:               0.95,
		ArchiveThreshold:          0.05,
		MergeSimilarityThreshold:  0.95,
		RelationshipRefreshWindow: 30 * 24 * time.Hour,
		RelationshipDecayFactor:   0.9,
		StrengthPruneThreshold:    0.05,
		PurgeWindow:               180 * 24 * time.Hour,
		BatchSize:                 500,
	}
}

// IntegrationStats reports what a maintenance pass changed.
type IntegrationStats struct {
	Decayed  int
	Archived int
	Merged   int
	Pruned   int
	Purged   int
}

// MemoryIntegrator runs the background maintenance passes described in the
// component design: importance decay, redundancy merge, relationship
// pruning, and archival purge.
type MemoryIntegrator struct {
	memories      storage.MemoryRepository
	relationships storage.RelationshipRepository
	entities      storage.EntityRepository
	cfg           IntegrationConfig
}

// NewMemoryIntegrator wires a MemoryIntegrator from its collaborators.
func NewMemoryIntegrator(memories storage.MemoryRepository, relationships storage.RelationshipRepository, entities storage.EntityRepository, cfg IntegrationConfig) *MemoryIntegrator {
	return &MemoryIntegrator{memories: memories, relationships: relationships, entities: entities, cfg: cfg}
}

// Run executes every maintenance pass once, for tenantID, in the fixed
// order decay -> merge -> relationship prune -> purge. Each pass is safe
// to re-run; running Run twice back to back on unchanged data produces a
// second IntegrationStats of all zeros.
func (m *MemoryIntegrator) Run(ctx context.Context, tenantID string) (IntegrationStats, error) {
	var stats IntegrationStats

	decayed, archived, err := m.decayImportance(ctx, tenantID)
	if err != nil {
		return stats, err
	}
	stats.Decayed, stats.Archived = decayed, archived

	merged, err := m.mergeRedundant(ctx, tenantID)
	if err != nil {
		return stats, err
	}
	stats.Merged = merged

	pruned, err := m.pruneRelationships(ctx, tenantID)
	if err != nil {
		return stats, err
	}
	stats.Pruned = pruned

	purged, err := m.purgeArchived(ctx, tenantID)
	if err != nil {
		return stats, err
	}
	stats.Purged = purged

	return stats, nil
}

// applyImportanceDecay mutates mem in place, multiplicatively decaying its
// importance once per elapsed window since UpdatedAt, archiving it if the
// decayed importance falls below archiveThreshold. Returns applied=false
// (mem left untouched) if less than one full window has elapsed. Shared by
// MemoryIntegrator's periodic sweep and MemoryRecall's lazy on-read decay
// (spec §4.7 step 5), so both apply the exact same formula.
func applyImportanceDecay(mem *types.Memory, window time.Duration, factor, archiveThreshold float64, now time.Time) (archived, applied bool) {
	elapsed := now.Sub(mem.UpdatedAt)
	if elapsed < window {
		return false, false
	}
	steps := math.Floor(float64(elapsed) / float64(window))
	if steps < 1 {
		return false, false
	}
	mem.Importance = types.ClampUnit(mem.Importance * math.Pow(factor, steps))
	mem.UpdatedAt = now
	if mem.Importance < archiveThreshold {
		mem.Status = types.StatusArchived
		return true, true
	}
	return false, true
}

// decayImportance multiplicatively decays each active memory's importance
// once per elapsed DecayWindow since its last update, archiving any memory
// whose decayed importance falls below ArchiveThreshold. Idempotent: a
// memory already decayed for the current window is skipped (UpdatedAt is
// only bumped when a decay step actually applies), so re-running Run
// within the same window is a no-op for already-processed memories.
func (m *MemoryIntegrator) decayImportance(ctx context.Context, tenantID string) (decayed, archived int, err error) {
	page := storage.MemoryQuery{TenantID: tenantID, Statuses: []string{string(types.StatusActive)}, Limit: m.batchSize()}
	now := time.Now().UTC()

	for {
		result, err := m.memories.List(ctx, page)
		if err != nil {
			return decayed, archived, err
		}
		if len(result.Items) == 0 {
			break
		}

		for i := range result.Items {
			mem := &result.Items[i]
			didArchive, applied := applyImportanceDecay(mem, m.cfg.DecayWindow, m.cfg.DecayFactor, m.cfg.ArchiveThreshold, now)
			if !applied {
				continue
			}
			if didArchive {
				archived++
			}
			if err := m.memories.Update(ctx, mem); err != nil {
				continue
			}
			decayed++
		}

		if len(result.Items) < page.Limit {
			break
		}
		page.Offset += len(result.Items)
	}
	return decayed, archived, nil
}

// mergeRedundant finds pairs of active memories for the same user whose
// similarity exceeds MergeSimilarityThreshold and merges the newer into the
// older: the older memory's SupersedesID is left alone (supersession is
// an explicit ingestion-time link, not implied by a merge); instead the
// newer memory's id is appended to the older memory's RelatedIDs and the
// newer memory is archived, so recall still sees the connection. Merging across tenants is never attempted — candidates are
// scoped to one tenant's List call by construction, not filtered after the
// fact, so there is no cross-tenant comparison to forbid.
func (m *MemoryIntegrator) mergeRedundant(ctx context.Context, tenantID string) (int, error) {
	result, err := m.memories.List(ctx, storage.MemoryQuery{
		TenantID: tenantID,
		Statuses: []string{string(types.StatusActive)},
		Limit:    m.batchSize(),
	})
	if err != nil {
		return 0, err
	}

	merged := 0
	items := result.Items
	for i := 0; i < len(items); i++ {
		a := &items[i]
		if a.Status != types.StatusActive {
			continue
		}
		for j := i + 1; j < len(items); j++ {
			b := &items[j]
			if b.Status != types.StatusActive || a.UserID != b.UserID {
				continue
			}
			if similarity(a, b) < m.cfg.MergeSimilarityThreshold {
				continue
			}

			older, newer := a, b
			if b.CreatedAt.Before(a.CreatedAt) {
				older, newer = b, a
			}

			older.RelatedIDs = appendUnique(older.RelatedIDs, newer.ID)
			older.UpdatedAt = time.Now().UTC()
			if err := m.memories.Update(ctx, older); err != nil {
				continue
			}

			newer.Status = types.StatusArchived
			newer.UpdatedAt = time.Now().UTC()
			if err := m.memories.Update(ctx, newer); err != nil {
				continue
			}
			merged++
		}
	}
	return merged, nil
}

// pruneRelationships walks every relationship in the tenant and decays the
// Strength of any edge whose endpoints have both gone quiet (neither
// touched in a memory within RelationshipRefreshWindow, using each Entity's
// UpdatedAt as the last-appeared signal), then deletes any edge whose
// Strength has fallen below StrengthPruneThreshold. An endpoint that no
// longer resolves (its Entity was deleted) counts as quiet. An edge is
// decayed at most once per RelationshipRefreshWindow: one whose own
// UpdatedAt falls inside the window is left at its current Strength.
func (m *MemoryIntegrator) pruneRelationships(ctx context.Context, tenantID string) (int, error) {
	page := storage.RelationshipQuery{TenantID: tenantID, Limit: m.batchSize()}
	now := time.Now().UTC()
	pruned := 0

	for {
		result, err := m.relationships.List(ctx, page)
		if err != nil {
			return pruned, err
		}
		if len(result.Items) == 0 {
			break
		}

		for i := range result.Items {
			rel := &result.Items[i]
			if now.Sub(rel.UpdatedAt) >= m.cfg.RelationshipRefreshWindow && m.endpointsAreStale(ctx, tenantID, rel, now) {
				rel.Strength = types.ClampUnit(rel.Strength * m.cfg.RelationshipDecayFactor)
				rel.UpdatedAt = now
				if err := m.relationships.Update(ctx, rel); err != nil {
					continue
				}
			}
			if rel.Strength < m.cfg.StrengthPruneThreshold {
				if err := m.relationships.Delete(ctx, tenantID, rel.ID); err != nil {
					continue
				}
				pruned++
			}
		}

		if len(result.Items) < page.Limit {
			break
		}
		page.Offset += len(result.Items)
	}
	return pruned, nil
}

// endpointsAreStale reports whether neither endpoint of rel has appeared in
// a memory within RelationshipRefreshWindow.
func (m *MemoryIntegrator) endpointsAreStale(ctx context.Context, tenantID string, rel *types.Relationship, now time.Time) bool {
	for _, id := range [2]string{rel.SourceEntityID, rel.TargetEntityID} {
		ent, err := m.entities.Get(ctx, tenantID, id)
		if err != nil {
			continue
		}
		if now.Sub(ent.UpdatedAt) < m.cfg.RelationshipRefreshWindow {
			return false
		}
	}
	return true
}

// purgeArchived permanently deletes memories that have been archived for
// longer than PurgeWindow. A zero PurgeWindow purges nothing.
func (m *MemoryIntegrator) purgeArchived(ctx context.Context, tenantID string) (int, error) {
	if m.cfg.PurgeWindow <= 0 {
		return 0, nil
	}
	page := storage.MemoryQuery{TenantID: tenantID, Statuses: []string{string(types.StatusArchived)}, Limit: m.batchSize()}
	now := time.Now().UTC()
	purged := 0

	for {
		result, err := m.memories.List(ctx, page)
		if err != nil {
			return purged, err
		}
		if len(result.Items) == 0 {
			break
		}

		for i := range result.Items {
			mem := &result.Items[i]
			if now.Sub(mem.UpdatedAt) < m.cfg.PurgeWindow {
				continue
			}
			if err := m.memories.Delete(ctx, tenantID, mem.ID); err != nil {
				continue
			}
			purged++
		}

		if len(result.Items) < page.Limit {
			break
		}
		page.Offset += len(result.Items)
	}
	return purged, nil
}

func (m *MemoryIntegrator) batchSize() int {
	if m.cfg.BatchSize <= 0 {
		return 500
	}
	return m.cfg.BatchSize
}

// similarity prefers cosine similarity over embeddings when both memories
// have one, and falls back to keyword overlap otherwise.
func similarity(a, b *types.Memory) float64 {
	if len(a.Embedding) > 0 && len(b.Embedding) > 0 {
		return cosineSim(a.Embedding, b.Embedding)
	}
	return keywordOverlap(a.Keywords, b.Keywords)
}

func cosineSim(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

func keywordOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, k := range a {
		set[k] = struct{}{}
	}
	overlap := 0
	for _, k := range b {
		if _, ok := set[k]; ok {
			overlap++
		}
	}
	union := len(set)
	for _, k := range b {
		if _, ok := set[k]; !ok {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(overlap) / float64(union)
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
