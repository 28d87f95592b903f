package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hippos-ai/hippos/internal/index"
	"github.com/hippos-ai/hippos/internal/llm"
	"github.com/hippos-ai/hippos/internal/storage"
	"github.com/hippos-ai/hippos/pkg/types"
)

// IngestRequest describes a new or evolved memory to build.
type IngestRequest struct {
	TenantID string
	UserID   string
	Kind     types.MemoryKind
	Source   types.MemorySource
	SourceID string
	Content  string

	// ImportanceOverride, when non-nil, replaces the heuristic score.
	ImportanceOverride *float64

	// SupersedesID, when set, links the new memory into an evolution chain.
	SupersedesID string

	MaxContentLength int
}

// MemoryBuilder runs the ingestion pipeline: validate, dehydrate, score
// importance, embed, persist, index, and publish. It does not extract
// entities; callers run EntityManager.DiscoverFromContent on the result.
// Idempotent on (TenantID, UserID, SourceID): re-ingesting the same source
// returns the memory already on file instead of creating a duplicate.
type MemoryBuilder struct {
	memories   storage.MemoryRepository
	vector     index.VectorIndex
	lexical    index.LexicalIndex
	embedder   llm.EmbeddingProvider
	dehydrator *Dehydrator
	embedCache *index.EmbeddingCache
	bus        EventPublisher

	patternCandidateThreshold float64
}

// EventPublisher is the subset of events.Bus the engine depends on, kept
// narrow so engine tests can supply a fake without importing events.
type EventPublisher interface {
	Publish(evt Event)
}

// Event mirrors events.Event so the engine does not depend on the events
// package. Callers wire a small adapter (see busAdapter in cmd/hippos)
// between events.Bus and EventPublisher.
type Event struct {
	Kind     string
	TenantID string
	Payload  any
}

// NewMemoryBuilder wires a MemoryBuilder from its collaborators.
func NewMemoryBuilder(
	memories storage.MemoryRepository,
	vector index.VectorIndex,
	lexical index.LexicalIndex,
	embedder llm.EmbeddingProvider,
	dehydrator *Dehydrator,
	embedCache *index.EmbeddingCache,
	bus EventPublisher,
	patternCandidateThreshold float64,
) *MemoryBuilder {
	return &MemoryBuilder{
		memories:                  memories,
		vector:                    vector,
		lexical:                   lexical,
		embedder:                  embedder,
		dehydrator:                dehydrator,
		embedCache:                embedCache,
		bus:                       bus,
		patternCandidateThreshold: patternCandidateThreshold,
	}
}

// Build runs the full ingestion pipeline and returns the persisted memory.
func (b *MemoryBuilder) Build(ctx context.Context, req IngestRequest) (*types.Memory, error) {
	if req.TenantID == "" || req.UserID == "" {
		return nil, fmt.Errorf("engine: %w: tenant_id and user_id are required", types.ErrValidation)
	}
	if req.Content == "" {
		return nil, fmt.Errorf("engine: %w: content is required", types.ErrValidation)
	}
	maxLen := req.MaxContentLength
	if maxLen <= 0 {
		maxLen = 16384
	}
	if len([]rune(req.Content)) > maxLen {
		return nil, fmt.Errorf("engine: %w: content exceeds max length %d", types.ErrValidation, maxLen)
	}

	// Step 0: idempotence check.
	if req.SourceID != "" {
		if existing, err := b.memories.FindBySourceID(ctx, req.TenantID, req.UserID, req.SourceID); err == nil {
			return existing, nil
		} else if !errors.Is(err, types.ErrNotFound) {
			return nil, err
		}
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("engine: %w", types.ErrCancelled)
	default:
	}

	// Step 1: dehydrate.
	dehydrated := b.dehydrator.Dehydrate(req.Content)

	// Step 2: importance score.
	importance := ScoreImportance(req.Content, req.Kind, req.ImportanceOverride)

	now := time.Now().UTC()
	mem := &types.Memory{
		ID:               types.NewID("mem"),
		TenantID:         req.TenantID,
		UserID:           req.UserID,
		Kind:             req.Kind,
		Source:           req.Source,
		SourceID:         req.SourceID,
		Content:          req.Content,
		Gist:             dehydrated.Gist,
		Keywords:         dehydrated.Keywords,
		Topics:           dehydrated.Topics,
		Tags:             dehydrated.Tags,
		Importance:       importance,
		Confidence:       1.0,
		SupersedesID:     req.SupersedesID,
		ContentHash:      contentHash(req.Content),
		PatternCandidate: importance >= b.patternCandidateThreshold,
		CreatedAt:        now,
		UpdatedAt:        now,
		AccessedAt:       now,
		Status:           types.StatusActive,
		Version:          0,
	}

	// Step 3: embed. A failure here does not abort ingestion — the memory
	// is persisted without an embedding and flagged PendingReindex so a
	// maintenance pass (or an explicit retry) can pick it up later.
	embedding, embedErr := b.embed(ctx, req.Content)
	if embedErr == nil {
		mem.Embedding = embedding
	} else {
		mem.PendingReindex = true
	}

	// Step 4: persist.
	if err := b.memories.Create(ctx, mem); err != nil {
		return nil, err
	}

	// Step 5: index. Same non-fatal treatment as embedding: a failed index
	// write leaves PendingReindex set and a best-effort update attempt.
	indexFailed := false
	if mem.Embedding != nil {
		if err := b.vector.Upsert(ctx, mem.TenantID, mem.ID, mem.Embedding); err != nil {
			indexFailed = true
		}
	}
	if err := b.lexical.Upsert(ctx, mem.TenantID, mem.ID, req.Content); err != nil {
		indexFailed = true
	}
	if indexFailed && !mem.PendingReindex {
		mem.PendingReindex = true
		if err := b.memories.Update(ctx, mem); err != nil {
			log.Printf("engine: failed to persist pending_reindex flag for memory %s: %v", mem.ID, err)
		}
	}

	if b.bus != nil {
		b.bus.Publish(Event{Kind: "memory.created", TenantID: mem.TenantID, Payload: mem.ID})
	}

	return mem, nil
}

// embed consults the cache before invoking the configured provider.
func (b *MemoryBuilder) embed(ctx context.Context, content string) ([]float32, error) {
	key := contentHash(content)
	if cached, ok := b.embedCache.Get(key); ok {
		return cached, nil
	}
	vec, err := b.embedder.Embed(ctx, content)
	if err != nil {
		return nil, err
	}
	b.embedCache.Put(key, vec)
	return vec, nil
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

