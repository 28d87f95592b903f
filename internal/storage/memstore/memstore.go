// Package memstore is an in-memory reference implementation of every
// storage.*Repository interface. It backs unit tests and any in-process
// test harness (the spec requires the core to run identically "driven by
// REST handlers... or an in-process test harness") without needing a real
// database.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hippos-ai/hippos/internal/storage"
	"github.com/hippos-ai/hippos/pkg/types"
)

// Store bundles all five repositories over one shared set of tenant-scoped
// maps, mirroring how a single physical database backs every repository in
// the sqlite/postgres implementations.
type Store struct {
	mu sync.RWMutex

	memories      map[string]*types.Memory
	profiles      map[string]*types.Profile
	patterns      map[string]*types.Pattern
	patternUsage  []types.PatternUsage
	entities      map[string]*types.Entity
	relationships map[string]*types.Relationship
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		memories:      make(map[string]*types.Memory),
		profiles:      make(map[string]*types.Profile),
		patterns:      make(map[string]*types.Pattern),
		entities:      make(map[string]*types.Entity),
		relationships: make(map[string]*types.Relationship),
	}
}

// --- MemoryRepository -------------------------------------------------

func (s *Store) Create(ctx context.Context, m *types.Memory) error {
	if m == nil || m.ID == "" || m.TenantID == "" {
		return fmt.Errorf("memstore: %w: memory id and tenant_id are required", types.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.memories[m.ID]; exists {
		return fmt.Errorf("memstore: %w: memory %s already exists", types.ErrConflict, m.ID)
	}
	s.memories[m.ID] = m.Clone()
	return nil
}

func (s *Store) Get(ctx context.Context, tenantID, id string) (*types.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memories[id]
	if !ok || m.TenantID != tenantID {
		return nil, fmt.Errorf("memstore: %w: memory %s", types.ErrNotFound, id)
	}
	return m.Clone(), nil
}

func (s *Store) Update(ctx context.Context, m *types.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.memories[m.ID]
	if !ok || existing.TenantID != m.TenantID {
		return fmt.Errorf("memstore: %w: memory %s", types.ErrNotFound, m.ID)
	}
	if existing.Version != m.Version {
		return fmt.Errorf("memstore: %w: memory %s version %d != %d", types.ErrConflict, m.ID, m.Version, existing.Version)
	}
	m.Version++
	m.UpdatedAt = time.Now().UTC()
	s.memories[m.ID] = m.Clone()
	return nil
}

func (s *Store) Delete(ctx context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.memories[id]
	if !ok || existing.TenantID != tenantID {
		return fmt.Errorf("memstore: %w: memory %s", types.ErrNotFound, id)
	}
	delete(s.memories, id)
	return nil
}

func (s *Store) List(ctx context.Context, q storage.MemoryQuery) (storage.PaginatedResult[types.Memory], error) {
	q.Normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []types.Memory
	for _, m := range s.memories {
		if matchesMemoryQuery(m, q) {
			matched = append(matched, *m.Clone())
		}
	}
	sortMemories(matched, q.SortBy, q.SortOrder)

	total := len(matched)
	start := q.Offset
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}

	return storage.PaginatedResult[types.Memory]{
		Items:  matched[start:end],
		Total:  total,
		Limit:  q.Limit,
		Offset: q.Offset,
	}, nil
}

func (s *Store) Count(ctx context.Context, q storage.MemoryQuery) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.memories {
		if matchesMemoryQuery(m, q) {
			n++
		}
	}
	return n, nil
}

func (s *Store) FindBySourceID(ctx context.Context, tenantID, userID, sourceID string) (*types.Memory, error) {
	if sourceID == "" {
		return nil, fmt.Errorf("memstore: %w: empty source id", types.ErrNotFound)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.memories {
		if m.TenantID == tenantID && m.UserID == userID && m.SourceID == sourceID {
			return m.Clone(), nil
		}
	}
	return nil, fmt.Errorf("memstore: %w: source id %s", types.ErrNotFound, sourceID)
}

func (s *Store) GetEvolutionChain(ctx context.Context, tenantID, memoryID string) ([]*types.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cur, ok := s.memories[memoryID]
	if !ok || cur.TenantID != tenantID {
		return nil, fmt.Errorf("memstore: %w: memory %s", types.ErrNotFound, memoryID)
	}

	var chain []*types.Memory
	chain = append(chain, cur.Clone())
	for len(chain) < 50 && cur.SupersedesID != "" {
		prev, ok := s.memories[cur.SupersedesID]
		if !ok || prev.TenantID != tenantID {
			break
		}
		chain = append(chain, prev.Clone())
		cur = prev
	}
	// Reverse to oldest -> newest.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

func matchesMemoryQuery(m *types.Memory, q storage.MemoryQuery) bool {
	if m.TenantID != q.TenantID {
		return false
	}
	if q.UserID != "" && m.UserID != q.UserID {
		return false
	}
	if len(q.IDs) > 0 && !containsStr(q.IDs, m.ID) {
		return false
	}
	if len(q.Kinds) > 0 && !containsStr(q.Kinds, string(m.Kind)) {
		return false
	}
	if len(q.Statuses) > 0 && !containsStr(q.Statuses, string(m.Status)) {
		return false
	}
	if q.Contains != "" {
		needle := strings.ToLower(q.Contains)
		hay := strings.ToLower(m.Content + " " + m.Gist + " " + strings.Join(m.Tags, " "))
		if !strings.Contains(hay, needle) {
			return false
		}
	}
	if !q.Created.After.IsZero() && m.CreatedAt.Before(q.Created.After) {
		return false
	}
	if !q.Created.Before.IsZero() && m.CreatedAt.After(q.Created.Before) {
		return false
	}
	return true
}

func sortMemories(items []types.Memory, by storage.SortField, order storage.SortOrder) {
	less := func(i, j int) bool {
		var a, b time.Time
		var af, bf float64
		switch by {
		case storage.SortUpdatedAt:
			a, b = items[i].UpdatedAt, items[j].UpdatedAt
		case storage.SortAccessedAt:
			a, b = items[i].AccessedAt, items[j].AccessedAt
		case storage.SortImportance:
			af, bf = items[i].Importance, items[j].Importance
			if order == storage.Desc {
				return af > bf
			}
			return af < bf
		default:
			a, b = items[i].CreatedAt, items[j].CreatedAt
		}
		if order == storage.Desc {
			return a.After(b)
		}
		return a.Before(b)
	}
	sort.SliceStable(items, less)
}

func containsStr(haystack []string, needle string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}

// --- ProfileRepository --------------------------------------------------

func (s *Store) CreateProfile(ctx context.Context, p *types.Profile) error {
	if p == nil || p.TenantID == "" || p.UserID == "" {
		return fmt.Errorf("memstore: %w: tenant_id and user_id are required", types.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.profiles {
		if existing.TenantID == p.TenantID && existing.UserID == p.UserID {
			return fmt.Errorf("memstore: %w: profile already exists for user %s", types.ErrConflict, p.UserID)
		}
	}
	cp := *p
	s.profiles[p.ID] = &cp
	return nil
}

func (s *Store) GetProfile(ctx context.Context, tenantID, id string) (*types.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok || p.TenantID != tenantID {
		return nil, fmt.Errorf("memstore: %w: profile %s", types.ErrNotFound, id)
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetProfileByUser(ctx context.Context, tenantID, userID string) (*types.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if p.TenantID == tenantID && p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("memstore: %w: profile for user %s", types.ErrNotFound, userID)
}

func (s *Store) UpdateProfile(ctx context.Context, p *types.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.profiles[p.ID]
	if !ok || existing.TenantID != p.TenantID {
		return fmt.Errorf("memstore: %w: profile %s", types.ErrNotFound, p.ID)
	}
	if existing.Version != p.Version {
		return fmt.Errorf("memstore: %w: profile %s version %d != %d", types.ErrConflict, p.ID, p.Version, existing.Version)
	}
	p.Version++
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	s.profiles[p.ID] = &cp
	return nil
}

func (s *Store) DeleteProfile(ctx context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.profiles[id]
	if !ok || existing.TenantID != tenantID {
		return fmt.Errorf("memstore: %w: profile %s", types.ErrNotFound, id)
	}
	delete(s.profiles, id)
	return nil
}

// --- PatternRepository ----------------------------------------------

func (s *Store) CreatePattern(ctx context.Context, p *types.Pattern) error {
	if p == nil || p.ID == "" || p.TenantID == "" {
		return fmt.Errorf("memstore: %w: pattern id and tenant_id are required", types.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.patterns[p.ID] = &cp
	return nil
}

func (s *Store) GetPattern(ctx context.Context, tenantID, id string) (*types.Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patterns[id]
	if !ok || p.TenantID != tenantID {
		return nil, fmt.Errorf("memstore: %w: pattern %s", types.ErrNotFound, id)
	}
	cp := *p
	return &cp, nil
}

func (s *Store) UpdatePattern(ctx context.Context, p *types.Pattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.patterns[p.ID]
	if !ok || existing.TenantID != p.TenantID {
		return fmt.Errorf("memstore: %w: pattern %s", types.ErrNotFound, p.ID)
	}
	if existing.Version != p.Version {
		return fmt.Errorf("memstore: %w: pattern %s version %d != %d", types.ErrConflict, p.ID, p.Version, existing.Version)
	}
	p.Version++
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	s.patterns[p.ID] = &cp
	return nil
}

func (s *Store) DeletePattern(ctx context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.patterns[id]
	if !ok || existing.TenantID != tenantID {
		return fmt.Errorf("memstore: %w: pattern %s", types.ErrNotFound, id)
	}
	delete(s.patterns, id)
	return nil
}

func (s *Store) ListPatterns(ctx context.Context, q storage.PatternQuery) (storage.PaginatedResult[types.Pattern], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []types.Pattern
	for _, p := range s.patterns {
		if p.TenantID != q.TenantID {
			continue
		}
		if len(q.Kinds) > 0 && !containsStr(q.Kinds, string(p.Kind)) {
			continue
		}
		if len(q.Tags) > 0 {
			found := false
			for _, t := range q.Tags {
				if containsStr(p.Tags, t) {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		matched = append(matched, *p)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	limit := q.Limit
	if limit <= 0 || limit > storage.PaginationMax {
		limit = storage.PaginationMax
	}
	start := q.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	return storage.PaginatedResult[types.Pattern]{
		Items:  matched[start:end],
		Total:  len(matched),
		Limit:  limit,
		Offset: q.Offset,
	}, nil
}

func (s *Store) RecordPatternUsage(ctx context.Context, tenantID string, usage *types.PatternUsage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patterns[usage.PatternID]
	if !ok || p.TenantID != tenantID {
		return fmt.Errorf("memstore: %w: pattern %s", types.ErrNotFound, usage.PatternID)
	}
	s.patternUsage = append(s.patternUsage, *usage)
	return nil
}

// --- EntityRepository -------------------------------------------------

func (s *Store) CreateEntity(ctx context.Context, e *types.Entity) error {
	if e == nil || e.ID == "" || e.TenantID == "" {
		return fmt.Errorf("memstore: %w: entity id and tenant_id are required", types.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.entities[e.ID] = &cp
	return nil
}

func (s *Store) GetEntity(ctx context.Context, tenantID, id string) (*types.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok || e.TenantID != tenantID {
		return nil, fmt.Errorf("memstore: %w: entity %s", types.ErrNotFound, id)
	}
	cp := *e
	return &cp, nil
}

func (s *Store) UpdateEntity(ctx context.Context, e *types.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.entities[e.ID]
	if !ok || existing.TenantID != e.TenantID {
		return fmt.Errorf("memstore: %w: entity %s", types.ErrNotFound, e.ID)
	}
	if existing.Version != e.Version {
		return fmt.Errorf("memstore: %w: entity %s version %d != %d", types.ErrConflict, e.ID, e.Version, existing.Version)
	}
	e.Version++
	e.UpdatedAt = time.Now().UTC()
	cp := *e
	s.entities[e.ID] = &cp
	return nil
}

func (s *Store) DeleteEntity(ctx context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.entities[id]
	if !ok || existing.TenantID != tenantID {
		return fmt.Errorf("memstore: %w: entity %s", types.ErrNotFound, id)
	}
	delete(s.entities, id)
	return nil
}

func (s *Store) ListEntities(ctx context.Context, q storage.EntityQuery) (storage.PaginatedResult[types.Entity], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []types.Entity
	for _, e := range s.entities {
		if e.TenantID != q.TenantID {
			continue
		}
		if q.EntityType != "" && e.EntityType != q.EntityType {
			continue
		}
		if q.NameFold != "" {
			match := strings.ToLower(e.Name) == q.NameFold
			for _, a := range e.Aliases {
				if strings.ToLower(a) == q.NameFold {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		matched = append(matched, *e)
	}
	limit := q.Limit
	if limit <= 0 || limit > storage.PaginationMax {
		limit = storage.PaginationMax
	}
	start := q.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return storage.PaginatedResult[types.Entity]{Items: matched[start:end], Total: len(matched), Limit: limit, Offset: q.Offset}, nil
}

func (s *Store) FindEntityByName(ctx context.Context, tenantID, nameFold string) (*types.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nameFold = strings.ToLower(nameFold)
	for _, e := range s.entities {
		if e.TenantID != tenantID {
			continue
		}
		if strings.ToLower(e.Name) == nameFold {
			cp := *e
			return &cp, nil
		}
		for _, a := range e.Aliases {
			if strings.ToLower(a) == nameFold {
				cp := *e
				return &cp, nil
			}
		}
	}
	return nil, fmt.Errorf("memstore: %w: entity named %q", types.ErrNotFound, nameFold)
}

// --- RelationshipRepository --------------------------------------------

func (s *Store) CreateRelationship(ctx context.Context, r *types.Relationship) error {
	if r == nil || r.ID == "" || r.TenantID == "" {
		return fmt.Errorf("memstore: %w: relationship id and tenant_id are required", types.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.relationships[r.ID] = &cp
	return nil
}

func (s *Store) GetRelationship(ctx context.Context, tenantID, id string) (*types.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.relationships[id]
	if !ok || r.TenantID != tenantID {
		return nil, fmt.Errorf("memstore: %w: relationship %s", types.ErrNotFound, id)
	}
	cp := *r
	return &cp, nil
}

func (s *Store) UpdateRelationship(ctx context.Context, r *types.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.relationships[r.ID]
	if !ok || existing.TenantID != r.TenantID {
		return fmt.Errorf("memstore: %w: relationship %s", types.ErrNotFound, r.ID)
	}
	if existing.Version != r.Version {
		return fmt.Errorf("memstore: %w: relationship %s version %d != %d", types.ErrConflict, r.ID, r.Version, existing.Version)
	}
	r.Version++
	r.UpdatedAt = time.Now().UTC()
	cp := *r
	s.relationships[r.ID] = &cp
	return nil
}

func (s *Store) DeleteRelationship(ctx context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.relationships[id]
	if !ok || existing.TenantID != tenantID {
		return fmt.Errorf("memstore: %w: relationship %s", types.ErrNotFound, id)
	}
	delete(s.relationships, id)
	return nil
}

func (s *Store) FindRelationship(ctx context.Context, tenantID, sourceEntityID, targetEntityID, relType string) (*types.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.relationships {
		if r.TenantID == tenantID && r.SourceEntityID == sourceEntityID && r.TargetEntityID == targetEntityID && r.Type == relType {
			cp := *r
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("memstore: %w: relationship %s->%s:%s", types.ErrNotFound, sourceEntityID, targetEntityID, relType)
}

func (s *Store) ListRelationshipsByEntity(ctx context.Context, tenantID, entityID string) ([]*types.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*types.Relationship
	for _, r := range s.relationships {
		if r.TenantID != tenantID {
			continue
		}
		if r.SourceEntityID == entityID || r.TargetEntityID == entityID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) ListRelationships(ctx context.Context, q storage.RelationshipQuery) (storage.PaginatedResult[types.Relationship], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []types.Relationship
	for _, r := range s.relationships {
		if r.TenantID != q.TenantID {
			continue
		}
		matched = append(matched, *r)
	}
	limit := q.Limit
	if limit <= 0 || limit > storage.PaginationMax {
		limit = storage.PaginationMax
	}
	start := q.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return storage.PaginatedResult[types.Relationship]{Items: matched[start:end], Total: len(matched), Limit: limit, Offset: q.Offset}, nil
}

// Interface satisfaction guards, checked at compile time.
var (
	_ storage.MemoryRepository       = (*Store)(nil)
	_ interface {
		CreateProfile(context.Context, *types.Profile) error
	} = (*Store)(nil)
)

// Profiles, Patterns, Entities, and Relationships methods are grouped under
// dedicated thin adapter types so each satisfies the narrower
// storage.*Repository interface by name (Create/Get/Update/Delete/List)
// without colliding with MemoryRepository's identically-named methods on
// the same receiver.

// ProfileAdapter exposes Store's profile methods as storage.ProfileRepository.
type ProfileAdapter struct{ S *Store }

func (a ProfileAdapter) Create(ctx context.Context, p *types.Profile) error { return a.S.CreateProfile(ctx, p) }
func (a ProfileAdapter) Get(ctx context.Context, tenantID, id string) (*types.Profile, error) {
	return a.S.GetProfile(ctx, tenantID, id)
}
func (a ProfileAdapter) GetByUser(ctx context.Context, tenantID, userID string) (*types.Profile, error) {
	return a.S.GetProfileByUser(ctx, tenantID, userID)
}
func (a ProfileAdapter) Update(ctx context.Context, p *types.Profile) error { return a.S.UpdateProfile(ctx, p) }
func (a ProfileAdapter) Delete(ctx context.Context, tenantID, id string) error {
	return a.S.DeleteProfile(ctx, tenantID, id)
}

// PatternAdapter exposes Store's pattern methods as storage.PatternRepository.
type PatternAdapter struct{ S *Store }

func (a PatternAdapter) Create(ctx context.Context, p *types.Pattern) error { return a.S.CreatePattern(ctx, p) }
func (a PatternAdapter) Get(ctx context.Context, tenantID, id string) (*types.Pattern, error) {
	return a.S.GetPattern(ctx, tenantID, id)
}
func (a PatternAdapter) Update(ctx context.Context, p *types.Pattern) error { return a.S.UpdatePattern(ctx, p) }
func (a PatternAdapter) Delete(ctx context.Context, tenantID, id string) error {
	return a.S.DeletePattern(ctx, tenantID, id)
}
func (a PatternAdapter) List(ctx context.Context, q storage.PatternQuery) (storage.PaginatedResult[types.Pattern], error) {
	return a.S.ListPatterns(ctx, q)
}
func (a PatternAdapter) RecordUsage(ctx context.Context, tenantID string, usage *types.PatternUsage) error {
	return a.S.RecordPatternUsage(ctx, tenantID, usage)
}

// EntityAdapter exposes Store's entity methods as storage.EntityRepository.
type EntityAdapter struct{ S *Store }

func (a EntityAdapter) Create(ctx context.Context, e *types.Entity) error { return a.S.CreateEntity(ctx, e) }
func (a EntityAdapter) Get(ctx context.Context, tenantID, id string) (*types.Entity, error) {
	return a.S.GetEntity(ctx, tenantID, id)
}
func (a EntityAdapter) Update(ctx context.Context, e *types.Entity) error { return a.S.UpdateEntity(ctx, e) }
func (a EntityAdapter) Delete(ctx context.Context, tenantID, id string) error {
	return a.S.DeleteEntity(ctx, tenantID, id)
}
func (a EntityAdapter) List(ctx context.Context, q storage.EntityQuery) (storage.PaginatedResult[types.Entity], error) {
	return a.S.ListEntities(ctx, q)
}
func (a EntityAdapter) FindByName(ctx context.Context, tenantID, nameFold string) (*types.Entity, error) {
	return a.S.FindEntityByName(ctx, tenantID, nameFold)
}

// RelationshipAdapter exposes Store's relationship methods as storage.RelationshipRepository.
type RelationshipAdapter struct{ S *Store }

func (a RelationshipAdapter) Create(ctx context.Context, r *types.Relationship) error {
	return a.S.CreateRelationship(ctx, r)
}
func (a RelationshipAdapter) Get(ctx context.Context, tenantID, id string) (*types.Relationship, error) {
	return a.S.GetRelationship(ctx, tenantID, id)
}
func (a RelationshipAdapter) Update(ctx context.Context, r *types.Relationship) error {
	return a.S.UpdateRelationship(ctx, r)
}
func (a RelationshipAdapter) Delete(ctx context.Context, tenantID, id string) error {
	return a.S.DeleteRelationship(ctx, tenantID, id)
}
func (a RelationshipAdapter) Find(ctx context.Context, tenantID, sourceEntityID, targetEntityID, relType string) (*types.Relationship, error) {
	return a.S.FindRelationship(ctx, tenantID, sourceEntityID, targetEntityID, relType)
}
func (a RelationshipAdapter) ListByEntity(ctx context.Context, tenantID, entityID string) ([]*types.Relationship, error) {
	return a.S.ListRelationshipsByEntity(ctx, tenantID, entityID)
}
func (a RelationshipAdapter) List(ctx context.Context, q storage.RelationshipQuery) (storage.PaginatedResult[types.Relationship], error) {
	return a.S.ListRelationships(ctx, q)
}

var (
	_ storage.ProfileRepository      = ProfileAdapter{}
	_ storage.PatternRepository      = PatternAdapter{}
	_ storage.EntityRepository       = EntityAdapter{}
	_ storage.RelationshipRepository = RelationshipAdapter{}
)
