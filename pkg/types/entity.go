package types

import "time"

// EntityType is a light classification for knowledge-graph nodes. Unlike
// memento's 20+ type catalog, Hippos keeps this open (a plain string) since
// the spec does not mandate an enumerated set — callers are free to use
// "person", "tool", "concept", etc.
type EntityType = string

const (
	EntityPerson  EntityType = "person"
	EntityTool    EntityType = "tool"
	EntityConcept EntityType = "concept"
	EntityProject EntityType = "project"
	EntityOther   EntityType = "other"
)

// Entity is a node in the lightweight knowledge graph extracted from
// memories. Entities never hold pointers to other entities; all
// cross-references are by id, resolved on demand by EntityManager.
type Entity struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"`
	Name       string         `json:"name"`
	EntityType EntityType     `json:"entity_type"`
	Description string        `json:"description,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Aliases    []string       `json:"aliases,omitempty"`
	Embedding  []float32      `json:"embedding,omitempty"`
	Confidence float64        `json:"confidence"`

	SourceMemoryIDs []string `json:"source_memory_ids,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}
