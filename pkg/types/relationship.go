package types

import "time"

// RelationshipType names the edge kind between two entities. Kept open
// (a plain string) rather than a closed enum so EntityManager's rule-based
// extraction can introduce new verbs without a type-system change.
type RelationshipType = string

const (
	RelKnows      RelationshipType = "knows"
	RelWorksOn    RelationshipType = "works_on"
	RelPartOf     RelationshipType = "part_of"
	RelUses       RelationshipType = "uses"
	RelDependsOn  RelationshipType = "depends_on"
	RelBelongsTo  RelationshipType = "belongs_to"
)

// RelationshipMetadata carries bidirectionality info, mirrored from the
// teacher's knowledge-graph model: most extracted relationships are
// directional ("X uses Y"), but a few (e.g. "knows") are naturally symmetric.
type RelationshipMetadata struct {
	Bidirectional bool   `json:"bidirectional"`
	Inverse       string `json:"inverse,omitempty"`
}

// Relationship is an edge in the knowledge graph. (TenantID, SourceEntityID,
// TargetEntityID, Type) is unique per tenant — a second detection strengthens
// the existing edge instead of creating a duplicate.
type Relationship struct {
	ID             string  `json:"id"`
	TenantID       string  `json:"tenant_id"`
	SourceEntityID string  `json:"source_entity_id"`
	TargetEntityID string  `json:"target_entity_id"`
	Type           RelationshipType `json:"type"`
	Strength       float64 `json:"strength"` // in [0,1]
	Context        string  `json:"context,omitempty"`
	SourceMemoryID string  `json:"source_memory_id"`

	Metadata RelationshipMetadata `json:"metadata"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}
