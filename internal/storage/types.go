// Package storage defines the repository contracts the engine depends on.
// It mirrors the teacher's Interface Segregation style: small, composable
// interfaces, one per entity kind, each implemented independently by the
// sqlite, postgres, and memstore backends.
package storage

import "time"

// PaginationMax is the hard cap on page size enforced by Normalize and by
// every backend's List methods. config.Config's Storage.PaginationMax
// (HIPPOS_PAGINATION_MAX) is loaded but no query path reads it, so this
// constant is the cap in effect.
const PaginationMax = 100

// SortField enumerates the columns recall/list callers may sort by.
type SortField string

const (
	SortCreatedAt  SortField = "created_at"
	SortUpdatedAt  SortField = "updated_at"
	SortAccessedAt SortField = "accessed_at"
	SortImportance SortField = "importance"
)

// SortOrder is ascending or descending.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// TimeRange bounds a time-range predicate; a zero value on either side
// means that side is unconstrained.
type TimeRange struct {
	After  time.Time
	Before time.Time
}

// MemoryQuery describes a List/Count call against MemoryRepository. TenantID
// is mandatory and is always applied before any other predicate.
type MemoryQuery struct {
	TenantID string
	UserID   string // optional

	IDs      []string // optional id-set filter
	Kinds    []string // optional kind filter
	Statuses []string // optional status filter

	// Contains is a full-text "contains" predicate over content/gist/tags.
	Contains string

	Created TimeRange

	SortBy    SortField
	SortOrder SortOrder

	Limit  int
	Offset int
}

// Normalize applies defaults and clamps Limit to PaginationMax.
func (q *MemoryQuery) Normalize() {
	if q.SortBy == "" {
		q.SortBy = SortCreatedAt
	}
	if q.SortOrder == "" {
		q.SortOrder = Desc
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > PaginationMax {
		q.Limit = PaginationMax
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}

// PaginatedResult is a generic page of results with a total count for
// callers that need to render pagination controls.
type PaginatedResult[T any] struct {
	Items  []T
	Total  int
	Limit  int
	Offset int
}
