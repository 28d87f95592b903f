package types

import "time"

// PatternKind classifies the nature of a distilled pattern.
type PatternKind string

const (
	PatternProblemSolution PatternKind = "problem_solution"
	PatternWorkflow        PatternKind = "workflow"
	PatternBestPractice    PatternKind = "best_practice"
	PatternCommonError     PatternKind = "common_error"
	PatternSkill           PatternKind = "skill"
)

// Pattern is a reusable piece of distilled knowledge, either authored
// directly or auto-discovered from a high-importance Memory.
type Pattern struct {
	ID       string      `json:"id"`
	TenantID string      `json:"tenant_id"`
	Kind     PatternKind `json:"kind"`

	Name        string `json:"name"`
	Description string `json:"description"`
	// Trigger is matched against free-form context by keyword overlap.
	Trigger  string `json:"trigger"`
	Context  string `json:"context,omitempty"`
	Problem  string `json:"problem,omitempty"`
	Solution string `json:"solution,omitempty"`

	Examples []string `json:"examples,omitempty"`
	Tags     []string `json:"tags,omitempty"`

	SuccessCount   int     `json:"success_count"`
	FailureCount   int     `json:"failure_count"`
	AverageOutcome float64 `json:"average_outcome"`
	UsageCount     int     `json:"usage_count"`

	CreatedBy      string  `json:"created_by,omitempty"`
	SourceMemoryID string  `json:"source_memory_id,omitempty"`
	Confidence     float64 `json:"confidence"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// PatternUsage is an audit row recorded alongside the rolled-up
// success/failure counters each time an outcome is recorded, so operators
// can see why a pattern's average moved.
type PatternUsage struct {
	ID        string    `json:"id"`
	PatternID string    `json:"pattern_id"`
	Outcome   float64   `json:"outcome"`
	Context   string    `json:"context,omitempty"`
	UsedAt    time.Time `json:"used_at"`
}
