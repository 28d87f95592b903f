package types

import "time"

// ProfileFact is a single durable fact the system has learned about a user.
// Verified facts must meet a configured confidence threshold (default 0.7) —
// enforced by ProfileManager, not by the type itself, since the threshold is
// configuration.
type ProfileFact struct {
	ID             string  `json:"id"`
	Text           string  `json:"text"`
	Category       string  `json:"category"`
	SourceMemoryID string  `json:"source_memory_id,omitempty"`
	Confidence     float64 `json:"confidence"`
	Verified       bool    `json:"verified"`
}

// WorkingHours is a free-form description of when a user is typically
// available; kept as a simple struct rather than a timezone-aware schedule
// since the engine never acts on it beyond storing/surfacing it.
type WorkingHours struct {
	Timezone string `json:"timezone,omitempty"`
	Start    string `json:"start,omitempty"` // "09:00"
	End      string `json:"end,omitempty"`   // "17:00"
}

// Profile is per-user durable state, distinct from any single Memory.
type Profile struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"` // unique within tenant

	Name         string `json:"name,omitempty"`
	Role         string `json:"role,omitempty"`
	Organization string `json:"organization,omitempty"`
	Location     string `json:"location,omitempty"`

	Preferences map[string]any `json:"preferences,omitempty"`

	CommunicationStyle string `json:"communication_style,omitempty"`
	TechnicalLevel     string `json:"technical_level,omitempty"`

	Facts       []ProfileFact `json:"facts,omitempty"`
	Interests   []string      `json:"interests,omitempty"`
	WorkingHours *WorkingHours `json:"working_hours,omitempty"`
	CommonTasks []string      `json:"common_tasks,omitempty"`
	ToolsUsed   []string      `json:"tools_used,omitempty"`

	OverallConfidence float64    `json:"overall_confidence"`
	LastVerified      *time.Time `json:"last_verified,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}
