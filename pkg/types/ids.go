package types

import "github.com/google/uuid"

// NewID returns a fresh opaque identifier, prefixed so that IDs are
// self-describing in logs and database dumps (e.g. "mem_3f9a...").
// The prefix is cosmetic only — callers must never parse it.
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
