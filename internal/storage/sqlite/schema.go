package sqlite

// Schema creates every table Hippos needs if it does not already exist.
// Array- and map-valued domain fields are stored as JSON text columns
// rather than normalized join tables, mirroring the teacher's own
// pragmatic choice to keep denormalized JSON columns for fields recall
// never filters on directly (tags, keywords, properties).
const Schema = `
CREATE TABLE IF NOT EXISTS memories (
	id                TEXT PRIMARY KEY,
	tenant_id         TEXT NOT NULL,
	user_id           TEXT NOT NULL,
	kind              TEXT NOT NULL,
	source            TEXT NOT NULL,
	source_id         TEXT NOT NULL DEFAULT '',
	content           TEXT NOT NULL,
	gist              TEXT NOT NULL DEFAULT '',
	full_summary      TEXT NOT NULL DEFAULT '',
	keywords          TEXT NOT NULL DEFAULT '[]',
	topics            TEXT NOT NULL DEFAULT '[]',
	tags              TEXT NOT NULL DEFAULT '[]',
	embedding         TEXT,
	importance        REAL NOT NULL DEFAULT 0,
	confidence        REAL NOT NULL DEFAULT 0,
	parent_id         TEXT NOT NULL DEFAULT '',
	related_ids       TEXT NOT NULL DEFAULT '[]',
	supersedes_id     TEXT NOT NULL DEFAULT '',
	content_hash      TEXT NOT NULL DEFAULT '',
	pending_reindex   INTEGER NOT NULL DEFAULT 0,
	pattern_candidate INTEGER NOT NULL DEFAULT 0,
	created_at        TEXT NOT NULL,
	updated_at        TEXT NOT NULL,
	accessed_at       TEXT NOT NULL,
	expires_at        TEXT,
	status            TEXT NOT NULL,
	version           INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_memories_tenant_user ON memories(tenant_id, user_id);
CREATE INDEX IF NOT EXISTS idx_memories_tenant_status ON memories(tenant_id, status);
CREATE INDEX IF NOT EXISTS idx_memories_tenant_source ON memories(tenant_id, user_id, source_id);
CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at);
CREATE INDEX IF NOT EXISTS idx_memories_accessed_at ON memories(accessed_at);
CREATE INDEX IF NOT EXISTS idx_memories_supersedes ON memories(supersedes_id);

CREATE TABLE IF NOT EXISTS profiles (
	id                  TEXT PRIMARY KEY,
	tenant_id           TEXT NOT NULL,
	user_id             TEXT NOT NULL,
	name                TEXT NOT NULL DEFAULT '',
	role                TEXT NOT NULL DEFAULT '',
	organization        TEXT NOT NULL DEFAULT '',
	location            TEXT NOT NULL DEFAULT '',
	preferences         TEXT NOT NULL DEFAULT '{}',
	communication_style TEXT NOT NULL DEFAULT '',
	technical_level     TEXT NOT NULL DEFAULT '',
	facts               TEXT NOT NULL DEFAULT '[]',
	interests           TEXT NOT NULL DEFAULT '[]',
	working_hours       TEXT,
	common_tasks        TEXT NOT NULL DEFAULT '[]',
	tools_used          TEXT NOT NULL DEFAULT '[]',
	overall_confidence  REAL NOT NULL DEFAULT 0,
	last_verified       TEXT,
	created_at          TEXT NOT NULL,
	updated_at          TEXT NOT NULL,
	version             INTEGER NOT NULL DEFAULT 0,
	UNIQUE(tenant_id, user_id)
);

CREATE TABLE IF NOT EXISTS patterns (
	id              TEXT PRIMARY KEY,
	tenant_id       TEXT NOT NULL,
	kind            TEXT NOT NULL,
	name            TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	trigger         TEXT NOT NULL,
	context         TEXT NOT NULL DEFAULT '',
	problem         TEXT NOT NULL DEFAULT '',
	solution        TEXT NOT NULL DEFAULT '',
	examples        TEXT NOT NULL DEFAULT '[]',
	tags            TEXT NOT NULL DEFAULT '[]',
	success_count   INTEGER NOT NULL DEFAULT 0,
	failure_count   INTEGER NOT NULL DEFAULT 0,
	average_outcome REAL NOT NULL DEFAULT 0,
	usage_count     INTEGER NOT NULL DEFAULT 0,
	created_by      TEXT NOT NULL DEFAULT '',
	source_memory_id TEXT NOT NULL DEFAULT '',
	confidence      REAL NOT NULL DEFAULT 0,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL,
	version         INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_patterns_tenant ON patterns(tenant_id);
CREATE INDEX IF NOT EXISTS idx_patterns_source_memory ON patterns(source_memory_id);

CREATE TABLE IF NOT EXISTS pattern_usage (
	id         TEXT PRIMARY KEY,
	pattern_id TEXT NOT NULL,
	outcome    REAL NOT NULL,
	context    TEXT NOT NULL DEFAULT '',
	used_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pattern_usage_pattern ON pattern_usage(pattern_id);

CREATE TABLE IF NOT EXISTS entities (
	id                TEXT PRIMARY KEY,
	tenant_id         TEXT NOT NULL,
	name              TEXT NOT NULL,
	name_fold         TEXT NOT NULL,
	entity_type       TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	properties        TEXT NOT NULL DEFAULT '{}',
	aliases           TEXT NOT NULL DEFAULT '[]',
	embedding         TEXT,
	confidence        REAL NOT NULL DEFAULT 0,
	source_memory_ids TEXT NOT NULL DEFAULT '[]',
	created_at        TEXT NOT NULL,
	updated_at        TEXT NOT NULL,
	version           INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_entities_tenant_namefold ON entities(tenant_id, name_fold);

CREATE TABLE IF NOT EXISTS relationships (
	id               TEXT PRIMARY KEY,
	tenant_id        TEXT NOT NULL,
	source_entity_id TEXT NOT NULL,
	target_entity_id TEXT NOT NULL,
	type             TEXT NOT NULL,
	strength         REAL NOT NULL DEFAULT 0,
	context          TEXT NOT NULL DEFAULT '',
	source_memory_id TEXT NOT NULL DEFAULT '',
	bidirectional    INTEGER NOT NULL DEFAULT 0,
	inverse          TEXT NOT NULL DEFAULT '',
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL,
	version          INTEGER NOT NULL DEFAULT 0,
	UNIQUE(tenant_id, source_entity_id, target_entity_id, type)
);

CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships(tenant_id, source_entity_id);
CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships(tenant_id, target_entity_id);
`
