package postgres

// Schema creates every table Hippos needs if it does not already exist.
// Array- and map-valued domain fields are stored as JSONB, Postgres's own
// answer to the JSON-text columns the sqlite backend uses for the same
// fields; JSONB additionally lets admins query into tags/properties with
// the -> and ->> operators outside of Hippos itself.
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
	keywords          JSONB NOT NULL DEFAULT '[]',
	topics            JSONB NOT NULL DEFAULT '[]',
	tags              JSONB NOT NULL DEFAULT '[]',
	embedding         JSONB,
	importance        DOUBLE PRECISION NOT NULL DEFAULT 0,
	confidence        DOUBLE PRECISION NOT NULL DEFAULT 0,
	parent_id         TEXT NOT NULL DEFAULT '',
	related_ids       JSONB NOT NULL DEFAULT '[]',
	supersedes_id     TEXT NOT NULL DEFAULT '',
	content_hash      TEXT NOT NULL DEFAULT '',
	pending_reindex   BOOLEAN NOT NULL DEFAULT FALSE,
	pattern_candidate BOOLEAN NOT NULL DEFAULT FALSE,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL,
	accessed_at       TIMESTAMPTZ NOT NULL,
	expires_at        TIMESTAMPTZ,
	status            TEXT NOT NULL,
	version           BIGINT NOT NULL DEFAULT 0
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
	preferences         JSONB NOT NULL DEFAULT '{}',
	communication_style TEXT NOT NULL DEFAULT '',
	technical_level     TEXT NOT NULL DEFAULT '',
	facts               JSONB NOT NULL DEFAULT '[]',
	interests           JSONB NOT NULL DEFAULT '[]',
	working_hours       JSONB,
	common_tasks        JSONB NOT NULL DEFAULT '[]',
	tools_used          JSONB NOT NULL DEFAULT '[]',
	overall_confidence  DOUBLE PRECISION NOT NULL DEFAULT 0,
	last_verified       TIMESTAMPTZ,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	version             BIGINT NOT NULL DEFAULT 0,
	UNIQUE(tenant_id, user_id)
);

CREATE TABLE IF NOT EXISTS patterns (
	id               TEXT PRIMARY KEY,
	tenant_id        TEXT NOT NULL,
	kind             TEXT NOT NULL,
	name             TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	trigger          TEXT NOT NULL,
	context          TEXT NOT NULL DEFAULT '',
	problem          TEXT NOT NULL DEFAULT '',
	solution         TEXT NOT NULL DEFAULT '',
	examples         JSONB NOT NULL DEFAULT '[]',
	tags             JSONB NOT NULL DEFAULT '[]',
	success_count    INTEGER NOT NULL DEFAULT 0,
	failure_count    INTEGER NOT NULL DEFAULT 0,
	average_outcome  DOUBLE PRECISION NOT NULL DEFAULT 0,
	usage_count      INTEGER NOT NULL DEFAULT 0,
	created_by       TEXT NOT NULL DEFAULT '',
	source_memory_id TEXT NOT NULL DEFAULT '',
	confidence       DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL,
	version          BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_patterns_tenant ON patterns(tenant_id);
CREATE INDEX IF NOT EXISTS idx_patterns_source_memory ON patterns(source_memory_id);

CREATE TABLE IF NOT EXISTS pattern_usage (
	id         TEXT PRIMARY KEY,
	pattern_id TEXT NOT NULL,
	outcome    DOUBLE PRECISION NOT NULL,
	context    TEXT NOT NULL DEFAULT '',
	used_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pattern_usage_pattern ON pattern_usage(pattern_id);

CREATE TABLE IF NOT EXISTS entities (
	id                TEXT PRIMARY KEY,
	tenant_id         TEXT NOT NULL,
	name              TEXT NOT NULL,
	name_fold         TEXT NOT NULL,
	entity_type       TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	properties        JSONB NOT NULL DEFAULT '{}',
	aliases           JSONB NOT NULL DEFAULT '[]',
	embedding         JSONB,
	confidence        DOUBLE PRECISION NOT NULL DEFAULT 0,
	source_memory_ids JSONB NOT NULL DEFAULT '[]',
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL,
	version           BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_entities_tenant_namefold ON entities(tenant_id, name_fold);

CREATE TABLE IF NOT EXISTS relationships (
	id               TEXT PRIMARY KEY,
	tenant_id        TEXT NOT NULL,
	source_entity_id TEXT NOT NULL,
	target_entity_id TEXT NOT NULL,
	type             TEXT NOT NULL,
	strength         DOUBLE PRECISION NOT NULL DEFAULT 0,
	context          TEXT NOT NULL DEFAULT '',
	source_memory_id TEXT NOT NULL DEFAULT '',
	bidirectional    BOOLEAN NOT NULL DEFAULT FALSE,
	inverse          TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL,
	version          BIGINT NOT NULL DEFAULT 0,
	UNIQUE(tenant_id, source_entity_id, target_entity_id, type)
);

CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships(tenant_id, source_entity_id);
CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships(tenant_id, target_entity_id);
`

// SchemaPgvector adds native vector columns alongside the JSONB embedding
// columns above. It only runs after the vector extension itself is
// confirmed present, so a deployment without pgvector keeps working off
// the JSONB embedding and the brute-force index in internal/index.
const SchemaPgvector = `
ALTER TABLE memories ADD COLUMN IF NOT EXISTS embedding_vec vector(1536);
ALTER TABLE entities ADD COLUMN IF NOT EXISTS embedding_vec vector(1536);
CREATE INDEX IF NOT EXISTS idx_memories_embedding_vec ON memories USING ivfflat (embedding_vec vector_cosine_ops) WITH (lists = 100);
CREATE INDEX IF NOT EXISTS idx_entities_embedding_vec ON entities USING ivfflat (embedding_vec vector_cosine_ops) WITH (lists = 100);
`
