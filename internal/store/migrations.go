package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS cache_entries (
	id        TEXT PRIMARY KEY,
	provider  TEXT NOT NULL,
	record    TEXT NOT NULL,
	stored_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS current_pointer (
	slot      INTEGER PRIMARY KEY CHECK (slot = 0),
	record_id TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cache_entries_stored_at ON cache_entries(stored_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
