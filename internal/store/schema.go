package store

// schemaVersion is recorded in metadata when the database is opened.
const schemaVersion = "1"

// Metadata keys maintained by the store.
const (
	MetaSchemaVersion = "schema_version"
	MetaLastProject   = "last_project"
)

// schema contains the SQL statements to create the resolution history schema.
const schema = `
-- One row per resolution attempt
CREATE TABLE IF NOT EXISTS resolutions (
    id           TEXT PRIMARY KEY,
    project      TEXT,
    level        TEXT NOT NULL,
    kind         TEXT,
    main_class   TEXT,
    program_args TEXT,
    error        TEXT,
    created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_resolutions_created ON resolutions(created_at);
CREATE INDEX IF NOT EXISTS idx_resolutions_project ON resolutions(project);

-- Requested handles, in request order
CREATE TABLE IF NOT EXISTS selectors (
    resolution_id TEXT NOT NULL,
    position      INTEGER NOT NULL,
    handle        TEXT NOT NULL,
    PRIMARY KEY (resolution_id, position),
    FOREIGN KEY (resolution_id) REFERENCES resolutions(id) ON DELETE CASCADE
);

-- Metadata table
CREATE TABLE IF NOT EXISTS metadata (
    key   TEXT PRIMARY KEY,
    value TEXT
);
`
