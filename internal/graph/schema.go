package graph

import (
	"database/sql"
	"fmt"
	"strings"
)

const ddl = `
PRAGMA journal_mode=WAL;
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS chunks (
    id         INTEGER PRIMARY KEY,
    file_path  TEXT NOT NULL,
    file_name  TEXT NOT NULL DEFAULT '',
    language   TEXT NOT NULL DEFAULT '',
    text       TEXT NOT NULL,
    length     INTEGER NOT NULL,
    start_line INTEGER NOT NULL,
    end_line   INTEGER NOT NULL,
    root_path  TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS chunks_file_path ON chunks(file_path);

CREATE TABLE IF NOT EXISTS files (
    path         TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    ext          TEXT NOT NULL DEFAULT '',
    language     TEXT NOT NULL DEFAULT '',
    chunk_count  INTEGER NOT NULL DEFAULT 0,
    max_end_line INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS entities (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    name       TEXT NOT NULL,
    type       TEXT NOT NULL,
    norm_name  TEXT NOT NULL DEFAULT '',
    properties TEXT NOT NULL DEFAULT '{}',
    UNIQUE(name, type)
);

CREATE TABLE IF NOT EXISTS entity_edges (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    source_id INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
    target_id INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
    type      TEXT NOT NULL,
    UNIQUE(source_id, target_id, type)
);

CREATE TABLE IF NOT EXISTS bridges (
    chunk_id  INTEGER NOT NULL REFERENCES chunks(id) ON DELETE CASCADE,
    entity_id INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
    type      TEXT NOT NULL,
    origin    TEXT NOT NULL DEFAULT 'heuristic',
    build_id  TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (chunk_id, entity_id, type)
);
`

// initSchema creates the relational tables if they don't exist. The vector
// table is created separately because its dimension is configuration.
func initSchema(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}

// vectorIndexDDL builds the vec0 virtual table statement for the given
// embedding dimension, with cosine as the declared similarity metric.
func vectorIndexDDL(dim int) string {
	return fmt.Sprintf(
		"CREATE VIRTUAL TABLE vec_chunks USING vec0(chunk_id INTEGER PRIMARY KEY, embedding float[%d] distance_metric=cosine)",
		dim,
	)
}

// isAlreadyExists recognizes the "index already exists" class of errors.
func isAlreadyExists(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "already exists")
}
