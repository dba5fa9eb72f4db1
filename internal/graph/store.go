// Package graph persists the hybrid knowledge representation in one
// SQLite database: chunk nodes with embeddings, file summaries,
// structural entities with typed edges, and heuristic bridge edges
// between the two sides. A sqlite-vec virtual table serves as the
// nearest-neighbor index.
package graph

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// ErrNotConnected indicates the store connection is absent or unhealthy.
var ErrNotConnected = errors.New("store not connected")

// Store is the persistence surface consumed by the builders, the linker,
// and the query engine.
type Store interface {
	Ping() error
	Reconnect() error

	ReplaceChunks(chunks []ChunkRecord) error
	InsertEmbeddings(chunkIDs []int64, embeddings [][]float32) error
	EnsureVectorIndex() error
	UpsertFiles(files []FileRecord) error

	UpsertEntities(entities []EntityRecord) (int, error)
	UpsertEntityEdges(edges []EntityEdge) (int, error)

	ReplaceBridges(buildID string) (int, error)

	Search(embedding []float32, k int) ([]SearchResult, error)
	EntitiesForChunks(chunkIDs []int64) ([]EntityRecord, error)
	RelationsAmong(entityIDs []int64, limit int) ([]Relation, error)
	FileSummaries(paths []string) ([]FileRecord, error)
	ListFiles() ([]FileRecord, error)

	Stats() (*Stats, error)
	ClearAll() (nodes int, relations int, err error)
	Close() error
}

// SQLiteStore implements Store backed by SQLite + sqlite-vec.
type SQLiteStore struct {
	db   *sql.DB
	path string
	dim  int
}

// Open creates or opens the database at path and initializes the schema.
// dim is the embedding dimensionality declared on the vector index.
func Open(path string, dim int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path, dim: dim}, nil
}

// Ping verifies the connection is live and the schema reachable.
func (s *SQLiteStore) Ping() error {
	if s.db == nil {
		return ErrNotConnected
	}
	var one int
	if err := s.db.QueryRow("SELECT 1").Scan(&one); err != nil || one != 1 {
		return fmt.Errorf("%w: health check failed", ErrNotConnected)
	}
	return nil
}

// Reconnect closes and reopens the underlying database once.
func (s *SQLiteStore) Reconnect() error {
	if s.db != nil {
		s.db.Close()
	}
	db, err := sql.Open("sqlite3", s.path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return fmt.Errorf("%w: reconnect: %v", ErrNotConnected, err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return fmt.Errorf("%w: reconnect: %v", ErrNotConnected, err)
	}
	s.db = db
	return nil
}

// ReplaceChunks clears all prior chunk nodes, their vector rows, and
// their bridges, then inserts the fresh corpus. Chunk IDs come from the
// chunker and are stable within a build.
func (s *SQLiteStore) ReplaceChunks(chunks []ChunkRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM bridges"); err != nil {
		return err
	}
	if err := deleteVecRows(tx); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM chunks"); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO chunks (id, file_path, file_name, language, text, length, start_line, end_line, root_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range chunks {
		_, err := stmt.Exec(c.ID, c.FilePath, c.FileName, c.Language, c.Text,
			c.Length, c.StartLine, c.EndLine, c.RootPath)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// deleteVecRows empties the vector table if it exists. The table may not
// have been created yet on a fresh store.
func deleteVecRows(tx *sql.Tx) error {
	var name string
	err := tx.QueryRow("SELECT name FROM sqlite_master WHERE name = 'vec_chunks'").Scan(&name)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = tx.Exec("DELETE FROM vec_chunks")
	return err
}

// EnsureVectorIndex creates the nearest-neighbor index idempotently.
// An "already exists" error is logged and swallowed.
func (s *SQLiteStore) EnsureVectorIndex() error {
	if _, err := s.db.Exec(vectorIndexDDL(s.dim)); err != nil {
		if isAlreadyExists(err) {
			fmt.Fprintf(os.Stderr, "warning: vector index already exists: %v\n", err)
			return nil
		}
		return fmt.Errorf("create vector index: %w", err)
	}
	return nil
}

// InsertEmbeddings stores one embedding per chunk ID.
func (s *SQLiteStore) InsertEmbeddings(chunkIDs []int64, embeddings [][]float32) error {
	if len(chunkIDs) != len(embeddings) {
		return fmt.Errorf("mismatched chunk IDs (%d) and embeddings (%d)", len(chunkIDs), len(embeddings))
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, id := range chunkIDs {
		blob, err := sqlite_vec.SerializeFloat32(embeddings[i])
		if err != nil {
			return fmt.Errorf("serialize embedding for chunk %d: %w", id, err)
		}
		// vec0 has no conflict handling; clear any stale row first.
		if _, err := tx.Exec("DELETE FROM vec_chunks WHERE chunk_id = ?", id); err != nil {
			return fmt.Errorf("replace embedding for chunk %d: %w", id, err)
		}
		if _, err := stmt.Exec(id, blob); err != nil {
			return fmt.Errorf("insert embedding for chunk %d: %w", id, err)
		}
	}
	return tx.Commit()
}

// UpsertFiles creates or merges File nodes by path, recomputing the
// chunk-count and max-line rollups on every re-association.
func (s *SQLiteStore) UpsertFiles(files []FileRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO files (path, name, ext, language, chunk_count, max_end_line)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name = excluded.name,
			ext = excluded.ext,
			language = excluded.language,
			chunk_count = excluded.chunk_count,
			max_end_line = excluded.max_end_line
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range files {
		if _, err := stmt.Exec(f.Path, f.Name, f.Ext, f.Language, f.ChunkCount, f.MaxEndLine); err != nil {
			return fmt.Errorf("upsert file %s: %w", f.Path, err)
		}
	}
	return tx.Commit()
}

// UpsertEntities persists extractor output verbatim, merged by the
// (name, type) natural key. Returns the number of rows written.
func (s *SQLiteStore) UpsertEntities(entities []EntityRecord) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO entities (name, type, norm_name, properties)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name, type) DO UPDATE SET
			norm_name = excluded.norm_name,
			properties = excluded.properties
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n := 0
	for _, e := range entities {
		props := e.Properties
		if props == "" {
			props = "{}"
		}
		if _, err := stmt.Exec(e.Name, e.Type, normalizeIdentifier(e.Name, e.Type), props); err != nil {
			return n, fmt.Errorf("upsert entity %s:%s: %w", e.Type, e.Name, err)
		}
		n++
	}
	return n, tx.Commit()
}

// UpsertEntityEdges persists typed entity edges addressed by natural keys.
// Edges whose endpoints are missing are skipped. Returns edges created.
func (s *SQLiteStore) UpsertEntityEdges(edges []EntityEdge) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO entity_edges (source_id, target_id, type)
		SELECT s.id, t.id, ?
		FROM entities s, entities t
		WHERE s.name = ? AND s.type = ? AND t.name = ? AND t.type = ?
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	created := 0
	for _, e := range edges {
		res, err := stmt.Exec(e.Type, e.SourceName, e.SourceType, e.TargetName, e.TargetType)
		if err != nil {
			return created, fmt.Errorf("upsert edge %s: %w", e.Type, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			created += int(n)
		}
	}
	return created, tx.Commit()
}

// ReplaceBridges recomputes all heuristic bridge edges in the storage
// layer as declarative joins, stamped with the given build generation ID.
// Prior bridges are dropped first, so re-running never accumulates edges.
func (s *SQLiteStore) ReplaceBridges(buildID string) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM bridges WHERE origin = ?", OriginHeuristic); err != nil {
		return 0, err
	}

	// REPRESENTS: the entity's identifier, raw or normalized, occurs as a
	// case-sensitive substring of the chunk text. instr() keeps the match
	// case-sensitive where LIKE would not.
	res, err := tx.Exec(`
		INSERT OR IGNORE INTO bridges (chunk_id, entity_id, type, origin, build_id)
		SELECT c.id, e.id, ?, ?, ?
		FROM chunks c
		JOIN entities e ON e.type IN (?, ?)
		WHERE (length(e.name) > 0 AND instr(c.text, e.name) > 0)
		   OR (length(e.norm_name) > 0 AND instr(c.text, e.norm_name) > 0)
	`, BridgeRepresents, OriginHeuristic, buildID, TypeClass, TypeFunction)
	if err != nil {
		return 0, fmt.Errorf("link represents: %w", err)
	}
	created, _ := res.RowsAffected()

	// PART_OF_FILE: a chunk whose file contains a class entity (via the
	// File entity's CONTAINS edge) is linked to that class.
	res, err = tx.Exec(`
		INSERT OR IGNORE INTO bridges (chunk_id, entity_id, type, origin, build_id)
		SELECT c.id, cl.id, ?, ?, ?
		FROM chunks c
		JOIN entities f ON f.type = ? AND length(f.name) > 0 AND instr(c.file_path, f.name) > 0
		JOIN entity_edges ed ON ed.source_id = f.id AND ed.type = ?
		JOIN entities cl ON cl.id = ed.target_id AND cl.type = ?
	`, BridgePartOfFile, OriginHeuristic, buildID, TypeFile, EdgeContains, TypeClass)
	if err != nil {
		return 0, fmt.Errorf("link part-of-file: %w", err)
	}
	n, _ := res.RowsAffected()
	created += n

	return int(created), tx.Commit()
}

// Search returns the k nearest chunks by the index's declared metric,
// ordered by descending similarity.
func (s *SQLiteStore) Search(embedding []float32, k int) ([]SearchResult, error) {
	// No vector index yet means no hits, not an error.
	var name string
	err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE name = 'vec_chunks'").Scan(&name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, fmt.Errorf("serialize query embedding: %w", err)
	}
	rows, err := s.db.Query(`
		SELECT v.chunk_id, v.distance,
		       c.file_path, c.file_name, c.language, c.text, c.length,
		       c.start_line, c.end_line, c.root_path
		FROM vec_chunks v
		JOIN chunks c ON c.id = v.chunk_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, blob, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var distance float64
		err := rows.Scan(&r.Chunk.ID, &distance,
			&r.Chunk.FilePath, &r.Chunk.FileName, &r.Chunk.Language,
			&r.Chunk.Text, &r.Chunk.Length,
			&r.Chunk.StartLine, &r.Chunk.EndLine, &r.Chunk.RootPath)
		if err != nil {
			return nil, err
		}
		// Cosine distance; higher similarity means closer.
		r.Similarity = 1 - distance
		results = append(results, r)
	}
	return results, rows.Err()
}

// EntitiesForChunks returns the distinct entities reachable from the given
// chunks via bridge edges.
func (s *SQLiteStore) EntitiesForChunks(chunkIDs []int64) ([]EntityRecord, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`
		SELECT DISTINCT e.id, e.name, e.type, e.properties
		FROM bridges b
		JOIN entities e ON e.id = b.entity_id
		WHERE b.chunk_id IN (%s)
		ORDER BY e.type, e.name
	`, placeholders(len(chunkIDs)))
	rows, err := s.db.Query(query, int64Args(chunkIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []EntityRecord
	for rows.Next() {
		var e EntityRecord
		if err := rows.Scan(&e.ID, &e.Name, &e.Type, &e.Properties); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// RelationsAmong returns typed edges whose endpoints both lie in the given
// entity set, bounded to limit rows to cap fan-out.
func (s *SQLiteStore) RelationsAmong(entityIDs []int64, limit int) ([]Relation, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	ph := placeholders(len(entityIDs))
	query := fmt.Sprintf(`
		SELECT src.name, tgt.name, ed.type
		FROM entity_edges ed
		JOIN entities src ON src.id = ed.source_id
		JOIN entities tgt ON tgt.id = ed.target_id
		WHERE ed.source_id IN (%s) AND ed.target_id IN (%s)
		LIMIT ?
	`, ph, ph)
	args := append(int64Args(entityIDs), int64Args(entityIDs)...)
	args = append(args, limit)
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relations []Relation
	for rows.Next() {
		var r Relation
		if err := rows.Scan(&r.Source, &r.Target, &r.Type); err != nil {
			return nil, err
		}
		relations = append(relations, r)
	}
	return relations, rows.Err()
}

// FileSummaries returns File nodes for the given paths.
func (s *SQLiteStore) FileSummaries(paths []string) ([]FileRecord, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`
		SELECT path, name, ext, language, chunk_count, max_end_line
		FROM files WHERE path IN (%s) ORDER BY path
	`, placeholders(len(paths)))
	args := make([]any, len(paths))
	for i, p := range paths {
		args[i] = p
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		var f FileRecord
		if err := rows.Scan(&f.Path, &f.Name, &f.Ext, &f.Language, &f.ChunkCount, &f.MaxEndLine); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// ListFiles returns every indexed file ordered by path.
func (s *SQLiteStore) ListFiles() ([]FileRecord, error) {
	rows, err := s.db.Query(`
		SELECT path, name, ext, language, chunk_count, max_end_line
		FROM files ORDER BY path
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		var f FileRecord
		if err := rows.Scan(&f.Path, &f.Name, &f.Ext, &f.Language, &f.ChunkCount, &f.MaxEndLine); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// Stats gathers node and relationship counts by label and type.
func (s *SQLiteStore) Stats() (*Stats, error) {
	st := &Stats{
		NodeLabels:    make(map[string]int),
		RelationTypes: make(map[string]int),
	}

	var chunkCount, fileCount int
	if err := s.db.QueryRow("SELECT count(*) FROM chunks").Scan(&chunkCount); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow("SELECT count(*) FROM files").Scan(&fileCount); err != nil {
		return nil, err
	}
	if chunkCount > 0 {
		st.NodeLabels["CodeChunk"] = chunkCount
	}
	if fileCount > 0 {
		st.NodeLabels[TypeFile] = fileCount
	}
	st.TotalNodes = chunkCount + fileCount

	rows, err := s.db.Query("SELECT type, count(*) FROM entities GROUP BY type")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			rows.Close()
			return nil, err
		}
		st.NodeLabels[label] += n
		st.TotalNodes += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// File→Chunk containment is implicit in the chunk's file reference.
	var containsChunk int
	err = s.db.QueryRow(`
		SELECT count(*) FROM chunks c JOIN files f ON f.path = c.file_path
	`).Scan(&containsChunk)
	if err != nil {
		return nil, err
	}
	if containsChunk > 0 {
		st.RelationTypes["CONTAINS_CHUNK"] = containsChunk
		st.TotalRelations += containsChunk
	}

	rows, err = s.db.Query("SELECT type, count(*) FROM entity_edges GROUP BY type")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			rows.Close()
			return nil, err
		}
		st.RelationTypes[t] += n
		st.TotalRelations += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query("SELECT type, count(*) FROM bridges GROUP BY type")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			rows.Close()
			return nil, err
		}
		st.RelationTypes[t] += n
		st.TotalRelations += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var name string
	err = s.db.QueryRow("SELECT name FROM sqlite_master WHERE name = 'vec_chunks'").Scan(&name)
	if err == nil {
		st.HasVectorIndex = true
		if err := s.db.QueryRow("SELECT count(*) FROM vec_chunks").Scan(&st.VectorRowCount); err != nil {
			return nil, err
		}
	} else if err != sql.ErrNoRows {
		return nil, err
	}

	return st, nil
}

// ClearAll deletes every node and relationship, returning the counts that
// were removed. Confirmation is the caller's responsibility.
func (s *SQLiteStore) ClearAll() (int, int, error) {
	st, err := s.Stats()
	if err != nil {
		return 0, 0, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM bridges"); err != nil {
		return 0, 0, err
	}
	if err := deleteVecRows(tx); err != nil {
		return 0, 0, err
	}
	for _, table := range []string{"entity_edges", "entities", "chunks", "files"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return 0, 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return st.TotalNodes, st.TotalRelations, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// normalizeIdentifier strips known scaffolding from extractor identifiers
// before substring matching: a trailing "()" on functions, a leading or
// trailing "Class" on classes. A "Class" in the middle of a name is part
// of the identifier and stays.
func normalizeIdentifier(name, typ string) string {
	n := name
	switch typ {
	case TypeFunction:
		n = strings.TrimSuffix(n, "()")
	case TypeClass:
		n = strings.TrimSuffix(n, "Class")
		n = strings.TrimPrefix(n, "Class")
	}
	return strings.TrimSpace(n)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
