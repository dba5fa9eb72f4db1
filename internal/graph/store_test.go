package graph

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 4

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"), testDim)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func testChunks() []ChunkRecord {
	return []ChunkRecord{
		{ID: 0, FilePath: "src/parser.go", FileName: "parser.go", Language: "go",
			Text: "type Parser struct {\n\tsrc string\n}", Length: 34, StartLine: 1, EndLine: 3},
		{ID: 1, FilePath: "src/parser.go", FileName: "parser.go", Language: "go",
			Text: "func Parse(src string) error { return nil }", Length: 43, StartLine: 5, EndLine: 5},
		{ID: 2, FilePath: "src/util.go", FileName: "util.go", Language: "go",
			Text: "func clamp(n int) int { return n }", Length: 34, StartLine: 1, EndLine: 1},
	}
}

func TestPingAndReconnect(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.Ping())
	require.NoError(t, st.Reconnect())
	require.NoError(t, st.Ping())
}

func TestReplaceChunksIsIdempotent(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.ReplaceChunks(testChunks()))
	require.NoError(t, st.ReplaceChunks(testChunks()))

	stats, err := st.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.NodeLabels["CodeChunk"])
}

func TestSearchReturnsNearestFirst(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.ReplaceChunks(testChunks()))
	require.NoError(t, st.EnsureVectorIndex())
	// Creating the index twice is not an error.
	require.NoError(t, st.EnsureVectorIndex())

	require.NoError(t, st.InsertEmbeddings(
		[]int64{0, 1, 2},
		[][]float32{
			{1, 0, 0, 0},
			{0, 1, 0, 0},
			{0.9, 0.1, 0, 0},
		},
	))

	results, err := st.Search([]float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(0), results[0].Chunk.ID)
	assert.Equal(t, int64(2), results[1].Chunk.ID)
	assert.Greater(t, results[0].Similarity, results[1].Similarity)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)

	// k larger than the corpus returns everything.
	results, err = st.Search([]float32{1, 0, 0, 0}, 50)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearchWithoutIndexReturnsNothing(t *testing.T) {
	st := openTestStore(t)
	results, err := st.Search([]float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestInsertEmbeddingsMismatch(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.EnsureVectorIndex())
	err := st.InsertEmbeddings([]int64{0, 1}, [][]float32{{1, 0, 0, 0}})
	assert.ErrorContains(t, err, "mismatched")
}

func TestUpsertFilesMergesByPath(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.UpsertFiles([]FileRecord{
		{Path: "src/parser.go", Name: "parser.go", Ext: ".go", Language: "go", ChunkCount: 2, MaxEndLine: 5},
	}))
	require.NoError(t, st.UpsertFiles([]FileRecord{
		{Path: "src/parser.go", Name: "parser.go", Ext: ".go", Language: "go", ChunkCount: 3, MaxEndLine: 9},
	}))

	files, err := st.ListFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, 3, files[0].ChunkCount)
	assert.Equal(t, 9, files[0].MaxEndLine)
}

func TestUpsertEntitiesNaturalKey(t *testing.T) {
	st := openTestStore(t)

	_, err := st.UpsertEntities([]EntityRecord{
		{Name: "Parser", Type: TypeClass},
		{Name: "Parser", Type: TypeClass, Properties: `{"lang":"go"}`},
		{Name: "Parser", Type: TypeFunction},
	})
	require.NoError(t, err)

	stats, err := st.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.NodeLabels[TypeClass])
	assert.Equal(t, 1, stats.NodeLabels[TypeFunction])
}

func TestUpsertEntityEdges(t *testing.T) {
	st := openTestStore(t)
	_, err := st.UpsertEntities([]EntityRecord{
		{Name: "parser.go", Type: TypeFile},
		{Name: "Parser", Type: TypeClass},
	})
	require.NoError(t, err)

	edge := EntityEdge{
		SourceName: "parser.go", SourceType: TypeFile,
		TargetName: "Parser", TargetType: TypeClass,
		Type: EdgeContains,
	}
	created, err := st.UpsertEntityEdges([]EntityEdge{edge})
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	// Re-inserting the same edge is a no-op.
	created, err = st.UpsertEntityEdges([]EntityEdge{edge})
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	// Edges with a missing endpoint are skipped, not an error.
	created, err = st.UpsertEntityEdges([]EntityEdge{{
		SourceName: "ghost.go", SourceType: TypeFile,
		TargetName: "Parser", TargetType: TypeClass,
		Type: EdgeContains,
	}})
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestReplaceBridges(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.ReplaceChunks(testChunks()))

	_, err := st.UpsertEntities([]EntityRecord{
		{Name: "Parser", Type: TypeClass},
		{Name: "Parse()", Type: TypeFunction}, // normalized to "Parse"
		{Name: "parser", Type: TypeClass},     // wrong case: must not match
		{Name: "parser.go", Type: TypeFile},
	})
	require.NoError(t, err)
	_, err = st.UpsertEntityEdges([]EntityEdge{{
		SourceName: "parser.go", SourceType: TypeFile,
		TargetName: "Parser", TargetType: TypeClass,
		Type: EdgeContains,
	}})
	require.NoError(t, err)

	count, err := st.ReplaceBridges("build-1")
	require.NoError(t, err)
	// REPRESENTS: Parser in chunk 0, Parse in chunks 0 and 1 ("Parser"
	// contains "Parse"). PART_OF_FILE: chunks 0 and 1 to class Parser.
	assert.Equal(t, 5, count)

	// Re-linking replaces instead of accumulating.
	again, err := st.ReplaceBridges("build-2")
	require.NoError(t, err)
	assert.Equal(t, count, again)

	entities, err := st.EntitiesForChunks([]int64{0})
	require.NoError(t, err)
	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Name
	}
	assert.ElementsMatch(t, []string{"Parser", "Parse()"}, names)

	// The wrong-case entity matched nothing.
	entities, err = st.EntitiesForChunks([]int64{2})
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestReplaceBridgesMatchesRawIdentifier(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.ReplaceChunks([]ChunkRecord{
		{ID: 0, FilePath: "src/registry.go", FileName: "registry.go", Language: "go",
			Text: "type BaseClassRegistry struct{}", Length: 31, StartLine: 1, EndLine: 1},
	}))

	// "Class" in the middle of the name is part of the identifier; the
	// raw name must still link to the chunk that contains it.
	_, err := st.UpsertEntities([]EntityRecord{{Name: "BaseClassRegistry", Type: TypeClass}})
	require.NoError(t, err)

	count, err := st.ReplaceBridges("build-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	entities, err := st.EntitiesForChunks([]int64{0})
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "BaseClassRegistry", entities[0].Name)
}

func TestRelationsAmongBounded(t *testing.T) {
	st := openTestStore(t)
	_, err := st.UpsertEntities([]EntityRecord{
		{Name: "A", Type: TypeClass},
		{Name: "B", Type: TypeClass},
		{Name: "C", Type: TypeClass},
	})
	require.NoError(t, err)
	_, err = st.UpsertEntityEdges([]EntityEdge{
		{SourceName: "A", SourceType: TypeClass, TargetName: "B", TargetType: TypeClass, Type: EdgeCalls},
		{SourceName: "B", SourceType: TypeClass, TargetName: "C", TargetType: TypeClass, Type: EdgeCalls},
		{SourceName: "A", SourceType: TypeClass, TargetName: "C", TargetType: TypeClass, Type: EdgeDependsOn},
	})
	require.NoError(t, err)

	ids := entityIDs(t, st)
	relations, err := st.RelationsAmong(ids, 50)
	require.NoError(t, err)
	assert.Len(t, relations, 3)

	relations, err = st.RelationsAmong(ids, 2)
	require.NoError(t, err)
	assert.Len(t, relations, 2)

	// Only edges with both endpoints in the set qualify.
	relations, err = st.RelationsAmong(ids[:1], 50)
	require.NoError(t, err)
	assert.Empty(t, relations)
}

func entityIDs(t *testing.T, st *SQLiteStore) []int64 {
	t.Helper()
	rows, err := st.db.Query("SELECT id FROM entities ORDER BY name")
	require.NoError(t, err)
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	return ids
}

func TestStatsAndClearAll(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.ReplaceChunks(testChunks()))
	require.NoError(t, st.UpsertFiles([]FileRecord{
		{Path: "src/parser.go", Name: "parser.go", Ext: ".go", Language: "go", ChunkCount: 2, MaxEndLine: 5},
		{Path: "src/util.go", Name: "util.go", Ext: ".go", Language: "go", ChunkCount: 1, MaxEndLine: 1},
	}))
	_, err := st.UpsertEntities([]EntityRecord{{Name: "Parser", Type: TypeClass}})
	require.NoError(t, err)

	stats, err := st.Stats()
	require.NoError(t, err)
	assert.Equal(t, 6, stats.TotalNodes) // 3 chunks + 2 files + 1 entity
	assert.Equal(t, 3, stats.RelationTypes["CONTAINS_CHUNK"])
	assert.False(t, stats.HasVectorIndex)

	nodes, relations, err := st.ClearAll()
	require.NoError(t, err)
	assert.Equal(t, 6, nodes)
	assert.Equal(t, 3, relations)

	stats, err = st.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalNodes)
	assert.Equal(t, 0, stats.TotalRelations)
}

func TestNormalizeIdentifier(t *testing.T) {
	assert.Equal(t, "Parse", normalizeIdentifier("Parse()", TypeFunction))
	assert.Equal(t, "Parser", normalizeIdentifier("ParserClass", TypeClass))
	assert.Equal(t, "Visitor", normalizeIdentifier("ClassVisitor", TypeClass))
	assert.Equal(t, "BaseClassRegistry", normalizeIdentifier("BaseClassRegistry", TypeClass))
	assert.Equal(t, "main.go", normalizeIdentifier(" main.go ", TypeFile))
}
