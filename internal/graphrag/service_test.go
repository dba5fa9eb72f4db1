package graphrag

import (
	"errors"
	"strings"
	"testing"

	"codegraph/internal/chunker"
	"codegraph/internal/extractor"
	"codegraph/internal/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore implements graph.Store in memory, recording what the service
// hands it.
type fakeStore struct {
	pingErr    error
	chunks     []graph.ChunkRecord
	embeddings map[int64][]float32
	files      []graph.FileRecord
	entities   []graph.EntityRecord
	edges      []graph.EntityEdge

	searchResults []graph.SearchResult
	searchErr     error
	bridgeCount   int
	bridgeErr     error
	lastBuildID   string

	embedCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{embeddings: map[int64][]float32{}}
}

func (f *fakeStore) Ping() error      { return f.pingErr }
func (f *fakeStore) Reconnect() error { return f.pingErr }

func (f *fakeStore) ReplaceChunks(chunks []graph.ChunkRecord) error {
	f.chunks = chunks
	return nil
}

func (f *fakeStore) InsertEmbeddings(ids []int64, embeddings [][]float32) error {
	f.embedCalls++
	for i, id := range ids {
		f.embeddings[id] = embeddings[i]
	}
	return nil
}

func (f *fakeStore) EnsureVectorIndex() error { return nil }

func (f *fakeStore) UpsertFiles(files []graph.FileRecord) error {
	f.files = files
	return nil
}

func (f *fakeStore) UpsertEntities(entities []graph.EntityRecord) (int, error) {
	f.entities = entities
	return len(entities), nil
}

func (f *fakeStore) UpsertEntityEdges(edges []graph.EntityEdge) (int, error) {
	f.edges = edges
	return len(edges), nil
}

func (f *fakeStore) ReplaceBridges(buildID string) (int, error) {
	f.lastBuildID = buildID
	return f.bridgeCount, f.bridgeErr
}

func (f *fakeStore) Search(embedding []float32, k int) ([]graph.SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if k < len(f.searchResults) {
		return f.searchResults[:k], nil
	}
	return f.searchResults, nil
}

func (f *fakeStore) EntitiesForChunks(chunkIDs []int64) ([]graph.EntityRecord, error) {
	return f.entities, nil
}

func (f *fakeStore) RelationsAmong(entityIDs []int64, limit int) ([]graph.Relation, error) {
	return nil, nil
}

func (f *fakeStore) FileSummaries(paths []string) ([]graph.FileRecord, error) {
	return f.files, nil
}

func (f *fakeStore) ListFiles() ([]graph.FileRecord, error) { return f.files, nil }

func (f *fakeStore) Stats() (*graph.Stats, error) { return &graph.Stats{}, nil }

func (f *fakeStore) ClearAll() (int, int, error) { return 4, 2, nil }

func (f *fakeStore) Close() error { return nil }

type fakeEmbedder struct {
	calls      int
	batchSizes []int
	err        error
}

func (f *fakeEmbedder) Embed(texts []string) ([][]float32, error) {
	f.calls++
	f.batchSizes = append(f.batchSizes, len(texts))
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0, 0, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedSingle(text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0, 0, 0}, nil
}

type fakeGenerator struct {
	calls    int
	response string
	err      error
	prompts  []string
}

func (f *fakeGenerator) Generate(system, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeExtractor struct {
	doc *extractor.GraphDocument
	err error
}

func (f *fakeExtractor) Extract(chunks []extractor.ChunkInput, allowedNodes, allowedEdges []string) (*extractor.GraphDocument, error) {
	return f.doc, f.err
}

func sampleChunks(n int) []chunker.Chunk {
	chunks := make([]chunker.Chunk, n)
	for i := range chunks {
		chunks[i] = chunker.Chunk{
			ID:       i,
			RelPath:  "src/app.go",
			FileName: "app.go",
			Ext:      ".go",
			Language: "go",
			Text:     "func handler() {}",
			Length:   17,
			EndLine:  i + 1,
		}
	}
	return chunks
}

func TestAnswerRequiresEmbedder(t *testing.T) {
	svc := New(newFakeStore(), nil, &fakeGenerator{}, nil)
	_, err := svc.Answer("how does parsing work?", 5, true)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestAnswerEmptyHitsSkipsGeneration(t *testing.T) {
	gen := &fakeGenerator{response: "should never appear"}
	svc := New(newFakeStore(), &fakeEmbedder{}, gen, nil)

	answer, err := svc.Answer("anything", 5, true)
	require.NoError(t, err)
	assert.Equal(t, noResultsAnswer, answer)
	assert.Zero(t, gen.calls)
}

func TestAnswerFusesGraphContext(t *testing.T) {
	st := newFakeStore()
	st.searchResults = []graph.SearchResult{
		{Chunk: graph.ChunkRecord{ID: 0, FilePath: "src/app.go", Language: "go",
			Text: "func handler() {}", StartLine: 1, EndLine: 1}, Similarity: 0.91},
	}
	st.entities = []graph.EntityRecord{{ID: 1, Name: "handler", Type: graph.TypeFunction}}
	st.files = []graph.FileRecord{{Path: "src/app.go", Language: "go", ChunkCount: 1, MaxEndLine: 1}}

	gen := &fakeGenerator{response: "handler is the HTTP entrypoint."}
	svc := New(st, &fakeEmbedder{}, gen, nil)

	answer, err := svc.Answer("what handles requests?", 5, true)
	require.NoError(t, err)
	assert.Equal(t, "handler is the HTTP entrypoint.", answer)

	require.Len(t, gen.prompts, 1)
	prompt := gen.prompts[0]
	assert.Contains(t, prompt, "src/app.go")
	assert.Contains(t, prompt, "func handler() {}")
	assert.Contains(t, prompt, "Function: handler")
}

func TestAnswerWithContextExposesRetrieval(t *testing.T) {
	st := newFakeStore()
	st.searchResults = []graph.SearchResult{
		{Chunk: graph.ChunkRecord{ID: 0, FilePath: "src/app.go", Language: "go",
			Text: "func handler() {}", StartLine: 1, EndLine: 1}, Similarity: 0.91},
	}
	st.entities = []graph.EntityRecord{{ID: 1, Name: "handler", Type: graph.TypeFunction}}
	st.files = []graph.FileRecord{{Path: "src/app.go", Language: "go", ChunkCount: 1, MaxEndLine: 1}}

	gen := &fakeGenerator{response: "handler is the HTTP entrypoint."}
	svc := New(st, &fakeEmbedder{}, gen, nil)

	answer, qc, err := svc.AnswerWithContext("what handles requests?", 5, true)
	require.NoError(t, err)
	assert.Equal(t, "handler is the HTTP entrypoint.", answer)

	require.NotNil(t, qc)
	assert.Equal(t, "what handles requests?", qc.Question)
	require.Len(t, qc.Hits, 1)
	assert.Equal(t, "src/app.go", qc.Hits[0].Chunk.FilePath)
	require.Len(t, qc.Entities, 1)
	assert.Equal(t, "handler", qc.Entities[0].Name)
	require.Len(t, qc.Files, 1)
}

func TestAnswerWithContextEmptyRetrieval(t *testing.T) {
	svc := New(newFakeStore(), &fakeEmbedder{}, &fakeGenerator{}, nil)

	answer, qc, err := svc.AnswerWithContext("anything", 5, true)
	require.NoError(t, err)
	assert.Equal(t, noResultsAnswer, answer)
	require.NotNil(t, qc)
	assert.True(t, qc.Empty())
}

func TestAnswerWithoutGraphExpansion(t *testing.T) {
	st := newFakeStore()
	st.searchResults = []graph.SearchResult{
		{Chunk: graph.ChunkRecord{ID: 0, FilePath: "src/app.go", Text: "x"}, Similarity: 0.5},
	}
	st.entities = []graph.EntityRecord{{ID: 1, Name: "handler", Type: graph.TypeFunction}}

	gen := &fakeGenerator{response: "ok"}
	svc := New(st, &fakeEmbedder{}, gen, nil)

	_, err := svc.Answer("q", 5, false)
	require.NoError(t, err)
	assert.NotContains(t, gen.prompts[0], "Code entities")
}

func TestAnswerFallsBackWhenGenerationFails(t *testing.T) {
	st := newFakeStore()
	st.searchResults = []graph.SearchResult{
		{Chunk: graph.ChunkRecord{ID: 0, FilePath: "src/app.go", StartLine: 1, EndLine: 3}, Similarity: 0.8},
	}
	gen := &fakeGenerator{err: errors.New("model offline")}
	svc := New(st, &fakeEmbedder{}, gen, nil)

	answer, err := svc.Answer("q", 5, false)
	require.NoError(t, err)
	assert.Contains(t, answer, "relevant code sections")
	assert.Contains(t, answer, "src/app.go")
}

func TestAnswerEmbeddingFailure(t *testing.T) {
	svc := New(newFakeStore(), &fakeEmbedder{err: errors.New("down")}, nil, nil)
	_, err := svc.Answer("q", 5, false)
	assert.ErrorIs(t, err, ErrExternalCall)
}

func TestBuildVectorIndexBatchesEmbeddings(t *testing.T) {
	st := newFakeStore()
	emb := &fakeEmbedder{}
	svc := New(st, emb, nil, nil)

	res := svc.BuildVectorIndex(sampleChunks(70))
	require.True(t, res.OK, res.Message)

	assert.Equal(t, []int{32, 32, 6}, emb.batchSizes)
	assert.Len(t, st.embeddings, 70)
	assert.Len(t, st.chunks, 70)

	// One file rollup covering all chunks.
	require.Len(t, st.files, 1)
	assert.Equal(t, 70, st.files[0].ChunkCount)
	assert.Equal(t, 70, st.files[0].MaxEndLine)
}

func TestBuildVectorIndexRequiresEmbedder(t *testing.T) {
	svc := New(newFakeStore(), nil, nil, nil)
	res := svc.BuildVectorIndex(sampleChunks(1))
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "embedder")
}

func TestBuildEntityGraphPersistsExtraction(t *testing.T) {
	st := newFakeStore()
	ext := &fakeExtractor{doc: &extractor.GraphDocument{
		Nodes: []extractor.Node{
			{ID: "handler", Kind: extractor.KindFunction},
			{ID: "handler", Kind: extractor.KindFunction}, // duplicate collapses
			{ID: "App", Kind: extractor.KindClass, Properties: map[string]string{"lang": "go"}},
		},
		Edges: []extractor.Edge{{
			SourceID: "App", SourceKind: extractor.KindClass,
			TargetID: "handler", TargetKind: extractor.KindFunction,
			Kind: extractor.EdgeContains,
		}},
	}}
	svc := New(st, nil, nil, ext)

	res := svc.BuildEntityGraph(sampleChunks(2))
	require.True(t, res.OK, res.Message)

	var names []string
	for _, e := range st.entities {
		names = append(names, e.Type+":"+e.Name)
	}
	// Extracted entities plus the File entity for the chunked file.
	assert.ElementsMatch(t, []string{"Function:handler", "Class:App", "File:app.go"}, names)

	require.Len(t, st.edges, 1)
	assert.Equal(t, graph.EdgeContains, st.edges[0].Type)
}

func TestBuildEntityGraphRefreshesFileSummaries(t *testing.T) {
	st := newFakeStore()
	ext := &fakeExtractor{doc: &extractor.GraphDocument{}}
	svc := New(st, nil, nil, ext)

	res := svc.BuildEntityGraph(sampleChunks(3))
	require.True(t, res.OK, res.Message)

	// Running the entity-graph step alone must still populate file
	// summaries, not leave them to the vector-index step.
	require.Len(t, st.files, 1)
	f := st.files[0]
	assert.Equal(t, "src/app.go", f.Path)
	assert.Equal(t, 3, f.ChunkCount)
	assert.Equal(t, 3, f.MaxEndLine)
}

func TestBuildEntityGraphRequiresExtractor(t *testing.T) {
	svc := New(newFakeStore(), nil, nil, nil)
	res := svc.BuildEntityGraph(sampleChunks(1))
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "extractor")
}

func TestBuildEntityGraphExtractionFailure(t *testing.T) {
	svc := New(newFakeStore(), nil, nil, &fakeExtractor{err: errors.New("llm down")})
	res := svc.BuildEntityGraph(sampleChunks(1))
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "extraction failed")
}

func TestLinkReportsBridgeCount(t *testing.T) {
	st := newFakeStore()
	st.bridgeCount = 7
	svc := New(st, nil, nil, nil)

	res := svc.Link()
	assert.True(t, res.OK)
	assert.Contains(t, res.Message, "7")
	assert.NotEmpty(t, st.lastBuildID)
}

func TestLinkNeverFails(t *testing.T) {
	st := newFakeStore()
	st.bridgeErr = errors.New("disk full")
	svc := New(st, nil, nil, nil)

	res := svc.Link()
	assert.True(t, res.OK)
	assert.Contains(t, res.Message, "skipped")
}

func TestClearAllRequiresConfirmation(t *testing.T) {
	svc := New(newFakeStore(), nil, nil, nil)

	_, err := svc.ClearAll(false)
	assert.ErrorIs(t, err, ErrConfirmationRequired)

	res, err := svc.ClearAll(true)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.True(t, strings.Contains(res.Message, "4") && strings.Contains(res.Message, "2"))
}
