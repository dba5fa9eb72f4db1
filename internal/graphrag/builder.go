package graphrag

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"codegraph/internal/chunker"
	"codegraph/internal/extractor"
	"codegraph/internal/graph"
)

// allowed vocabularies handed to the extractor. Anything outside these is
// stored as-is but never requested.
var (
	allowedNodeTypes = []string{
		graph.TypeFile, graph.TypeFunction, graph.TypeClass,
		graph.TypeModule, graph.TypePackage,
	}
	allowedEdgeTypes = []string{
		graph.EdgeContains, graph.EdgeCalls, graph.EdgeImports,
		graph.EdgeInherits, graph.EdgeImplements, graph.EdgeDependsOn,
	}
)

// BuildEntityGraph extracts structural entities and relationships from
// the chunks and persists them. Extracted labels are stored verbatim;
// a File entity is ensured for every distinct source file even when the
// extractor misses it.
func (s *Service) BuildEntityGraph(chunks []chunker.Chunk) Result {
	if err := s.ensureStore(); err != nil {
		return Result{Message: fmt.Sprintf("store unavailable: %v", err)}
	}
	if s.extractor == nil {
		return Result{Message: fmt.Sprintf("%v: extractor not configured", ErrDependencyMissing)}
	}
	if len(chunks) == 0 {
		return Result{Message: "no chunks to extract from"}
	}

	inputs := make([]extractor.ChunkInput, len(chunks))
	for i, c := range chunks {
		inputs[i] = extractor.ChunkInput{
			FilePath: c.RelPath,
			Language: c.Language,
			Text:     c.Text,
		}
	}

	doc, err := s.extractor.Extract(inputs, allowedNodeTypes, allowedEdgeTypes)
	if err != nil {
		return Result{Message: fmt.Sprintf("entity extraction failed: %v", err)}
	}

	entities := make([]graph.EntityRecord, 0, len(doc.Nodes))
	seen := map[string]bool{}
	for _, n := range doc.Nodes {
		key := n.ID + "\x00" + string(n.Kind)
		if seen[key] {
			continue
		}
		seen[key] = true
		entities = append(entities, graph.EntityRecord{
			Name:       n.ID,
			Type:       string(n.Kind),
			Properties: encodeProperties(n.Properties),
		})
	}
	// File entities anchor the PART_OF_FILE heuristic; make sure every
	// chunked file has one.
	for _, name := range distinctFileNames(chunks) {
		key := name + "\x00" + graph.TypeFile
		if seen[key] {
			continue
		}
		seen[key] = true
		entities = append(entities, graph.EntityRecord{
			Name: name,
			Type: graph.TypeFile,
		})
	}

	upserted, err := s.store.UpsertEntities(entities)
	if err != nil {
		return Result{Message: fmt.Sprintf("persist entities: %v", err)}
	}

	edges := make([]graph.EntityEdge, 0, len(doc.Edges))
	for _, e := range doc.Edges {
		edges = append(edges, graph.EntityEdge{
			SourceName: e.SourceID,
			SourceType: string(e.SourceKind),
			TargetName: e.TargetID,
			TargetType: string(e.TargetKind),
			Type:       string(e.Kind),
		})
	}
	inserted, err := s.store.UpsertEntityEdges(edges)
	if err != nil {
		return Result{Message: fmt.Sprintf("persist relationships: %v", err)}
	}

	// File rollups stay current no matter which build step ran, so the
	// files table is populated even when only the entity graph is built.
	if err := s.store.UpsertFiles(fileRollups(chunks)); err != nil {
		return Result{Message: fmt.Sprintf("store file summaries: %v", err)}
	}

	return Result{
		OK: true,
		Message: fmt.Sprintf("entity graph built from %d chunks: %d entities, %d relationships",
			len(chunks), upserted, inserted),
	}
}

// BuildVectorIndex replaces the stored chunks, embeds them in batches,
// and loads the vector index. File rollups are refreshed from the same
// chunk set.
func (s *Service) BuildVectorIndex(chunks []chunker.Chunk) Result {
	if err := s.ensureStore(); err != nil {
		return Result{Message: fmt.Sprintf("store unavailable: %v", err)}
	}
	if s.embedder == nil {
		return Result{Message: fmt.Sprintf("%v: embedder not configured", ErrDependencyMissing)}
	}
	if len(chunks) == 0 {
		return Result{Message: "no chunks to index"}
	}

	records := make([]graph.ChunkRecord, len(chunks))
	for i, c := range chunks {
		records[i] = graph.ChunkRecord{
			ID:        int64(c.ID),
			FilePath:  c.RelPath,
			FileName:  c.FileName,
			Language:  c.Language,
			Text:      c.Text,
			Length:    c.Length,
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
			RootPath:  c.RootPath,
		}
	}
	if err := s.store.ReplaceChunks(records); err != nil {
		return Result{Message: fmt.Sprintf("store chunks: %v", err)}
	}
	if err := s.store.EnsureVectorIndex(); err != nil {
		return Result{Message: fmt.Sprintf("create vector index: %v", err)}
	}

	embedded := 0
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		ids := make([]int64, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
			ids[i] = int64(c.ID)
		}

		vectors, err := s.embedder.Embed(texts)
		if err != nil {
			return Result{Message: fmt.Sprintf("%v: embed batch %d-%d: %v",
				ErrExternalCall, start, end-1, err)}
		}
		if err := s.store.InsertEmbeddings(ids, vectors); err != nil {
			return Result{Message: fmt.Sprintf("store embeddings: %v", err)}
		}
		embedded += len(batch)
		fmt.Fprintf(os.Stderr, "embedded %d/%d chunks\n", embedded, len(chunks))
	}

	if err := s.store.UpsertFiles(fileRollups(chunks)); err != nil {
		return Result{Message: fmt.Sprintf("store file summaries: %v", err)}
	}

	return Result{
		OK:      true,
		Message: fmt.Sprintf("vector index built: %d chunks embedded", embedded),
	}
}

// fileRollups aggregates per-file summaries from a chunk set.
func fileRollups(chunks []chunker.Chunk) []graph.FileRecord {
	byPath := map[string]*graph.FileRecord{}
	for _, c := range chunks {
		f := byPath[c.RelPath]
		if f == nil {
			f = &graph.FileRecord{
				Path:     c.RelPath,
				Name:     c.FileName,
				Ext:      c.Ext,
				Language: c.Language,
			}
			byPath[c.RelPath] = f
		}
		f.ChunkCount++
		if c.EndLine > f.MaxEndLine {
			f.MaxEndLine = c.EndLine
		}
	}

	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	files := make([]graph.FileRecord, 0, len(paths))
	for _, p := range paths {
		files = append(files, *byPath[p])
	}
	return files
}

func distinctFileNames(chunks []chunker.Chunk) []string {
	seen := map[string]bool{}
	var names []string
	for _, c := range chunks {
		if !seen[c.FileName] {
			seen[c.FileName] = true
			names = append(names, c.FileName)
		}
	}
	sort.Strings(names)
	return names
}

func encodeProperties(props map[string]string) string {
	if len(props) == 0 {
		return ""
	}
	b, err := json.Marshal(props)
	if err != nil {
		return ""
	}
	return string(b)
}
