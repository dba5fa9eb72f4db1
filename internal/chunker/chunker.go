// Package chunker partitions a codebase into overlapping text chunks with
// file and positional metadata, the atomic unit of embedding and retrieval.
package chunker

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"codegraph/internal/walker"
)

var (
	// ErrInvalidOptions indicates chunk size or overlap constraints are violated.
	ErrInvalidOptions = errors.New("invalid chunking options")
	// ErrEmptyCorpus indicates no eligible files were found after filtering.
	ErrEmptyCorpus = errors.New("no eligible source files found")
)

// Chunk is a contiguous slice of one source file's text. Chunks are
// immutable once produced; IDs are stable for a given root and options.
type Chunk struct {
	ID        int
	FilePath  string // absolute
	RelPath   string // slash-separated, relative to root
	FileName  string
	Ext       string
	Language  string
	Text      string
	Length    int // characters
	StartLine int // 1-based estimate
	EndLine   int
	RootPath  string
	FileSize  int64
	FileLines int
}

// Options controls chunking.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	// IncludeExtensions overrides the built-in allow-list when non-empty.
	// Entries are extensions with dot (".go") or bare filenames.
	IncludeExtensions []string
	// ExcludePatterns supplements the built-in exclusion list.
	ExcludePatterns []string
	MaxFileSize     int64
}

// Stats summarizes a chunking run. Per-file read failures are recorded
// here rather than raised.
type Stats struct {
	FilesTotal   int
	FilesChunked int
	FilesSkipped int
	SkippedPaths []string
}

// Chunker discovers, reads, and splits source files.
type Chunker struct {
	registry *Registry
}

// New returns a Chunker with grammars registered for boundary detection.
func New() *Chunker {
	return &Chunker{registry: DefaultRegistry()}
}

// Chunk walks root and returns the corpus chunks in deterministic order:
// files in lexicographic relative-path order, chunks in document order,
// IDs monotonically increasing from 0.
func (c *Chunker) Chunk(root string, opts Options) ([]Chunk, *Stats, error) {
	if opts.ChunkSize <= 0 {
		return nil, nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidOptions, opts.ChunkSize)
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.ChunkSize {
		return nil, nil, fmt.Errorf("%w: overlap must be in [0, chunk size), got %d", ErrInvalidOptions, opts.ChunkOverlap)
	}

	exts := allowedExtensions(opts.IncludeExtensions)
	excludes := append(append([]string{}, defaultExcludes...), opts.ExcludePatterns...)

	files, err := walker.Walk(root, walker.Options{
		Extensions:      exts,
		ExcludePatterns: excludes,
		MaxFileSize:     opts.MaxFileSize,
	})
	if err != nil {
		return nil, nil, err
	}

	stats := &Stats{FilesTotal: len(files)}
	var chunks []Chunk
	nextID := 0

	for _, f := range files {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			stats.FilesSkipped++
			stats.SkippedPaths = append(stats.SkippedPaths, f.RelPath)
			continue
		}
		text, ok := decodeContent(data)
		if !ok || isLikelyBinary(text) {
			stats.FilesSkipped++
			stats.SkippedPaths = append(stats.SkippedPaths, f.RelPath)
			continue
		}

		lang := LanguageFor(f.Ext, f.Name)
		boundaries := c.splitBoundaries(f.RelPath, lang, text)
		pieces := split(text, opts.ChunkSize, opts.ChunkOverlap, boundaries)

		fileLines := strings.Count(text, "\n") + 1
		for _, p := range pieces {
			chunks = append(chunks, Chunk{
				ID:        nextID,
				FilePath:  f.Path,
				RelPath:   f.RelPath,
				FileName:  f.Name,
				Ext:       f.Ext,
				Language:  lang,
				Text:      p.text,
				Length:    len(p.text),
				StartLine: p.startLine,
				EndLine:   p.endLine,
				RootPath:  root,
				FileSize:  f.Size,
				FileLines: fileLines,
			})
			nextID++
		}
		stats.FilesChunked++
	}

	if len(chunks) == 0 {
		return nil, stats, fmt.Errorf("%w under %s", ErrEmptyCorpus, root)
	}
	return chunks, stats, nil
}

// splitBoundaries collects preferred cut offsets: starts of top-level
// declarations when a grammar is registered for the language, plus
// blank-line boundaries for any text.
func (c *Chunker) splitBoundaries(path, lang, text string) []int {
	offsets := blankLineOffsets(text)
	if spec := c.registry.LookupLanguage(lang); spec != nil {
		if decls, err := declarationOffsets(spec, []byte(text)); err == nil {
			offsets = append(offsets, decls...)
		}
		// Parse errors fall back to blank-line boundaries only.
	}
	return sortedUnique(offsets, len(text))
}
