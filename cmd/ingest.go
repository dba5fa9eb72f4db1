package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"codegraph/internal/chunker"
	"codegraph/internal/graphrag"

	"github.com/spf13/cobra"
)

var (
	flagChunkSize    int
	flagChunkOverlap int
	flagExclude      []string
	flagSkipGraph    bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>",
	Short: "Chunk a codebase and build the graph and vector index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if flagChunkSize > 0 {
			cfg.ChunkSize = flagChunkSize
		}
		if cmd.Flags().Changed("overlap") {
			cfg.ChunkOverlap = flagChunkOverlap
		}

		fmt.Printf("Chunking %s...\n", root)
		start := time.Now()

		chunks, stats, err := chunker.New().Chunk(root, chunker.Options{
			ChunkSize:       cfg.ChunkSize,
			ChunkOverlap:    cfg.ChunkOverlap,
			ExcludePatterns: flagExclude,
			MaxFileSize:     cfg.MaxFileSize,
		})
		if err != nil {
			return err
		}
		fmt.Printf("  Files:  %d total, %d chunked, %d skipped\n",
			stats.FilesTotal, stats.FilesChunked, stats.FilesSkipped)
		fmt.Printf("  Chunks: %d\n", len(chunks))

		svc, st, err := openService(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		steps := []struct {
			name string
			run  func() graphrag.Result
		}{
			{"entity graph", func() graphrag.Result { return svc.BuildEntityGraph(chunks) }},
			{"vector index", func() graphrag.Result { return svc.BuildVectorIndex(chunks) }},
			{"bridge links", func() graphrag.Result { return svc.Link() }},
		}
		if flagSkipGraph {
			steps = steps[1:]
		}

		failed := 0
		for _, step := range steps {
			fmt.Printf("\nBuilding %s...\n", step.name)
			res := step.run()
			if res.OK {
				fmt.Printf("  %s\n", res.Message)
			} else {
				failed++
				fmt.Printf("  FAILED: %s\n", res.Message)
			}
		}

		fmt.Printf("\nDone in %s\n", time.Since(start).Round(time.Millisecond))
		if failed > 0 {
			return fmt.Errorf("%d of %d build steps failed", failed, len(steps))
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().IntVar(&flagChunkSize, "chunk-size", 0, "chunk size in characters (default $CHUNK_SIZE or 500)")
	ingestCmd.Flags().IntVar(&flagChunkOverlap, "overlap", 0, "chunk overlap in characters (default $CHUNK_OVERLAP or 50)")
	ingestCmd.Flags().StringSliceVar(&flagExclude, "exclude", nil, "extra exclusion patterns (glob or substring)")
	ingestCmd.Flags().BoolVar(&flagSkipGraph, "skip-graph", false, "skip LLM entity extraction; build vector index only")
	rootCmd.AddCommand(ingestCmd)
}
