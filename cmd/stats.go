package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show node, relationship, and vector index counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := requireStore(cfg); err != nil {
			return err
		}

		svc, st, err := openService(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := svc.GetStatistics()
		if err != nil {
			return err
		}

		fmt.Printf("Store: %s\n\n", cfg.StorePath)
		fmt.Printf("Nodes: %d\n", stats.TotalNodes)
		for _, label := range sortedKeys(stats.NodeLabels) {
			fmt.Printf("  %-14s %d\n", label, stats.NodeLabels[label])
		}
		fmt.Printf("\nRelationships: %d\n", stats.TotalRelations)
		for _, typ := range sortedKeys(stats.RelationTypes) {
			fmt.Printf("  %-14s %d\n", typ, stats.RelationTypes[typ])
		}
		if stats.HasVectorIndex {
			fmt.Printf("\nVector index: %d embeddings\n", stats.VectorRowCount)
		} else {
			fmt.Println("\nVector index: not built")
		}
		return nil
	},
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
