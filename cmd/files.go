package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var flagLanguage string

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List indexed files",
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

		files, err := svc.ListFiles()
		if err != nil {
			return err
		}

		langFilter := strings.ToLower(flagLanguage)
		shown := 0
		for _, f := range files {
			if langFilter != "" && strings.ToLower(f.Language) != langFilter {
				continue
			}
			fmt.Printf("%-50s %-12s %4d chunks  ~%d lines\n",
				f.Path, f.Language, f.ChunkCount, f.MaxEndLine)
			shown++
		}
		fmt.Printf("\n%d files\n", shown)
		return nil
	},
}

func init() {
	filesCmd.Flags().StringVar(&flagLanguage, "language", "", "filter by language (case-insensitive)")
	rootCmd.AddCommand(filesCmd)
}
