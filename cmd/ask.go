package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"codegraph/internal/graphrag"
)

var (
	flagK       int
	flagNoGraph bool
	flagSources bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask questions about the indexed codebase",
	Long: `Ask answers one question given as an argument, or starts an
interactive prompt when called without arguments.`,
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

		if len(args) > 0 {
			answer, qc, err := svc.AnswerWithContext(strings.Join(args, " "), flagK, !flagNoGraph)
			if err != nil {
				return err
			}
			fmt.Println(answer)
			if flagSources {
				printSources(qc)
			}
			return nil
		}

		scanner := bufio.NewScanner(os.Stdin)
		fmt.Println("codegraph ask (type /exit to quit)")
		fmt.Println()

		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			question := strings.TrimSpace(scanner.Text())
			if question == "" {
				continue
			}
			if question == "/exit" || question == "/quit" {
				return nil
			}

			answer, qc, err := svc.AnswerWithContext(question, flagK, !flagNoGraph)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			fmt.Println()
			fmt.Println(answer)
			if flagSources {
				printSources(qc)
			}
			fmt.Println()
		}
		return scanner.Err()
	},
}

func printSources(qc *graphrag.QueryContext) {
	if qc == nil || len(qc.Hits) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Sources:")
	for _, h := range qc.Hits {
		fmt.Printf("  %s:%d-%d (similarity %.3f)\n",
			h.Chunk.FilePath, h.Chunk.StartLine, h.Chunk.EndLine, h.Similarity)
	}
}

func init() {
	askCmd.Flags().IntVar(&flagK, "k", 5, "number of chunks to retrieve per question")
	askCmd.Flags().BoolVar(&flagNoGraph, "no-graph", false, "answer from vector search only, without graph expansion")
	askCmd.Flags().BoolVar(&flagSources, "sources", false, "print the source chunks behind each answer")
	rootCmd.AddCommand(askCmd)
}
