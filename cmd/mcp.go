package cmd

import (
	"context"
	"fmt"
	"strings"

	"codegraph/internal/graphrag"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing codebase query tools",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
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

	s := mcpserver.NewMCPServer("codegraph", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(queryCodebaseTool(), makeQueryHandler(svc))
	s.AddTool(getStatisticsTool(), makeStatisticsHandler(svc))
	s.AddTool(listIndexedFilesTool(), makeListFilesHandler(svc))

	return mcpserver.ServeStdio(s)
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func queryCodebaseTool() mcp.Tool {
	return mcp.NewTool("query_codebase",
		mcp.WithDescription("Answer a natural-language question about the indexed codebase using vector similarity search fused with entity graph traversal."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Natural language question about the codebase"),
		),
		mcp.WithNumber("k",
			mcp.Description("Maximum number of code chunks to retrieve (default 5)"),
		),
		mcp.WithBoolean("include_graph",
			mcp.Description("Expand retrieved chunks through the entity graph (default true)"),
		),
	)
}

func getStatisticsTool() mcp.Tool {
	return mcp.NewTool("get_statistics",
		mcp.WithDescription("Get node, relationship, and vector index counts for the indexed codebase."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	)
}

func listIndexedFilesTool() mcp.Tool {
	return mcp.NewTool("list_indexed_files",
		mcp.WithDescription("List all indexed files with language, chunk count, and approximate line count."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("language",
			mcp.Description("Optional language filter (e.g. 'go', 'python'). Case-insensitive."),
		),
	)
}

// --- Handler factories ---

func makeQueryHandler(svc *graphrag.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question := req.GetString("question", "")
		if question == "" {
			return mcp.NewToolResultError("question is required"), nil
		}
		k := req.GetInt("k", 5)
		includeGraph := req.GetBool("include_graph", true)

		answer, err := svc.Answer(question, k, includeGraph)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
		}
		return mcp.NewToolResultText(answer), nil
	}
}

func makeStatisticsHandler(svc *graphrag.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := svc.GetStatistics()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("statistics failed: %v", err)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "## Codebase index statistics\n\n")
		fmt.Fprintf(&sb, "**Nodes:** %d\n", stats.TotalNodes)
		for _, label := range sortedKeys(stats.NodeLabels) {
			fmt.Fprintf(&sb, "- %s: %d\n", label, stats.NodeLabels[label])
		}
		fmt.Fprintf(&sb, "\n**Relationships:** %d\n", stats.TotalRelations)
		for _, typ := range sortedKeys(stats.RelationTypes) {
			fmt.Fprintf(&sb, "- %s: %d\n", typ, stats.RelationTypes[typ])
		}
		if stats.HasVectorIndex {
			fmt.Fprintf(&sb, "\n**Vector index:** %d embeddings\n", stats.VectorRowCount)
		} else {
			fmt.Fprintf(&sb, "\n**Vector index:** not built\n")
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func makeListFilesHandler(svc *graphrag.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		langFilter := strings.ToLower(req.GetString("language", ""))

		files, err := svc.ListFiles()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list files failed: %v", err)), nil
		}

		var sb strings.Builder
		count := 0
		for _, f := range files {
			if langFilter != "" && strings.ToLower(f.Language) != langFilter {
				continue
			}
			fmt.Fprintf(&sb, "- **%s** (%s, %d chunks, ~%d lines)\n",
				f.Path, f.Language, f.ChunkCount, f.MaxEndLine)
			count++
		}

		header := fmt.Sprintf("## Indexed files (%d)\n\n", count)
		if langFilter != "" {
			header = fmt.Sprintf("## Indexed files (%d, language: %s)\n\n", count, langFilter)
		}
		return mcp.NewToolResultText(header + sb.String()), nil
	}
}
