// Package mcptools exposes project index operations as MCP tools.
package mcptools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hyperjump/blockdex/internal/indexer"
	"github.com/hyperjump/blockdex/internal/models"
)

// NewServer returns an MCP server with every blockdex tool registered.
// k is the default neighbor count for find_similar.
func NewServer(index *indexer.ProjectIndex, version string, k int) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("blockdex", version, mcpserver.WithToolCapabilities(false))
	Register(s, index, k)
	return s
}

// Register adds the tools to s.
func Register(s *mcpserver.MCPServer, index *indexer.ProjectIndex, k int) {
	s.AddTool(findSimilarTool(), makeFindSimilarHandler(index, k))
	s.AddTool(searchTextTool(), makeSearchTextHandler(index))
	s.AddTool(searchByFunctionTool(), makeSearchByFunctionHandler(index))
	s.AddTool(listFunctionBlocksTool(), makeListFunctionBlocksHandler(index))
	s.AddTool(projectInfoTool(), makeProjectInfoHandler(index))
}

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func projectArg() mcp.ToolOption {
	return mcp.WithString("project",
		mcp.Required(),
		mcp.Description("Project name (letters, digits and underscores)"),
	)
}

func findSimilarTool() mcp.Tool {
	return mcp.NewTool("find_similar",
		mcp.WithDescription("Find the stored code blocks most similar to a code snippet by embedding distance. Returns the nearest block and the k nearest, closest first."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		projectArg(),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("Code snippet to compare against"),
		),
		mcp.WithNumber("k",
			mcp.Description("Number of neighbors to return"),
		),
	)
}

func searchTextTool() mcp.Tool {
	return mcp.NewTool("search_text",
		mcp.WithDescription("Case-sensitive substring search over the content of function blocks."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		projectArg(),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Substring to look for"),
		),
	)
}

func searchByFunctionTool() mcp.Tool {
	return mcp.NewTool("search_by_function",
		mcp.WithDescription("Find blocks whose function name matches exactly."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		projectArg(),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Exact function name"),
		),
	)
}

func listFunctionBlocksTool() mcp.Tool {
	return mcp.NewTool("list_function_blocks",
		mcp.WithDescription("List every block of a project that has a function name."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		projectArg(),
	)
}

func projectInfoTool() mcp.Tool {
	return mcp.NewTool("project_info",
		mcp.WithDescription("Report whether a project exists and how many code blocks it holds."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		projectArg(),
	)
}

func makeFindSimilarHandler(index *indexer.ProjectIndex, defaultK int) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		project := req.GetString("project", "")
		code := req.GetString("code", "")
		if code == "" {
			return mcp.NewToolResultError("code is required"), nil
		}
		k := req.GetInt("k", defaultK)
		if k <= 0 {
			k = defaultK
		}
		res, err := index.FindSimilar(ctx, project, code, k)
		if err != nil {
			return toolError("find_similar", err), nil
		}
		return mcp.NewToolResultText(formatNearest(project, res)), nil
	}
}

func makeSearchTextHandler(index *indexer.ProjectIndex) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		project := req.GetString("project", "")
		text := req.GetString("text", "")
		blocks, err := index.FindByText(ctx, project, text)
		if err != nil {
			return toolError("search_text", err), nil
		}
		return mcp.NewToolResultText(formatBlocks(fmt.Sprintf("Blocks containing %q", text), blocks)), nil
	}
}

func makeSearchByFunctionHandler(index *indexer.ProjectIndex) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		project := req.GetString("project", "")
		name := req.GetString("name", "")
		blocks, err := index.FindByFunctionName(ctx, project, name)
		if err != nil {
			return toolError("search_by_function", err), nil
		}
		return mcp.NewToolResultText(formatBlocks(fmt.Sprintf("Function %q", name), blocks)), nil
	}
}

func makeListFunctionBlocksHandler(index *indexer.ProjectIndex) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		project := req.GetString("project", "")
		blocks, err := index.AllFunctionBlocks(ctx, project)
		if err != nil {
			return toolError("list_function_blocks", err), nil
		}
		return mcp.NewToolResultText(formatBlocks(fmt.Sprintf("Function blocks in %s", project), blocks)), nil
	}
}

func makeProjectInfoHandler(index *indexer.ProjectIndex) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		project := req.GetString("project", "")
		info, err := index.Info(ctx, project)
		if err != nil {
			return toolError("project_info", err), nil
		}
		if info == nil {
			return mcp.NewToolResultText(fmt.Sprintf("Project %s does not exist.", project)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Project %s holds %d code blocks.", info.Name, info.TotalCodeBlocks)), nil
	}
}

// toolError turns a domain error into a tool-level error result the model can read.
func toolError(tool string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, models.ErrProjectNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v. Call project_info to check the name.", tool, err))
	case errors.Is(err, models.ErrEmptyIndex):
		return mcp.NewToolResultError(fmt.Sprintf("%s: the project has no code blocks yet", tool))
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", tool, err))
}

func formatNearest(project string, res *models.NearestBlocks) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Nearest block in %s\n\n```\n%s\n```\n\n", project, res.Nearest)
	fmt.Fprintf(&sb, "## %d nearest blocks\n\n", len(res.KNearest))
	for i, text := range res.KNearest {
		fmt.Fprintf(&sb, "### %d\n\n```\n%s\n```\n\n", i+1, text)
	}
	return sb.String()
}

func formatBlocks(title string, blocks []models.CodeBlock) string {
	if len(blocks) == 0 {
		return title + ": no blocks found."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s (%d)\n\n", title, len(blocks))
	for _, b := range blocks {
		fmt.Fprintf(&sb, "### `%s`\n\n**Kind:** %s", b.NodeKey, b.BlockType)
		if b.ClassName != nil {
			fmt.Fprintf(&sb, "  \n**Class:** %s", *b.ClassName)
		}
		if len(b.OutgoingCalls) > 0 {
			fmt.Fprintf(&sb, "  \n**Calls:** %s", strings.Join(b.OutgoingCalls, ", "))
		}
		fmt.Fprintf(&sb, "\n\n```\n%s\n```\n\n", b.Content)
	}
	return sb.String()
}
