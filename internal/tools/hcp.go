package tools

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/raphaelgruber/fieldlog/internal/store"
)

// SearchHCPInput defines the input schema for the search_hcp tool.
type SearchHCPInput struct {
	Name  string `json:"name" jsonschema:"Name or partial name to search"`
	Limit int    `json:"limit,omitempty" jsonschema:"Max results 1-10, default 10"`
}

// NewSearchHCPHandler creates the search_hcp tool handler.
func NewSearchHCPHandler(deps *Dependencies) mcp.ToolHandlerFor[SearchHCPInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchHCPInput) (*mcp.CallToolResult, any, error) {
		if strings.TrimSpace(input.Name) == "" {
			return ErrorResult("Name cannot be empty", "Provide a name or partial name"), nil, nil
		}
		if input.Limit > store.SearchLimit {
			return ErrorResult("Limit must be 1-10", "Reduce limit value"), nil, nil
		}

		found, err := deps.Store.SearchHCPs(ctx, input.Name, input.Limit)
		if err != nil {
			deps.Logger.Error("search hcp failed", "error", err)
			return ErrorResult("Search failed", "Store may be unavailable"), nil, nil
		}

		deps.Logger.Debug("search_hcp completed", "name", input.Name, "count", len(found))
		return JSONResult(found), nil, nil
	}
}
