package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterAll registers all tools with the MCP server.
// This is called from main after server creation but before Run().
func RegisterAll(server *mcp.Server, deps *Dependencies) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "log_interaction",
		Description: "Log a structured interaction with an HCP. Rows with a blank key field are dropped",
	}, NewLogInteractionHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "edit_interaction",
		Description: "Edit scalar fields of a logged interaction, directly or from a natural-language request",
	}, NewEditInteractionHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_hcp",
		Description: "Search HCPs by name (case-insensitive substring, oldest first)",
	}, NewSearchHCPHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "sentiment_analyzer",
		Description: "Classify text as positive, neutral or negative with a confidence",
	}, NewSentimentHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "followup_suggestor",
		Description: "Suggest follow-up actions with priorities for an interaction summary",
	}, NewFollowUpHandler(deps))
}
