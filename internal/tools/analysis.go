package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/raphaelgruber/fieldlog/internal/models"
	"github.com/raphaelgruber/fieldlog/internal/service"
)

func unavailableResult(err error) *mcp.CallToolResult {
	if errors.Is(err, service.ErrUnavailable) {
		return ErrorResult("AI features are unavailable", "Configure an LLM provider on the server")
	}
	return ErrorResult("Model call failed", err.Error())
}

// SentimentInput defines the input schema for the sentiment_analyzer tool.
type SentimentInput struct {
	Text string `json:"text" jsonschema:"Text to analyze"`
}

// NewSentimentHandler creates the sentiment_analyzer tool handler.
func NewSentimentHandler(deps *Dependencies) mcp.ToolHandlerFor[SentimentInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SentimentInput) (*mcp.CallToolResult, any, error) {
		if strings.TrimSpace(input.Text) == "" {
			return ErrorResult("Text cannot be empty", ""), nil, nil
		}
		res, err := deps.Agent.AnalyzeSentiment(ctx, input.Text)
		if err != nil {
			deps.Logger.Warn("sentiment_analyzer failed", "error", err)
			return unavailableResult(err), nil, nil
		}
		return JSONResult(res), nil, nil
	}
}

// SuggestFollowUpsInput defines the input schema for the followup_suggestor tool.
type SuggestFollowUpsInput struct {
	Summary   string `json:"summary" jsonschema:"Summary of the interaction"`
	Sentiment string `json:"sentiment,omitempty" jsonschema:"positive, neutral or negative"`
}

// NewFollowUpHandler creates the followup_suggestor tool handler.
func NewFollowUpHandler(deps *Dependencies) mcp.ToolHandlerFor[SuggestFollowUpsInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SuggestFollowUpsInput) (*mcp.CallToolResult, any, error) {
		if strings.TrimSpace(input.Summary) == "" {
			return ErrorResult("Summary cannot be empty", ""), nil, nil
		}
		sentiment, _ := models.ParseSentiment(input.Sentiment)

		items, err := deps.Agent.SuggestFollowUps(ctx, input.Summary, sentiment)
		if err != nil {
			deps.Logger.Warn("followup_suggestor failed", "error", err)
			return unavailableResult(err), nil, nil
		}
		return JSONResult(items), nil, nil
	}
}
