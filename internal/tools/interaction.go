package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/raphaelgruber/fieldlog/internal/models"
	"github.com/raphaelgruber/fieldlog/internal/service"
	"github.com/raphaelgruber/fieldlog/internal/store"
)

// MaterialInput is one material row of a log_interaction call.
type MaterialInput struct {
	MaterialType string `json:"material_type" jsonschema:"Kind of material, e.g. brochure"`
	Quantity     int    `json:"quantity,omitempty" jsonschema:"Number of items left, default 0"`
	Notes        string `json:"notes,omitempty"`
}

// SampleInput is one sample row of a log_interaction call.
type SampleInput struct {
	ProductCode string `json:"product_code" jsonschema:"Product code or name"`
	Quantity    int    `json:"quantity,omitempty" jsonschema:"Number of samples, default 0"`
	Lot         string `json:"lot,omitempty"`
}

// FollowUpInput is one follow-up row of a log_interaction call.
type FollowUpInput struct {
	ActionItem string `json:"action_item" jsonschema:"What needs to happen next"`
	DueDate    string `json:"due_date,omitempty" jsonschema:"ISO date"`
	Owner      string `json:"owner,omitempty"`
	Status     string `json:"status,omitempty" jsonschema:"Follow-up status, default open"`
}

// LogInteractionInput defines the input schema for the log_interaction tool.
type LogInteractionInput struct {
	HCPName   string          `json:"hcp_name,omitempty" jsonschema:"Name of the healthcare professional; matched or created when hcp_id is empty"`
	HCPID     string          `json:"hcp_id,omitempty" jsonschema:"ID of a known HCP"`
	RepID     string          `json:"rep_id,omitempty" jsonschema:"Representative ID, default default_rep"`
	Datetime  string          `json:"datetime,omitempty" jsonschema:"Date and time of the visit (ISO format)"`
	Summary   string          `json:"summary,omitempty" jsonschema:"Summary of the discussion"`
	Sentiment string          `json:"sentiment,omitempty" jsonschema:"positive, neutral or negative"`
	Topics    []string        `json:"topics,omitempty" jsonschema:"Discussion topics"`
	Outcome   string          `json:"outcome,omitempty"`
	Materials []MaterialInput `json:"materials,omitempty"`
	Samples   []SampleInput   `json:"samples,omitempty"`
	FollowUps []FollowUpInput `json:"follow_ups,omitempty"`
}

// NewLogInteractionHandler creates the log_interaction tool handler.
// Rows go through the same normalization as the structured form.
func NewLogInteractionHandler(deps *Dependencies) mcp.ToolHandlerFor[LogInteractionInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input LogInteractionInput) (*mcp.CallToolResult, any, error) {
		var sentiment models.Sentiment
		if strings.TrimSpace(input.Sentiment) != "" {
			s, ok := models.ParseSentiment(input.Sentiment)
			if !ok {
				return ErrorResult("Invalid sentiment", "Use positive, neutral or negative"), nil, nil
			}
			sentiment = s
		}

		hcpID := strings.TrimSpace(input.HCPID)
		if hcpID == "" && strings.TrimSpace(input.HCPName) != "" {
			h, _, err := service.FindOrCreateHCP(ctx, deps.Store, models.HCPInput{Name: input.HCPName})
			if err != nil {
				deps.Logger.Error("resolve hcp failed", "error", err)
				return ErrorResult("Failed to resolve HCP", "Store may be unavailable"), nil, nil
			}
			hcpID = h.ID
		}

		repID := input.RepID
		if repID == "" {
			repID = models.DefaultRepID
		}
		draft := models.Draft{
			HCPID:     hcpID,
			RepID:     repID,
			Datetime:  input.Datetime,
			Summary:   input.Summary,
			Sentiment: sentiment,
			TopicList: input.Topics,
			Outcome:   input.Outcome,
		}
		for _, m := range input.Materials {
			draft.Materials = draft.Materials.Add(models.Material{MaterialType: m.MaterialType, Quantity: m.Quantity, Notes: m.Notes})
		}
		for _, s := range input.Samples {
			draft.Samples = draft.Samples.Add(models.Sample{ProductCode: s.ProductCode, Quantity: s.Quantity, Lot: s.Lot})
		}
		for _, f := range input.FollowUps {
			draft.FollowUps = draft.FollowUps.Add(models.FollowUp{ActionItem: f.ActionItem, DueDate: f.DueDate, Owner: f.Owner, Status: f.Status})
		}

		created, err := deps.Store.CreateInteraction(ctx, models.Normalize(draft))
		if err != nil {
			if errors.Is(err, store.ErrInvalid) {
				return ErrorResult("Invalid interaction", err.Error()), nil, nil
			}
			deps.Logger.Error("log interaction failed", "error", err)
			return ErrorResult("Failed to log interaction", "Store may be unavailable"), nil, nil
		}

		deps.Logger.Info("log_interaction completed", "id", created.ID, "hcp_id", created.HCPRef())
		return JSONResult(created), nil, nil
	}
}

// EditUpdates lists the scalar fields edit_interaction may change.
type EditUpdates struct {
	HCPID     *string  `json:"hcp_id,omitempty" jsonschema:"New HCP ID, empty string to clear"`
	RepID     *string  `json:"rep_id,omitempty"`
	Datetime  *string  `json:"datetime,omitempty"`
	Summary   *string  `json:"summary,omitempty"`
	Sentiment *string  `json:"sentiment,omitempty" jsonschema:"positive, neutral or negative"`
	Topics    []string `json:"topics,omitempty"`
	Outcome   *string  `json:"outcome,omitempty"`
}

func (u EditUpdates) patch() models.InteractionPatch {
	var p models.InteractionPatch
	if u.HCPID != nil {
		p.HCPID = models.Some(*u.HCPID)
	}
	if u.RepID != nil {
		p.RepID = models.Some(*u.RepID)
	}
	if u.Datetime != nil {
		p.Datetime = models.Some(*u.Datetime)
	}
	if u.Summary != nil {
		p.Summary = models.Some(*u.Summary)
	}
	if u.Sentiment != nil {
		p.Sentiment = models.Some(models.Sentiment(*u.Sentiment))
	}
	if u.Topics != nil {
		p.Topics = models.Some(u.Topics)
	}
	if u.Outcome != nil {
		p.Outcome = models.Some(*u.Outcome)
	}
	return p
}

// EditInteractionInput defines the input schema for the edit_interaction tool.
type EditInteractionInput struct {
	InteractionID string       `json:"interaction_id" jsonschema:"ID of the interaction to edit"`
	Updates       *EditUpdates `json:"updates,omitempty" jsonschema:"Fields to set"`
	Request       string       `json:"request,omitempty" jsonschema:"Natural-language edit, used when updates is empty"`
}

// NewEditInteractionHandler creates the edit_interaction tool handler.
func NewEditInteractionHandler(deps *Dependencies) mcp.ToolHandlerFor[EditInteractionInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input EditInteractionInput) (*mcp.CallToolResult, any, error) {
		if strings.TrimSpace(input.InteractionID) == "" {
			return ErrorResult("interaction_id cannot be empty", "Provide the ID returned by log_interaction"), nil, nil
		}

		var patch models.InteractionPatch
		if input.Updates != nil {
			patch = input.Updates.patch()
		}

		if patch.IsEmpty() {
			if strings.TrimSpace(input.Request) == "" {
				return ErrorResult("Nothing to edit", "Provide updates or a request"), nil, nil
			}
			res := deps.Agent.Edit(ctx, input.InteractionID, models.EditRequest{EditRequest: input.Request})
			if !res.Success {
				return ErrorResult("Edit failed", res.Error), nil, nil
			}
			return JSONResult(res.Interaction), nil, nil
		}

		updated, err := deps.Store.UpdateInteraction(ctx, input.InteractionID, patch)
		switch {
		case errors.Is(err, store.ErrNotFound):
			return ErrorResult("Interaction not found", "Check the interaction_id"), nil, nil
		case errors.Is(err, store.ErrInvalid):
			return ErrorResult("Invalid update", err.Error()), nil, nil
		case err != nil:
			deps.Logger.Error("edit interaction failed", "error", err)
			return ErrorResult("Failed to edit interaction", "Store may be unavailable"), nil, nil
		}

		deps.Logger.Info("edit_interaction completed", "id", updated.ID)
		return JSONResult(updated), nil, nil
	}
}
