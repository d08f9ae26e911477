package models

// ExtractedMaterial is a material row as inferred from free text.
type ExtractedMaterial struct {
	MaterialType Optional[string] `json:"material_type,omitzero"`
	Quantity     Optional[int]    `json:"quantity,omitzero"`
	Notes        Optional[string] `json:"notes,omitzero"`
}

// ExtractedSample is a sample row as inferred from free text.
type ExtractedSample struct {
	ProductCode Optional[string] `json:"product_code,omitzero"`
	Quantity    Optional[int]    `json:"quantity,omitzero"`
	Lot         Optional[string] `json:"lot,omitzero"`
}

// SuggestedFollowUp is a follow-up proposed by the extraction service.
type SuggestedFollowUp struct {
	ActionItem string `json:"action_item"`
	Priority   string `json:"priority,omitempty"`
}

// Extraction is the Interaction-shaped payload inferred from one conversational turn.
// Every field is optional; partial extractions are the norm.
type Extraction struct {
	HCPName            Optional[string]              `json:"hcp_name,omitzero"`
	Title              Optional[string]              `json:"title,omitzero"`
	Speciality         Optional[string]              `json:"speciality,omitzero"`
	Organisation       Optional[string]              `json:"organisation,omitzero"`
	Datetime           Optional[string]              `json:"datetime,omitzero"`
	Summary            Optional[string]              `json:"summary,omitzero"`
	Sentiment          Optional[Sentiment]           `json:"sentiment,omitzero"`
	Topics             Optional[[]string]            `json:"topics,omitzero"`
	Outcome            Optional[string]              `json:"outcome,omitzero"`
	Materials          Optional[[]ExtractedMaterial] `json:"materials,omitzero"`
	Samples            Optional[[]ExtractedSample]   `json:"samples,omitzero"`
	SuggestedFollowUps Optional[[]SuggestedFollowUp] `json:"suggested_follow_ups,omitzero"`
}

// IsEmpty reports whether no field of the extraction is present.
func (e Extraction) IsEmpty() bool {
	return !e.HCPName.IsSet() && !e.Title.IsSet() && !e.Speciality.IsSet() &&
		!e.Organisation.IsSet() && !e.Datetime.IsSet() && !e.Summary.IsSet() &&
		!e.Sentiment.IsSet() && !e.Topics.IsSet() && !e.Outcome.IsSet() &&
		!e.Materials.IsSet() && !e.Samples.IsSet() && !e.SuggestedFollowUps.IsSet()
}

// Interaction converts the extraction into a conversational Interaction,
// applying the same row filtering as Normalize. Suggested follow-ups become
// open follow-ups owned by the rep.
func (e Extraction) Interaction(repID string, hcpID *string, sourceRaw string) Interaction {
	out := Interaction{
		HCPID:     hcpID,
		RepID:     repID,
		Mode:      ModeConversational,
		Datetime:  e.Datetime.OrElse(""),
		Summary:   e.Summary.OrElse(""),
		Sentiment: e.Sentiment.OrElse(""),
		Topics:    cleanTopics(e.Topics.OrElse(nil)),
		Outcome:   e.Outcome.OrElse(""),
		SourceRaw: sourceRaw,
		Materials: []Material{},
		Samples:   []Sample{},
		FollowUps: []FollowUp{},
	}
	for _, m := range e.Materials.OrElse(nil) {
		out.Materials = append(out.Materials, Material{
			MaterialType: m.MaterialType.OrElse(""),
			Quantity:     max(m.Quantity.OrElse(0), 0),
			Notes:        m.Notes.OrElse(""),
		})
	}
	for _, s := range e.Samples.OrElse(nil) {
		out.Samples = append(out.Samples, Sample{
			ProductCode: s.ProductCode.OrElse(""),
			Quantity:    max(s.Quantity.OrElse(0), 0),
			Lot:         s.Lot.OrElse(""),
		})
	}
	for _, f := range e.SuggestedFollowUps.OrElse(nil) {
		out.FollowUps = append(out.FollowUps, FollowUp{
			ActionItem: f.ActionItem,
			Owner:      repID,
			Status:     DefaultFollowUpStatus,
		})
	}
	return filterRows(out)
}
