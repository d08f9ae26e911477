package models

// DefaultRepID is used when a request does not name a rep.
const DefaultRepID = "default_rep"

// ConversationRequest is one free-text turn sent to the extraction service.
type ConversationRequest struct {
	Text  string `json:"text"`
	RepID string `json:"rep_id,omitempty"`
}

// ConversationResult is the extraction service's answer to a turn.
type ConversationResult struct {
	Success            bool                `json:"success"`
	AIResponse         string              `json:"ai_response,omitempty"`
	ExtractedData      *Extraction         `json:"extracted_data,omitempty"`
	Interaction        *Interaction        `json:"interaction,omitempty"`
	Sentiment          Sentiment           `json:"sentiment,omitempty"`
	SuggestedFollowUps []SuggestedFollowUp `json:"suggested_follow_ups,omitempty"`
	Error              string              `json:"error,omitempty"`
}

// EditRequest asks the service to change a stored interaction in plain language.
type EditRequest struct {
	EditRequest string `json:"edit_request"`
	RepID       string `json:"rep_id,omitempty"`
}

// EditResult carries the interaction after a natural-language edit.
type EditResult struct {
	Success     bool         `json:"success"`
	Interaction *Interaction `json:"interaction,omitempty"`
	Error       string       `json:"error,omitempty"`
}
