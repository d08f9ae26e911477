// Package models defines the interaction schema shared by every capture surface.
package models

import (
	"strings"
	"time"
)

// Sentiment is the rep's read of how the HCP received the visit.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ParseSentiment normalizes case and whitespace and reports whether s names a known sentiment.
func ParseSentiment(s string) (Sentiment, bool) {
	switch v := Sentiment(strings.ToLower(strings.TrimSpace(s))); v {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return v, true
	default:
		return "", false
	}
}

// Title returns the capitalized label used in replies and panels.
func (s Sentiment) Title() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// Mode records which capture surface produced an interaction.
type Mode string

const (
	ModeStructured     Mode = "structured"
	ModeConversational Mode = "conversational"
)

// DefaultFollowUpStatus is assigned to follow-ups created without a status.
const DefaultFollowUpStatus = "open"

// HCP is a healthcare professional known to the directory.
type HCP struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Title        string    `json:"title,omitempty"`
	Speciality   string    `json:"speciality,omitempty"`
	Organisation string    `json:"organisation,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitzero"`
	UpdatedAt    time.Time `json:"updated_at,omitzero"`
}

// HCPInput is the body of an HCP creation request.
type HCPInput struct {
	Name         string `json:"name"`
	Title        string `json:"title"`
	Speciality   string `json:"speciality"`
	Organisation string `json:"organisation"`
}

// Material is a piece of promotional or educational material left with the HCP.
type Material struct {
	ID           string `json:"id,omitempty"`
	MaterialType string `json:"material_type"`
	Quantity     int    `json:"quantity"`
	Notes        string `json:"notes,omitempty"`
}

// Sample is a product sample handed over during the visit.
type Sample struct {
	ID          string `json:"id,omitempty"`
	ProductCode string `json:"product_code"`
	Quantity    int    `json:"quantity"`
	Lot         string `json:"lot,omitempty"`
}

// FollowUp is an action item agreed during or suggested after the visit.
type FollowUp struct {
	ID         string `json:"id,omitempty"`
	ActionItem string `json:"action_item"`
	DueDate    string `json:"due_date,omitempty"`
	Owner      string `json:"owner,omitempty"`
	Status     string `json:"status,omitempty"`
}

// Interaction is the canonical record of one rep and HCP encounter.
type Interaction struct {
	ID        string     `json:"id,omitempty"`
	HCPID     *string    `json:"hcp_id"`
	RepID     string     `json:"rep_id,omitempty"`
	Mode      Mode       `json:"mode,omitempty"`
	Datetime  string     `json:"datetime,omitempty"`
	Summary   string     `json:"summary,omitempty"`
	Sentiment Sentiment  `json:"sentiment,omitempty"`
	Topics    []string   `json:"topics"`
	Outcome   string     `json:"outcome,omitempty"`
	SourceRaw string     `json:"source_raw,omitempty"`
	Materials []Material `json:"materials"`
	Samples   []Sample   `json:"samples"`
	FollowUps []FollowUp `json:"follow_ups"`
	CreatedAt time.Time  `json:"created_at,omitzero"`
	UpdatedAt time.Time  `json:"updated_at,omitzero"`
}

// HCPRef returns the resolved HCP id or "" when unresolved.
func (i Interaction) HCPRef() string {
	if i.HCPID == nil {
		return ""
	}
	return *i.HCPID
}

// InteractionPatch updates scalar fields of a stored interaction.
// Nested lists are not patchable; absent fields are left untouched.
type InteractionPatch struct {
	HCPID     Optional[string]    `json:"hcp_id,omitzero"`
	RepID     Optional[string]    `json:"rep_id,omitzero"`
	Mode      Optional[Mode]      `json:"mode,omitzero"`
	Datetime  Optional[string]    `json:"datetime,omitzero"`
	Summary   Optional[string]    `json:"summary,omitzero"`
	Sentiment Optional[Sentiment] `json:"sentiment,omitzero"`
	Topics    Optional[[]string]  `json:"topics,omitzero"`
	Outcome   Optional[string]    `json:"outcome,omitzero"`
	SourceRaw Optional[string]    `json:"source_raw,omitzero"`
}

// IsEmpty reports whether the patch changes nothing.
func (p InteractionPatch) IsEmpty() bool {
	return !p.HCPID.IsSet() && !p.RepID.IsSet() && !p.Mode.IsSet() &&
		!p.Datetime.IsSet() && !p.Summary.IsSet() && !p.Sentiment.IsSet() &&
		!p.Topics.IsSet() && !p.Outcome.IsSet() && !p.SourceRaw.IsSet()
}

// Apply copies the present fields of p onto i.
func (p InteractionPatch) Apply(i *Interaction) {
	if v, ok := p.HCPID.Get(); ok {
		if v == "" {
			i.HCPID = nil
		} else {
			i.HCPID = &v
		}
	}
	if v, ok := p.RepID.Get(); ok {
		i.RepID = v
	}
	if v, ok := p.Mode.Get(); ok {
		i.Mode = v
	}
	if v, ok := p.Datetime.Get(); ok {
		i.Datetime = v
	}
	if v, ok := p.Summary.Get(); ok {
		i.Summary = v
	}
	if v, ok := p.Sentiment.Get(); ok {
		i.Sentiment = v
	}
	if v, ok := p.Topics.Get(); ok {
		i.Topics = v
	}
	if v, ok := p.Outcome.Get(); ok {
		i.Outcome = v
	}
	if v, ok := p.SourceRaw.Get(); ok {
		i.SourceRaw = v
	}
}
