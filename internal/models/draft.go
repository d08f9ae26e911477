package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DraftTimeLayout is the minute-precision local timestamp the form edits.
const DraftTimeLayout = "2006-01-02T15:04"

// Draft is the in-progress, unsubmitted state of a structured capture.
type Draft struct {
	HCPID     string
	HCPName   string
	RepID     string
	Datetime  string
	Summary   string
	Sentiment Sentiment
	// Topics is the raw comma-separated text the rep typed.
	Topics    string
	// TopicList holds topics that arrived already split, for example from
	// a YAML list. When non-nil it wins over Topics and is not re-split.
	TopicList []string
	Outcome   string
	Materials Rows[Material]
	Samples   Rows[Sample]
	FollowUps Rows[FollowUp]
}

// NewDraft returns the blank form: one empty row per list, neutral
// sentiment and a timestamp defaulting to now.
func NewDraft(repID string, now time.Time) Draft {
	return Draft{
		RepID:     repID,
		Datetime:  now.Format(DraftTimeLayout),
		Sentiment: SentimentNeutral,
		Materials: NewRows(Material{}),
		Samples:   NewRows(Sample{}),
		FollowUps: NewRows(FollowUp{Status: DefaultFollowUpStatus}),
	}
}

// Normalize turns a draft into a submittable structured Interaction.
// Rows whose key field is blank are dropped, topics are split on commas
// unless TopicList is set, scalar fields pass through unchanged. It never fails.
func Normalize(d Draft) Interaction {
	var hcpID *string
	if d.HCPID != "" {
		id := d.HCPID
		hcpID = &id
	}
	return filterRows(Interaction{
		HCPID:     hcpID,
		RepID:     d.RepID,
		Mode:      ModeStructured,
		Datetime:  d.Datetime,
		Summary:   d.Summary,
		Sentiment: d.Sentiment,
		Topics:    d.topics(),
		Outcome:   d.Outcome,
		Materials: d.Materials.Values(),
		Samples:   d.Samples.Values(),
		FollowUps: d.FollowUps.Values(),
	})
}

func (d Draft) topics() []string {
	if d.TopicList != nil {
		return cleanTopics(d.TopicList)
	}
	return SplitTopics(d.Topics)
}

// SplitTopics splits comma-separated text into trimmed, non-empty topics.
func SplitTopics(s string) []string {
	return cleanTopics(strings.Split(s, ","))
}

func cleanTopics(topics []string) []string {
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// filterRows drops rows with a blank key field and clamps negative quantities.
func filterRows(in Interaction) Interaction {
	materials := make([]Material, 0, len(in.Materials))
	for _, m := range in.Materials {
		if isBlank(m.MaterialType) {
			continue
		}
		m.Quantity = max(m.Quantity, 0)
		materials = append(materials, m)
	}
	samples := make([]Sample, 0, len(in.Samples))
	for _, s := range in.Samples {
		if isBlank(s.ProductCode) {
			continue
		}
		s.Quantity = max(s.Quantity, 0)
		samples = append(samples, s)
	}
	followUps := make([]FollowUp, 0, len(in.FollowUps))
	for _, f := range in.FollowUps {
		if isBlank(f.ActionItem) {
			continue
		}
		followUps = append(followUps, f)
	}
	in.Materials = materials
	in.Samples = samples
	in.FollowUps = followUps
	if in.Topics == nil {
		in.Topics = []string{}
	}
	return in
}

// parseQuantity mirrors a numeric form input: anything unparseable counts as 0.
func parseQuantity(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return n
}

// With returns m with one named field replaced.
func (m Material) With(field, value string) (Material, error) {
	switch field {
	case "material_type":
		m.MaterialType = value
	case "quantity":
		m.Quantity = parseQuantity(value)
	case "notes":
		m.Notes = value
	default:
		return m, fmt.Errorf("unknown material field %q", field)
	}
	return m, nil
}

// With returns s with one named field replaced.
func (s Sample) With(field, value string) (Sample, error) {
	switch field {
	case "product_code":
		s.ProductCode = value
	case "quantity":
		s.Quantity = parseQuantity(value)
	case "lot":
		s.Lot = value
	default:
		return s, fmt.Errorf("unknown sample field %q", field)
	}
	return s, nil
}

// With returns f with one named field replaced.
func (f FollowUp) With(field, value string) (FollowUp, error) {
	switch field {
	case "action_item":
		f.ActionItem = value
	case "due_date":
		f.DueDate = value
	case "owner":
		f.Owner = value
	case "status":
		f.Status = value
	default:
		return f, fmt.Errorf("unknown follow-up field %q", field)
	}
	return f, nil
}
