package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/raphaelgruber/fieldlog/internal/models"
)

// A visit note is Markdown with YAML frontmatter for the scalar fields and
// one list section per row kind:
//
//	---
//	hcp: Dr. Meera Patel
//	datetime: 2025-03-04T10:30
//	sentiment: positive
//	topics: [efficacy, dosing]
//	---
//	## Summary
//	Reviewed the new trial data.
//
//	## Materials
//	- Brochure x2; notes: cardiology leaflet
//
//	## Samples
//	- CARDIO-10 x3; lot: L123
//
//	## Follow-ups
//	- Send reprint; due: 2025-03-11; owner: me
//
// Summary and outcome may come from frontmatter or from a section.

var quantityRegex = regexp.MustCompile(`^(.*?)\s+[xX](\d+)$`)

// VisitNote is a parsed visit note.
type VisitNote struct {
	// HCPName is set when the note names the HCP instead of an ID.
	HCPName string
	Draft   models.Draft
}

// ParseVisitNote parses a Markdown visit note into a draft. Row lists are
// kept as written; blank rows are dropped later by models.Normalize.
func ParseVisitNote(content string) (*VisitNote, error) {
	doc, err := ParseMarkdown(content)
	if err != nil {
		return nil, err
	}

	note := &VisitNote{
		HCPName: doc.GetFrontmatterString("hcp"),
		Draft: models.Draft{
			HCPID:    doc.GetFrontmatterString("hcp_id"),
			RepID:    doc.GetFrontmatterString("rep"),
			Datetime: doc.GetFrontmatterString("datetime"),
			Summary:  doc.GetFrontmatterString("summary"),
			Outcome:  doc.GetFrontmatterString("outcome"),
		},
	}
	note.Draft.HCPName = note.HCPName
	if topics := doc.GetFrontmatterStringSlice("topics"); len(topics) > 0 {
		note.Draft.TopicList = topics
		note.Draft.Topics = strings.Join(topics, ", ")
	}

	if s := doc.GetFrontmatterString("sentiment"); s != "" {
		sentiment, ok := models.ParseSentiment(s)
		if !ok {
			return nil, fmt.Errorf("unknown sentiment %q", s)
		}
		note.Draft.Sentiment = sentiment
	}

	if s, ok := doc.Section("Summary"); ok && s != "" {
		note.Draft.Summary = s
	}
	if s, ok := doc.Section("Outcome"); ok && s != "" {
		note.Draft.Outcome = s
	}

	if s, ok := doc.Section("Materials"); ok {
		for _, item := range listItems(s) {
			name, qty, attrs := ParseItem(item)
			note.Draft.Materials = note.Draft.Materials.Add(models.Material{
				MaterialType: name,
				Quantity:     qty,
				Notes:        attrs["notes"],
			})
		}
	}
	if s, ok := doc.Section("Samples"); ok {
		for _, item := range listItems(s) {
			name, qty, attrs := ParseItem(item)
			note.Draft.Samples = note.Draft.Samples.Add(models.Sample{
				ProductCode: name,
				Quantity:    qty,
				Lot:         attrs["lot"],
			})
		}
	}
	if s, ok := doc.Section("Follow-ups", "Follow ups", "Followups"); ok {
		for _, item := range listItems(s) {
			name, _, attrs := ParseItem(item)
			status := attrs["status"]
			if status == "" {
				status = models.DefaultFollowUpStatus
			}
			note.Draft.FollowUps = note.Draft.FollowUps.Add(models.FollowUp{
				ActionItem: name,
				DueDate:    attrs["due"],
				Owner:      attrs["owner"],
				Status:     status,
			})
		}
	}

	return note, nil
}

// listItems returns the text of each "-" or "*" bullet in s.
func listItems(s string) []string {
	var items []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		for _, bullet := range []string{"- ", "* "} {
			if rest, ok := strings.CutPrefix(line, bullet); ok {
				items = append(items, strings.TrimSpace(rest))
				break
			}
		}
	}
	return items
}

// ParseItem splits "name xN; key: value; free text" into its parts.
// Free text without a key is stored under "notes".
func ParseItem(item string) (name string, qty int, attrs map[string]string) {
	attrs = make(map[string]string)
	parts := strings.Split(item, ";")

	name = strings.TrimSpace(parts[0])
	if m := quantityRegex.FindStringSubmatch(name); m != nil {
		name = strings.TrimSpace(m[1])
		qty, _ = strconv.Atoi(m[2])
	}

	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if k, v, ok := strings.Cut(p, ":"); ok && !strings.Contains(k, " ") {
			attrs[strings.ToLower(k)] = strings.TrimSpace(v)
			continue
		}
		attrs["notes"] = p
	}
	return name, qty, attrs
}
