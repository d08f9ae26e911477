package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/fieldlog/internal/capture"
	"github.com/raphaelgruber/fieldlog/internal/models"
	"github.com/raphaelgruber/fieldlog/internal/parser"
)

var (
	logFile      string
	logHCP       string
	logHCPID     string
	logDatetime  string
	logSummary   string
	logSentiment string
	logTopics    string
	logOutcome   string
	logMaterials []string
	logSamples   []string
	logFollowUps []string
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Log a structured interaction",
	Long: `Log a structured interaction from flags or from a Markdown visit note.

Row flags use the same syntax as visit note list items:
  "<name> [xN]; key: value; ..."

An HCP given by name is linked to an existing HCP with exactly that name,
or created on submit.

Examples:
  fieldlog log --hcp "Dr. Meera Patel" --summary "Reviewed trial data" --sentiment positive
  fieldlog log --hcp "Dr. Rao" --material "Brochure x2; notes: cardiology" --sample "CARDIO-10 x3; lot: L123"
  fieldlog log --follow-up "Send reprint; due: 2025-03-11; owner: me; status: done"
  fieldlog log --file visit.md`,
	Args: cobra.NoArgs,
	RunE: runLog,
}

func init() {
	logCmd.Flags().StringVarP(&logFile, "file", "f", "", "Markdown visit note to read")
	logCmd.Flags().StringVar(&logHCP, "hcp", "", "HCP name")
	logCmd.Flags().StringVar(&logHCPID, "hcp-id", "", "ID of a known HCP")
	logCmd.Flags().StringVar(&logDatetime, "datetime", "", "visit time (default now)")
	logCmd.Flags().StringVarP(&logSummary, "summary", "s", "", "discussion summary")
	logCmd.Flags().StringVar(&logSentiment, "sentiment", "", "positive, neutral or negative")
	logCmd.Flags().StringVarP(&logTopics, "topics", "t", "", "comma-separated topics")
	logCmd.Flags().StringVar(&logOutcome, "outcome", "", "outcome of the visit")
	logCmd.Flags().StringArrayVar(&logMaterials, "material", nil, "material row (repeatable)")
	logCmd.Flags().StringArrayVar(&logSamples, "sample", nil, "sample row (repeatable)")
	logCmd.Flags().StringArrayVar(&logFollowUps, "follow-up", nil, "follow-up row (repeatable)")
}

func runLog(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var note *parser.VisitNote
	if logFile != "" {
		content, err := os.ReadFile(logFile)
		if err != nil {
			return fmt.Errorf("read visit note: %w", err)
		}
		note, err = parser.ParseVisitNote(string(content))
		if err != nil {
			return fmt.Errorf("parse %s: %w", logFile, err)
		}
	} else {
		var err error
		note, err = noteFromFlags()
		if err != nil {
			return err
		}
	}

	rep := note.Draft.RepID
	if rep == "" {
		rep = cfg.RepID
	}
	sc := capture.NewStructuredCapture(apiClient, apiClient, rep, capture.WithLogger(logger))
	if err := fillDraft(ctx, sc, note); err != nil {
		return err
	}

	created, err := sc.Submit(ctx)
	if err != nil {
		if st := sc.Status(); st != nil {
			return errors.New(strings.TrimPrefix(st.Message, "Error: "))
		}
		return err
	}

	fmt.Printf("Logged interaction %s\n", created.ID)
	if verbose {
		printInteraction(created)
	}
	return nil
}

func noteFromFlags() (*parser.VisitNote, error) {
	note := &parser.VisitNote{
		HCPName: logHCP,
		Draft: models.Draft{
			HCPID:    logHCPID,
			HCPName:  logHCP,
			Datetime: logDatetime,
			Summary:  logSummary,
			Topics:   logTopics,
			Outcome:  logOutcome,
		},
	}
	if logSentiment != "" {
		s, ok := models.ParseSentiment(logSentiment)
		if !ok {
			return nil, fmt.Errorf("invalid sentiment %q (use positive, neutral or negative)", logSentiment)
		}
		note.Draft.Sentiment = s
	}
	for _, item := range logMaterials {
		name, qty, attrs := parser.ParseItem(item)
		note.Draft.Materials = note.Draft.Materials.Add(models.Material{MaterialType: name, Quantity: qty, Notes: attrs["notes"]})
	}
	for _, item := range logSamples {
		name, qty, attrs := parser.ParseItem(item)
		note.Draft.Samples = note.Draft.Samples.Add(models.Sample{ProductCode: name, Quantity: qty, Lot: attrs["lot"]})
	}
	for _, item := range logFollowUps {
		name, _, attrs := parser.ParseItem(item)
		note.Draft.FollowUps = note.Draft.FollowUps.Add(models.FollowUp{ActionItem: name, DueDate: attrs["due"], Owner: attrs["owner"], Status: attrs["status"]})
	}
	return note, nil
}

// fillDraft replays a parsed note onto sc through the same operations the
// form uses, so normalization and HCP resolution behave identically.
func fillDraft(ctx context.Context, sc *capture.StructuredCapture, note *parser.VisitNote) error {
	d := note.Draft
	scalars := []struct{ field, value string }{
		{"hcp_name", note.HCPName},
		{"datetime", d.Datetime},
		{"summary", d.Summary},
		{"sentiment", string(d.Sentiment)},
		{"topics", d.Topics},
		{"outcome", d.Outcome},
	}
	for _, s := range scalars {
		if s.value == "" {
			continue
		}
		if err := sc.SetField(s.field, s.value); err != nil {
			return err
		}
	}
	if d.TopicList != nil {
		sc.SetTopics(d.TopicList)
	}

	switch {
	case d.HCPID != "":
		sc.SelectCandidate(models.HCP{ID: d.HCPID, Name: note.HCPName})
	case note.HCPName != "":
		if err := sc.Search(ctx, note.HCPName); err != nil {
			return err
		}
		for _, h := range sc.Candidates() {
			if strings.EqualFold(h.Name, strings.TrimSpace(note.HCPName)) {
				sc.SelectCandidate(h)
				break
			}
		}
	}

	for i, m := range d.Materials.Values() {
		if err := fillRow(sc, capture.ListMaterials, i, map[string]string{
			"material_type": m.MaterialType,
			"quantity":      strconv.Itoa(m.Quantity),
			"notes":         m.Notes,
		}); err != nil {
			return err
		}
	}
	for i, s := range d.Samples.Values() {
		if err := fillRow(sc, capture.ListSamples, i, map[string]string{
			"product_code": s.ProductCode,
			"quantity":     strconv.Itoa(s.Quantity),
			"lot":          s.Lot,
		}); err != nil {
			return err
		}
	}
	for i, f := range d.FollowUps.Values() {
		if err := fillRow(sc, capture.ListFollowUps, i, map[string]string{
			"action_item": f.ActionItem,
			"due_date":    f.DueDate,
			"owner":       f.Owner,
			"status":      f.Status,
		}); err != nil {
			return err
		}
	}
	return nil
}

// fillRow writes values into row i of list, adding the row if needed. A
// fresh draft already holds one blank row per list.
func fillRow(sc *capture.StructuredCapture, list capture.List, i int, values map[string]string) error {
	var id models.RowID
	if i == 0 {
		id = firstRowID(sc.Draft(), list)
	}
	if id == "" {
		var err error
		if id, err = sc.AddRow(list); err != nil {
			return err
		}
	}
	for field, value := range values {
		if err := sc.UpdateRow(list, id, field, value); err != nil {
			return err
		}
	}
	return nil
}

func firstRowID(d models.Draft, list capture.List) models.RowID {
	switch list {
	case capture.ListMaterials:
		if len(d.Materials) > 0 {
			return d.Materials[0].ID
		}
	case capture.ListSamples:
		if len(d.Samples) > 0 {
			return d.Samples[0].ID
		}
	case capture.ListFollowUps:
		if len(d.FollowUps) > 0 {
			return d.FollowUps[0].ID
		}
	}
	return ""
}
