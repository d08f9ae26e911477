// Package agent turns a rep's free-text visit note into an Interaction-shaped
// extraction: entities, then sentiment, then follow-up suggestions, then a reply.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/raphaelgruber/fieldlog/internal/llm"
	"github.com/raphaelgruber/fieldlog/internal/models"
)

// ErrUnparseableEdit is returned when the model's answer to an edit request is not a JSON object.
var ErrUnparseableEdit = errors.New("could not parse edit request")

// ErrEmptyEdit is returned when an edit request names no editable field.
var ErrEmptyEdit = errors.New("edit request changes no editable field")

// Agent runs the extraction pipeline against a text generator.
type Agent struct {
	gen    llm.Generator
	logger *slog.Logger
}

// New creates an agent. A nil logger falls back to slog.Default.
func New(gen llm.Generator, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{gen: gen, logger: logger}
}

// Result is the outcome of one pipeline run.
type Result struct {
	Extraction models.Extraction
	Reply      string
}

// SentimentResult is the sentiment step's answer.
type SentimentResult struct {
	Sentiment  models.Sentiment `json:"sentiment"`
	Confidence float64          `json:"confidence"`
}

// Process runs extract, sentiment, follow-ups and reply in order.
// Generator errors abort the run; malformed model output falls back.
func (a *Agent) Process(ctx context.Context, text string) (*Result, error) {
	ext, err := a.Extract(ctx, text)
	if err != nil {
		return nil, err
	}

	if summary, ok := ext.Summary.Get(); ok && summary != "" {
		sent, err := a.AnalyzeSentiment(ctx, summary)
		if err != nil {
			return nil, err
		}
		ext.Sentiment = models.Some(sent.Sentiment)

		followUps, err := a.SuggestFollowUps(ctx, summary, sent.Sentiment)
		if err != nil {
			return nil, err
		}
		ext.SuggestedFollowUps = models.Some(followUps)
	}

	return &Result{Extraction: ext, Reply: ComposeReply(ext)}, nil
}

// Extract asks the model for entities. Output that is not a JSON object
// falls back to an extraction holding only the text as summary.
func (a *Agent) Extract(ctx context.Context, text string) (models.Extraction, error) {
	out, err := a.gen.GenerateWithSystem(ctx, extractionSystemPrompt, fmt.Sprintf(extractionPrompt, text))
	if err != nil {
		return models.Extraction{}, fmt.Errorf("extract entities: %w", err)
	}

	ext, err := parseExtraction(out)
	if err != nil {
		a.logger.Debug("extraction fallback", "error", err)
		return models.Extraction{Summary: models.Some(text)}, nil
	}
	return ext, nil
}

// AnalyzeSentiment classifies text. Non-JSON answers are classified by
// keyword; unknown labels become neutral.
func (a *Agent) AnalyzeSentiment(ctx context.Context, text string) (SentimentResult, error) {
	out, err := a.gen.GenerateWithSystem(ctx, sentimentSystemPrompt, fmt.Sprintf(sentimentPrompt, text))
	if err != nil {
		return SentimentResult{}, fmt.Errorf("analyze sentiment: %w", err)
	}

	var raw struct {
		Sentiment  string          `json:"sentiment"`
		Confidence json.RawMessage `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(stripFences(out)), &raw); err != nil {
		return keywordSentiment(out), nil
	}

	s, ok := models.ParseSentiment(raw.Sentiment)
	if !ok {
		s = models.SentimentNeutral
	}
	conf, _ := flexFloat(raw.Confidence)
	return SentimentResult{Sentiment: s, Confidence: conf}, nil
}

func keywordSentiment(out string) SentimentResult {
	lower := strings.ToLower(out)
	switch {
	case strings.Contains(lower, "positive"):
		return SentimentResult{Sentiment: models.SentimentPositive, Confidence: 0.8}
	case strings.Contains(lower, "negative"):
		return SentimentResult{Sentiment: models.SentimentNegative, Confidence: 0.8}
	default:
		return SentimentResult{Sentiment: models.SentimentNeutral, Confidence: 0.7}
	}
}

// SuggestFollowUps proposes next steps for a summary.
func (a *Agent) SuggestFollowUps(ctx context.Context, summary string, sentiment models.Sentiment) ([]models.SuggestedFollowUp, error) {
	label := string(sentiment)
	if label == "" {
		label = "unknown"
	}
	out, err := a.gen.GenerateWithSystem(ctx, followUpSystemPrompt, fmt.Sprintf(followUpPrompt, summary, label))
	if err != nil {
		return nil, fmt.Errorf("suggest follow-ups: %w", err)
	}

	var anyJSON any
	if err := json.Unmarshal([]byte(stripFences(out)), &anyJSON); err != nil {
		priority := "low"
		if sentiment == models.SentimentPositive {
			priority = "high"
		}
		return []models.SuggestedFollowUp{
			{ActionItem: "Schedule next meeting", Priority: "medium"},
			{ActionItem: "Send requested materials", Priority: priority},
		}, nil
	}

	var items []models.SuggestedFollowUp
	if _, isList := anyJSON.([]any); !isList || json.Unmarshal([]byte(stripFences(out)), &items) != nil {
		return []models.SuggestedFollowUp{{ActionItem: "Follow up on discussed topics", Priority: "medium"}}, nil
	}

	kept := make([]models.SuggestedFollowUp, 0, len(items))
	for _, it := range items {
		it.ActionItem = strings.TrimSpace(it.ActionItem)
		if it.ActionItem == "" {
			continue
		}
		it.Priority = strings.ToLower(strings.TrimSpace(it.Priority))
		if it.Priority == "" {
			it.Priority = "medium"
		}
		kept = append(kept, it)
	}
	return kept, nil
}

// ParseEdit turns a natural-language request into a patch of scalar fields.
func (a *Agent) ParseEdit(ctx context.Context, current models.Interaction, request string) (models.InteractionPatch, error) {
	body, err := json.Marshal(current)
	if err != nil {
		return models.InteractionPatch{}, fmt.Errorf("marshal interaction: %w", err)
	}

	out, err := a.gen.GenerateWithSystem(ctx, editSystemPrompt, fmt.Sprintf(editPrompt, body, request))
	if err != nil {
		return models.InteractionPatch{}, fmt.Errorf("parse edit: %w", err)
	}

	var patch models.InteractionPatch
	if err := json.Unmarshal([]byte(stripFences(out)), &patch); err != nil {
		a.logger.Debug("edit parse failed", "error", err, "output", out)
		return models.InteractionPatch{}, ErrUnparseableEdit
	}
	patch.SourceRaw = models.None[string]()
	if patch.IsEmpty() {
		return models.InteractionPatch{}, ErrEmptyEdit
	}
	return patch, nil
}

// ComposeReply renders the assistant message for an extraction.
func ComposeReply(e models.Extraction) string {
	var b strings.Builder
	b.WriteString("I've extracted the following information:\n\n")

	hcp := e.HCPName.OrElse("")
	if hcp == "" {
		hcp = "Not specified"
	}
	summary := e.Summary.OrElse("")
	if summary == "" {
		summary = "No summary"
	}
	sentiment := e.Sentiment.OrElse(models.SentimentNeutral)
	if sentiment == "" {
		sentiment = models.SentimentNeutral
	}
	topics := strings.Join(e.Topics.OrElse(nil), ", ")
	if topics == "" {
		topics = "None"
	}

	fmt.Fprintf(&b, "HCP: %s\n", hcp)
	fmt.Fprintf(&b, "Summary: %s\n", summary)
	fmt.Fprintf(&b, "Sentiment: %s\n", sentiment.Title())
	fmt.Fprintf(&b, "Topics: %s\n", topics)
	fmt.Fprintf(&b, "Materials: %d item(s)\n", len(e.Materials.OrElse(nil)))
	fmt.Fprintf(&b, "Samples: %d item(s)\n", len(e.Samples.OrElse(nil)))

	if fus := e.SuggestedFollowUps.OrElse(nil); len(fus) > 0 {
		b.WriteString("\nSuggested Follow-ups:\n")
		for i, fu := range fus {
			priority := fu.Priority
			if priority == "" {
				priority = "medium"
			}
			fmt.Fprintf(&b, "%d. %s (%s priority)\n", i+1, fu.ActionItem, priority)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// stripFences removes a surrounding markdown code fence, with or without a language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// rawExtraction mirrors models.Extraction but tolerates the loose typing
// models produce: quantities as strings, a single topic as a string.
type rawExtraction struct {
	HCPName      models.Optional[string] `json:"hcp_name"`
	Title        models.Optional[string] `json:"title"`
	Speciality   models.Optional[string] `json:"speciality"`
	Organisation models.Optional[string] `json:"organisation"`
	Datetime     models.Optional[string] `json:"datetime"`
	Summary      models.Optional[string] `json:"summary"`
	Sentiment    models.Optional[string] `json:"sentiment"`
	Topics       json.RawMessage         `json:"topics"`
	Outcome      models.Optional[string] `json:"outcome"`
	Materials    []struct {
		MaterialType models.Optional[string] `json:"material_type"`
		Quantity     json.RawMessage         `json:"quantity"`
		Notes        models.Optional[string] `json:"notes"`
	} `json:"materials"`
	Samples []struct {
		ProductCode models.Optional[string] `json:"product_code"`
		Quantity    json.RawMessage         `json:"quantity"`
		Lot         models.Optional[string] `json:"lot"`
	} `json:"samples"`
}

func parseExtraction(out string) (models.Extraction, error) {
	var raw rawExtraction
	if err := json.Unmarshal([]byte(stripFences(out)), &raw); err != nil {
		return models.Extraction{}, err
	}

	ext := models.Extraction{
		HCPName:      raw.HCPName,
		Title:        raw.Title,
		Speciality:   raw.Speciality,
		Organisation: raw.Organisation,
		Datetime:     raw.Datetime,
		Summary:      raw.Summary,
		Outcome:      raw.Outcome,
	}
	if v, ok := raw.Sentiment.Get(); ok {
		if s, valid := models.ParseSentiment(v); valid {
			ext.Sentiment = models.Some(s)
		}
	}
	if topics, ok := parseTopics(raw.Topics); ok {
		ext.Topics = models.Some(topics)
	}
	if raw.Materials != nil {
		rows := make([]models.ExtractedMaterial, 0, len(raw.Materials))
		for _, m := range raw.Materials {
			row := models.ExtractedMaterial{MaterialType: m.MaterialType, Notes: m.Notes}
			if q, ok := flexInt(m.Quantity); ok {
				row.Quantity = models.Some(q)
			}
			rows = append(rows, row)
		}
		ext.Materials = models.Some(rows)
	}
	if raw.Samples != nil {
		rows := make([]models.ExtractedSample, 0, len(raw.Samples))
		for _, s := range raw.Samples {
			row := models.ExtractedSample{ProductCode: s.ProductCode, Lot: s.Lot}
			if q, ok := flexInt(s.Quantity); ok {
				row.Quantity = models.Some(q)
			}
			rows = append(rows, row)
		}
		ext.Samples = models.Some(rows)
	}
	return ext, nil
}

func parseTopics(data json.RawMessage) ([]string, bool) {
	if len(data) == 0 || string(data) == "null" {
		return nil, false
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		return list, true
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil && strings.TrimSpace(one) != "" {
		return []string{one}, true
	}
	return nil, false
}

func flexInt(data json.RawMessage) (int, bool) {
	f, ok := flexFloat(data)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func flexFloat(data json.RawMessage) (float64, bool) {
	if len(data) == 0 || string(data) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
