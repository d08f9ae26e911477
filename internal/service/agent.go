package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/raphaelgruber/fieldlog/internal/agent"
	"github.com/raphaelgruber/fieldlog/internal/llm"
	"github.com/raphaelgruber/fieldlog/internal/metrics"
	"github.com/raphaelgruber/fieldlog/internal/models"
	"github.com/raphaelgruber/fieldlog/internal/notify"
	"github.com/raphaelgruber/fieldlog/internal/store"
)

// ErrUnavailable is returned by AI operations when no extraction model is configured.
var ErrUnavailable = errors.New("AI features are unavailable")

// AgentConfig wires an AgentService.
type AgentConfig struct {
	Store store.Store
	// Generator is nil when the provider could not be configured;
	// GeneratorErr then says why.
	Generator    llm.Generator
	GeneratorErr error
	// Events receives one event per successful extraction (optional).
	Events  notify.Publisher
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// AgentService runs conversational capture end to end: extraction,
// HCP resolution, persistence and broadcast.
type AgentService struct {
	store       store.Store
	agent       *agent.Agent
	unavailable error
	events      notify.Publisher
	metrics     *metrics.Collector
	logger      *slog.Logger
}

// NewAgentService creates a new agent service.
func NewAgentService(cfg AgentConfig) *AgentService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &AgentService{
		store:   cfg.Store,
		events:  cfg.Events,
		metrics: cfg.Metrics,
		logger:  logger,
	}
	if cfg.Generator != nil {
		s.agent = agent.New(cfg.Generator, logger)
	} else {
		s.unavailable = ErrUnavailable
		if cfg.GeneratorErr != nil {
			s.unavailable = fmt.Errorf("%w: %w", ErrUnavailable, cfg.GeneratorErr)
		}
	}
	return s
}

// Available reports whether an extraction model is configured.
func (s *AgentService) Available() bool {
	return s.agent != nil
}

// Converse processes one conversational turn. Failures are reported in the
// result rather than as an error so callers can forward them verbatim.
func (s *AgentService) Converse(ctx context.Context, req models.ConversationRequest) *models.ConversationResult {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return &models.ConversationResult{Error: "text is required"}
	}
	if s.agent == nil {
		return &models.ConversationResult{
			Error:      s.unavailable.Error(),
			AIResponse: "AI features require a configured extraction model.",
		}
	}
	repID := req.RepID
	if repID == "" {
		repID = models.DefaultRepID
	}

	var res *agent.Result
	err := s.metrics.Track(metrics.OpExtraction, func() error {
		var err error
		res, err = s.agent.Process(ctx, text)
		return err
	})
	if err != nil {
		s.logger.Warn("extraction failed", "error", err)
		return &models.ConversationResult{
			Error:      err.Error(),
			AIResponse: fmt.Sprintf("Error processing: %v", err),
		}
	}
	ext := res.Extraction

	hcpID, err := s.resolveHCP(ctx, ext)
	if err != nil {
		s.logger.Warn("resolve hcp failed", "error", err)
		return &models.ConversationResult{Error: err.Error(), AIResponse: fmt.Sprintf("Error processing: %v", err)}
	}

	created, err := s.store.CreateInteraction(ctx, ext.Interaction(repID, hcpID, req.Text))
	if err != nil {
		s.logger.Warn("store interaction failed", "error", err)
		return &models.ConversationResult{Error: err.Error(), AIResponse: fmt.Sprintf("Error processing: %v", err)}
	}
	s.logger.Info("conversational interaction logged", "id", created.ID, "hcp_id", created.HCPRef(), "rep_id", repID)

	if s.events != nil && !ext.IsEmpty() {
		s.events.Publish(notify.Event{ExtractedData: ext, Interaction: created})
	}

	return &models.ConversationResult{
		Success:            true,
		AIResponse:         res.Reply,
		ExtractedData:      &ext,
		Interaction:        created,
		Sentiment:          ext.Sentiment.OrElse(models.SentimentNeutral),
		SuggestedFollowUps: ext.SuggestedFollowUps.OrElse([]models.SuggestedFollowUp{}),
	}
}

// resolveHCP finds or creates the HCP the extraction names.
// No name means no HCP.
func (s *AgentService) resolveHCP(ctx context.Context, ext models.Extraction) (*string, error) {
	h, created, err := FindOrCreateHCP(ctx, s.store, models.HCPInput{
		Name:         ext.HCPName.OrElse(""),
		Title:        ext.Title.OrElse(""),
		Speciality:   ext.Speciality.OrElse(""),
		Organisation: ext.Organisation.OrElse(""),
	})
	if err != nil || h == nil {
		return nil, err
	}
	if created {
		s.logger.Info("hcp created from conversation", "id", h.ID, "name", h.Name)
	}
	return &h.ID, nil
}

// Edit applies a natural-language edit request to a stored interaction.
func (s *AgentService) Edit(ctx context.Context, id string, req models.EditRequest) *models.EditResult {
	current, err := s.store.GetInteraction(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return &models.EditResult{Error: "Interaction not found"}
	}
	if err != nil {
		return &models.EditResult{Error: err.Error()}
	}
	if strings.TrimSpace(req.EditRequest) == "" {
		return &models.EditResult{Error: "edit_request is required"}
	}
	if s.agent == nil {
		return &models.EditResult{Error: s.unavailable.Error()}
	}

	patch, err := s.agent.ParseEdit(ctx, *current, req.EditRequest)
	if err != nil {
		if errors.Is(err, agent.ErrUnparseableEdit) {
			return &models.EditResult{Error: "Could not parse edit request"}
		}
		return &models.EditResult{Error: err.Error()}
	}

	updated, err := s.store.UpdateInteraction(ctx, id, patch)
	if err != nil {
		return &models.EditResult{Error: err.Error()}
	}
	s.logger.Info("interaction edited", "id", id)
	return &models.EditResult{Success: true, Interaction: updated}
}

// AnalyzeSentiment classifies free text.
func (s *AgentService) AnalyzeSentiment(ctx context.Context, text string) (agent.SentimentResult, error) {
	if s.agent == nil {
		return agent.SentimentResult{}, s.unavailable
	}
	return s.agent.AnalyzeSentiment(ctx, text)
}

// SuggestFollowUps proposes next steps for a summary.
func (s *AgentService) SuggestFollowUps(ctx context.Context, summary string, sentiment models.Sentiment) ([]models.SuggestedFollowUp, error) {
	if s.agent == nil {
		return nil, s.unavailable
	}
	return s.agent.SuggestFollowUps(ctx, summary, sentiment)
}
