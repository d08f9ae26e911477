// Package store defines the persistence boundary for HCPs and interactions
// and provides an in-memory implementation.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/raphaelgruber/fieldlog/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalid is returned for input no backend may store.
	ErrInvalid = errors.New("invalid input")
)

// SearchLimit caps HCP search results.
const SearchLimit = 10

// Store persists HCPs and interactions.
type Store interface {
	CreateHCP(ctx context.Context, input models.HCPInput) (*models.HCP, error)
	GetHCP(ctx context.Context, id string) (*models.HCP, error)
	// SearchHCPs matches query as a case-insensitive substring of the name,
	// oldest first. limit <= 0 means SearchLimit.
	SearchHCPs(ctx context.Context, query string, limit int) ([]models.HCP, error)

	CreateInteraction(ctx context.Context, interaction models.Interaction) (*models.Interaction, error)
	GetInteraction(ctx context.Context, id string) (*models.Interaction, error)
	UpdateInteraction(ctx context.Context, id string, patch models.InteractionPatch) (*models.Interaction, error)

	// Name identifies the backend in health output.
	Name() string
	Close(ctx context.Context) error
}

// NewHCP validates input and builds a record with a fresh id.
func NewHCP(input models.HCPInput, now time.Time) (models.HCP, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return models.HCP{}, fmt.Errorf("%w: name must not be empty", ErrInvalid)
	}
	return models.HCP{
		ID:           uuid.NewString(),
		Name:         name,
		Title:        strings.TrimSpace(input.Title),
		Speciality:   strings.TrimSpace(input.Speciality),
		Organisation: strings.TrimSpace(input.Organisation),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// PrepareInteraction assigns ids and timestamps and fills the defaults every
// backend applies: conversational mode, open follow-ups, empty lists.
// Negative quantities are rejected with ErrInvalid.
func PrepareInteraction(in models.Interaction, now time.Time) (models.Interaction, error) {
	out := in
	out.ID = uuid.NewString()
	if out.HCPID != nil && strings.TrimSpace(*out.HCPID) == "" {
		out.HCPID = nil
	}
	if out.Mode == "" {
		out.Mode = models.ModeConversational
	}
	if out.Mode != models.ModeStructured && out.Mode != models.ModeConversational {
		return models.Interaction{}, fmt.Errorf("%w: unknown mode %q", ErrInvalid, out.Mode)
	}
	if out.Sentiment != "" {
		s, ok := models.ParseSentiment(string(out.Sentiment))
		if !ok {
			return models.Interaction{}, fmt.Errorf("%w: unknown sentiment %q", ErrInvalid, out.Sentiment)
		}
		out.Sentiment = s
	}
	if out.Topics == nil {
		out.Topics = []string{}
	}

	out.Materials = make([]models.Material, len(in.Materials))
	for i, m := range in.Materials {
		if m.Quantity < 0 {
			return models.Interaction{}, fmt.Errorf("%w: material %q has negative quantity %d", ErrInvalid, m.MaterialType, m.Quantity)
		}
		m.ID = uuid.NewString()
		out.Materials[i] = m
	}
	out.Samples = make([]models.Sample, len(in.Samples))
	for i, s := range in.Samples {
		if s.Quantity < 0 {
			return models.Interaction{}, fmt.Errorf("%w: sample %q has negative quantity %d", ErrInvalid, s.ProductCode, s.Quantity)
		}
		s.ID = uuid.NewString()
		out.Samples[i] = s
	}
	out.FollowUps = make([]models.FollowUp, len(in.FollowUps))
	for i, f := range in.FollowUps {
		f.ID = uuid.NewString()
		if f.Status == "" {
			f.Status = models.DefaultFollowUpStatus
		}
		out.FollowUps[i] = f
	}

	out.CreatedAt = now
	out.UpdatedAt = now
	return out, nil
}

// ValidatePatch rejects patch values PrepareInteraction would reject.
func ValidatePatch(p models.InteractionPatch) (models.InteractionPatch, error) {
	if v, ok := p.Mode.Get(); ok && v != models.ModeStructured && v != models.ModeConversational {
		return p, fmt.Errorf("%w: unknown mode %q", ErrInvalid, v)
	}
	if v, ok := p.Sentiment.Get(); ok && v != "" {
		s, valid := models.ParseSentiment(string(v))
		if !valid {
			return p, fmt.Errorf("%w: unknown sentiment %q", ErrInvalid, v)
		}
		p.Sentiment = models.Some(s)
	}
	return p, nil
}

// MatchesName reports whether query is a case-insensitive substring of name.
func MatchesName(name, query string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(query))
}

// ClampLimit maps limit into (0, SearchLimit].
func ClampLimit(limit int) int {
	if limit <= 0 || limit > SearchLimit {
		return SearchLimit
	}
	return limit
}
