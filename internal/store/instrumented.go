package store

import (
	"context"
	"errors"
	"time"

	"github.com/raphaelgruber/fieldlog/internal/metrics"
	"github.com/raphaelgruber/fieldlog/internal/models"
)

// Instrumented records store timings on a metrics collector.
type Instrumented struct {
	Store
	metrics *metrics.Collector
}

// WithMetrics wraps s so every call is timed under store_query or store_search.
func WithMetrics(s Store, m *metrics.Collector) *Instrumented {
	return &Instrumented{Store: s, metrics: m}
}

// track times fn. Not-found is a normal outcome and is not counted as an error.
func (s *Instrumented) track(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.metrics.RecordError(op)
		return err
	}
	s.metrics.RecordTiming(op, time.Since(start))
	return err
}

func (s *Instrumented) CreateHCP(ctx context.Context, input models.HCPInput) (h *models.HCP, err error) {
	err = s.track(metrics.OpStoreQuery, func() error {
		h, err = s.Store.CreateHCP(ctx, input)
		return err
	})
	return h, err
}

func (s *Instrumented) GetHCP(ctx context.Context, id string) (h *models.HCP, err error) {
	err = s.track(metrics.OpStoreQuery, func() error {
		h, err = s.Store.GetHCP(ctx, id)
		return err
	})
	return h, err
}

func (s *Instrumented) SearchHCPs(ctx context.Context, query string, limit int) (out []models.HCP, err error) {
	err = s.track(metrics.OpStoreSearch, func() error {
		out, err = s.Store.SearchHCPs(ctx, query, limit)
		return err
	})
	return out, err
}

func (s *Instrumented) CreateInteraction(ctx context.Context, in models.Interaction) (out *models.Interaction, err error) {
	err = s.track(metrics.OpStoreQuery, func() error {
		out, err = s.Store.CreateInteraction(ctx, in)
		return err
	})
	return out, err
}

func (s *Instrumented) GetInteraction(ctx context.Context, id string) (out *models.Interaction, err error) {
	err = s.track(metrics.OpStoreQuery, func() error {
		out, err = s.Store.GetInteraction(ctx, id)
		return err
	})
	return out, err
}

func (s *Instrumented) UpdateInteraction(ctx context.Context, id string, patch models.InteractionPatch) (out *models.Interaction, err error) {
	err = s.track(metrics.OpStoreQuery, func() error {
		out, err = s.Store.UpdateInteraction(ctx, id, patch)
		return err
	})
	return out, err
}
