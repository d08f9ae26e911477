package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/raphaelgruber/fieldlog/internal/models"
)

// Memory is a mutex-guarded in-process Store. Data lives as long as the process.
type Memory struct {
	mu           sync.RWMutex
	now          func() time.Time
	hcpOrder     []string
	hcps         map[string]models.HCP
	interactions map[string]models.Interaction
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		now:          time.Now,
		hcps:         make(map[string]models.HCP),
		interactions: make(map[string]models.Interaction),
	}
}

func (m *Memory) Name() string { return "in-memory" }

func (m *Memory) Close(context.Context) error { return nil }

func (m *Memory) CreateHCP(_ context.Context, input models.HCPInput) (*models.HCP, error) {
	h, err := NewHCP(input, m.now().UTC())
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.hcps[h.ID] = h
	m.hcpOrder = append(m.hcpOrder, h.ID)
	m.mu.Unlock()
	return &h, nil
}

func (m *Memory) GetHCP(_ context.Context, id string) (*models.HCP, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.hcps[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &h, nil
}

func (m *Memory) SearchHCPs(_ context.Context, query string, limit int) ([]models.HCP, error) {
	limit = ClampLimit(limit)
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.HCP{}
	for _, id := range m.hcpOrder {
		if h := m.hcps[id]; MatchesName(h.Name, query) {
			out = append(out, h)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) CreateInteraction(_ context.Context, in models.Interaction) (*models.Interaction, error) {
	rec, err := PrepareInteraction(in, m.now().UTC())
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.interactions[rec.ID] = rec
	m.mu.Unlock()
	return cloneInteraction(rec), nil
}

func (m *Memory) GetInteraction(_ context.Context, id string) (*models.Interaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.interactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneInteraction(rec), nil
}

func (m *Memory) UpdateInteraction(_ context.Context, id string, patch models.InteractionPatch) (*models.Interaction, error) {
	patch, err := ValidatePatch(patch)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.interactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	rec = *cloneInteraction(rec)
	patch.Apply(&rec)
	rec.UpdatedAt = m.now().UTC()
	m.interactions[id] = rec
	return cloneInteraction(rec), nil
}

// cloneInteraction copies the slices so callers cannot mutate stored state.
func cloneInteraction(i models.Interaction) *models.Interaction {
	c := i
	if i.HCPID != nil {
		id := *i.HCPID
		c.HCPID = &id
	}
	c.Topics = slices.Clone(i.Topics)
	c.Materials = slices.Clone(i.Materials)
	c.Samples = slices.Clone(i.Samples)
	c.FollowUps = slices.Clone(i.FollowUps)
	return &c
}
