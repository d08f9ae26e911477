// Package storetest is a behavioural suite every store.Store backend must pass.
package storetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/fieldlog/internal/models"
	"github.com/raphaelgruber/fieldlog/internal/store"
)

// Run exercises s. newStore must return an empty store for each call.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("CreateAndGetHCP", func(t *testing.T) { testCreateAndGetHCP(t, newStore(t)) })
	t.Run("CreateHCPRequiresName", func(t *testing.T) { testCreateHCPRequiresName(t, newStore(t)) })
	t.Run("SearchHCPs", func(t *testing.T) { testSearchHCPs(t, newStore(t)) })
	t.Run("SearchHCPsLimit", func(t *testing.T) { testSearchHCPsLimit(t, newStore(t)) })
	t.Run("CreateInteractionDefaults", func(t *testing.T) { testCreateInteractionDefaults(t, newStore(t)) })
	t.Run("CreateInteractionRoundTrip", func(t *testing.T) { testCreateInteractionRoundTrip(t, newStore(t)) })
	t.Run("UpdateInteraction", func(t *testing.T) { testUpdateInteraction(t, newStore(t)) })
	t.Run("NegativeQuantityRejected", func(t *testing.T) { testNegativeQuantityRejected(t, newStore(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newStore(t)) })
	t.Run("Seed", func(t *testing.T) { testSeed(t, newStore(t)) })
}

func testCreateAndGetHCP(t *testing.T, s store.Store) {
	ctx := context.Background()
	created, err := s.CreateHCP(ctx, models.HCPInput{Name: "  Dr. Meera Patel ", Speciality: "Cardiology"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Dr. Meera Patel", created.Name)

	got, err := s.GetHCP(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Cardiology", got.Speciality)
}

func testCreateHCPRequiresName(t *testing.T, s store.Store) {
	_, err := s.CreateHCP(context.Background(), models.HCPInput{Name: "   "})
	assert.ErrorIs(t, err, store.ErrInvalid)
}

func testSearchHCPs(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, name := range []string{"Dr. Meera Patel", "Dr. Rohan Sharma", "Dr. Anita Rao"} {
		_, err := s.CreateHCP(ctx, models.HCPInput{Name: name})
		require.NoError(t, err)
	}

	got, err := s.SearchHCPs(ctx, "DR. R", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Dr. Rohan Sharma", got[0].Name)

	got, err = s.SearchHCPs(ctx, "AN", 0)
	require.NoError(t, err)
	names := make([]string, len(got))
	for i, h := range got {
		names[i] = h.Name
	}
	assert.Equal(t, []string{"Dr. Rohan Sharma", "Dr. Anita Rao"}, names, "results keep creation order")

	got, err = s.SearchHCPs(ctx, "nobody", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testSearchHCPsLimit(t *testing.T, s store.Store) {
	ctx := context.Background()
	for i := range store.SearchLimit + 2 {
		_, err := s.CreateHCP(ctx, models.HCPInput{Name: fmt.Sprintf("Dr. Test %02d", i)})
		require.NoError(t, err)
	}

	got, err := s.SearchHCPs(ctx, "test", 0)
	require.NoError(t, err)
	assert.Len(t, got, store.SearchLimit)

	got, err = s.SearchHCPs(ctx, "test", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Dr. Test 00", got[0].Name)
}

func testCreateInteractionDefaults(t *testing.T, s store.Store) {
	created, err := s.CreateInteraction(context.Background(), models.Interaction{
		RepID:     "rep_001",
		FollowUps: []models.FollowUp{{ActionItem: "Send study"}},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.ModeConversational, created.Mode)
	assert.Nil(t, created.HCPID)
	assert.NotNil(t, created.Topics)
	assert.NotNil(t, created.Materials)
	assert.NotNil(t, created.Samples)
	require.Len(t, created.FollowUps, 1)
	assert.Equal(t, "open", created.FollowUps[0].Status)
	assert.NotEmpty(t, created.FollowUps[0].ID)
	assert.False(t, created.CreatedAt.IsZero())
}

func testCreateInteractionRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	hcp, err := s.CreateHCP(ctx, models.HCPInput{Name: "Dr. Anita Rao"})
	require.NoError(t, err)

	in := models.Interaction{
		HCPID:     &hcp.ID,
		RepID:     "rep_001",
		Mode:      models.ModeStructured,
		Datetime:  "2025-06-02T16:05",
		Summary:   "Discussed dosing",
		Sentiment: models.SentimentPositive,
		Topics:    []string{"dosing", "trial"},
		Outcome:   "Will prescribe",
		Materials: []models.Material{{MaterialType: "Brochure", Quantity: 2, Notes: "v2"}},
		Samples:   []models.Sample{{ProductCode: "PX-10", Quantity: 0, Lot: "L1"}},
		FollowUps: []models.FollowUp{{ActionItem: "Call back", DueDate: "2025-06-09", Owner: "rep_001", Status: "done"}},
	}
	created, err := s.CreateInteraction(ctx, in)
	require.NoError(t, err)

	got, err := s.GetInteraction(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, hcp.ID, got.HCPRef())
	assert.Equal(t, models.ModeStructured, got.Mode)
	assert.Equal(t, in.Datetime, got.Datetime)
	assert.Equal(t, in.Summary, got.Summary)
	assert.Equal(t, in.Sentiment, got.Sentiment)
	assert.Equal(t, in.Topics, got.Topics)
	assert.Equal(t, in.Outcome, got.Outcome)
	require.Len(t, got.Materials, 1)
	assert.Equal(t, "Brochure", got.Materials[0].MaterialType)
	assert.Equal(t, 2, got.Materials[0].Quantity)
	require.Len(t, got.Samples, 1)
	assert.Equal(t, "PX-10", got.Samples[0].ProductCode)
	assert.Equal(t, 0, got.Samples[0].Quantity)
	require.Len(t, got.FollowUps, 1)
	assert.Equal(t, "done", got.FollowUps[0].Status)
	assert.Equal(t, "2025-06-09", got.FollowUps[0].DueDate)
}

func testUpdateInteraction(t *testing.T, s store.Store) {
	ctx := context.Background()
	created, err := s.CreateInteraction(ctx, models.Interaction{
		Summary:   "before",
		Outcome:   "kept",
		Materials: []models.Material{{MaterialType: "Leaflet", Quantity: 1}},
	})
	require.NoError(t, err)

	updated, err := s.UpdateInteraction(ctx, created.ID, models.InteractionPatch{
		Summary:   models.Some("after"),
		Sentiment: models.Some(models.Sentiment("Negative")),
	})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Summary)
	assert.Equal(t, models.SentimentNegative, updated.Sentiment)
	assert.Equal(t, "kept", updated.Outcome)
	assert.Len(t, updated.Materials, 1, "lists are not touched by a patch")

	_, err = s.UpdateInteraction(ctx, created.ID, models.InteractionPatch{Sentiment: models.Some(models.Sentiment("ecstatic"))})
	assert.ErrorIs(t, err, store.ErrInvalid)
}

func testNegativeQuantityRejected(t *testing.T, s store.Store) {
	ctx := context.Background()
	tests := []struct {
		name string
		in   models.Interaction
	}{
		{"material", models.Interaction{Materials: []models.Material{{MaterialType: "Brochure", Quantity: -3}}}},
		{"sample", models.Interaction{Samples: []models.Sample{{ProductCode: "PX", Quantity: -1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateInteraction(ctx, tt.in)
			assert.ErrorIs(t, err, store.ErrInvalid)
		})
	}

	created, err := s.CreateInteraction(ctx, models.Interaction{
		Materials: []models.Material{{MaterialType: "Brochure", Quantity: 0}},
	})
	require.NoError(t, err)
	require.Len(t, created.Materials, 1)
	assert.Zero(t, created.Materials[0].Quantity)
}

func testNotFound(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, err := s.GetHCP(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetInteraction(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.UpdateInteraction(ctx, "00000000-0000-0000-0000-000000000000", models.InteractionPatch{Summary: models.Some("x")})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testSeed(t *testing.T, s store.Store) {
	ctx := context.Background()
	n, err := store.Seed(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, len(store.SeedHCPs), n)

	n, err = store.Seed(ctx, s)
	require.NoError(t, err)
	assert.Zero(t, n, "seeding twice creates nothing")
}
