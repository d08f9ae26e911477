package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/fieldlog/internal/metrics"
	"github.com/raphaelgruber/fieldlog/internal/models"
	"github.com/raphaelgruber/fieldlog/internal/notify"
	"github.com/raphaelgruber/fieldlog/internal/store"
)

// promptGenerator answers by recognizing the pipeline step in the user prompt.
type promptGenerator struct {
	extraction string
	sentiment  string
	followUps  string
	edit       string
	err        error
}

func (g promptGenerator) GenerateWithSystem(_ context.Context, _, user string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	switch {
	case strings.Contains(user, "Extract the following"):
		return g.extraction, nil
	case strings.Contains(user, "Analyze the sentiment"):
		return g.sentiment, nil
	case strings.Contains(user, "follow-up actions"):
		return g.followUps, nil
	case strings.Contains(user, "Edit Request"):
		return g.edit, nil
	}
	return "", nil
}

var rohanVisit = promptGenerator{
	extraction: `{"hcp_name":"Dr. Rohan","summary":"Discussed Product X efficacy","samples":[{"product_code":"Product X","quantity":2}],"topics":["efficacy"]}`,
	sentiment:  `{"sentiment":"neutral","confidence":0.7}`,
	followUps:  `[{"action_item":"Send efficacy study","priority":"medium"}]`,
}

func seededStore(t *testing.T) *store.Memory {
	t.Helper()
	s := store.NewMemory()
	_, err := store.Seed(context.Background(), s)
	require.NoError(t, err)
	return s
}

func TestConverse_ResolvesExistingHCPAndPersists(t *testing.T) {
	ctx := context.Background()
	st := seededStore(t)
	bus := notify.NewBus()
	var events []notify.Event
	bus.Subscribe(func(ev notify.Event) { events = append(events, ev) })
	collector := metrics.NewCollector()

	svc := NewAgentService(AgentConfig{Store: st, Generator: rohanVisit, Events: bus, Metrics: collector})
	res := svc.Converse(ctx, models.ConversationRequest{Text: "Met Dr. Rohan, gave 2 samples of Product X"})

	require.True(t, res.Success, res.Error)
	require.NotNil(t, res.Interaction)

	rohan, err := st.SearchHCPs(ctx, "Rohan", 1)
	require.NoError(t, err)
	assert.Equal(t, rohan[0].ID, res.Interaction.HCPRef())
	assert.Equal(t, models.DefaultRepID, res.Interaction.RepID)
	assert.Equal(t, models.ModeConversational, res.Interaction.Mode)
	assert.Equal(t, "Met Dr. Rohan, gave 2 samples of Product X", res.Interaction.SourceRaw)
	require.Len(t, res.Interaction.Samples, 1)
	assert.Equal(t, 2, res.Interaction.Samples[0].Quantity)
	require.Len(t, res.Interaction.FollowUps, 1)
	assert.Equal(t, "open", res.Interaction.FollowUps[0].Status)
	assert.Equal(t, models.DefaultRepID, res.Interaction.FollowUps[0].Owner)

	assert.Equal(t, models.SentimentNeutral, res.Sentiment)
	assert.Contains(t, res.AIResponse, "HCP: Dr. Rohan")

	stored, err := st.GetInteraction(ctx, res.Interaction.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Interaction.ID, stored.ID)

	require.Len(t, events, 1)
	assert.Equal(t, "Dr. Rohan", events[0].ExtractedData.HCPName.OrElse(""))
	assert.Equal(t, res.Interaction.ID, events[0].Interaction.ID)

	assert.EqualValues(t, 1, collector.Snapshot().Extraction.Count)
}

func TestConverse_CreatesUnknownHCP(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	gen := promptGenerator{
		extraction: `{"hcp_name":"Dr. Lena Fischer","speciality":"Oncology","summary":"Intro call"}`,
		sentiment:  `{"sentiment":"positive"}`,
		followUps:  `[]`,
	}

	res := NewAgentService(AgentConfig{Store: st, Generator: gen}).Converse(ctx, models.ConversationRequest{Text: "Intro call with Dr. Lena Fischer", RepID: "rep-7"})
	require.True(t, res.Success, res.Error)

	h, err := st.GetHCP(ctx, res.Interaction.HCPRef())
	require.NoError(t, err)
	assert.Equal(t, "Dr. Lena Fischer", h.Name)
	assert.Equal(t, "Oncology", h.Speciality)
	assert.Equal(t, "rep-7", res.Interaction.RepID)
}

func TestConverse_NoHCPName(t *testing.T) {
	res := NewAgentService(AgentConfig{Store: store.NewMemory(), Generator: promptGenerator{extraction: "garbage", sentiment: "meh", followUps: "[]"}}).
		Converse(context.Background(), models.ConversationRequest{Text: "left brochures at reception"})

	require.True(t, res.Success, res.Error)
	assert.Nil(t, res.Interaction.HCPID)
	assert.Equal(t, "left brochures at reception", res.Interaction.Summary)
}

func TestConverse_Failures(t *testing.T) {
	tests := []struct {
		name    string
		cfg     AgentConfig
		text    string
		wantErr string
	}{
		{
			name:    "blank text",
			cfg:     AgentConfig{Generator: rohanVisit},
			text:    "   ",
			wantErr: "text is required",
		},
		{
			name:    "no generator",
			cfg:     AgentConfig{GeneratorErr: errors.New("GROQ_API_KEY environment variable is not set")},
			text:    "hello",
			wantErr: "GROQ_API_KEY",
		},
		{
			name:    "generator error",
			cfg:     AgentConfig{Generator: promptGenerator{err: errors.New("upstream 503")}},
			text:    "hello",
			wantErr: "upstream 503",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := notify.NewBus()
			published := 0
			bus.Subscribe(func(notify.Event) { published++ })
			tt.cfg.Store = store.NewMemory()
			tt.cfg.Events = bus

			res := NewAgentService(tt.cfg).Converse(context.Background(), models.ConversationRequest{Text: tt.text})
			assert.False(t, res.Success)
			assert.Contains(t, res.Error, tt.wantErr)
			assert.Nil(t, res.Interaction)
			assert.Zero(t, published)
		})
	}
}

func TestEdit(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	created, err := st.CreateInteraction(ctx, models.Interaction{Summary: "old", Sentiment: models.SentimentNeutral})
	require.NoError(t, err)

	t.Run("applies patch", func(t *testing.T) {
		svc := NewAgentService(AgentConfig{Store: st, Generator: promptGenerator{edit: "```json\n{\"sentiment\":\"Positive\"}\n```"}})
		res := svc.Edit(ctx, created.ID, models.EditRequest{EditRequest: "it went well actually"})
		require.True(t, res.Success, res.Error)
		assert.Equal(t, models.SentimentPositive, res.Interaction.Sentiment)
		assert.Equal(t, "old", res.Interaction.Summary)
	})

	t.Run("not found", func(t *testing.T) {
		svc := NewAgentService(AgentConfig{Store: st, Generator: promptGenerator{}})
		res := svc.Edit(ctx, "missing", models.EditRequest{EditRequest: "x"})
		assert.False(t, res.Success)
		assert.Equal(t, "Interaction not found", res.Error)
	})

	t.Run("unparseable", func(t *testing.T) {
		svc := NewAgentService(AgentConfig{Store: st, Generator: promptGenerator{edit: "done!"}})
		res := svc.Edit(ctx, created.ID, models.EditRequest{EditRequest: "x"})
		assert.False(t, res.Success)
		assert.Equal(t, "Could not parse edit request", res.Error)
	})

	t.Run("invalid sentiment", func(t *testing.T) {
		svc := NewAgentService(AgentConfig{Store: st, Generator: promptGenerator{edit: `{"sentiment":"ecstatic"}`}})
		res := svc.Edit(ctx, created.ID, models.EditRequest{EditRequest: "x"})
		assert.False(t, res.Success)
	})
}

func TestAnalyzeSentiment_Unavailable(t *testing.T) {
	svc := NewAgentService(AgentConfig{Store: store.NewMemory()})
	assert.False(t, svc.Available())

	_, err := svc.AnalyzeSentiment(context.Background(), "x")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = svc.SuggestFollowUps(context.Background(), "x", "")
	assert.ErrorIs(t, err, ErrUnavailable)
}
