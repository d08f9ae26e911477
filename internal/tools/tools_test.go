package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/fieldlog/internal/agent"
	"github.com/raphaelgruber/fieldlog/internal/models"
	"github.com/raphaelgruber/fieldlog/internal/service"
	"github.com/raphaelgruber/fieldlog/internal/store"
	"github.com/raphaelgruber/fieldlog/internal/tools"
)

// testLogger creates a logger for test visibility.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type fakeGenerator struct{}

func (fakeGenerator) GenerateWithSystem(_ context.Context, _, user string) (string, error) {
	switch {
	case strings.Contains(user, "Analyze the sentiment"):
		return `{"sentiment":"negative","confidence":0.8}`, nil
	case strings.Contains(user, "follow-up actions"):
		return `[{"action_item":"Share trial data","priority":"HIGH"}]`, nil
	case strings.Contains(user, "Edit Request"):
		return `{"summary":"Discussed renal dosing"}`, nil
	}
	return "", errors.New("unexpected prompt")
}

type harness struct {
	session *mcp.ClientSession
	store   *store.Memory
}

func setup(t *testing.T, cfg service.AgentConfig) (*harness, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	st := store.NewMemory()
	_, err := store.Seed(ctx, st)
	require.NoError(t, err)
	cfg.Store = st
	cfg.Logger = testLogger()

	server := mcp.NewServer(&mcp.Implementation{Name: "test-fieldlog", Version: "0.0.1-test"}, nil)
	tools.RegisterAll(server, &tools.Dependencies{
		Store:  st,
		Agent:  service.NewAgentService(cfg),
		Logger: testLogger(),
	})

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	go func() {
		_ = server.Run(ctx, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return &harness{session: session, store: st}, ctx
}

func (h *harness) call(t *testing.T, ctx context.Context, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := h.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err, "CallTool %s should not return a protocol error", name)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content should be text")
	return text.Text, res.IsError
}

func decodeJSON[T any](t *testing.T, text string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(text), &v), text)
	return v
}

func TestRegisterAll(t *testing.T) {
	h, ctx := setup(t, service.AgentConfig{Generator: fakeGenerator{}})

	res, err := h.session.ListTools(ctx, nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description, "tool %s should have a description", tool.Name)
		assert.NotNil(t, tool.InputSchema, "tool %s should have an input schema", tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"log_interaction", "edit_interaction", "search_hcp", "sentiment_analyzer", "followup_suggestor",
	}, names)
}

func TestLogInteraction(t *testing.T) {
	h, ctx := setup(t, service.AgentConfig{Generator: fakeGenerator{}})

	text, isErr := h.call(t, ctx, "log_interaction", map[string]any{
		"hcp_name":  "Dr. Meera Patel",
		"summary":   "Reviewed cardiology data",
		"sentiment": "positive",
		"topics":    []string{"efficacy", " ", "dosing"},
		"materials": []map[string]any{
			{"material_type": "Brochure", "quantity": 2},
			{"material_type": "  ", "quantity": 5},
		},
		"follow_ups": []map[string]any{{"action_item": "Send reprint"}},
	})
	require.False(t, isErr, text)

	got := decodeJSON[models.Interaction](t, text)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, models.DefaultRepID, got.RepID)
	assert.Equal(t, models.ModeStructured, got.Mode)
	assert.Equal(t, []string{"efficacy", "dosing"}, got.Topics)
	require.Len(t, got.Materials, 1, "blank material row should be dropped")
	assert.Equal(t, 2, got.Materials[0].Quantity)
	require.Len(t, got.FollowUps, 1)

	meera, err := h.store.SearchHCPs(ctx, "Meera", 1)
	require.NoError(t, err)
	assert.Equal(t, meera[0].ID, got.HCPRef(), "existing HCP should be reused")

	t.Run("unknown name creates hcp", func(t *testing.T) {
		text, isErr := h.call(t, ctx, "log_interaction", map[string]any{"hcp_name": "Dr. Lena Fischer"})
		require.False(t, isErr, text)
		got := decodeJSON[models.Interaction](t, text)

		found, err := h.store.SearchHCPs(ctx, "Lena", 10)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, found[0].ID, got.HCPRef())
	})

	t.Run("topics with commas stay whole", func(t *testing.T) {
		text, isErr := h.call(t, ctx, "log_interaction", map[string]any{
			"summary": "Safety review",
			"topics":  []string{"Efficacy, safety", "Dosing"},
		})
		require.False(t, isErr, text)
		got := decodeJSON[models.Interaction](t, text)
		assert.Equal(t, []string{"Efficacy, safety", "Dosing"}, got.Topics)
	})

	t.Run("follow-up status", func(t *testing.T) {
		text, isErr := h.call(t, ctx, "log_interaction", map[string]any{
			"follow_ups": []map[string]any{
				{"action_item": "Send reprint", "status": "done"},
				{"action_item": "Call back"},
			},
		})
		require.False(t, isErr, text)
		got := decodeJSON[models.Interaction](t, text)
		require.Len(t, got.FollowUps, 2)
		assert.Equal(t, "done", got.FollowUps[0].Status)
		assert.Equal(t, models.DefaultFollowUpStatus, got.FollowUps[1].Status)
	})

	t.Run("invalid sentiment", func(t *testing.T) {
		text, isErr := h.call(t, ctx, "log_interaction", map[string]any{"summary": "x", "sentiment": "ecstatic"})
		assert.True(t, isErr)
		assert.Contains(t, text, "Invalid sentiment")
	})
}

func TestEditInteraction(t *testing.T) {
	h, ctx := setup(t, service.AgentConfig{Generator: fakeGenerator{}})

	created, err := h.store.CreateInteraction(ctx, models.Interaction{
		RepID:   "rep-7",
		Mode:    models.ModeStructured,
		Summary: "Initial call",
	})
	require.NoError(t, err)

	tests := []struct {
		name        string
		args        map[string]any
		wantErr     string
		wantSummary string
		wantOutcome string
	}{
		{
			name:        "direct updates",
			args:        map[string]any{"interaction_id": created.ID, "updates": map[string]any{"outcome": "Agreed to pilot"}},
			wantSummary: "Initial call",
			wantOutcome: "Agreed to pilot",
		},
		{
			name:        "natural language request",
			args:        map[string]any{"interaction_id": created.ID, "request": "we actually talked about renal dosing"},
			wantSummary: "Discussed renal dosing",
			wantOutcome: "Agreed to pilot",
		},
		{
			name:    "empty id",
			args:    map[string]any{"interaction_id": " "},
			wantErr: "interaction_id cannot be empty",
		},
		{
			name:    "nothing to edit",
			args:    map[string]any{"interaction_id": created.ID},
			wantErr: "Nothing to edit",
		},
		{
			name:    "unknown interaction",
			args:    map[string]any{"interaction_id": "missing", "updates": map[string]any{"summary": "x"}},
			wantErr: "Interaction not found",
		},
		{
			name:    "unknown interaction via request",
			args:    map[string]any{"interaction_id": "missing", "request": "change it"},
			wantErr: "Interaction not found",
		},
		{
			name:    "invalid sentiment",
			args:    map[string]any{"interaction_id": created.ID, "updates": map[string]any{"sentiment": "great"}},
			wantErr: "Invalid update",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := h.call(t, ctx, "edit_interaction", tt.args)
			if tt.wantErr != "" {
				assert.True(t, isErr)
				assert.Contains(t, text, tt.wantErr)
				return
			}
			require.False(t, isErr, text)
			got := decodeJSON[models.Interaction](t, text)
			assert.Equal(t, tt.wantSummary, got.Summary)
			assert.Equal(t, tt.wantOutcome, got.Outcome)
			assert.Equal(t, "rep-7", got.RepID)
		})
	}
}

func TestSearchHCP(t *testing.T) {
	h, ctx := setup(t, service.AgentConfig{Generator: fakeGenerator{}})

	tests := []struct {
		name      string
		args      map[string]any
		wantNames []string
		wantErr   string
	}{
		{name: "substring", args: map[string]any{"name": "an"}, wantNames: []string{"Dr. Rohan Sharma", "Dr. Anita Rao"}},
		{name: "case insensitive", args: map[string]any{"name": "PATEL"}, wantNames: []string{"Dr. Meera Patel"}},
		{name: "limit", args: map[string]any{"name": "dr.", "limit": 1}, wantNames: []string{"Dr. Meera Patel"}},
		{name: "no match", args: map[string]any{"name": "zzz"}, wantNames: []string{}},
		{name: "empty name", args: map[string]any{"name": ""}, wantErr: "Name cannot be empty"},
		{name: "limit too high", args: map[string]any{"name": "dr", "limit": 50}, wantErr: "Limit must be 1-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := h.call(t, ctx, "search_hcp", tt.args)
			if tt.wantErr != "" {
				assert.True(t, isErr)
				assert.Contains(t, text, tt.wantErr)
				return
			}
			require.False(t, isErr, text)
			found := decodeJSON[[]models.HCP](t, text)
			names := []string{}
			for _, f := range found {
				names = append(names, f.Name)
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestAnalysisTools(t *testing.T) {
	h, ctx := setup(t, service.AgentConfig{Generator: fakeGenerator{}})

	t.Run("sentiment", func(t *testing.T) {
		text, isErr := h.call(t, ctx, "sentiment_analyzer", map[string]any{"text": "They were unhappy with pricing"})
		require.False(t, isErr, text)
		got := decodeJSON[agent.SentimentResult](t, text)
		assert.Equal(t, models.SentimentNegative, got.Sentiment)
		assert.InDelta(t, 0.8, got.Confidence, 0.001)
	})

	t.Run("follow-ups", func(t *testing.T) {
		text, isErr := h.call(t, ctx, "followup_suggestor", map[string]any{"summary": "Asked for trial data", "sentiment": "positive"})
		require.False(t, isErr, text)
		got := decodeJSON[[]models.SuggestedFollowUp](t, text)
		require.Len(t, got, 1)
		assert.Equal(t, "Share trial data", got[0].ActionItem)
		assert.Equal(t, "high", got[0].Priority)
	})

	t.Run("empty input", func(t *testing.T) {
		text, isErr := h.call(t, ctx, "sentiment_analyzer", map[string]any{"text": " "})
		assert.True(t, isErr)
		assert.Contains(t, text, "Text cannot be empty")

		text, isErr = h.call(t, ctx, "followup_suggestor", map[string]any{"summary": ""})
		assert.True(t, isErr)
		assert.Contains(t, text, "Summary cannot be empty")
	})
}

func TestAnalysisTools_Unavailable(t *testing.T) {
	h, ctx := setup(t, service.AgentConfig{GeneratorErr: errors.New("GROQ_API_KEY environment variable is not set")})

	text, isErr := h.call(t, ctx, "sentiment_analyzer", map[string]any{"text": "fine"})
	assert.True(t, isErr)
	assert.Contains(t, text, "AI features are unavailable")

	text, isErr = h.call(t, ctx, "edit_interaction", map[string]any{"interaction_id": "missing", "request": "x"})
	assert.True(t, isErr)
	assert.Contains(t, text, "Interaction not found")

	// Structured logging keeps working without a model.
	text, isErr = h.call(t, ctx, "log_interaction", map[string]any{"summary": "Quick visit"})
	assert.False(t, isErr, text)
}
