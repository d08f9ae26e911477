package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/fieldlog/internal/models"
)

// scriptedGenerator answers by system prompt so pipeline order does not matter to the test.
type scriptedGenerator struct {
	mu      sync.Mutex
	answers map[string]string
	errs    map[string]error
	prompts []string
}

func (g *scriptedGenerator) GenerateWithSystem(_ context.Context, system, user string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, user)
	if err := g.errs[system]; err != nil {
		return "", err
	}
	return g.answers[system], nil
}

func TestProcess_FullPipeline(t *testing.T) {
	gen := &scriptedGenerator{answers: map[string]string{
		extractionSystemPrompt: "```json\n" + `{"hcp_name":"Dr. Rohan","summary":"Discussed Product X","samples":[{"product_code":"Product X","quantity":"2"}],"topics":["efficacy"],"outcome":null}` + "\n```",
		sentimentSystemPrompt:  `{"sentiment":"Positive","confidence":0.9}`,
		followUpSystemPrompt:   `[{"action_item":"Send trial data","priority":"High"},{"action_item":"  ","priority":"low"}]`,
	}}

	res, err := New(gen, nil).Process(context.Background(), "Met Dr. Rohan, gave 2 samples of Product X")
	require.NoError(t, err)

	ext := res.Extraction
	assert.Equal(t, "Dr. Rohan", ext.HCPName.OrElse(""))
	assert.Equal(t, models.SentimentPositive, ext.Sentiment.OrElse(""))
	assert.False(t, ext.Outcome.IsSet(), "null outcome is absent")

	samples := ext.Samples.OrElse(nil)
	require.Len(t, samples, 1)
	assert.Equal(t, 2, samples[0].Quantity.OrElse(-1))

	assert.Equal(t, []models.SuggestedFollowUp{{ActionItem: "Send trial data", Priority: "high"}}, ext.SuggestedFollowUps.OrElse(nil))

	assert.Contains(t, res.Reply, "HCP: Dr. Rohan")
	assert.Contains(t, res.Reply, "Sentiment: Positive")
	assert.Contains(t, res.Reply, "Samples: 1 item(s)")
	assert.Contains(t, res.Reply, "1. Send trial data (high priority)")
	assert.Len(t, gen.prompts, 3)
}

func TestProcess_UnparseableExtractionFallsBackToSummary(t *testing.T) {
	gen := &scriptedGenerator{answers: map[string]string{
		extractionSystemPrompt: "Sure! The doctor was happy.",
		sentimentSystemPrompt:  "I'd say this is clearly negative overall",
		followUpSystemPrompt:   "not json",
	}}

	res, err := New(gen, nil).Process(context.Background(), "quick chat at the clinic")
	require.NoError(t, err)

	ext := res.Extraction
	assert.Equal(t, "quick chat at the clinic", ext.Summary.OrElse(""))
	assert.False(t, ext.HCPName.IsSet())
	assert.Equal(t, models.SentimentNegative, ext.Sentiment.OrElse(""))
	assert.Equal(t, []models.SuggestedFollowUp{
		{ActionItem: "Schedule next meeting", Priority: "medium"},
		{ActionItem: "Send requested materials", Priority: "low"},
	}, ext.SuggestedFollowUps.OrElse(nil))
	assert.Contains(t, res.Reply, "HCP: Not specified")
}

func TestProcess_NoSummarySkipsSentimentAndFollowUps(t *testing.T) {
	gen := &scriptedGenerator{answers: map[string]string{
		extractionSystemPrompt: `{"hcp_name":"Dr. Rao"}`,
	}}

	res, err := New(gen, nil).Process(context.Background(), "Dr. Rao")
	require.NoError(t, err)
	assert.False(t, res.Extraction.Sentiment.IsSet())
	assert.False(t, res.Extraction.SuggestedFollowUps.IsSet())
	assert.Len(t, gen.prompts, 1)
}

func TestProcess_GeneratorErrorAborts(t *testing.T) {
	boom := errors.New("connection refused")
	gen := &scriptedGenerator{errs: map[string]error{extractionSystemPrompt: boom}}

	_, err := New(gen, nil).Process(context.Background(), "hello")
	assert.ErrorIs(t, err, boom)
}

func TestAnalyzeSentiment(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   models.Sentiment
	}{
		{"json", `{"sentiment":"negative","confidence":0.6}`, models.SentimentNegative},
		{"unknown label", `{"sentiment":"ecstatic","confidence":1}`, models.SentimentNeutral},
		{"keyword positive", "The tone is positive.", models.SentimentPositive},
		{"no keyword", "hard to say", models.SentimentNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &scriptedGenerator{answers: map[string]string{sentimentSystemPrompt: tt.answer}}
			got, err := New(gen, nil).AnalyzeSentiment(context.Background(), "text")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Sentiment)
		})
	}
}

func TestSuggestFollowUps_NonListFallsBack(t *testing.T) {
	gen := &scriptedGenerator{answers: map[string]string{followUpSystemPrompt: `{"action_item":"x"}`}}

	got, err := New(gen, nil).SuggestFollowUps(context.Background(), "summary", models.SentimentNeutral)
	require.NoError(t, err)
	assert.Equal(t, []models.SuggestedFollowUp{{ActionItem: "Follow up on discussed topics", Priority: "medium"}}, got)
}

func TestSuggestFollowUps_PositiveFallbackPriority(t *testing.T) {
	gen := &scriptedGenerator{answers: map[string]string{followUpSystemPrompt: "nope"}}

	got, err := New(gen, nil).SuggestFollowUps(context.Background(), "summary", models.SentimentPositive)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "high", got[1].Priority)
}

func TestParseEdit(t *testing.T) {
	current := models.Interaction{ID: "i1", Summary: "old", Sentiment: models.SentimentNeutral}

	t.Run("patch", func(t *testing.T) {
		gen := &scriptedGenerator{answers: map[string]string{
			editSystemPrompt: `{"sentiment":"positive","source_raw":"ignored","materials":[]}`,
		}}
		patch, err := New(gen, nil).ParseEdit(context.Background(), current, "mark it positive")
		require.NoError(t, err)
		assert.Equal(t, models.SentimentPositive, patch.Sentiment.OrElse(""))
		assert.False(t, patch.SourceRaw.IsSet())
		assert.False(t, patch.Summary.IsSet())
		assert.True(t, strings.Contains(gen.prompts[0], `"summary":"old"`))
	})

	t.Run("unparseable", func(t *testing.T) {
		gen := &scriptedGenerator{answers: map[string]string{editSystemPrompt: "I changed it for you"}}
		_, err := New(gen, nil).ParseEdit(context.Background(), current, "whatever")
		assert.ErrorIs(t, err, ErrUnparseableEdit)
	})

	t.Run("empty", func(t *testing.T) {
		gen := &scriptedGenerator{answers: map[string]string{editSystemPrompt: `{}`}}
		_, err := New(gen, nil).ParseEdit(context.Background(), current, "nothing")
		assert.ErrorIs(t, err, ErrEmptyEdit)
	})
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n[1]\n```", `[1]`},
		{"  ```json\n{}\n```  ", `{}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripFences(tt.in))
	}
}

func TestComposeReply_Defaults(t *testing.T) {
	got := ComposeReply(models.Extraction{})
	assert.Equal(t, strings.Join([]string{
		"I've extracted the following information:",
		"",
		"HCP: Not specified",
		"Summary: No summary",
		"Sentiment: Neutral",
		"Topics: None",
		"Materials: 0 item(s)",
		"Samples: 0 item(s)",
	}, "\n"), got)
}
