package capture

import (
	"context"
	"errors"
	"testing"

	"github.com/raphaelgruber/fieldlog/internal/models"
	"github.com/raphaelgruber/fieldlog/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rohanResult() *models.ConversationResult {
	extraction := models.Extraction{
		HCPName:   models.Some("Dr. Rohan"),
		Sentiment: models.Some(models.SentimentNeutral),
		Samples: models.Some([]models.ExtractedSample{
			{ProductCode: models.Some("Product X"), Quantity: models.Some(2)},
		}),
	}
	return &models.ConversationResult{
		Success:       true,
		AIResponse:    "I've extracted the following information",
		ExtractedData: &extraction,
		Interaction:   &models.Interaction{ID: "int-1"},
	}
}

func TestSend_SuccessAppendsAndBroadcasts(t *testing.T) {
	bus := notify.NewBus()
	var events []notify.Event
	bus.Subscribe(func(ev notify.Event) { events = append(events, ev) })

	ext := &fakeExtractor{result: rohanResult()}
	c := NewConversationalCapture(ext, bus, "rep_001", WithGreeting(""))

	ok := c.Send(context.Background(), "  Met Dr. Rohan at 4pm, discussed Product X, gave 2 samples.  ")
	require.True(t, ok)

	tr := c.Transcript()
	require.Len(t, tr, 2)
	assert.Equal(t, RoleUser, tr[0].Role)
	assert.Equal(t, "Met Dr. Rohan at 4pm, discussed Product X, gave 2 samples.", tr[0].Content)
	assert.Equal(t, RoleAssistant, tr[1].Role)
	require.NotNil(t, tr[1].ExtractedData)
	assert.Equal(t, "Dr. Rohan", tr[1].ExtractedData.HCPName.OrElse(""))
	require.NotNil(t, tr[1].Interaction)
	assert.Equal(t, "int-1", tr[1].Interaction.ID)

	require.Len(t, events, 1)
	assert.Equal(t, *tr[1].ExtractedData, events[0].ExtractedData)
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, []models.ConversationRequest{{Text: tr[0].Content, RepID: "rep_001"}}, ext.requests)
}

func TestSend_BlankIsNoop(t *testing.T) {
	ext := &fakeExtractor{result: rohanResult()}
	c := NewConversationalCapture(ext, nil, "rep_001")

	assert.False(t, c.Send(context.Background(), "   \n\t"))
	assert.Len(t, c.Transcript(), 1, "only the greeting")
	assert.Empty(t, ext.requests)
}

func TestSend_NilBusPublisher(t *testing.T) {
	var bus *notify.Bus
	c := NewConversationalCapture(&fakeExtractor{result: rohanResult()}, bus, "rep_001", WithGreeting(""))

	require.NotPanics(t, func() {
		assert.True(t, c.Send(context.Background(), "Met Dr. Rohan"))
	})
	assert.Len(t, c.Transcript(), 2)
	assert.Equal(t, StateIdle, c.State())
}

func TestSend_EmptyExtractionIsNotBroadcast(t *testing.T) {
	bus := notify.NewBus()
	calls := 0
	bus.Subscribe(func(notify.Event) { calls++ })

	res := &models.ConversationResult{Success: true, AIResponse: "ok", ExtractedData: &models.Extraction{}}
	c := NewConversationalCapture(&fakeExtractor{result: res}, bus, "rep_001")
	c.Send(context.Background(), "hello")

	assert.Equal(t, 0, calls)
	assert.Len(t, c.Transcript(), 3)
}

func TestSend_Failures(t *testing.T) {
	tests := []struct {
		name string
		ext  *fakeExtractor
		want string
	}{
		{"service detail", &fakeExtractor{err: &detailError{status: 400, detail: "LLM provider is not configured"}}, "Error: LLM provider is not configured"},
		{"transport error", &fakeExtractor{err: errors.New("dial tcp 127.0.0.1:8000: connection refused")}, "Error: dial tcp 127.0.0.1:8000: connection refused"},
		{"unsuccessful result", &fakeExtractor{result: &models.ConversationResult{Success: false, Error: "bad input"}}, "Error: bad input"},
		{"unsuccessful result without detail", &fakeExtractor{result: &models.ConversationResult{}}, "Error: Failed to process"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := notify.NewBus()
			calls := 0
			bus.Subscribe(func(notify.Event) { calls++ })
			c := NewConversationalCapture(tt.ext, bus, "rep_001", WithGreeting(""))

			require.True(t, c.Send(context.Background(), "hello"))

			tr := c.Transcript()
			require.Len(t, tr, 2)
			assert.Equal(t, tt.want, tr[1].Content)
			assert.Nil(t, tr[1].ExtractedData)
			assert.Equal(t, 0, calls)
			assert.Equal(t, StateIdle, c.State())
		})
	}
}

func TestSend_ConcurrentTurnRejected(t *testing.T) {
	ext := &fakeExtractor{
		result:  rohanResult(),
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	c := NewConversationalCapture(ext, nil, "rep_001", WithGreeting(""))

	done := make(chan bool)
	go func() { done <- c.Send(context.Background(), "first") }()
	<-ext.started

	assert.Equal(t, StateAwaitingResponse, c.State())
	require.Len(t, c.Transcript(), 1, "user message is appended before the reply")
	assert.False(t, c.Send(context.Background(), "second"))

	close(ext.block)
	assert.True(t, <-done)
	assert.Len(t, c.Transcript(), 2)
	assert.Equal(t, StateIdle, c.State())
}

func TestSendInput_ClearsPendingInput(t *testing.T) {
	ext := &fakeExtractor{result: rohanResult()}
	c := NewConversationalCapture(ext, nil, "rep_001", WithGreeting(""))
	c.SetInput("gave two samples")

	require.True(t, c.SendInput(context.Background()))

	assert.Empty(t, c.Input())
	assert.Equal(t, "gave two samples", ext.requests[0].Text)
}

func TestGreeting(t *testing.T) {
	c := NewConversationalCapture(&fakeExtractor{}, nil, "rep_001")
	tr := c.Transcript()
	require.Len(t, tr, 1)
	assert.Equal(t, RoleAssistant, tr[0].Role)
	assert.Equal(t, DefaultGreeting, tr[0].Content)
}
