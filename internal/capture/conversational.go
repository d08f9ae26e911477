package capture

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/raphaelgruber/fieldlog/internal/models"
	"github.com/raphaelgruber/fieldlog/internal/notify"
)

// DefaultGreeting opens every new transcript.
const DefaultGreeting = `Hi! I can help you log interactions with HCPs. Just tell me what happened, like:

"Met Dr. Rohan at 4pm, discussed Product X, gave 2 samples."

I'll extract all the details and log it for you!`

// Role identifies who wrote a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry. Assistant replies to a successful turn
// carry the extraction and the interaction the service stored for it.
type Message struct {
	Role          Role                `json:"role"`
	Content       string              `json:"content"`
	ExtractedData *models.Extraction  `json:"extractedData,omitempty"`
	Interaction   *models.Interaction `json:"interaction,omitempty"`
}

// TurnState is the state of the current conversation turn.
type TurnState int

const (
	StateIdle TurnState = iota
	StateAwaitingResponse
)

func (s TurnState) String() string {
	if s == StateAwaitingResponse {
		return "awaiting_response"
	}
	return "idle"
}

// ConversationalCapture holds an append-only transcript and runs one turn
// at a time against the extraction service. Non-empty extractions are
// published on the bus after the reply is appended.
type ConversationalCapture struct {
	extractor Extractor
	publisher notify.Publisher
	repID     string
	logger    *slog.Logger
	voice     Recognizer

	mu         sync.Mutex
	transcript []Message
	state      TurnState
	input      string
	listening  bool
	voiceState voiceState
}

// NewConversationalCapture returns an idle capture. publisher, or the
// *notify.Bus behind it, may be nil when nothing observes extractions.
func NewConversationalCapture(extractor Extractor, publisher notify.Publisher, repID string, opts ...Option) *ConversationalCapture {
	o := buildOptions(opts)
	c := &ConversationalCapture{
		extractor: extractor,
		publisher: publisher,
		repID:     repID,
		logger:    o.logger,
		voice:     o.recognizer,
	}
	if c.voice == nil {
		c.voiceState = voiceUnsupported
	}
	if o.greeting != "" {
		c.transcript = append(c.transcript, Message{Role: RoleAssistant, Content: o.greeting})
	}
	return c
}

// Transcript returns a copy of the transcript.
func (c *ConversationalCapture) Transcript() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.transcript...)
}

// State returns the current turn state.
func (c *ConversationalCapture) State() TurnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Input returns the pending, unsent input text.
func (c *ConversationalCapture) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// SetInput replaces the pending input text.
func (c *ConversationalCapture) SetInput(text string) {
	c.mu.Lock()
	c.input = text
	c.mu.Unlock()
}

// SendInput sends the pending input and clears it when a turn starts.
func (c *ConversationalCapture) SendInput(ctx context.Context) bool {
	c.mu.Lock()
	text := c.input
	c.mu.Unlock()

	return c.send(ctx, text, true)
}

// Send runs one turn for text and blocks until the reply is appended.
// It returns false without doing anything when text is blank or a turn is
// already awaiting its response.
func (c *ConversationalCapture) Send(ctx context.Context, text string) bool {
	return c.send(ctx, text, false)
}

func (c *ConversationalCapture) send(ctx context.Context, text string, clearInput bool) bool {
	msg := strings.TrimSpace(text)

	c.mu.Lock()
	if msg == "" || c.state == StateAwaitingResponse {
		c.mu.Unlock()
		return false
	}
	c.state = StateAwaitingResponse
	if clearInput {
		c.input = ""
	}
	c.transcript = append(c.transcript, Message{Role: RoleUser, Content: msg})
	c.mu.Unlock()

	res, err := c.extractor.Converse(ctx, models.ConversationRequest{Text: msg, RepID: c.repID})

	var reply Message
	var event *notify.Event
	switch {
	case err != nil:
		c.logger.Warn("conversational turn failed", "error", err)
		reply = Message{Role: RoleAssistant, Content: "Error: " + describeError(err)}
	case res == nil || !res.Success:
		var detail string
		if res != nil {
			detail = res.Error
		}
		if detail == "" {
			detail = "Failed to process"
		}
		reply = Message{Role: RoleAssistant, Content: "Error: " + detail}
	default:
		reply = Message{
			Role:          RoleAssistant,
			Content:       res.AIResponse,
			ExtractedData: res.ExtractedData,
			Interaction:   res.Interaction,
		}
		if res.ExtractedData != nil && !res.ExtractedData.IsEmpty() {
			event = &notify.Event{ExtractedData: *res.ExtractedData, Interaction: res.Interaction}
		}
	}

	c.mu.Lock()
	c.transcript = append(c.transcript, reply)
	c.state = StateIdle
	c.mu.Unlock()

	if event != nil && c.publisher != nil {
		c.publisher.Publish(*event)
	}
	return true
}
