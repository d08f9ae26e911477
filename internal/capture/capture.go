// Package capture implements the two interaction capture surfaces: a
// structured form with list editing and two-phase submission, and a
// conversational assistant that turns free text into an extraction.
package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/raphaelgruber/fieldlog/internal/models"
)

var (
	// ErrSubmitInProgress is returned when Submit is called while a submission is in flight.
	ErrSubmitInProgress = errors.New("submission already in progress")

	// ErrVoiceUnsupported is reported the first time voice input is tried
	// on a host that cannot recognize speech.
	ErrVoiceUnsupported = errors.New("speech recognition is not supported here")

	// ErrVoiceUnavailable is returned on later attempts once ErrVoiceUnsupported was reported.
	ErrVoiceUnavailable = errors.New("voice input unavailable")
)

// Directory resolves and creates HCP records.
type Directory interface {
	SearchHCPs(ctx context.Context, query string) ([]models.HCP, error)
	CreateHCP(ctx context.Context, input models.HCPInput) (*models.HCP, error)
}

// InteractionSink persists a normalized interaction.
type InteractionSink interface {
	CreateInteraction(ctx context.Context, interaction models.Interaction) (*models.Interaction, error)
}

// Extractor turns one free-text turn into an extraction.
type Extractor interface {
	Converse(ctx context.Context, req models.ConversationRequest) (*models.ConversationResult, error)
}

// detailer is implemented by boundary errors that carry a user-facing detail.
type detailer interface {
	ErrorDetail() string
}

// describeError prefers the detail reported by the service over the transport error text.
func describeError(err error) string {
	var d detailer
	if errors.As(err, &d) && d.ErrorDetail() != "" {
		return d.ErrorDetail()
	}
	return err.Error()
}

// StatusLevel classifies a status message.
type StatusLevel int

const (
	StatusSuccess StatusLevel = iota
	StatusError
)

// Status is a transient, dismissible message about the last operation.
type Status struct {
	Level   StatusLevel
	Message string
}

type options struct {
	logger     *slog.Logger
	now        func() time.Time
	greeting   string
	recognizer Recognizer
}

// Option configures a capture component.
type Option func(*options)

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock overrides time.Now, used for the draft's default timestamp.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithGreeting sets the assistant message the transcript starts with. Empty disables it.
func WithGreeting(text string) Option {
	return func(o *options) { o.greeting = text }
}

// WithRecognizer sets the voice input adapter.
func WithRecognizer(r Recognizer) Option {
	return func(o *options) { o.recognizer = r }
}

func buildOptions(opts []Option) options {
	o := options{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
		greeting: DefaultGreeting,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
