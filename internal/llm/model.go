// Package llm provides text generation for the extraction pipeline using langchaingo,
// with a direct Gemini client for Google models.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/raphaelgruber/fieldlog/internal/config"
	"github.com/raphaelgruber/fieldlog/internal/metrics"
)

// ErrNotConfigured is returned when the selected provider lacks credentials.
var ErrNotConfigured = errors.New("llm provider not configured")

// Generator produces a completion for a system and user prompt.
type Generator interface {
	GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// backend is one provider's completion call. Token counts are zero when the
// provider does not report them.
type backend interface {
	generate(ctx context.Context, systemPrompt, userPrompt string) (text string, inputTokens, outputTokens int64, err error)
	close() error
}

// Model wraps a provider backend and records usage metrics.
type Model struct {
	backend   backend
	provider  string
	modelName string
	metrics   *metrics.Collector
}

var _ Generator = (*Model)(nil)

// NewModel creates an LLM model based on configuration. collector may be nil.
func NewModel(ctx context.Context, cfg config.Config, collector *metrics.Collector) (*Model, error) {
	if key := cfg.LLMKeyEnv(); key != "" && cfg.LLMAPIKey() == "" {
		return nil, fmt.Errorf("%w: %s environment variable is not set", ErrNotConfigured, key)
	}

	var (
		b   backend
		err error
	)
	switch cfg.LLMProvider {
	case config.ProviderGroq:
		var model llms.Model
		model, err = openai.New(
			openai.WithToken(cfg.GroqAPIKey),
			openai.WithModel(cfg.LLMModel),
			openai.WithBaseURL(config.GroqBaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("create groq model: %w", err)
		}
		b = &langchainBackend{llm: model}

	case config.ProviderOpenAI:
		var model llms.Model
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}
		b = &langchainBackend{llm: model}

	case config.ProviderAnthropic:
		var model llms.Model
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}
		b = &langchainBackend{llm: model}

	case config.ProviderOllama:
		var model llms.Model
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}
		b = &langchainBackend{llm: model}

	case config.ProviderBedrock:
		awsCfg, awsErr := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if awsErr != nil {
			return nil, fmt.Errorf("load aws config: %w", awsErr)
		}
		var model llms.Model
		model, err = bedrock.New(
			bedrock.WithClient(bedrockruntime.NewFromConfig(awsCfg)),
			bedrock.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create bedrock model: %w", err)
		}
		b = &langchainBackend{llm: model}

	case config.ProviderGemini:
		b, err = newGeminiBackend(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
		if err != nil {
			return nil, fmt.Errorf("create gemini model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return &Model{
		backend:   b,
		provider:  cfg.LLMProvider,
		modelName: cfg.LLMModel,
		metrics:   collector,
	}, nil
}

// GenerateWithSystem generates text with a system prompt.
func (m *Model) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()
	text, in, out, err := m.backend.generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		m.metrics.RecordError(metrics.OpLLMGenerate)
		return "", fmt.Errorf("generate with system: %w", wrapFatalError(err))
	}
	m.metrics.RecordLLMUsage(metrics.OpLLMGenerate, time.Since(start), in, out)
	return text, nil
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}

// Provider returns the configured provider name.
func (m *Model) Provider() string {
	return m.provider
}

// Close releases provider clients that hold connections.
func (m *Model) Close() error {
	return m.backend.close()
}

// langchainBackend serves every provider langchaingo covers.
type langchainBackend struct {
	llm llms.Model
}

func (b *langchainBackend) generate(ctx context.Context, systemPrompt, userPrompt string) (string, int64, int64, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	response, err := b.llm.GenerateContent(ctx, messages, llms.WithTemperature(0.7))
	if err != nil {
		return "", 0, 0, err
	}
	if len(response.Choices) == 0 {
		return "", 0, 0, fmt.Errorf("no response choices")
	}

	choice := response.Choices[0]
	in := tokenCount(choice.GenerationInfo, "PromptTokens", "InputTokens", "prompt_tokens")
	out := tokenCount(choice.GenerationInfo, "CompletionTokens", "OutputTokens", "completion_tokens")
	return choice.Content, in, out, nil
}

func (b *langchainBackend) close() error { return nil }

// tokenCount reads the first usage key present. Providers name and type
// their counters differently.
func tokenCount(info map[string]any, keys ...string) int64 {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return int64(v)
		case int32:
			return int64(v)
		case int64:
			return v
		case float64:
			return int64(v)
		}
	}
	return 0
}
