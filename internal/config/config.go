package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LLM providers.
const (
	ProviderGroq      = "groq"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderBedrock   = "bedrock"
	ProviderGemini    = "gemini"
)

// Store backends.
const (
	StoreMemory    = "memory"
	StoreSurrealDB = "surrealdb"
	StorePostgres  = "postgres"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

var defaultModels = map[string]string{
	ProviderGroq:      "llama-3.1-8b-instant",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-5-haiku-latest",
	ProviderOllama:    "llama3.1",
	ProviderBedrock:   "anthropic.claude-3-haiku-20240307-v1:0",
	ProviderGemini:    "gemini-1.5-flash",
}

// Config holds all configuration values.
type Config struct {
	// HTTP server
	ListenAddr  string   `yaml:"listen_addr"`
	CORSOrigins []string `yaml:"cors_origins"`
	Seed        bool     `yaml:"seed"`

	// Client side
	ServerURL    string `yaml:"server_url"`
	RepID        string `yaml:"rep_id"`
	VoiceCommand string `yaml:"voice_command"`

	// Storage
	Store              string `yaml:"store"`
	SurrealDBURL       string `yaml:"surrealdb_url"`
	SurrealDBNamespace string `yaml:"surrealdb_namespace"`
	SurrealDBDatabase  string `yaml:"surrealdb_database"`
	SurrealDBUser      string `yaml:"surrealdb_user"`
	SurrealDBPass      string `yaml:"surrealdb_pass"`
	SurrealDBAuthLevel string `yaml:"surrealdb_auth_level"`
	PostgresURL        string `yaml:"postgres_url"`

	// Extraction LLM
	LLMProvider     string `yaml:"llm_provider"`
	LLMModel        string `yaml:"llm_model"`
	GroqAPIKey      string `yaml:"groq_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	GeminiAPIKey    string `yaml:"gemini_api_key"`
	OllamaHost      string `yaml:"ollama_host"`
	AWSRegion       string `yaml:"aws_region"`

	// Logging
	LogFile      string     `yaml:"log_file"`
	LogLevelName string     `yaml:"log_level"`
	LogLevel     slog.Level `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr:  ":8000",
		CORSOrigins: []string{"http://localhost:5173", "http://localhost:3000"},

		ServerURL: "http://localhost:8000/api",
		RepID:     "default_rep",

		Store:              StoreMemory,
		SurrealDBURL:       "ws://localhost:8001/rpc",
		SurrealDBNamespace: "fieldlog",
		SurrealDBDatabase:  "crm",
		SurrealDBUser:      "root",
		SurrealDBPass:      "root",
		SurrealDBAuthLevel: "root",

		LLMProvider: ProviderGroq,
		OllamaHost:  "http://localhost:11434",
		AWSRegion:   "us-east-1",

		LogFile:      "/tmp/fieldlog.log",
		LogLevelName: "INFO",
	}
}

// Load builds the configuration from, in increasing precedence: defaults,
// the YAML file named by FIELDLOG_CONFIG (or ./fieldlog.yaml if present),
// and environment variables. A .env file in the working directory is
// loaded into the environment first without overriding existing values.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	path := os.Getenv("FIELDLOG_CONFIG")
	explicit := path != ""
	if !explicit {
		path = "fieldlog.yaml"
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)

	cfg.LogLevel = parseLogLevel(cfg.LogLevelName)
	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultModels[cfg.LLMProvider]
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.ListenAddr = getEnv("FIELDLOG_ADDR", cfg.ListenAddr)
	if origins := os.Getenv("FIELDLOG_CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}
	if seed := os.Getenv("FIELDLOG_SEED"); seed != "" {
		cfg.Seed = seed == "true" || seed == "1"
	}

	cfg.ServerURL = getEnv("FIELDLOG_SERVER_URL", cfg.ServerURL)
	cfg.RepID = getEnv("FIELDLOG_REP_ID", cfg.RepID)
	cfg.VoiceCommand = getEnv("FIELDLOG_VOICE_CMD", cfg.VoiceCommand)

	cfg.Store = getEnv("FIELDLOG_STORE", cfg.Store)
	cfg.SurrealDBURL = getEnv("SURREALDB_URL", cfg.SurrealDBURL)
	cfg.SurrealDBNamespace = getEnv("SURREALDB_NAMESPACE", cfg.SurrealDBNamespace)
	cfg.SurrealDBDatabase = getEnv("SURREALDB_DATABASE", cfg.SurrealDBDatabase)
	cfg.SurrealDBUser = getEnv("SURREALDB_USER", cfg.SurrealDBUser)
	cfg.SurrealDBPass = getEnv("SURREALDB_PASS", cfg.SurrealDBPass)
	cfg.SurrealDBAuthLevel = getEnv("SURREALDB_AUTH_LEVEL", cfg.SurrealDBAuthLevel)
	cfg.PostgresURL = getEnv("DATABASE_URL", cfg.PostgresURL)

	cfg.LLMProvider = strings.ToLower(getEnv("FIELDLOG_LLM_PROVIDER", cfg.LLMProvider))
	cfg.LLMModel = getEnv("FIELDLOG_LLM_MODEL", cfg.LLMModel)
	cfg.GroqAPIKey = getEnv("GROQ_API_KEY", cfg.GroqAPIKey)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.OllamaHost = getEnv("OLLAMA_HOST", cfg.OllamaHost)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)

	cfg.LogFile = getEnv("FIELDLOG_LOG_FILE", cfg.LogFile)
	cfg.LogLevelName = getEnv("FIELDLOG_LOG_LEVEL", cfg.LogLevelName)
}

// Validate reports settings no component can work with.
func (c Config) Validate() error {
	var errs []error
	if !slices.Contains([]string{StoreMemory, StoreSurrealDB, StorePostgres}, c.Store) {
		errs = append(errs, fmt.Errorf("unknown store %q", c.Store))
	}
	if c.Store == StorePostgres && c.PostgresURL == "" {
		errs = append(errs, errors.New("postgres store requires DATABASE_URL"))
	}
	if _, ok := defaultModels[c.LLMProvider]; !ok {
		errs = append(errs, fmt.Errorf("unknown LLM provider %q", c.LLMProvider))
	}
	return errors.Join(errs...)
}

// LLMAPIKey returns the API key for the configured provider. Providers
// that authenticate otherwise (ollama, bedrock) return "".
func (c Config) LLMAPIKey() string {
	switch c.LLMProvider {
	case ProviderGroq:
		return c.GroqAPIKey
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	case ProviderGemini:
		return c.GeminiAPIKey
	}
	return ""
}

// LLMKeyEnv names the environment variable holding the provider's key.
func (c Config) LLMKeyEnv() string {
	switch c.LLMProvider {
	case ProviderGroq:
		return "GROQ_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	}
	return ""
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
