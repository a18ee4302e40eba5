package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the namespace prefix for all Ghost Scribe environment variables.
const EnvPrefix = "GHOST_SCRIBE_"

const (
	ProviderAssemblyAI = "assemblyai"
	ProviderDeepgram   = "deepgram"
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderGemini     = "gemini"
)

// Config holds all application configuration. Secrets (API keys) are loaded
// exclusively from environment variables and never appear in the config file.
type Config struct {
	ListenAddr            string `yaml:"listen_addr"`
	DBPath                string `yaml:"db_path"`
	AudioDir              string `yaml:"audio_dir"`
	ExportDir             string `yaml:"export_dir"`
	ClientOrigin          string `yaml:"client_origin"`
	MaxMessageBytes       int64  `yaml:"max_message_bytes"`
	ListPageSize          int    `yaml:"list_page_size"`
	LogLevel              string `yaml:"log_level"`
	LogFormat             string `yaml:"log_format"`
	GDriveFolderID        string `yaml:"gdrive_folder_id"`
	GoogleCredentialsFile string `yaml:"google_credentials_file"`

	Transcription Transcription `yaml:"transcription"`
	Summarization Summarization `yaml:"summarization"`

	// Secrets, env vars only.
	AssemblyAIAPIKey string `yaml:"-"`
	DeepgramAPIKey   string `yaml:"-"`
	OpenAIAPIKey     string `yaml:"-"`
	AnthropicAPIKey  string `yaml:"-"`
	GeminiAPIKey     string `yaml:"-"`
}

type Transcription struct {
	Provider        string `yaml:"provider"`
	Model           string `yaml:"model"`
	Language        string `yaml:"language"`
	ContextWindow   int    `yaml:"context_window"`
	PollInterval    string `yaml:"poll_interval"`
	MaxPollAttempts int    `yaml:"max_poll_attempts"`
	Timeout         string `yaml:"timeout"`
}

type Summarization struct {
	// Model is "provider/model_name", e.g. "openai/gpt-4o-mini".
	Model              string `yaml:"model"`
	MaxTranscriptChars int    `yaml:"max_transcript_chars"`
	Timeout            string `yaml:"timeout"`
}

const (
	defaultPollInterval         = 3 * time.Second
	defaultTranscriptionTimeout = 2 * time.Minute
	defaultSummaryTimeout       = 3 * time.Minute
)

func defaults() Config {
	return Config{
		ListenAddr:            ":4000",
		DBPath:                "data/ghost-scribe.db",
		AudioDir:              "data/audio",
		ExportDir:             "data/transcripts",
		ClientOrigin:          "http://localhost:3001",
		MaxMessageBytes:       25 << 20,
		ListPageSize:          20,
		LogLevel:              "info",
		LogFormat:             "text",
		GoogleCredentialsFile: "./service-account.json",
		Transcription: Transcription{
			Provider:        ProviderAssemblyAI,
			Language:        "en",
			ContextWindow:   5,
			PollInterval:    "3s",
			MaxPollAttempts: 40,
			Timeout:         "2m",
		},
		Summarization: Summarization{
			Model:              "openai/gpt-4o-mini",
			MaxTranscriptChars: 500_000,
			Timeout:            "3m",
		},
	}
}

// Load reads an optional .env file, then configuration from a YAML file (if
// it exists), applies environment variable overrides, loads secrets, and
// validates the result. It returns the config, any validation warnings, and
// an error if a file exists but cannot be read or parsed.
func Load(path string) (Config, []string, error) {
	cfg := defaults()

	if err := loadDotEnv(); err != nil {
		return cfg, nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, nil, fmt.Errorf("read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	loadSecrets(&cfg)

	warnings := validate(&cfg)
	return cfg, warnings, nil
}

// loadDotEnv populates the process environment from a .env file without
// overriding variables that are already set.
func loadDotEnv() error {
	path := os.Getenv(EnvPrefix + "ENV_PATH")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func (c *Config) ParsedPollInterval() time.Duration {
	return parseDuration(c.Transcription.PollInterval, defaultPollInterval)
}

func (c *Config) ParsedTranscriptionTimeout() time.Duration {
	return parseDuration(c.Transcription.Timeout, defaultTranscriptionTimeout)
}

func (c *Config) ParsedSummaryTimeout() time.Duration {
	return parseDuration(c.Summarization.Timeout, defaultSummaryTimeout)
}

// SummarizationProvider returns the provider half of Summarization.Model, or
// "" when the model string is malformed.
func (c *Config) SummarizationProvider() string {
	provider, _, ok := strings.Cut(c.Summarization.Model, "/")
	if !ok {
		return ""
	}
	return provider
}

// APIKey returns the secret for a provider name.
func (c *Config) APIKey(provider string) string {
	switch provider {
	case ProviderAssemblyAI:
		return c.AssemblyAIAPIKey
	case ProviderDeepgram:
		return c.DeepgramAPIKey
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	case ProviderGemini:
		return c.GeminiAPIKey
	default:
		return ""
	}
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.ListenAddr, "LISTEN_ADDR")
	setString(&cfg.DBPath, "DB_PATH")
	setString(&cfg.AudioDir, "AUDIO_DIR")
	setString(&cfg.ExportDir, "EXPORT_DIR")
	setString(&cfg.ClientOrigin, "CLIENT_ORIGIN")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.LogFormat, "LOG_FORMAT")
	setString(&cfg.GDriveFolderID, "GDRIVE_FOLDER_ID")
	setString(&cfg.GoogleCredentialsFile, "GOOGLE_CREDENTIALS_FILE")
	setString(&cfg.Transcription.Provider, "TRANSCRIPTION_PROVIDER")
	setString(&cfg.Transcription.Model, "TRANSCRIPTION_MODEL")
	setString(&cfg.Transcription.Language, "TRANSCRIPTION_LANGUAGE")
	setString(&cfg.Transcription.PollInterval, "TRANSCRIPTION_POLL_INTERVAL")
	setString(&cfg.Transcription.Timeout, "TRANSCRIPTION_TIMEOUT")
	setString(&cfg.Summarization.Model, "SUMMARIZATION_MODEL")
	setString(&cfg.Summarization.Timeout, "SUMMARIZATION_TIMEOUT")

	setInt(&cfg.ListPageSize, "LIST_PAGE_SIZE")
	setInt(&cfg.Transcription.ContextWindow, "TRANSCRIPTION_CONTEXT_WINDOW")
	setInt(&cfg.Transcription.MaxPollAttempts, "TRANSCRIPTION_MAX_POLL_ATTEMPTS")
	setInt(&cfg.Summarization.MaxTranscriptChars, "SUMMARIZATION_MAX_TRANSCRIPT_CHARS")

	if v := os.Getenv(EnvPrefix + "MAX_MESSAGE_BYTES"); v != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && n > 0 {
			cfg.MaxMessageBytes = n
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			*dst = n
		}
	}
}

func loadSecrets(cfg *Config) {
	cfg.AssemblyAIAPIKey = os.Getenv(EnvPrefix + "ASSEMBLYAI_API_KEY")
	cfg.DeepgramAPIKey = os.Getenv(EnvPrefix + "DEEPGRAM_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv(EnvPrefix + "OPENAI_API_KEY")
	cfg.AnthropicAPIKey = os.Getenv(EnvPrefix + "ANTHROPIC_API_KEY")
	cfg.GeminiAPIKey = os.Getenv(EnvPrefix + "GEMINI_API_KEY")
}

func validate(cfg *Config) []string {
	var warnings []string

	switch cfg.Transcription.Provider {
	case ProviderAssemblyAI, ProviderDeepgram, ProviderOpenAI, ProviderGemini:
		if cfg.APIKey(cfg.Transcription.Provider) == "" {
			warnings = append(warnings, fmt.Sprintf("No API key for transcription provider %q: mock transcripts will be used. Set %s%s_API_KEY.",
				cfg.Transcription.Provider, EnvPrefix, strings.ToUpper(cfg.Transcription.Provider)))
		}
	default:
		warnings = append(warnings, fmt.Sprintf("Unknown transcription provider %q: mock transcripts will be used.", cfg.Transcription.Provider))
	}

	switch provider := cfg.SummarizationProvider(); provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
		if cfg.APIKey(provider) == "" {
			warnings = append(warnings, fmt.Sprintf("No API key for summarization provider %q: mock summaries will be used. Set %s%s_API_KEY.",
				provider, EnvPrefix, strings.ToUpper(provider)))
		}
	default:
		warnings = append(warnings, fmt.Sprintf("Unknown summarization model %q (expected provider/model_name): mock summaries will be used.", cfg.Summarization.Model))
	}

	for _, d := range []struct {
		key, value string
		fallback   time.Duration
	}{
		{"transcription.poll_interval", cfg.Transcription.PollInterval, defaultPollInterval},
		{"transcription.timeout", cfg.Transcription.Timeout, defaultTranscriptionTimeout},
		{"summarization.timeout", cfg.Summarization.Timeout, defaultSummaryTimeout},
	} {
		if parsed, err := time.ParseDuration(d.value); err != nil || parsed <= 0 {
			warnings = append(warnings, fmt.Sprintf("Invalid %s %q: using default %s.", d.key, d.value, d.fallback))
		}
	}

	return warnings
}
