package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Config holds all echocloset configuration. Default() supplies every value;
// Load() overrides them from a .env file and the process environment.
type Config struct {
	Server     ServerConfig
	Store      StoreConfig
	Classifier ClassifierConfig
	Notifier   NotifierConfig
	Journal    JournalConfig
	Ghost      GhostConfig
	Log        LogConfig

	// ClientURL is where CLI subcommands reach a running server.
	ClientURL string `env:"ECHO_URL"`
}

type ServerConfig struct {
	Bind string `env:"ECHO_BIND"`
	Port int    `env:"ECHO_PORT"`
}

type StoreConfig struct {
	Backend string `env:"ECHO_STORE_BACKEND"` // "json" or "sqlite"
	Path    string `env:"ECHO_STORE_PATH"`    // empty: ~/.echocloset/records.{json,db}
}

type ClassifierConfig struct {
	Provider     string        `env:"ECHO_CLASSIFIER"` // "none", "huggingface", "anthropic", "ollama", "openai"
	Timeout      time.Duration `env:"ECHO_CLASSIFIER_TIMEOUT"`
	Model        string        `env:"ECHO_LLM_MODEL"`
	LexiconPath  string        `env:"ECHO_LEXICON_PATH"`
	HFToken      string        `env:"HF_API_TOKEN"`
	AnthropicKey string        `env:"ANTHROPIC_API_KEY"`
	OpenAIKey    string        `env:"OPENAI_API_KEY"`
	OllamaURL    string        `env:"ECHO_OLLAMA_URL"`
}

type NotifierConfig struct {
	Kind       string        `env:"ECHO_NOTIFIER"` // "log", "discord", "webhook"
	Token      string        `env:"DISCORD_BOT_TOKEN"`
	WebhookURL string        `env:"ECHO_WEBHOOK_URL"`
	Timeout    time.Duration `env:"ECHO_NOTIFY_TIMEOUT"`
}

type JournalConfig struct {
	ScanInterval        time.Duration `env:"ECHO_SCAN_INTERVAL"`
	AnalyzeTopK         int           `env:"ECHO_ANALYZE_TOP_K"`
	DefaultCooldownDays int           `env:"ECHO_DEFAULT_COOLDOWN_DAYS"`
	ConfirmWindow       time.Duration `env:"ECHO_CONFIRM_WINDOW"`
}

type GhostConfig struct {
	Enabled  bool   `env:"ECHO_GHOST_MODE"`
	Start    string `env:"ECHO_GHOST_START"` // HH:MM
	End      string `env:"ECHO_GHOST_END"`   // HH:MM
	Timezone string `env:"ECHO_TIMEZONE"`
}

type LogConfig struct {
	Level  string `env:"ECHO_LOG_LEVEL"`
	Format string `env:"ECHO_LOG_FORMAT"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37778,
		},
		Store: StoreConfig{
			Backend: "json",
			Path:    "", // resolved at runtime via store.DefaultPath()
		},
		Classifier: ClassifierConfig{
			Provider:  "none",
			Timeout:   5 * time.Second,
			OllamaURL: "http://localhost:11434",
		},
		Notifier: NotifierConfig{
			Kind:    "log",
			Timeout: 10 * time.Second,
		},
		Journal: JournalConfig{
			ScanInterval:        time.Hour,
			AnalyzeTopK:         5,
			DefaultCooldownDays: 7,
			ConfirmWindow:       30 * time.Second,
		},
		Ghost: GhostConfig{
			Enabled:  false,
			Start:    "02:30",
			End:      "05:00",
			Timezone: "Local",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		ClientURL: "http://127.0.0.1:37778",
	}
}

// Load reads an optional .env file, applies environment overrides on top of
// Default(), and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg := Default()
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case "json", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("ECHO_STORE_BACKEND %q: want json or sqlite", c.Store.Backend))
	}

	switch c.Classifier.Provider {
	case "none", "huggingface", "anthropic", "ollama", "openai":
	default:
		errs = append(errs, fmt.Errorf("ECHO_CLASSIFIER %q: unknown provider", c.Classifier.Provider))
	}
	if c.Classifier.Timeout <= 0 {
		errs = append(errs, errors.New("ECHO_CLASSIFIER_TIMEOUT must be positive"))
	}

	switch c.Notifier.Kind {
	case "log":
	case "discord":
		if c.Notifier.Token == "" {
			errs = append(errs, errors.New("DISCORD_BOT_TOKEN is required for the discord notifier"))
		}
	case "webhook":
		if c.Notifier.WebhookURL == "" {
			errs = append(errs, errors.New("ECHO_WEBHOOK_URL is required for the webhook notifier"))
		}
	default:
		errs = append(errs, fmt.Errorf("ECHO_NOTIFIER %q: unknown notifier", c.Notifier.Kind))
	}

	if c.Journal.ScanInterval <= 0 {
		errs = append(errs, errors.New("ECHO_SCAN_INTERVAL must be positive"))
	}
	if c.Journal.AnalyzeTopK <= 0 {
		errs = append(errs, errors.New("ECHO_ANALYZE_TOP_K must be positive"))
	}
	if c.Journal.DefaultCooldownDays <= 0 {
		errs = append(errs, errors.New("ECHO_DEFAULT_COOLDOWN_DAYS must be positive"))
	}
	if c.Journal.ConfirmWindow <= 0 {
		errs = append(errs, errors.New("ECHO_CONFIRM_WINDOW must be positive"))
	}

	return errors.Join(errs...)
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// Location resolves the ghost-mode timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Ghost.Timezone == "" || c.Ghost.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Ghost.Timezone)
	if err != nil {
		return nil, fmt.Errorf("ECHO_TIMEZONE: %w", err)
	}
	return loc, nil
}
