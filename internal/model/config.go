package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	apperrors "github.com/nhle/agentic-planner/internal/errors"
)

// Store drivers.
const (
	StoreDriverSQLite = "sqlite"
	StoreDriverMongo  = "mongo"
)

// Generator providers.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// DefaultConfidenceThreshold is the minimum confidence a bulk-matched
// progress update needs to be applied.
const DefaultConfidenceThreshold = 0.7

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	// Driver is "sqlite" or "mongo".
	Driver string `mapstructure:"driver" yaml:"driver"`

	// SQLitePath is the database file for the sqlite driver.
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`

	// MongoURI and MongoDatabase configure the mongo driver.
	MongoURI      string `mapstructure:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database" yaml:"mongo_database"`
}

// AIConfig holds settings for the text generation service.
type AIConfig struct {
	Provider  string `mapstructure:"provider" yaml:"provider"`
	Model     string `mapstructure:"model" yaml:"model"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`

	// APIKey falls back to the OS keyring when empty.
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`

	// RequestsPerMinute caps generator calls. Zero disables the limit.
	RequestsPerMinute int `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// ProgressConfig tunes progress reconciliation.
type ProgressConfig struct {
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr           string   `mapstructure:"addr" yaml:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// InboxConfig configures IMAP ingestion of emailed progress reports.
type InboxConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`

	// Password falls back to the OS keyring when empty.
	Password string `mapstructure:"password" yaml:"password,omitempty"`

	TLS             bool   `mapstructure:"tls" yaml:"tls"`
	Mailbox         string `mapstructure:"mailbox" yaml:"mailbox"`
	PollIntervalSec int    `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`

	// Senders maps a sender address to the user id its reports belong to.
	Senders map[string]string `mapstructure:"senders" yaml:"senders"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`

	// File enables a rotated log file in addition to stderr.
	File string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	AI       AIConfig       `mapstructure:"ai" yaml:"ai"`
	Progress ProgressConfig `mapstructure:"progress" yaml:"progress"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Inbox    InboxConfig    `mapstructure:"inbox" yaml:"inbox"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// configDir returns ~/.config/agentic-planner, or "." when the home
// directory is unknown.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "agentic-planner")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/agentic-planner/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Store: StoreConfig{
			Driver:        StoreDriverSQLite,
			SQLitePath:    filepath.Join(configDir(), "planner.db"),
			MongoDatabase: "agentic_planner",
		},
		AI: AIConfig{
			Provider:  ProviderGemini,
			Model:     "gemini-2.0-flash",
			MaxTokens: 4096,
		},
		Progress: ProgressConfig{
			ConfidenceThreshold: DefaultConfidenceThreshold,
		},
		Server: ServerConfig{
			Addr:           ":8000",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Inbox: InboxConfig{
			Port:            "993",
			TLS:             true,
			Mailbox:         "INBOX",
			PollIntervalSec: 300,
			Senders:         map[string]string{},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// keyDelimiter separates nested viper keys. Sender addresses contain dots,
// so the default "." cannot be used.
const keyDelimiter = "::"

func newViper() *viper.Viper {
	return viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))
}

// setDefaults mirrors DefaultAppConfig into v so that missing keys and
// environment overrides resolve consistently.
func setDefaults(v *viper.Viper, d *AppConfig) {
	set := func(key string, value any) {
		v.SetDefault(strings.ReplaceAll(key, ".", keyDelimiter), value)
	}
	set("store.driver", d.Store.Driver)
	set("store.sqlite_path", d.Store.SQLitePath)
	set("store.mongo_uri", d.Store.MongoURI)
	set("store.mongo_database", d.Store.MongoDatabase)
	set("ai.provider", d.AI.Provider)
	set("ai.model", d.AI.Model)
	set("ai.max_tokens", d.AI.MaxTokens)
	set("ai.api_key", "")
	set("ai.requests_per_minute", d.AI.RequestsPerMinute)
	set("progress.confidence_threshold", d.Progress.ConfidenceThreshold)
	set("server.addr", d.Server.Addr)
	set("server.allowed_origins", d.Server.AllowedOrigins)
	set("inbox.host", "")
	set("inbox.port", d.Inbox.Port)
	set("inbox.username", "")
	set("inbox.password", "")
	set("inbox.tls", d.Inbox.TLS)
	set("inbox.mailbox", d.Inbox.Mailbox)
	set("inbox.poll_interval_sec", d.Inbox.PollIntervalSec)
	set("log.level", d.Log.Level)
	set("log.file", "")
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Values can be overridden with PLANNER_-prefixed environment variables
// (PLANNER_AI_API_KEY, PLANNER_STORE_DRIVER, ...). If the file does not
// exist, defaults plus environment overrides are returned.
func LoadConfig(path string) (*AppConfig, error) {
	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelimiter, "_"))
	v.AutomaticEnv()

	setDefaults(v, DefaultAppConfig())

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Inbox.Senders == nil {
		cfg.Inbox.Senders = map[string]string{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks enumerated and ranged values.
func (c *AppConfig) Validate() error {
	switch c.Store.Driver {
	case StoreDriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("%w: store.sqlite_path is required", apperrors.ErrConfigInvalid)
		}
	case StoreDriverMongo:
		if c.Store.MongoURI == "" {
			return fmt.Errorf("%w: store.mongo_uri is required", apperrors.ErrConfigInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown store.driver %q", apperrors.ErrConfigInvalid, c.Store.Driver)
	}

	switch c.AI.Provider {
	case ProviderGemini, ProviderAnthropic:
	default:
		return fmt.Errorf("%w: unknown ai.provider %q", apperrors.ErrConfigInvalid, c.AI.Provider)
	}

	if c.AI.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: ai.requests_per_minute must not be negative", apperrors.ErrConfigInvalid)
	}

	if t := c.Progress.ConfidenceThreshold; t < 0 || t > 1 {
		return fmt.Errorf("%w: progress.confidence_threshold %v outside [0,1]", apperrors.ErrConfigInvalid, t)
	}

	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed. Secrets are not written; they
// belong in the keyring.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	ai := cfg.AI
	ai.APIKey = ""
	inbox := cfg.Inbox
	inbox.Password = ""

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("store", cfg.Store)
	v.Set("ai", ai)
	v.Set("progress", cfg.Progress)
	v.Set("server", cfg.Server)
	v.Set("inbox", inbox)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
