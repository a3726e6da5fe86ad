// Package config loads and hot-reloads pipeline configuration via viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the full pipeline configuration.
type Config struct {
	// Provider selects the content provider: "gemini", "openai" or "auto"
	// (inferred from Model). Selection happens once at pipeline start.
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`

	// APIKeys maps provider name to key; values may be ${ENV_VAR} references.
	APIKeys map[string]string `mapstructure:"api_keys"`

	// PubMedEmail is sent with Entrez requests per NCBI usage policy.
	PubMedEmail string `mapstructure:"pubmed_email"`

	// Workers bounds per-stage concurrency for chapter, citation and
	// figure processing.
	Workers int `mapstructure:"workers"`

	// CropTopPixels removes a fixed banner from the top of page images
	// before figure analysis. 0 disables cropping.
	CropTopPixels int `mapstructure:"crop_top_pixels"`

	// MaxResultsPerQuery caps PubMed candidates per flagged sentence.
	MaxResultsPerQuery int `mapstructure:"max_results_per_query"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider: "auto",
		Model:    "",
		APIKeys: map[string]string{
			"gemini": "${GEMINI_API_KEY}",
			"openai": "${OPENAI_API_KEY}",
		},
		PubMedEmail:        "${PUBMED_EMAIL}",
		Workers:            3,
		CropTopPixels:      0,
		MaxResultsPerQuery: 3,
	}
}

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a config manager and loads the initial config.
func NewManager(cfgFile string) (*Manager, error) {
	m := &Manager{}
	if err := m.initViper(cfgFile); err != nil {
		return nil, err
	}
	cfg, err := m.load()
	if err != nil {
		return nil, err
	}
	m.config = cfg
	return m, nil
}

func (m *Manager) initViper(cfgFile string) error {
	defaults := DefaultConfig()
	viper.SetDefault("provider", defaults.Provider)
	viper.SetDefault("model", defaults.Model)
	viper.SetDefault("api_keys", defaults.APIKeys)
	viper.SetDefault("pubmed_email", defaults.PubMedEmail)
	viper.SetDefault("workers", defaults.Workers)
	viper.SetDefault("crop_top_pixels", defaults.CropTopPixels)
	viper.SetDefault("max_results_per_query", defaults.MaxResultsPerQuery)

	viper.SetEnvPrefix("SLIDE2THESIS")
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.slide2thesis")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func (m *Manager) load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// OnChange registers a callback for config changes.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// Watch enables hot-reloading of the configuration file.
func (m *Manager) Watch() {
	viper.OnConfigChange(func(fsnotify.Event) {
		cfg, err := m.load()
		if err != nil {
			return
		}
		m.mu.Lock()
		m.config = cfg
		callbacks := make([]func(*Config), len(m.callbacks))
		copy(callbacks, m.callbacks)
		m.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	viper.WatchConfig()
}

var envVarRe = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envVarRe.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// ResolveAPIKey returns the resolved API key for a provider name.
func (c *Config) ResolveAPIKey(provider string) string {
	return ResolveEnvVars(c.APIKeys[provider])
}

// ResolvePubMedEmail returns the resolved PubMed contact email.
func (c *Config) ResolvePubMedEmail() string {
	return ResolveEnvVars(c.PubMedEmail)
}
