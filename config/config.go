// Package config loads the editor's YAML configuration and applies environment
// overrides on top of it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"latex_doc_editor/editor"
	"latex_doc_editor/generator"
	"latex_doc_editor/keypool"
	"latex_doc_editor/layout"
)

// MaxNumberedKeys is the highest N read from API_KEY<N>.
const MaxNumberedKeys = 39

// Config holds all configuration.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Editor  EditorConfig  `yaml:"editor"`
	Layout  LayoutConfig  `yaml:"layout"`
	Server  ServerConfig  `yaml:"server"`
	Journal JournalConfig `yaml:"journal"`
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the language-understanding service and its key rotation.
type LLMConfig struct {
	Provider    string               `yaml:"provider"` // gemini, openai, deepseek, none
	Model       string               `yaml:"model"`
	BaseURL     string               `yaml:"base_url"`
	Keys        []keypool.Credential `yaml:"keys"`
	Cooldown    string               `yaml:"cooldown"`
	MaxAttempts int                  `yaml:"max_attempts"`
	CallTimeout string               `yaml:"call_timeout"`
	Temperature float64              `yaml:"temperature"`
	MaxTokens   int                  `yaml:"max_tokens"`
}

type EditorConfig struct {
	CasePolicy string `yaml:"case_policy"` // upper, title
}

type LayoutConfig struct {
	Profile     string `yaml:"profile"`
	Positioning bool   `yaml:"positioning"`
}

type ServerConfig struct {
	Addr           string `yaml:"addr"`
	RequestTimeout string `yaml:"request_timeout"`
}

// JournalConfig points at the SQLite edit journal. An empty path disables it.
type JournalConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "gemini",
			Model:       generator.DefaultGeminiModel,
			Cooldown:    "60s",
			MaxAttempts: generator.DefaultMaxAttempts,
			CallTimeout: "60s",
			Temperature: 0.1,
			MaxTokens:   2048,
		},
		Editor: EditorConfig{CasePolicy: "upper"},
		Layout: LayoutConfig{Profile: layout.TwoColumn.Name, Positioning: true},
		Server: ServerConfig{
			Addr:           ":8080",
			RequestTimeout: "60s",
		},
		Journal: JournalConfig{Path: "data/edits.db"},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load loads configuration from a YAML file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file. Credential keys are written as well.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.Keys = append([]keypool.Credential{{Name: "GEMINI_API_KEY", Key: key}}, c.LLM.Keys...)
		if c.LLM.Provider == "" {
			c.LLM.Provider = "gemini"
		}
	}
	// 额外的轮换 key：API_KEY1 .. API_KEY39
	for i := 1; i <= MaxNumberedKeys; i++ {
		name := fmt.Sprintf("API_KEY%d", i)
		if key := os.Getenv(name); key != "" {
			c.LLM.Keys = append(c.LLM.Keys, keypool.Credential{Name: name, Key: key})
		}
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && (c.LLM.Provider == "openai" || c.LLM.Provider == "deepseek") {
		c.LLM.Keys = append(c.LLM.Keys, keypool.Credential{Name: "OPENAI_API_KEY", Key: key})
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" && (c.LLM.Provider == "gemini" || c.LLM.Provider == "") {
		c.LLM.Model = model
	}
	if addr := os.Getenv("LATEXEDIT_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if path, ok := os.LookupEnv("LATEXEDIT_JOURNAL"); ok {
		c.Journal.Path = path
	}
	c.LLM.Keys = dedupe(c.LLM.Keys)
}

// dedupe drops credentials whose key was already seen, keeping the first name.
func dedupe(creds []keypool.Credential) []keypool.Credential {
	seen := make(map[string]bool, len(creds))
	out := creds[:0]
	for _, c := range creds {
		if c.Key == "" || seen[c.Key] {
			continue
		}
		seen[c.Key] = true
		out = append(out, c)
	}
	return out
}

// Credentials returns the rotation keys, naming unnamed ones key1, key2, ...
func (c *Config) Credentials() []keypool.Credential {
	out := make([]keypool.Credential, len(c.LLM.Keys))
	for i, cred := range c.LLM.Keys {
		if cred.Name == "" {
			cred.Name = fmt.Sprintf("key%d", i+1)
		}
		out[i] = cred
	}
	return out
}

// LLMSettings returns the per-client settings. The key is injected per call.
func (c *Config) LLMSettings() generator.LLMSettings {
	return generator.LLMSettings{
		Provider:    c.LLM.Provider,
		Model:       c.LLM.Model,
		BaseURL:     c.LLM.BaseURL,
		Temperature: c.LLM.Temperature,
		MaxTokens:   c.LLM.MaxTokens,
	}
}

// LLMEnabled reports whether the service is configured at all.
func (c *Config) LLMEnabled() bool {
	return c.LLM.Provider != "none" && len(c.LLM.Keys) > 0
}

// GetCooldown returns the rate-limit cooldown as a duration.
func (c *Config) GetCooldown() time.Duration {
	return parseDuration(c.LLM.Cooldown, keypool.DefaultCooldown)
}

// GetCallTimeout returns the per-call deadline for the service.
func (c *Config) GetCallTimeout() time.Duration {
	return parseDuration(c.LLM.CallTimeout, generator.DefaultCallTimeout)
}

// GetRequestTimeout returns the HTTP request timeout.
func (c *Config) GetRequestTimeout() time.Duration {
	return parseDuration(c.Server.RequestTimeout, 60*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func (c *Config) CasePolicy() (editor.CasePolicy, error) {
	return editor.ParseCasePolicy(c.Editor.CasePolicy)
}

// LayoutBudget returns the configured page budget with the positioning flag applied.
func (c *Config) LayoutBudget() (layout.Budget, error) {
	b, err := layout.ParseProfile(c.Layout.Profile)
	if err != nil {
		return layout.Budget{}, err
	}
	return b.WithPositioning(c.Layout.Positioning), nil
}

var validLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !slices.Contains(generator.Providers, c.LLM.Provider) {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, generator.Providers)
	}
	if c.LLM.Provider == "deepseek" && c.LLM.BaseURL == "" {
		return fmt.Errorf("llm provider deepseek requires base_url")
	}
	if c.LLM.MaxAttempts < 0 {
		return fmt.Errorf("llm.max_attempts must not be negative: %d", c.LLM.MaxAttempts)
	}
	for field, v := range map[string]string{
		"llm.cooldown":           c.LLM.Cooldown,
		"llm.call_timeout":       c.LLM.CallTimeout,
		"server.request_timeout": c.Server.RequestTimeout,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s %q: %w", field, v, err)
		}
	}
	if _, err := c.CasePolicy(); err != nil {
		return err
	}
	if _, err := c.LayoutBudget(); err != nil {
		return err
	}
	if !slices.Contains(validLevels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, validLevels)
	}
	return nil
}
