package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"dario.cat/mergo"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/comrude/comrude/memory"
)

// Default values from environment variables
var (
	defaultModel       = getEnvOrDefault("COMRUDE_MODEL", "anthropic/claude-sonnet-4-20250514")
	defaultBaseURL     = getEnvOrDefault("COMRUDE_BASEURL", "")
	defaultMaxTokens   = getEnvInt("COMRUDE_MAXTOKENS", 4096)
	defaultTemperature = 0.7
	defaultExecTimeout = getEnvDuration("COMRUDE_EXEC_TIMEOUT", 2*time.Minute)
)

// Config is the fully resolved runtime configuration: defaults, then
// the yaml config file, then flags, each layer overriding the last.
type Config struct {
	Model       string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	Memory      memory.Config
	ExecTimeout time.Duration
	AutoConfirm bool
	Debug       bool

	SessionID string
	UseLast   bool
	List      bool
}

// FileConfig mirrors the optional yaml config file
// (~/.config/comrude/config.yaml or ./comrude.yaml).
type FileConfig struct {
	Model            string  `yaml:"model"`
	BaseURL          string  `yaml:"base_url"`
	Temperature      float32 `yaml:"temperature"`
	MaxTokens        int     `yaml:"max_tokens"`
	StoragePath      string  `yaml:"session_storage_path"`
	MaxContextTurns  int     `yaml:"max_context_turns"`
	MaxContextTokens int     `yaml:"max_context_tokens"`
	DiffCompression  *bool   `yaml:"enable_diff_compression"`
	Summarization    *bool   `yaml:"enable_summarization"`
	MaxAgeDays       *int    `yaml:"session_max_age_days"`
	ExecTimeout      string  `yaml:"exec_timeout"`
	AutoConfirm      bool    `yaml:"auto_confirm"`
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// apiKeysFromEnv collects provider keys for the router.
func apiKeysFromEnv() map[string]string {
	return map[string]string{
		"openai":    os.Getenv("OPENAI_API_KEY"),
		"anthropic": os.Getenv("ANTHROPIC_API_KEY"),
		"gemini":    os.Getenv("GEMINI_API_KEY"),
		"ollama":    os.Getenv("OLLAMA_API_KEY"),
	}
}

// loadFileConfig reads the config file at path, or searches the
// standard locations when path is empty. A missing file is not an
// error; a malformed one is.
func loadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	candidates := []string{path}
	if path == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			candidates = []string{filepath.Join(home, ".config", "comrude", "config.yaml"), "comrude.yaml"}
		} else {
			candidates = []string{"comrude.yaml"}
		}
	}
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		data, err := os.ReadFile(candidate)
		if err != nil {
			if os.IsNotExist(err) && path == "" {
				continue
			}
			if os.IsNotExist(err) {
				return fc, fmt.Errorf("config file %s not found", candidate)
			}
			return fc, fmt.Errorf("read config %s: %w", candidate, err)
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return fc, fmt.Errorf("parse config %s: %w", candidate, err)
		}
		return fc, nil
	}
	return fc, nil
}

// resolveConfig layers defaults, the config file, and flags into the
// final runtime configuration.
func resolveConfig(cmd *cli.Command) (*Config, error) {
	fileCfg, err := loadFileConfig(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	base := FileConfig{
		Model:       defaultModel,
		BaseURL:     defaultBaseURL,
		Temperature: float32(defaultTemperature),
		MaxTokens:   defaultMaxTokens,
	}
	// File values override the ambient defaults where set.
	if err := mergo.Merge(&base, fileCfg, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merge config: %w", err)
	}

	mem := memory.DefaultConfig()
	mem.StoragePath = defaultStoragePath()
	if base.StoragePath != "" {
		mem.StoragePath = base.StoragePath
	}
	if base.MaxContextTurns > 0 {
		mem.MaxContextTurns = base.MaxContextTurns
	}
	if base.MaxContextTokens > 0 {
		mem.MaxContextTokens = base.MaxContextTokens
	}
	if base.DiffCompression != nil {
		mem.EnableDiffCompression = *base.DiffCompression
	}
	if base.Summarization != nil {
		mem.EnableSummarization = *base.Summarization
	}
	if base.MaxAgeDays != nil {
		mem.MaxAgeDays = *base.MaxAgeDays
	}

	execTimeout := defaultExecTimeout
	if base.ExecTimeout != "" {
		d, err := time.ParseDuration(base.ExecTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid exec_timeout %q: %w", base.ExecTimeout, err)
		}
		execTimeout = d
	}

	cfg := &Config{
		Model:       base.Model,
		BaseURL:     base.BaseURL,
		Temperature: base.Temperature,
		MaxTokens:   base.MaxTokens,
		Memory:      mem,
		ExecTimeout: execTimeout,
		AutoConfirm: base.AutoConfirm,
		Debug:       cmd.Bool("debug"),
		SessionID:   cmd.String("session"),
		UseLast:     cmd.Bool("last"),
		List:        cmd.Bool("list"),
	}

	// Flags override the file.
	if cmd.IsSet("model") {
		cfg.Model = cmd.String("model")
	}
	if cmd.IsSet("storage") {
		cfg.Memory.StoragePath = cmd.String("storage")
	}
	if cmd.IsSet("max-turns") {
		cfg.Memory.MaxContextTurns = cmd.Int("max-turns")
	}
	if cmd.IsSet("max-tokens") {
		cfg.Memory.MaxContextTokens = cmd.Int("max-tokens")
	}
	if cmd.Bool("no-diff") {
		cfg.Memory.EnableDiffCompression = false
	}
	if cmd.Bool("no-summarize") {
		cfg.Memory.EnableSummarization = false
	}
	if cmd.IsSet("exec-timeout") {
		cfg.ExecTimeout = cmd.Duration("exec-timeout")
	}
	if cmd.Bool("yes") {
		cfg.AutoConfirm = true
	}
	return cfg, nil
}

func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".comrude/sessions"
	}
	return filepath.Join(home, ".comrude", "sessions")
}
