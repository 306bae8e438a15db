package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported advice providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// DefaultAdviceContext is appended to every persona instruction.
const DefaultAdviceContext = "Context: 用户正在寻求关于特定生活/职业问题的建议。必须完全使用中文回答。请深刻、直接，并严格保持人设。"

// Config holds application configuration.
type Config struct {
	// Provider selects the advice backend: "gemini" or "openai" (any OpenAI-compatible endpoint).
	Provider string `json:"provider,omitempty"`

	// Model is the model used for persona advice.
	Model string `json:"model,omitempty"`

	// ClassifyModel is the model used to recommend a panel. Defaults to Model.
	ClassifyModel string `json:"classify_model,omitempty"`

	// BaseURL overrides the API endpoint (OpenAI-compatible providers only).
	BaseURL string `json:"base_url,omitempty"`

	// APIKeyEnv names the environment variable holding the API credential.
	// The key itself is never stored in config.json; put it in the environment or a .env file.
	APIKeyEnv string `json:"api_key_env,omitempty"`

	// AdviceContext is appended to every persona instruction.
	AdviceContext string `json:"advice_context,omitempty"`

	// RoundTimeoutSeconds bounds each persona call in a round. A persona that
	// exceeds it contributes a placeholder instead of stalling the round.
	RoundTimeoutSeconds int `json:"round_timeout_seconds,omitempty"`

	// ClassifyTimeoutSeconds bounds the panel recommendation call.
	ClassifyTimeoutSeconds int `json:"classify_timeout_seconds,omitempty"`

	// MaxRetries is the number of extra attempts for a failed provider call.
	// 0 means a single attempt.
	MaxRetries int `json:"max_retries,omitempty"`

	// RequestsPerSecond throttles provider calls. 0 disables throttling.
	RequestsPerSecond float64 `json:"requests_per_second,omitempty"`

	// Burst is the limiter burst size when RequestsPerSecond > 0.
	Burst int `json:"burst,omitempty"`

	// MaxParallel caps concurrent persona calls within a round. 0 means no cap.
	MaxParallel int `json:"max_parallel,omitempty"`

	// PersonasFile replaces the built-in persona registry with a YAML file.
	PersonasFile string `json:"personas_file,omitempty"`

	// AllowedPaths is an allowlist of directories for export/import files.
	// Paths outside ~/.council/exports require either being in this list or AllowUnsafePaths=true.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for export/import.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// HTTPBind and HTTPPort configure `council serve`.
	HTTPBind string `json:"http_bind,omitempty"`
	HTTPPort int    `json:"http_port,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider:               ProviderGemini,
		Model:                  "gemini-2.5-flash",
		APIKeyEnv:              "GEMINI_API_KEY",
		AdviceContext:          DefaultAdviceContext,
		RoundTimeoutSeconds:    90,
		ClassifyTimeoutSeconds: 20,
		Burst:                  1,
		HTTPBind:               "127.0.0.1",
		HTTPPort:               8787,
	}
}

// RoundTimeout returns the per-persona deadline for a consultation round.
func (c *Config) RoundTimeout() time.Duration {
	return time.Duration(c.RoundTimeoutSeconds) * time.Second
}

// ClassifyTimeout returns the deadline for the panel recommendation call.
func (c *Config) ClassifyTimeout() time.Duration {
	return time.Duration(c.ClassifyTimeoutSeconds) * time.Second
}

// APIKey returns the credential from the configured environment variable.
func (c *Config) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(c.APIKeyEnv))
}

// LoadEnv loads KEY=VALUE pairs from baseDir/.env and ./.env into the process
// environment. Variables already set are never overridden; missing files are ignored.
func LoadEnv(baseDir string) error {
	for _, path := range []string{filepath.Join(baseDir, ".env"), ".env"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return err
		}
	}
	return nil
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.council.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.council) and repo (.council) directories.
// Repo config is found by walking upward from startDir to find the nearest .council/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .council/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".council", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		Provider:               pickString(base.Provider, overlay.Provider),
		Model:                  pickString(base.Model, overlay.Model),
		ClassifyModel:          pickString(base.ClassifyModel, overlay.ClassifyModel),
		BaseURL:                pickString(base.BaseURL, overlay.BaseURL),
		APIKeyEnv:              pickString(base.APIKeyEnv, overlay.APIKeyEnv),
		AdviceContext:          pickString(base.AdviceContext, overlay.AdviceContext),
		PersonasFile:           pickString(base.PersonasFile, overlay.PersonasFile),
		HTTPBind:               pickString(base.HTTPBind, overlay.HTTPBind),
		RoundTimeoutSeconds:    pickInt(base.RoundTimeoutSeconds, overlay.RoundTimeoutSeconds),
		ClassifyTimeoutSeconds: pickInt(base.ClassifyTimeoutSeconds, overlay.ClassifyTimeoutSeconds),
		MaxRetries:             pickInt(base.MaxRetries, overlay.MaxRetries),
		Burst:                  pickInt(base.Burst, overlay.Burst),
		MaxParallel:            pickInt(base.MaxParallel, overlay.MaxParallel),
		DBMaxOpenConns:         pickInt(base.DBMaxOpenConns, overlay.DBMaxOpenConns),
		DBMaxIdleConns:         pickInt(base.DBMaxIdleConns, overlay.DBMaxIdleConns),
		HTTPPort:               pickInt(base.HTTPPort, overlay.HTTPPort),
	}

	result.RequestsPerSecond = overlay.RequestsPerSecond
	if result.RequestsPerSecond == 0 {
		result.RequestsPerSecond = base.RequestsPerSecond
	}

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// pickString returns overlay if non-blank, else base.
func pickString(base, overlay string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// pickInt returns overlay if non-zero, else base.
func pickInt(base, overlay int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
