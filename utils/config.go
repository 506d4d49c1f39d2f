package utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	DefaultLogLevel = "info"
	DefaultDBFile   = "playbooks.db"
	DefaultDataDir  = ".video-playbook"

	// Environment variable names
	EnvProvider         = "PLAYBOOK_PROVIDER"
	EnvModel            = "PLAYBOOK_MODEL"
	EnvGeminiAPIKey     = "GEMINI_API_KEY"
	EnvGoogleAPIKey     = "GOOGLE_API_KEY"
	EnvGoogleProject    = "GOOGLE_CLOUD_PROJECT"
	EnvGoogleLocation   = "GOOGLE_CLOUD_LOCATION"
	EnvOpenAIAPIKey     = "OPENAI_API_KEY"
	EnvOpenAIBaseURL    = "OPENAI_BASE_URL"
	EnvPromptsDir       = "PLAYBOOK_PROMPTS_DIR"
	EnvPromptsFile      = "PLAYBOOK_PROMPTS_FILE"
	EnvCacheTTL         = "PLAYBOOK_CACHE_TTL"
	EnvCacheDisplayName = "PLAYBOOK_CACHE_DISPLAY_NAME"
	EnvDBPath           = "PLAYBOOK_DB"
	EnvLogLevel         = "PLAYBOOK_LOG_LEVEL"
)

type Config struct {
	Provider         string        `yaml:"provider"`
	Model            string        `yaml:"model"`
	GeminiAPIKey     string        `yaml:"gemini_api_key"`
	GoogleProject    string        `yaml:"google_project"`
	GoogleLocation   string        `yaml:"google_location"`
	OpenAIAPIKey     string        `yaml:"openai_api_key"`
	OpenAIBaseURL    string        `yaml:"openai_base_url"`
	PromptsDir       string        `yaml:"prompts_dir"`
	PromptsFile      string        `yaml:"prompts_file"`
	CacheTTL         time.Duration `yaml:"cache_ttl"`
	CacheDisplayName string        `yaml:"cache_display_name"`
	DBPath           string        `yaml:"db_path"`
	LogLevel         string        `yaml:"log_level"`
}

func DefaultConfig() Config {
	return Config{
		Provider:         ProviderGemini,
		Model:            DefaultModel,
		GoogleLocation:   "us-central1",
		CacheTTL:         DefaultCacheTTL,
		CacheDisplayName: DefaultCacheDisplayName,
		DBPath:           filepath.Join(defaultDataDir(), DefaultDBFile),
		LogLevel:         DefaultLogLevel,
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file at
// path (skipped when path is empty), then environment variables.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file '%s': %w", path, err)
		}
	}

	setFromEnv(&cfg.Provider, EnvProvider)
	setFromEnv(&cfg.Model, EnvModel)
	setFromEnv(&cfg.GeminiAPIKey, EnvGoogleAPIKey)
	setFromEnv(&cfg.GeminiAPIKey, EnvGeminiAPIKey)
	setFromEnv(&cfg.GoogleProject, EnvGoogleProject)
	setFromEnv(&cfg.GoogleLocation, EnvGoogleLocation)
	setFromEnv(&cfg.OpenAIAPIKey, EnvOpenAIAPIKey)
	setFromEnv(&cfg.OpenAIBaseURL, EnvOpenAIBaseURL)
	setFromEnv(&cfg.PromptsDir, EnvPromptsDir)
	setFromEnv(&cfg.PromptsFile, EnvPromptsFile)
	setFromEnv(&cfg.CacheDisplayName, EnvCacheDisplayName)
	setFromEnv(&cfg.DBPath, EnvDBPath)
	setFromEnv(&cfg.LogLevel, EnvLogLevel)

	if v := os.Getenv(EnvCacheTTL); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", EnvCacheTTL, err)
		}
		cfg.CacheTTL = ttl
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown provider %q, want %q or %q", c.Provider, ProviderGemini, ProviderOpenAI)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive, got %s", c.CacheTTL)
	}
	return nil
}

// APIKey returns the key of the selected provider.
func (c Config) APIKey() string {
	if c.Provider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

// NewModelService creates the backend selected by Provider.
func (c Config) NewModelService(ctx context.Context) (ModelService, error) {
	switch c.Provider {
	case ProviderOpenAI:
		return NewOpenAIService(c.OpenAIAPIKey, c.OpenAIBaseURL)
	default:
		return NewGeminiService(ctx, GeminiConfig{
			APIKey:   c.GeminiAPIKey,
			Project:  c.GoogleProject,
			Location: c.GoogleLocation,
		})
	}
}

// Templates returns the prompt sources in lookup order: prompts file, prompts
// directory, then the built-in prompts.
func (c Config) Templates() (TemplateSource, error) {
	var chain ChainTemplates
	if c.PromptsFile != "" {
		y, err := LoadYAMLTemplates(c.PromptsFile)
		if err != nil {
			return nil, err
		}
		chain = append(chain, y)
	}
	if c.PromptsDir != "" {
		chain = append(chain, NewDirTemplates(c.PromptsDir))
	}
	return append(chain, EmbeddedTemplates()), nil
}

func setFromEnv(dst *string, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}
