package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "PERSPECTIVES_CONFIG"
	modelsTokenEnv    = "GH_MODELS_TOKEN"
	githubTokenEnv    = "GITHUB_TOKEN"
	logLevelEnv       = "LOG_LEVEL"
	newsTopicsEnv     = "NEWS_TOPICS"
	newsMaxEnv        = "NEWS_MAX_ARTICLES_PER_TOPIC"
	stepSummaryEnv    = "GITHUB_STEP_SUMMARY"
	historyPathEnv    = "PERSPECTIVES_HISTORY_DB"
	googleNewsScanner = "google-news"

	// MaxResultsOption caps how many items a scanner returns per category.
	MaxResultsOption = "max_results"
)

// Config holds high-level settings required across the pipelines.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Completion CompletionConfig `yaml:"completion"`
	Retry      RetryConfig      `yaml:"retry"`
	Pacing     PacingConfig     `yaml:"pacing"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Paths      PathsConfig      `yaml:"paths"`
	Models     []ModelConfig    `yaml:"models"`
	Sources    []SourceConfig   `yaml:"sources"`
	History    HistoryConfig    `yaml:"history"`
	Summary    SummaryConfig    `yaml:"summary"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// CompletionConfig defines how to contact the completion service.
type CompletionConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Token        string        `yaml:"token"`
	Temperature  float64       `yaml:"temperature"`
	MaxTokens    int           `yaml:"maxTokens"`
	Timeout      time.Duration `yaml:"timeout"`
	SystemPrompt string        `yaml:"systemPrompt"`
}

// RetryConfig bounds retries on rate-limit responses.
type RetryConfig struct {
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseDelay   time.Duration `yaml:"baseDelay"`
}

// PacingConfig spaces consecutive requests of one model run.
type PacingConfig struct {
	ItemDelay time.Duration `yaml:"itemDelay"`
}

// FetchConfig controls the fetch stage.
type FetchConfig struct {
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the fetch timezone string to a time.Location.
func (f FetchConfig) Location() *time.Location {
	if f.location != nil {
		return f.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// PathsConfig names the shared stage artifacts.
type PathsConfig struct {
	Items        string `yaml:"items"`
	Perspectives string `yaml:"perspectives"`
}

// ModelConfig is one entry of the static model list.
type ModelConfig struct {
	Name     string `yaml:"name"`
	ModelID  string `yaml:"modelId"`
	Marker   string `yaml:"marker"`
	Artifact string `yaml:"artifact"`
	Agent    string `yaml:"agent"`
}

// SourceConfig describes a single item source with its scanner strategy.
type SourceConfig struct {
	Name       string            `yaml:"name"`
	Scanner    string            `yaml:"scanner"`
	Categories []CategoryConfig  `yaml:"categories"`
	Options    map[string]string `yaml:"options"`
}

// CategoryConfig holds one topic or listing to crawl. URL may be empty when
// the scanner knows how to build it from the name.
type CategoryConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// HistoryConfig locates the SQLite run ledger; empty disables it.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// SummaryConfig locates the markdown step summary; empty disables it.
type SummaryConfig struct {
	Path string `yaml:"path"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
// path takes precedence over the PERSPECTIVES_CONFIG environment variable.
func Load(path string) Config {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			fileCfg := defaultConfig()
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = fileCfg
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Models) == 0 {
		cfg.Models = defaultConfig().Models
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	return cfg
}

// Model finds a configured model by display name or agent id.
func (c Config) Model(name string) (ModelConfig, bool) {
	for _, m := range c.Models {
		if strings.EqualFold(m.Name, name) || strings.EqualFold(m.Agent, name) {
			return m, true
		}
	}
	return ModelConfig{}, false
}

// Markers returns the read-only model name to marker table.
func (c Config) Markers() map[string]string {
	markers := make(map[string]string, len(c.Models))
	for _, m := range c.Models {
		if m.Marker != "" {
			markers[m.Name] = m.Marker
		}
	}
	return markers
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(modelsTokenEnv); v != "" {
		c.Completion.Token = v
	} else if v := os.Getenv(githubTokenEnv); v != "" && c.Completion.Token == "" {
		c.Completion.Token = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(stepSummaryEnv); v != "" {
		c.Summary.Path = v
	}

	if v := os.Getenv(historyPathEnv); v != "" {
		c.History.Path = v
	}

	topics := splitTopics(os.Getenv(newsTopicsEnv))
	maxResults := os.Getenv(newsMaxEnv)
	if len(topics) == 0 && maxResults == "" {
		return
	}
	for i := range c.Sources {
		src := &c.Sources[i]
		if src.Scanner != googleNewsScanner {
			continue
		}
		if len(topics) > 0 {
			src.Categories = make([]CategoryConfig, 0, len(topics))
			for _, topic := range topics {
				src.Categories = append(src.Categories, CategoryConfig{Name: topic})
			}
		}
		if n, err := strconv.Atoi(strings.TrimSpace(maxResults)); err == nil && n > 0 {
			options := make(map[string]string, len(src.Options)+1)
			for k, v := range src.Options {
				options[k] = v
			}
			options[MaxResultsOption] = strconv.Itoa(n)
			src.Options = options
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Fetch.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Fetch.location = loc
}

func splitTopics(value string) []string {
	var topics []string
	for _, t := range strings.Split(value, ",") {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	const dataDir = "data/news_perspectives/"
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Completion: CompletionConfig{
			Endpoint:    "https://models.github.ai/inference/chat/completions",
			Temperature: 0.7,
			MaxTokens:   1000,
			Timeout:     60 * time.Second,
			SystemPrompt: "You are an analytical AI assistant helping users understand news from multiple perspectives. " +
				"Be thorough, honest about limitations, and highlight your unique analytical approach.",
		},
		Retry:  RetryConfig{MaxAttempts: 3, BaseDelay: 2 * time.Second},
		Pacing: PacingConfig{ItemDelay: time.Second},
		Fetch:  FetchConfig{Timezone: defaultTimezone, location: tz},
		Paths: PathsConfig{
			Items:        dataDir + "news.json",
			Perspectives: dataDir + "perspectives.json",
		},
		Models: []ModelConfig{
			{Name: "GPT-4o Mini", ModelID: "openai/gpt-4o-mini", Marker: "🟢", Artifact: dataDir + "gpt_mini_analysis.json", Agent: "gpt-mini-analyzer"},
			{Name: "Llama 3.1 8B", ModelID: "meta/meta-llama-3.1-8b-instruct", Marker: "🔵", Artifact: dataDir + "llama_small_analysis.json", Agent: "llama-small-analyzer"},
			{Name: "Phi-4 Mini", ModelID: "microsoft/phi-4-mini-instruct", Marker: "🟡", Artifact: dataDir + "phi_analysis.json", Agent: "phi-analyzer"},
			{Name: "Mistral Small", ModelID: "mistral-ai/mistral-small-2503", Marker: "🟣", Artifact: dataDir + "mistral_analysis.json", Agent: "mistral-analyzer"},
			{Name: "GPT-4o", ModelID: "openai/gpt-4o", Marker: "🟢", Artifact: dataDir + "gpt_analysis.json", Agent: "gpt-analyzer"},
			{Name: "Llama 3.1 405B", ModelID: "meta/meta-llama-3.1-405b-instruct", Marker: "🔵", Artifact: dataDir + "llama_analysis.json", Agent: "llama-analyzer"},
			{Name: "DeepSeek-V3", ModelID: "deepseek/deepseek-v3-0324", Marker: "🟣", Artifact: dataDir + "deepseek_analysis.json", Agent: "deepseek-analyzer"},
			{Name: "Grok 3", ModelID: "xai/grok-3", Marker: "🟠", Artifact: dataDir + "grok_analysis.json", Agent: "grok-analyzer"},
		},
		Sources: []SourceConfig{
			{
				Name:    "google-news",
				Scanner: googleNewsScanner,
				Categories: []CategoryConfig{
					{Name: "TECHNOLOGY"},
					{Name: "WORLD"},
					{Name: "BUSINESS"},
				},
				Options: map[string]string{MaxResultsOption: "5"},
			},
		},
		History: HistoryConfig{Path: "data/pipeline_history.db"},
	}
}
