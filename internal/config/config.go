// Package config loads the server configuration from an optional YAML file,
// a .env file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"longevity-advisor/internal/llm"
	"longevity-advisor/internal/report"
)

type Config struct {
	Server struct {
		Host          string   `yaml:"host"`
		Port          string   `yaml:"port"`
		StaticDir     string   `yaml:"static_dir"`
		AllowOrigins  []string `yaml:"allow_origins"`
		MaxUploadMB   int64    `yaml:"max_upload_mb"`
		ShutdownGrace int      `yaml:"shutdown_grace_sec"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	DB struct {
		Enabled       bool   `yaml:"enabled"`
		URL           string `yaml:"url"`
		NotifyChannel string `yaml:"notify_channel"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTLHours int    `yaml:"ttl_hours"`
	} `yaml:"redis"`
	LLM struct {
		Default        string               `yaml:"default"`
		ChatTimeoutSec int                  `yaml:"chat_timeout_sec"`
		MaxRetries     uint64               `yaml:"max_retries"`
		Providers      []llm.ProviderConfig `yaml:"providers"`
		// Translation and advice calls go to this provider.
		Auxiliary   string `yaml:"auxiliary"`
		Translation struct {
			Temperature float32 `yaml:"temperature"`
			MaxTokens   int     `yaml:"max_tokens"`
		} `yaml:"translation"`
		Advice struct {
			Model       string  `yaml:"model"`
			Temperature float32 `yaml:"temperature"`
			MaxTokens   int     `yaml:"max_tokens"`
			TimeoutSec  int     `yaml:"timeout_sec"`
		} `yaml:"advice"`
	} `yaml:"llm"`
	Scripts struct {
		Python          string `yaml:"python"`
		Dir             string `yaml:"dir"`
		TimeoutSec      int    `yaml:"timeout_sec"`
		RetrieveTimeout int    `yaml:"retrieve_timeout_sec"`
		MaxRetrievals   int64  `yaml:"max_retrievals"`
	} `yaml:"scripts"`
	Files struct {
		UploadDir  string `yaml:"upload_dir"`
		PDFDir     string `yaml:"pdf_dir"`
		SampleFile string `yaml:"sample_file"`
	} `yaml:"files"`
	Markers []report.Marker `yaml:"markers"`
}

// Load reads configuration. The YAML file is CONFIG_FILE or config.yaml and
// may be absent.
func Load() (*Config, error) {
	// ignore error; .env is optional
	_ = godotenv.Load()

	var cfg Config
	path := getEnv("CONFIG_FILE", "config.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		slog.Info("loaded configuration file", "path", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("HOST", cfg.Server.Host)
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.StaticDir = getEnv("STATIC_DIR", cfg.Server.StaticDir)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.AllowOrigins = splitList(v)
	}
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)

	cfg.DB.URL = getEnv("DATABASE_URL", cfg.DB.URL)
	cfg.DB.Enabled = getBool("ENABLE_DB", cfg.DB.Enabled)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)

	cfg.LLM.Default = getEnv("LLM_DEFAULT", cfg.LLM.Default)
	cfg.LLM.ChatTimeoutSec = getInt("LLM_CHAT_TIMEOUT_SEC", cfg.LLM.ChatTimeoutSec)
	setProviderKey(cfg, "openai", os.Getenv("OPENAI_API_KEY"))
	setProviderKey(cfg, "kimi", os.Getenv("KIMI_API_KEY"))

	cfg.Scripts.Python = getEnv("PYTHON_BIN", cfg.Scripts.Python)
	cfg.Scripts.Dir = getEnv("SCRIPTS_DIR", cfg.Scripts.Dir)
	cfg.Files.UploadDir = getEnv("UPLOAD_DIR", cfg.Files.UploadDir)
	cfg.Files.PDFDir = getEnv("PDF_DIR", cfg.Files.PDFDir)
	cfg.Files.SampleFile = getEnv("SAMPLE_FILE", cfg.Files.SampleFile)
}

// setProviderKey overrides the API key of the named provider, adding the
// provider when it is not configured.
func setProviderKey(cfg *Config, name, key string) {
	if key == "" {
		return
	}
	for i := range cfg.LLM.Providers {
		if cfg.LLM.Providers[i].Name == name {
			cfg.LLM.Providers[i].APIKey = key
			return
		}
	}
	cfg.LLM.Providers = append(cfg.LLM.Providers, llm.ProviderConfig{Name: name, APIKey: key})
}

var providerDefaults = map[string]llm.ProviderConfig{
	"kimi":   {BaseURL: "https://api.moonshot.cn/v1", Model: "kimi-thinking-preview", Temperature: 0.25, MaxTokens: 8500},
	"openai": {BaseURL: "https://api.openai.com/v1", Model: "gpt-3.5-turbo", Temperature: 0.1},
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "3000"
	}
	if cfg.Server.StaticDir == "" {
		cfg.Server.StaticDir = "public"
	}
	if len(cfg.Server.AllowOrigins) == 0 {
		cfg.Server.AllowOrigins = []string{"*"}
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 10
	}
	if cfg.Server.ShutdownGrace == 0 {
		cfg.Server.ShutdownGrace = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.DB.NotifyChannel == "" {
		cfg.DB.NotifyChannel = "pdf_reports"
	}
	if cfg.Redis.TTLHours == 0 {
		cfg.Redis.TTLHours = 24
	}

	if len(cfg.LLM.Providers) == 0 {
		cfg.LLM.Providers = []llm.ProviderConfig{{Name: "kimi"}, {Name: "openai"}}
	}
	for i := range cfg.LLM.Providers {
		p := &cfg.LLM.Providers[i]
		d := providerDefaults[p.Name]
		if p.BaseURL == "" {
			p.BaseURL = d.BaseURL
		}
		if p.Model == "" {
			p.Model = d.Model
		}
		if p.Temperature == 0 {
			p.Temperature = d.Temperature
		}
		if p.MaxTokens == 0 {
			p.MaxTokens = d.MaxTokens
		}
	}
	if cfg.LLM.Default == "" {
		cfg.LLM.Default = cfg.LLM.Providers[0].Name
	}
	if cfg.LLM.Auxiliary == "" {
		cfg.LLM.Auxiliary = "kimi"
		if cfg.Provider("kimi") == nil {
			cfg.LLM.Auxiliary = cfg.LLM.Default
		}
	}
	if cfg.LLM.ChatTimeoutSec == 0 {
		cfg.LLM.ChatTimeoutSec = 600
	}
	if cfg.LLM.Translation.Temperature == 0 {
		cfg.LLM.Translation.Temperature = 0.1
	}
	if cfg.LLM.Translation.MaxTokens == 0 {
		cfg.LLM.Translation.MaxTokens = 6000
	}
	if cfg.LLM.Advice.Model == "" {
		cfg.LLM.Advice.Model = "moonshot-v1-8k"
	}
	if cfg.LLM.Advice.Temperature == 0 {
		cfg.LLM.Advice.Temperature = 0.7
	}
	if cfg.LLM.Advice.MaxTokens == 0 {
		cfg.LLM.Advice.MaxTokens = 500
	}
	if cfg.LLM.Advice.TimeoutSec == 0 {
		cfg.LLM.Advice.TimeoutSec = 20
	}

	if cfg.Scripts.Python == "" {
		cfg.Scripts.Python = "python3"
	}
	if cfg.Scripts.Dir == "" {
		cfg.Scripts.Dir = "scripts"
	}
	if cfg.Scripts.TimeoutSec == 0 {
		cfg.Scripts.TimeoutSec = 300
	}
	if cfg.Scripts.RetrieveTimeout == 0 {
		cfg.Scripts.RetrieveTimeout = 60
	}
	if cfg.Scripts.MaxRetrievals == 0 {
		cfg.Scripts.MaxRetrievals = 4
	}
	if cfg.Files.UploadDir == "" {
		cfg.Files.UploadDir = "uploads"
	}
	if cfg.Files.PDFDir == "" {
		cfg.Files.PDFDir = "pdf_reports"
	}
	if len(cfg.Markers) == 0 {
		cfg.Markers = report.DefaultMarkers
	}
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	if c.DB.Enabled && c.DB.URL == "" {
		return errors.New("DATABASE_URL is required when ENABLE_DB=true")
	}
	if c.Provider(c.LLM.Default) == nil {
		return fmt.Errorf("default model %q is not configured", c.LLM.Default)
	}
	if c.Provider(c.LLM.Auxiliary) == nil {
		return fmt.Errorf("auxiliary model %q is not configured", c.LLM.Auxiliary)
	}
	for _, m := range c.Markers {
		if m.Phrase == "" || m.TopicKey == "" {
			return fmt.Errorf("marker %+v needs both phrase and topic", m)
		}
	}
	return nil
}

// Provider returns the named provider or nil.
func (c *Config) Provider(name string) *llm.ProviderConfig {
	for i := range c.LLM.Providers {
		if c.LLM.Providers[i].Name == name {
			return &c.LLM.Providers[i]
		}
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// ChatTimeout bounds the interview model call.
func (c *Config) ChatTimeout() time.Duration {
	return time.Duration(c.LLM.ChatTimeoutSec) * time.Second
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		slog.Warn("ignoring invalid integer", "key", key, "value", v)
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		slog.Warn("ignoring invalid boolean", "key", key, "value", v)
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
