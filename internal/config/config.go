// Package config loads service settings from defaults, an optional YAML file,
// a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type LLM struct {
	Backend         string  `mapstructure:"backend" yaml:"backend"`
	APIKey          string  `mapstructure:"api_key" yaml:"api_key"`
	Model           string  `mapstructure:"model" yaml:"model"`
	Temperature     float32 `mapstructure:"temperature" yaml:"temperature"`
	TopP            float32 `mapstructure:"top_p" yaml:"top_p"`
	MaxOutputTokens int32   `mapstructure:"max_output_tokens" yaml:"max_output_tokens"`
	TimeoutSec      int     `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

func (l LLM) Timeout() time.Duration {
	return time.Duration(l.TimeoutSec) * time.Second
}

type Pipeline struct {
	SampleSize     int    `mapstructure:"sample_size" yaml:"sample_size"`
	IDField        string `mapstructure:"id_field" yaml:"id_field"`
	MaxConcurrency int    `mapstructure:"max_concurrency" yaml:"max_concurrency"`
	MaxK           int    `mapstructure:"max_k" yaml:"max_k"`
}

type Cluster struct {
	Seed          uint64  `mapstructure:"seed" yaml:"seed"`
	MaxIterations int     `mapstructure:"max_iterations" yaml:"max_iterations"`
	Tolerance     float64 `mapstructure:"tolerance" yaml:"tolerance"`
}

// Config is the full service configuration.
type Config struct {
	Port           string   `mapstructure:"port" yaml:"port"`
	GinMode        string   `mapstructure:"gin_mode" yaml:"gin_mode"`
	LogLevel       string   `mapstructure:"log_level" yaml:"log_level"`
	LogDevelopment bool     `mapstructure:"log_development" yaml:"log_development"`
	MaxBodyBytes   int64    `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	LLM            LLM      `mapstructure:"llm" yaml:"llm"`
	Pipeline       Pipeline `mapstructure:"pipeline" yaml:"pipeline"`
	Cluster        Cluster  `mapstructure:"cluster" yaml:"cluster"`
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.LLM.APIKey != "" {
		c.LLM.APIKey = "********"
	}
	return c
}

// Validate checks the settings a server needs before it starts.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return errors.New("an API key is required: set PERSONAS_API_KEY, GEMINI_API_KEY or GOOGLE_API_KEY")
	}
	if c.Pipeline.SampleSize < 1 {
		return fmt.Errorf("pipeline.sample_size must be positive, got %d", c.Pipeline.SampleSize)
	}
	if c.Pipeline.MaxConcurrency < 1 {
		return fmt.Errorf("pipeline.max_concurrency must be positive, got %d", c.Pipeline.MaxConcurrency)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("gin_mode", "release")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_development", false)
	v.SetDefault("max_body_bytes", 5<<20)

	v.SetDefault("llm.backend", "generative-ai-go")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gemini-2.5-flash-lite")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.top_p", 0.95)
	v.SetDefault("llm.max_output_tokens", 2048)
	v.SetDefault("llm.timeout_sec", 60)

	v.SetDefault("pipeline.sample_size", 20)
	v.SetDefault("pipeline.id_field", "customer_id")
	v.SetDefault("pipeline.max_concurrency", 4)
	v.SetDefault("pipeline.max_k", 0)

	v.SetDefault("cluster.seed", 42)
	v.SetDefault("cluster.max_iterations", 100)
	v.SetDefault("cluster.tolerance", 1e-6)
}

// Load resolves configuration. Precedence: environment > config file > defaults.
// A .env file in the working directory is loaded first and never overrides
// variables already set. PORT, GIN_MODE and the Gemini key variables are
// honoured without the PERSONAS_ prefix.
func Load(cfgFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("PERSONAS")
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()
	setDefaults(v)

	_ = v.BindEnv("port", "PERSONAS_PORT", "PORT")
	_ = v.BindEnv("gin_mode", "PERSONAS_GIN_MODE", "GIN_MODE")
	_ = v.BindEnv("llm.api_key", "PERSONAS_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".personas"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
