package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Vocab     VocabConfig     `yaml:"vocab" mapstructure:"vocab"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings. An empty key means no model
// is configured and every stage runs its heuristic path.
type AnthropicConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	FastModel  string `yaml:"fast_model" mapstructure:"fast_model"`
	SmartModel string `yaml:"smart_model" mapstructure:"smart_model"`
	// RequestsPerSecond throttles outbound API calls across both tiers.
	// Zero disables throttling.
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// PipelineConfig configures pipeline behavior.
type PipelineConfig struct {
	Scoring           ScoringWeights `yaml:"scoring" mapstructure:"scoring"`
	Languages         []string       `yaml:"languages" mapstructure:"languages"`
	GuardrailMaxChars int            `yaml:"guardrail_max_chars" mapstructure:"guardrail_max_chars"`
}

// ScoringWeights are the analyst's heuristic scoring weights.
type ScoringWeights struct {
	Base              int `yaml:"base" mapstructure:"base"`
	Skills            int `yaml:"skills" mapstructure:"skills"`
	WorkModelMatch    int `yaml:"work_model_match" mapstructure:"work_model_match"`
	WorkModelMismatch int `yaml:"work_model_mismatch" mapstructure:"work_model_mismatch"`
	SalaryMeets       int `yaml:"salary_meets" mapstructure:"salary_meets"`
	SalaryBelow       int `yaml:"salary_below" mapstructure:"salary_below"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TALENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "talent.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.fast_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.smart_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.requests_per_second", 5.0)
	v.SetDefault("pipeline.scoring.base", 50)
	v.SetDefault("pipeline.scoring.skills", 30)
	v.SetDefault("pipeline.scoring.work_model_match", 10)
	v.SetDefault("pipeline.scoring.work_model_mismatch", -5)
	v.SetDefault("pipeline.scoring.salary_meets", 10)
	v.SetDefault("pipeline.scoring.salary_below", -10)
	v.SetDefault("pipeline.languages", []string{"en", "es"})
	v.SetDefault("pipeline.guardrail_max_chars", 4096)
	v.SetDefault("vocab.offer_keywords", DefaultOfferKeywords)
	v.SetDefault("vocab.spam_keywords", DefaultSpamKeywords)
	v.SetDefault("vocab.tech_vocabulary", DefaultTechVocabulary)
	v.SetDefault("vocab.spanish_markers", DefaultSpanishMarkers)
	v.SetDefault("vocab.injection_patterns", DefaultInjectionPatterns)
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
