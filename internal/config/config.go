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
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Session      SessionConfig      `yaml:"session" mapstructure:"session"`
	Cleaning     CleaningConfig     `yaml:"cleaning" mapstructure:"cleaning"`
	Distribution DistributionConfig `yaml:"distribution" mapstructure:"distribution"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// SessionConfig configures the volatile processing-session store.
type SessionConfig struct {
	TTLMinutes     int `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
	SweepSeconds   int `yaml:"sweep_seconds" mapstructure:"sweep_seconds"`
	PreviewRows    int `yaml:"preview_rows" mapstructure:"preview_rows"`
	SampleRows     int `yaml:"sample_rows" mapstructure:"sample_rows"`
	MaxUploadBytes int `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
}

// CleaningConfig holds default cleaning and normalization settings.
type CleaningConfig struct {
	NameFormat    string `yaml:"name_format" mapstructure:"name_format"`
	PhoneFormat   string `yaml:"phone_format" mapstructure:"phone_format"`
	EmailFormat   string `yaml:"email_format" mapstructure:"email_format"`
	AddressFormat string `yaml:"address_format" mapstructure:"address_format"`
	// TypoCorrections is "typo=correction" pairs separated by newlines,
	// merged over the built-in domain typo table.
	TypoCorrections string `yaml:"typo_corrections" mapstructure:"typo_corrections"`
}

// DistributionConfig configures the lead distribution allocator.
type DistributionConfig struct {
	HistoryBatchSize int `yaml:"history_batch_size" mapstructure:"history_batch_size"`
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
	v.SetEnvPrefix("LEADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("session.ttl_minutes", 120)
	v.SetDefault("session.sweep_seconds", 60)
	v.SetDefault("session.preview_rows", 10)
	v.SetDefault("session.sample_rows", 20)
	v.SetDefault("session.max_upload_bytes", 32<<20)
	v.SetDefault("cleaning.name_format", "proper")
	v.SetDefault("cleaning.phone_format", "standard")
	v.SetDefault("cleaning.email_format", "lowercase")
	v.SetDefault("cleaning.address_format", "proper")
	v.SetDefault("distribution.history_batch_size", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
