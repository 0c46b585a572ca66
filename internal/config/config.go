package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultFeedURL is the inventory feed loaded when import.url is unset.
const DefaultFeedURL = "https://linkgrid.com/downloads/carvalue_project/inventory-listing-2022-08-17_first1000.txt"

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Estimator EstimatorConfig `yaml:"estimator" mapstructure:"estimator"`
	Import    ImportConfig    `yaml:"import" mapstructure:"import"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// EstimatorConfig holds the validation bounds and estimation thresholds.
// It is passed by value to the validator, the engine and the search service.
type EstimatorConfig struct {
	MinYear                  int `yaml:"min_year" mapstructure:"min_year"`
	MaxYear                  int `yaml:"max_year" mapstructure:"max_year"`
	MaxMileage               int `yaml:"max_mileage" mapstructure:"max_mileage"`
	MinVehiclesForRegression int `yaml:"min_vehicles_for_regression" mapstructure:"min_vehicles_for_regression"`
	PriceRoundingFactor      int `yaml:"price_rounding_factor" mapstructure:"price_rounding_factor"`
	MaxListingsDisplay       int `yaml:"max_listings_display" mapstructure:"max_listings_display"`
}

// DefaultEstimatorConfig returns the production estimator settings.
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		MinYear:                  1920,
		MaxYear:                  2025,
		MaxMileage:               500000,
		MinVehiclesForRegression: 2,
		PriceRoundingFactor:      100,
		MaxListingsDisplay:       100,
	}
}

// Validate checks that the bounds and thresholds are usable.
func (c EstimatorConfig) Validate() error {
	if c.MinYear > c.MaxYear {
		return eris.Errorf("config: estimator min_year %d is after max_year %d", c.MinYear, c.MaxYear)
	}
	if c.MaxMileage < 0 {
		return eris.Errorf("config: estimator max_mileage must not be negative, got %d", c.MaxMileage)
	}
	if c.MinVehiclesForRegression < 1 {
		return eris.Errorf("config: estimator min_vehicles_for_regression must be at least 1, got %d", c.MinVehiclesForRegression)
	}
	if c.PriceRoundingFactor <= 0 {
		return eris.Errorf("config: estimator price_rounding_factor must be positive, got %d", c.PriceRoundingFactor)
	}
	return nil
}

// ImportConfig configures the inventory feed importer.
type ImportConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	Delimiter   string `yaml:"delimiter" mapstructure:"delimiter"`
	Charset     string `yaml:"charset" mapstructure:"charset"`
	Sheet       string `yaml:"sheet" mapstructure:"sheet"`
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`
	AutoImport  bool   `yaml:"auto_import" mapstructure:"auto_import"`
	TempDir     string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CARVALUE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	est := DefaultEstimatorConfig()
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "carvalue.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("estimator.min_year", est.MinYear)
	v.SetDefault("estimator.max_year", est.MaxYear)
	v.SetDefault("estimator.max_mileage", est.MaxMileage)
	v.SetDefault("estimator.min_vehicles_for_regression", est.MinVehiclesForRegression)
	v.SetDefault("estimator.price_rounding_factor", est.PriceRoundingFactor)
	v.SetDefault("estimator.max_listings_display", est.MaxListingsDisplay)
	v.SetDefault("import.url", DefaultFeedURL)
	v.SetDefault("import.timeout_secs", 30)
	v.SetDefault("import.max_retries", 3)
	v.SetDefault("import.delimiter", "|")
	v.SetDefault("import.charset", "utf-8")
	v.SetDefault("import.sheet", "")
	v.SetDefault("import.batch_size", 500)
	v.SetDefault("import.auto_import", true)
	v.SetDefault("import.temp_dir", os.TempDir())
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Estimator.Validate(); err != nil {
		return nil, err
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
