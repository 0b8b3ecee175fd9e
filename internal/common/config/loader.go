// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// Enable ENV override like DATABASE_POSTGRES_HOST
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment overlay, ignored if not found.
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	if cfg.App.Environment == "" {
		cfg.App.Environment = env
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile tries .env from a few locations so running from cmd/ or
// test directories still picks it up.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "churn-predictor"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "1.0.0"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Redis.TTLSeconds == 0 {
		cfg.Database.Redis.TTLSeconds = 3600
	}
	if cfg.Models.Dir == "" {
		cfg.Models.Dir = "models"
	}
	if cfg.Models.Version == "" {
		cfg.Models.Version = cfg.App.Version
	}
	if cfg.Models.DefaultVariant == "" {
		cfg.Models.DefaultVariant = "Gradient Boosting"
	}
	if cfg.Training.DataPath == "" {
		cfg.Training.DataPath = "data/raw/telco_churn.csv"
	}
	if cfg.Training.Seed == 0 {
		cfg.Training.Seed = 42
	}
	if cfg.Training.TestSize == 0 {
		cfg.Training.TestSize = 0.2
	}
	if cfg.Training.CVFolds == 0 {
		cfg.Training.CVFolds = 5
	}
	if cfg.Training.Workers == 0 {
		// Artifacts are overwritten in place, so training runs are
		// serialized unless explicitly configured otherwise.
		cfg.Training.Workers = 1
	}
	if cfg.Training.QueueSize == 0 {
		cfg.Training.QueueSize = 4
	}
	if cfg.Training.JobTimeoutSeconds == 0 {
		cfg.Training.JobTimeoutSeconds = 1800
	}
	if cfg.Training.SelectionMetric == "" {
		cfg.Training.SelectionMetric = "roc_auc"
	}
	if cfg.Training.ImportanceTopN == 0 {
		cfg.Training.ImportanceTopN = 20
	}
	if cfg.Training.BackgroundSamples == 0 {
		cfg.Training.BackgroundSamples = 100
	}
	if cfg.Training.RecentJobsDefault == 0 {
		cfg.Training.RecentJobsDefault = 10
	}
	if cfg.Training.RecentPredsDefault == 0 {
		cfg.Training.RecentPredsDefault = 10
	}
	if cfg.Alerts.Threshold == 0 {
		cfg.Alerts.Threshold = 0.8
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Training.TestSize <= 0 || cfg.Training.TestSize >= 1 {
		return fmt.Errorf("training.test_size must be in (0,1), got %v", cfg.Training.TestSize)
	}
	if cfg.Training.Workers < 1 {
		return fmt.Errorf("training.workers must be >= 1")
	}
	if cfg.Training.QueueSize < 1 {
		return fmt.Errorf("training.queue_size must be >= 1")
	}
	if cfg.Alerts.Enabled {
		if cfg.Alerts.Region == "" {
			return fmt.Errorf("alerts.region is required when alerts are enabled")
		}
		if cfg.Alerts.UseSNS && cfg.Alerts.TopicARN == "" {
			return fmt.Errorf("alerts.topic_arn is required for SNS alerts")
		}
		if cfg.Alerts.UseSES && (cfg.Alerts.Sender == "" || len(cfg.Alerts.Recipients) == 0) {
			return fmt.Errorf("alerts.sender and alerts.recipients are required for SES alerts")
		}
	}
	return nil
}
