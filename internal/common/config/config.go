// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Models   ModelsConfig   `mapstructure:"models"`
	Training TrainingConfig `mapstructure:"training"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address    string `mapstructure:"address"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

// ModelsConfig locates the model artifact set shared by training and
// serving.
type ModelsConfig struct {
	Dir            string `mapstructure:"dir"`
	Version        string `mapstructure:"version"`
	DefaultVariant string `mapstructure:"default_variant"`
}

// TrainingConfig holds the knobs of the training pipeline.
type TrainingConfig struct {
	DataPath           string  `mapstructure:"data_path"`
	Seed               int64   `mapstructure:"seed"`
	TestSize           float64 `mapstructure:"test_size"`
	CVFolds            int     `mapstructure:"cv_folds"`
	BalanceClasses     bool    `mapstructure:"balance_classes"`
	TuneHyperparams    bool    `mapstructure:"tune_hyperparameters"`
	Workers            int     `mapstructure:"workers"`
	QueueSize          int     `mapstructure:"queue_size"`
	JobTimeoutSeconds  int     `mapstructure:"job_timeout_seconds"`
	SelectionMetric    string  `mapstructure:"selection_metric"`
	ImportanceTopN     int     `mapstructure:"importance_top_n"`
	BackgroundSamples  int     `mapstructure:"background_samples"`
	RecentJobsDefault  int     `mapstructure:"recent_jobs_default"`
	RecentPredsDefault int     `mapstructure:"recent_predictions_default"`
}

// AlertsConfig controls optional retention outreach notifications for
// high-risk predictions.
type AlertsConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Region      string   `mapstructure:"region"`
	TopicARN    string   `mapstructure:"topic_arn"`
	Sender      string   `mapstructure:"sender"`
	Recipients  []string `mapstructure:"recipients"`
	Threshold   float64  `mapstructure:"threshold"`
	UseSNS      bool     `mapstructure:"use_sns"`
	UseSES      bool     `mapstructure:"use_ses"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
