package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

type Config struct {
	HTTPPort  string `mapstructure:"http_port"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	StoreDriver string `mapstructure:"store_driver"`
	DBHost      string `mapstructure:"db_host"`
	DBPort      string `mapstructure:"db_port"`
	DBUser      string `mapstructure:"db_user"`
	DBPassword  string `mapstructure:"db_password"`
	DBName      string `mapstructure:"db_name"`
	DBSslMode   string `mapstructure:"db_sslmode"`
	SQLiteDSN   string `mapstructure:"sqlite_dsn"`

	CallableBaseURL string        `mapstructure:"callable_base_url"`
	CallableTimeout time.Duration `mapstructure:"callable_timeout"`

	KafkaHost                string `mapstructure:"kafka_host"`
	KafkaShipmentEventsTopic string `mapstructure:"kafka_shipment_events_topic"`

	RabbitMQURL               string `mapstructure:"rabbitmq_url"`
	RabbitMQNotificationQueue string `mapstructure:"rabbitmq_notification_queue"`

	DocumentRetrySchedule    string `mapstructure:"document_retry_schedule"`
	DocumentRetryMaxAttempts int    `mapstructure:"document_retry_max_attempts"`
	DocumentRetryBatch       int    `mapstructure:"document_retry_batch"`
}

// LoadConfig reads an optional .env file and then the environment.
// Variables already set in the environment win over the file.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetDefault("http_port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("store_driver", StoreDriverPostgres)
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "freight")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("sqlite_dsn", "file:freight.db?_foreign_keys=on")
	v.SetDefault("callable_base_url", "")
	v.SetDefault("callable_timeout", "30s")
	v.SetDefault("kafka_host", "")
	v.SetDefault("kafka_shipment_events_topic", "shipment.events")
	v.SetDefault("rabbitmq_url", "")
	v.SetDefault("rabbitmq_notification_queue", "shipment.notifications")
	v.SetDefault("document_retry_schedule", "0 * * * * *")
	v.SetDefault("document_retry_max_attempts", 6)
	v.SetDefault("document_retry_batch", 50)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the store settings. Adapter settings are checked when the
// adapters are connected, so the migrate command does not need them.
func (c Config) Validate() error {
	var err error
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DBUser == "" {
			err = errors.Join(err, errors.New("DB_USER is required for the postgres store"))
		}
	case StoreDriverSQLite:
		if c.SQLiteDSN == "" {
			err = errors.Join(err, errors.New("SQLITE_DSN is required for the sqlite store"))
		}
	default:
		err = errors.Join(err, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	return err
}

// PostgresDSN is the gorm connection string for the postgres store.
func (c Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSslMode)
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func SetupLogger(cfg Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.LogFormat) == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
