package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all process settings. Values come from the environment
// (optionally seeded from a .env file) and fall back to the defaults below.
type Config struct {
	AppName  string `mapstructure:"app_name" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	HTTPHost string `mapstructure:"http_host"`
	HTTPPort int    `mapstructure:"http_port" validate:"required,min=1,max=65535"`

	DBHost     string `mapstructure:"db_host" validate:"required"`
	DBPort     int    `mapstructure:"db_port" validate:"required"`
	DBUser     string `mapstructure:"db_user" validate:"required"`
	DBPassword string `mapstructure:"db_password"`
	DBName     string `mapstructure:"db_name" validate:"required"`
	DBSSLMode  string `mapstructure:"db_ssl_mode" validate:"required"`

	DBMaxOpenConns    int           `mapstructure:"db_max_open_conns"`
	DBMaxIdleConns    int           `mapstructure:"db_max_idle_conns"`
	DBConnMaxLifetime time.Duration `mapstructure:"db_conn_max_lifetime"`

	MigrationsPath  string `mapstructure:"migrations_path" validate:"required"`
	MigrationsTable string `mapstructure:"migrations_table"`

	StagingDBHost     string `mapstructure:"staging_db_host"`
	StagingDBPort     int    `mapstructure:"staging_db_port"`
	StagingDBUser     string `mapstructure:"staging_db_user"`
	StagingDBPassword string `mapstructure:"staging_db_password"`
	StagingDBName     string `mapstructure:"staging_db_name"`
	StagingDBSSLMode  string `mapstructure:"staging_db_ssl_mode"`

	RecipeNamespaceUUID string `mapstructure:"recipe_namespace_uuid" validate:"required,uuid"`
	PromoteBatchLimit   int    `mapstructure:"promote_batch_limit" validate:"min=1"`

	SuggestMinScore        float64 `mapstructure:"suggest_min_score" validate:"gt=0,lte=1"`
	SuggestMaxPairs        int     `mapstructure:"suggest_max_pairs" validate:"min=1"`
	SuggestExportLimit     int     `mapstructure:"suggest_export_limit" validate:"min=1"`
	SuggestMaxLengthDiff   int     `mapstructure:"suggest_max_length_diff" validate:"min=1"`
	ApprovePackagingSuffix bool    `mapstructure:"approve_packaging_suffix"`

	CollisionRetryAttempts int `mapstructure:"collision_retry_attempts" validate:"min=1"`

	MonitorInterval time.Duration `mapstructure:"monitor_interval" validate:"required"`

	KafkaEnabled    bool   `mapstructure:"kafka_enabled"`
	KafkaBrokers    string `mapstructure:"kafka_brokers"`
	KafkaTopic      string `mapstructure:"kafka_topic"`
	KafkaClientID   string `mapstructure:"kafka_client_id"`
	KafkaBatchBytes int64  `mapstructure:"kafka_batch_bytes"`
}

// Load reads configuration from the environment. A missing .env file is not
// an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	setDefaults()
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("app_name", "mortar")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("http_host", "0.0.0.0")
	viper.SetDefault("http_port", 8080)

	viper.SetDefault("db_host", "localhost")
	viper.SetDefault("db_port", 5432)
	viper.SetDefault("db_user", "postgres")
	viper.SetDefault("db_password", "")
	viper.SetDefault("db_name", "cookbook")
	viper.SetDefault("db_ssl_mode", "disable")

	viper.SetDefault("db_max_open_conns", 10)
	viper.SetDefault("db_max_idle_conns", 5)
	viper.SetDefault("db_conn_max_lifetime", time.Hour)

	viper.SetDefault("migrations_path", "db/pg")
	viper.SetDefault("migrations_table", "schema_migrations")

	viper.SetDefault("staging_db_host", "")
	viper.SetDefault("staging_db_port", 5432)
	viper.SetDefault("staging_db_user", "postgres")
	viper.SetDefault("staging_db_password", "")
	viper.SetDefault("staging_db_name", "staging")
	viper.SetDefault("staging_db_ssl_mode", "disable")

	viper.SetDefault("recipe_namespace_uuid", "11111111-1111-1111-1111-111111111111")
	viper.SetDefault("promote_batch_limit", 3000)

	viper.SetDefault("suggest_min_score", 0.92)
	viper.SetDefault("suggest_max_pairs", 200000)
	viper.SetDefault("suggest_export_limit", 500)
	viper.SetDefault("suggest_max_length_diff", 8)
	viper.SetDefault("approve_packaging_suffix", false)

	viper.SetDefault("collision_retry_attempts", 3)

	viper.SetDefault("monitor_interval", 10*time.Second)

	viper.SetDefault("kafka_enabled", false)
	viper.SetDefault("kafka_brokers", "localhost:9092")
	viper.SetDefault("kafka_topic", "ingredient-events")
	viper.SetDefault("kafka_client_id", "mortar")
	viper.SetDefault("kafka_batch_bytes", 1048576)
}

// ProductDSN builds the primary database connection string.
func (c *Config) ProductDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// StagingDSN builds the staging database connection string. Empty when no
// staging host is configured.
func (c *Config) StagingDSN() string {
	if c.StagingDBHost == "" {
		return ""
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.StagingDBHost, c.StagingDBPort, c.StagingDBUser, c.StagingDBPassword, c.StagingDBName, c.StagingDBSSLMode,
	)
}
