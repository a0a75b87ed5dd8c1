package config

import (
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for the application.
type Config struct {
	Server  Server  `mapstructure:"server"`
	Redis   Redis   `mapstructure:"redis"`
	Storage Storage `mapstructure:"storage"`
	Kafka   Kafka   `mapstructure:"kafka"`
	Worker  Worker  `mapstructure:"worker"`
	Retry   Retry   `mapstructure:"retry"`
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort    string `mapstructure:"http_port"`    // HTTP port to listen on
	InlineFetch bool   `mapstructure:"inline_fetch"` // download image_url at submission time instead of in the worker
}

// Redis holds configuration for the status store.
type Redis struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	StatusTTL time.Duration `mapstructure:"status_ttl"` // lifetime of status records and presigned URLs
}

// Storage holds configuration for the S3-compatible object storage backend.
type Storage struct {
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	Region     string `mapstructure:"region"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

// Kafka holds configuration for the Kafka message queue. Paid and free jobs
// travel on separate topics so a free backlog never delays paid work.
type Kafka struct {
	GroupID   string   `mapstructure:"group_id"`   // Consumer group ID
	PaidTopic string   `mapstructure:"paid_topic"` // Topic for the paid lane
	FreeTopic string   `mapstructure:"free_topic"` // Topic for the free lane
	Brokers   []string `mapstructure:"brokers"`    // List of Kafka broker addresses
}

// Worker holds configuration for the job executor pool.
type Worker struct {
	Count           int           `mapstructure:"count"`            // number of concurrent workers shared across lanes
	Remover         string        `mapstructure:"remover"`          // "http" or "chroma"
	RemoverEndpoint string        `mapstructure:"remover_endpoint"` // inference endpoint for the http remover
	JobTimeout      time.Duration `mapstructure:"job_timeout"`      // per-job processing deadline, 0 disables
}

// Retry defines retry policy configuration.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// mustBindEnv binds critical environment variables to Viper keys.
//
// It panics if any environment variable cannot be bound.
func mustBindEnv() {
	bindings := map[string]string{
		"redis.addr":          "REDIS_ADDR",
		"redis.password":      "REDIS_PASSWORD",
		"kafka.brokers":       "KAFKA_BROKERS",
		"storage.endpoint":    "S3_ENDPOINT",
		"storage.access_key":  "S3_ACCESS_KEY",
		"storage.secret_key":  "S3_SECRET_KEY",
		"storage.bucket_name": "S3_BUCKET",
		"storage.region":      "S3_REGION",
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			zlog.Logger.Panic().Err(err).Msgf("failed to bind env %s", env)
		}
	}
}

// MustLoad loads the configuration from the specified directory.
// It panics if the configuration file cannot be loaded or unmarshaled.
func MustLoad(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.AutomaticEnv()

	viper.SetDefault("server.inline_fetch", true)
	viper.SetDefault("redis.status_ttl", time.Hour)
	viper.SetDefault("worker.count", 4)
	viper.SetDefault("worker.remover", "chroma")

	if err := viper.ReadInConfig(); err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to read config")
	}

	mustBindEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		zlog.Logger.Panic().Err(err).Msgf("failed to unmarshal config: %v", err)
	}

	return &cfg
}
