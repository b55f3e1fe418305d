package utils

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	AMQP       AMQPConfig
	Booking    BookingConfig
	Artifact   ArtifactConfig
	Cloudinary CloudinaryConfig
}

type AppConfig struct {
	Name            string
	Port            string
	Debug           bool
	LogPath         string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host        string
	Port        string
	Name        string
	User        string
	Password    string
	MaxConns    int32
	AutoMigrate bool
}

type RedisConfig struct {
	URL string
	TTL time.Duration
}

// AMQPConfig configures the best-effort event publisher. Events wait in an
// in-memory outbox of OutboxSize and are dropped when it is full.
type AMQPConfig struct {
	URL         string
	DialTimeout time.Duration
	OutboxSize  int
}

// BookingConfig controls the optimistic concurrency retry policy.
type BookingConfig struct {
	MaxClaimRetries   int
	RetryBackoff      time.Duration
	CompensationTries int
	DepartureCutoff   time.Duration
}

type ArtifactConfig struct {
	Workers         int
	QueueSize       int
	Timeout         time.Duration
	PollInterval    time.Duration
	PollMaxAttempts int
	StaleAfter      time.Duration
	SweepInterval   time.Duration
	MaxAutoAttempts int
	StorageDriver   string
	StoragePath     string
	PublicBaseURL   string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "flight-booking")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("DB_AUTO_MIGRATE", false)
	viper.SetDefault("REDIS_TTL", "30m")
	viper.SetDefault("BOOKING_MAX_CLAIM_RETRIES", 4)
	viper.SetDefault("BOOKING_RETRY_BACKOFF", "10ms")
	viper.SetDefault("BOOKING_COMPENSATION_TRIES", 3)
	viper.SetDefault("BOOKING_DEPARTURE_CUTOFF", "0s")
	viper.SetDefault("ARTIFACT_WORKERS", 4)
	viper.SetDefault("ARTIFACT_QUEUE_SIZE", 256)
	viper.SetDefault("ARTIFACT_GENERATION_TIMEOUT", "30s")
	viper.SetDefault("ARTIFACT_POLL_INTERVAL", "2s")
	viper.SetDefault("ARTIFACT_POLL_MAX_ATTEMPTS", 15)
	viper.SetDefault("ARTIFACT_STALE_AFTER", "5m")
	viper.SetDefault("ARTIFACT_SWEEP_INTERVAL", "1m")
	viper.SetDefault("ARTIFACT_MAX_AUTO_ATTEMPTS", 3)
	viper.SetDefault("ARTIFACT_STORAGE_DRIVER", "fs")
	viper.SetDefault("ARTIFACT_STORAGE_PATH", "storage/invoices")
	viper.SetDefault("ARTIFACT_PUBLIC_BASE_URL", "/files/invoices")
	viper.SetDefault("CLOUDINARY_FOLDER", "invoices")
	viper.SetDefault("RABBITMQ_DIAL_TIMEOUT", "3s")
	viper.SetDefault("RABBITMQ_OUTBOX_SIZE", 256)

	// .env is optional; the environment wins either way
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:            viper.GetString("APP_NAME"),
			Port:            viper.GetString("PORT"),
			Debug:           viper.GetBool("DEBUG"),
			LogPath:         viper.GetString("LOG_PATH"),
			ShutdownTimeout: viper.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:        viper.GetString("DB_HOST"),
			Port:        viper.GetString("DB_PORT"),
			Name:        viper.GetString("DB_NAME"),
			User:        viper.GetString("DB_USER"),
			Password:    viper.GetString("DB_PASS"),
			MaxConns:    viper.GetInt32("DB_MAX_CONNS"),
			AutoMigrate: viper.GetBool("DB_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			URL: viper.GetString("REDIS_URL"),
			TTL: viper.GetDuration("REDIS_TTL"),
		},
		AMQP: AMQPConfig{
			URL:         viper.GetString("RABBITMQ_URL"),
			DialTimeout: viper.GetDuration("RABBITMQ_DIAL_TIMEOUT"),
			OutboxSize:  viper.GetInt("RABBITMQ_OUTBOX_SIZE"),
		},
		Booking: BookingConfig{
			MaxClaimRetries:   viper.GetInt("BOOKING_MAX_CLAIM_RETRIES"),
			RetryBackoff:      viper.GetDuration("BOOKING_RETRY_BACKOFF"),
			CompensationTries: viper.GetInt("BOOKING_COMPENSATION_TRIES"),
			DepartureCutoff:   viper.GetDuration("BOOKING_DEPARTURE_CUTOFF"),
		},
		Artifact: ArtifactConfig{
			Workers:         viper.GetInt("ARTIFACT_WORKERS"),
			QueueSize:       viper.GetInt("ARTIFACT_QUEUE_SIZE"),
			Timeout:         viper.GetDuration("ARTIFACT_GENERATION_TIMEOUT"),
			PollInterval:    viper.GetDuration("ARTIFACT_POLL_INTERVAL"),
			PollMaxAttempts: viper.GetInt("ARTIFACT_POLL_MAX_ATTEMPTS"),
			StaleAfter:      viper.GetDuration("ARTIFACT_STALE_AFTER"),
			SweepInterval:   viper.GetDuration("ARTIFACT_SWEEP_INTERVAL"),
			MaxAutoAttempts: viper.GetInt("ARTIFACT_MAX_AUTO_ATTEMPTS"),
			StorageDriver:   viper.GetString("ARTIFACT_STORAGE_DRIVER"),
			StoragePath:     viper.GetString("ARTIFACT_STORAGE_PATH"),
			PublicBaseURL:   viper.GetString("ARTIFACT_PUBLIC_BASE_URL"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: viper.GetString("CLOUDINARY_CLOUD_NAME"),
			APIKey:    viper.GetString("CLOUDINARY_API_KEY"),
			APISecret: viper.GetString("CLOUDINARY_API_SECRET"),
			Folder:    viper.GetString("CLOUDINARY_FOLDER"),
		},
	}

	return config, nil
}
