package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const devJWTSecret = "dev-insecure-secret-change"

// Config holds process-wide settings. It is loaded once at startup and passed to
// constructors explicitly; nothing in pkg/ reads the environment on its own.
type Config struct {
	AppEnv   string `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	HTTPAddr string `mapstructure:"HTTP_ADDR" validate:"required"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	DBDSN         string `mapstructure:"DB_DSN" validate:"required"`
	DBAutoMigrate bool   `mapstructure:"DB_AUTO_MIGRATE"`

	JWTSecret string `mapstructure:"JWT_SECRET" validate:"required,min=8"`

	// PublicBaseURL prefixes every stored asset URL, e.g. https://api.example.com.
	PublicBaseURL string `mapstructure:"PUBLIC_BASE_URL" validate:"required,url"`
	UploadBase    string `mapstructure:"UPLOAD_BASE" validate:"required"`
	AssetDriver   string `mapstructure:"ASSET_DRIVER" validate:"required,oneof=local s3"`
	S3Bucket      string `mapstructure:"S3_BUCKET" validate:"required_if=AssetDriver s3"`
	S3Region      string `mapstructure:"S3_REGION"`
	S3Endpoint    string `mapstructure:"S3_ENDPOINT"`
	S3PathStyle   bool   `mapstructure:"S3_PATH_STYLE"`

	ProfileStore  string `mapstructure:"PROFILE_STORE" validate:"required,oneof=postgres mongo"`
	MongoURI      string `mapstructure:"MONGO_URI" validate:"required_if=ProfileStore mongo"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	PhotoQuality   int   `mapstructure:"PHOTO_QUALITY" validate:"gte=1,lte=100"`
	PhotoMaxBytes  int64 `mapstructure:"PHOTO_MAX_BYTES" validate:"gt=0"`
	AvatarMaxBytes int64 `mapstructure:"AVATAR_MAX_BYTES" validate:"gt=0"`
}

var (
	keys = []string{
		"APP_ENV", "HTTP_ADDR", "LOG_LEVEL", "LOG_FORMAT",
		"DB_DSN", "DB_AUTO_MIGRATE", "JWT_SECRET",
		"PUBLIC_BASE_URL", "UPLOAD_BASE", "ASSET_DRIVER",
		"S3_BUCKET", "S3_REGION", "S3_ENDPOINT", "S3_PATH_STYLE",
		"PROFILE_STORE", "MONGO_URI", "MONGO_DATABASE",
		"PHOTO_QUALITY", "PHOTO_MAX_BYTES", "AVATAR_MAX_BYTES",
	}
	validate = validator.New(validator.WithRequiredStructEnabled())
)

// Load reads .env (if present), the environment and an optional config.yaml,
// applies defaults and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", ":8081")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("JWT_SECRET", devJWTSecret)
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8081")
	v.SetDefault("UPLOAD_BASE", "uploads")
	v.SetDefault("ASSET_DRIVER", "local")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("PROFILE_STORE", "postgres")
	v.SetDefault("MONGO_DATABASE", "zeptical")
	v.SetDefault("PHOTO_QUALITY", 70)
	v.SetDefault("PHOTO_MAX_BYTES", 15<<20)
	v.SetDefault("AVATAR_MAX_BYTES", 5<<20)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config file error: %w", err)
		}
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if c.AppEnv == "production" && c.JWTSecret == devJWTSecret {
		return nil, fmt.Errorf("invalid configuration: JWT_SECRET must be set in production")
	}
	return &c, nil
}

// MustLoad loads configuration or exits the process on failure.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return c
}
