package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	Store    StoreConfig
	Services ServicesConfig
	Log      LogConfig

	// MaxPageSize caps the limit accepted by GET /customers. Zero keeps the
	// page size unbounded.
	MaxPageSize int64

	SMS   AfricaTalkingConfig
	Email EmailConfig
}

type StoreConfig struct {
	Driver string // "mongo" or "postgres"

	MongoURI      string
	MongoDatabase string

	PostgresDSN string
}

type ServicesConfig struct {
	IAMURL     string
	ImageURL   string
	OIDCIssuer string
	Timeout    time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type AfricaTalkingConfig struct {
	Username string
	APIKey   string
	SMSURL   string
	SenderID string
}

func (c AfricaTalkingConfig) Enabled() bool {
	return c.Username != "" && c.APIKey != ""
}

type EmailConfig struct {
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string
	SenderEmail        string
	Recipient          string
}

func (c EmailConfig) Enabled() bool {
	return c.SenderEmail != "" && c.Recipient != ""
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present; variables already set
// in the environment win.
func Load() (Config, error) {
	_ = godotenv.Load()

	timeout, err := time.ParseDuration(getEnvOrDefault("HTTP_CLIENT_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid HTTP_CLIENT_TIMEOUT: %w", err)
	}

	maxPage, err := strconv.ParseInt(getEnvOrDefault("MAX_PAGE_SIZE", "0"), 10, 64)
	if err != nil || maxPage < 0 {
		return Config{}, fmt.Errorf("invalid MAX_PAGE_SIZE %q", os.Getenv("MAX_PAGE_SIZE"))
	}

	mongoURI := getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017/api-service")

	cfg := Config{
		Port: getEnvOrDefault("PORT", "8080"),
		Store: StoreConfig{
			Driver:        strings.ToLower(getEnvOrDefault("STORE_DRIVER", "mongo")),
			MongoURI:      mongoURI,
			MongoDatabase: getEnvOrDefault("MONGO_DATABASE", databaseFromURI(mongoURI)),
			PostgresDSN:   postgresDSN(),
		},
		Services: ServicesConfig{
			IAMURL:     strings.TrimRight(getEnvOrDefault("IAM_SERVICE_URL", "http://iam-service:3001"), "/"),
			ImageURL:   strings.TrimRight(getEnvOrDefault("IMAGE_SERVICE_URL", "http://image-service:3002"), "/"),
			OIDCIssuer: os.Getenv("OIDC_ISSUER"),
			Timeout:    timeout,
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		MaxPageSize: maxPage,
		SMS:         LoadAfricaTalkingConfig(),
		Email:       LoadEmailConfig(),
	}

	switch cfg.Store.Driver {
	case "mongo", "postgres":
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Store.Driver)
	}

	return cfg, nil
}

func LoadAfricaTalkingConfig() AfricaTalkingConfig {
	return AfricaTalkingConfig{
		Username: os.Getenv("AT_USERNAME"),
		APIKey:   os.Getenv("AT_API_KEY"),
		SMSURL:   getEnvOrDefault("AT_SMS_URL", "https://api.sandbox.africastalking.com/version1/messaging"), // Sandbox URL
		SenderID: getEnvOrDefault("AT_SENDER_ID", "AFRICASTKNG"),
	}
}

func LoadEmailConfig() EmailConfig {
	return EmailConfig{
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		AWSRegion:          getEnvOrDefault("AWS_REGION", "us-east-1"),
		SenderEmail:        os.Getenv("AWS_SENDER_ADDRESS"),
		Recipient:          os.Getenv("NOTIFY_EMAIL_RECIPIENT"),
	}
}

func postgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		getEnvOrDefault("POSTGRES_HOST", "localhost"),
		getEnvOrDefault("POSTGRES_USER", "test"),
		getEnvOrDefault("POSTGRES_PASSWORD", "test"),
		getEnvOrDefault("POSTGRES_DB", "test"),
		getEnvOrDefault("DB_PORT", "5432"),
	)
}

// databaseFromURI returns the database named in the URI path, the same one
// the mongo shell would pick.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "api-service"
	}
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}
	return "api-service"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
