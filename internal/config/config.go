package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Notification drivers.
const (
	NotifyDriverWebhook = "webhook"
	NotifyDriverSNS     = "sns"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	ReceiptsBucket string // optional; receipts are not archived when empty

	JWTPrivateKeyPath string // optional; only needed to mint tokens
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	BotToken         string
	NotifyDriver     string // "webhook" | "sns"
	NotifyWebhookURL string
	SNSRegion        string
	SNSTopicARN      string

	GrantAPIURL      string // template, "{uid}" is replaced with the account id
	PlayerInfoAPIURL string // template, optional
	ShortenerAPIURL  string // optional
	ShortenerAPIKey  string
	PublicBaseURL    string // base of the verification link, e.g. https://relay.example.com

	OperatorIDs []string

	PollInterval      time.Duration
	GrantTimeout      time.Duration
	LookupTimeout     time.Duration
	RequestTimeout    time.Duration
	// VerificationTTL and RateLimitWindow are overridden only in tests;
	// production runs the 10m and 24h defaults.
	VerificationTTL   time.Duration
	RateLimitWindow   time.Duration
	WorkerConcurrency int
	GrantRPS          float64
	AllowedOrigins    []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Requests string
	Profiles string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "8000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Requests: getEnv("DYNAMO_TABLE_REQUESTS", "verification_requests"),
			Profiles: getEnv("DYNAMO_TABLE_PROFILES", "profiles"),
		},
		ReceiptsBucket:    getEnv("RECEIPTS_BUCKET", ""),
		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", ""),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         getEnvDuration("JWT_EXPIRY", 24*time.Hour),
		BotToken:          getEnv("BOT_TOKEN", ""),
		NotifyDriver:      getEnv("NOTIFY_DRIVER", NotifyDriverWebhook),
		NotifyWebhookURL:  getEnv("NOTIFY_WEBHOOK_URL", "https://api.telegram.org"),
		SNSRegion:         getEnv("SNS_REGION", "us-east-1"),
		SNSTopicARN:       getEnv("SNS_TOPIC_ARN", ""),
		GrantAPIURL:       getEnv("GRANT_API_URL", ""),
		PlayerInfoAPIURL:  getEnv("PLAYER_INFO_API_URL", ""),
		ShortenerAPIURL:   getEnv("SHORTENER_API_URL", ""),
		ShortenerAPIKey:   getEnv("SHORTENER_API_KEY", ""),
		PublicBaseURL:     strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
		OperatorIDs:       getEnvList("OPERATOR_IDS"),
		PollInterval:      getEnvDuration("POLL_INTERVAL", 5*time.Second),
		GrantTimeout:      getEnvDuration("GRANT_TIMEOUT", 10*time.Second),
		LookupTimeout:     getEnvDuration("LOOKUP_TIMEOUT", 5*time.Second),
		RequestTimeout:    getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		VerificationTTL:   getEnvDuration("VERIFICATION_TTL", 10*time.Minute),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", 24*time.Hour),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),
		GrantRPS:          getEnvFloat("GRANT_RPS", 2),
		AllowedOrigins:    strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var errs []error
	required := map[string]string{
		"AWS_REGION":      c.AWSRegion,
		"GRANT_API_URL":   c.GrantAPIURL,
		"PUBLIC_BASE_URL": c.PublicBaseURL,
	}
	switch c.NotifyDriver {
	case NotifyDriverWebhook:
		required["BOT_TOKEN"] = c.BotToken
		required["NOTIFY_WEBHOOK_URL"] = c.NotifyWebhookURL
	case NotifyDriverSNS:
		required["SNS_TOPIC_ARN"] = c.SNSTopicARN
	default:
		errs = append(errs, fmt.Errorf("NOTIFY_DRIVER: unknown driver %q", c.NotifyDriver))
	}
	for _, key := range sortedKeys(required) {
		if required[key] == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}
	if len(c.OperatorIDs) == 0 {
		errs = append(errs, errors.New("OPERATOR_IDS is required"))
	}
	if !strings.Contains(c.GrantAPIURL, "{uid}") && c.GrantAPIURL != "" {
		errs = append(errs, errors.New("GRANT_API_URL must contain the {uid} placeholder"))
	}
	if c.WorkerConcurrency < 1 {
		errs = append(errs, errors.New("WORKER_CONCURRENCY must be at least 1"))
	}
	return errors.Join(errs...)
}

// IsOperator reports whether requesterID is in the operator list.
func (c *Config) IsOperator(requesterID string) bool {
	for _, id := range c.OperatorIDs {
		if id == requesterID {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
