package config

import (
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"
)

const (
	BlobModeLocal = "local"
	BlobModeS3    = "s3"
	BlobModeAuto  = "auto"
)

// DefaultJWTSecret is the placeholder used when JWT_SECRET is unset.
const DefaultJWTSecret = "change_me"

type S3Config struct {
	Endpoint          string
	Region            string
	Bucket            string
	AccessKeyID       string
	SecretAccessKey   string
	PublicBaseURL     string
	PresignTTLSeconds int
	PreferPublicURL   bool
}

func (c S3Config) MissingRequired() []string {
	missing := make([]string, 0, 6)
	if strings.TrimSpace(c.Endpoint) == "" {
		missing = append(missing, "S3_ENDPOINT")
	}
	if strings.TrimSpace(c.Region) == "" {
		missing = append(missing, "S3_REGION")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		missing = append(missing, "S3_BUCKET")
	}
	if strings.TrimSpace(c.AccessKeyID) == "" {
		missing = append(missing, "S3_ACCESS_KEY_ID")
	}
	if strings.TrimSpace(c.SecretAccessKey) == "" {
		missing = append(missing, "S3_SECRET_ACCESS_KEY")
	}
	if strings.TrimSpace(c.PublicBaseURL) == "" {
		missing = append(missing, "S3_PUBLIC_BASE_URL")
	}
	return missing
}

func (c S3Config) IsConfigured() bool {
	return len(c.MissingRequired()) == 0
}

func (c S3Config) Diagnostics() (level string, code string, msg string) {
	allEmpty := strings.TrimSpace(c.Endpoint) == "" &&
		strings.TrimSpace(c.Region) == "" &&
		strings.TrimSpace(c.Bucket) == "" &&
		strings.TrimSpace(c.AccessKeyID) == "" &&
		strings.TrimSpace(c.SecretAccessKey) == "" &&
		strings.TrimSpace(c.PublicBaseURL) == ""

	if allEmpty {
		return "INFO", "s3_not_configured", "not configured (all empty)"
	}

	missing := c.MissingRequired()
	if len(missing) > 0 {
		return "WARN", "s3_partial_config", fmt.Sprintf("partial config, missing=%v", missing)
	}

	return "INFO", "s3_ready", "ready"
}

// DiagnosticsSummary returns a detailed summary for logging (no secrets)
func (c S3Config) DiagnosticsSummary() string {
	accessKeyStatus := "not set"
	if strings.TrimSpace(c.AccessKeyID) != "" {
		accessKeyStatus = "set"
	}
	secretKeyStatus := "not set"
	if strings.TrimSpace(c.SecretAccessKey) != "" {
		secretKeyStatus = "set"
	}

	return fmt.Sprintf("endpoint=%s region=%s bucket=%s public_base_url=%s presign_ttl=%ds prefer_public_url=%t access_key_id=%s secret_access_key=%s",
		nonEmptyOrDash(c.Endpoint),
		nonEmptyOrDash(c.Region),
		nonEmptyOrDash(c.Bucket),
		nonEmptyOrDash(c.PublicBaseURL),
		c.PresignTTLSeconds,
		c.PreferPublicURL,
		accessKeyStatus,
		secretKeyStatus,
	)
}

func nonEmptyOrDash(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "-"
	}
	return v
}

type BlobConfig struct {
	Mode            string // local|s3|auto
	ReceiptsMode    string // local|s3|auto (override)
	ReceiptsModeSet bool
	S3              S3Config
}

func (c BlobConfig) EffectiveReceiptsMode() string {
	if c.ReceiptsModeSet {
		return c.ReceiptsMode
	}
	return c.Mode
}

// Config содержит конфигурацию приложения
type Config struct {
	Env      string // local | staging | prod
	Port     int
	LogLevel string

	// Database
	DatabaseURL       string // runtime connection (resolved: pooled > url > direct)
	DatabaseURLRaw    string // DATABASE_URL as provided
	DatabaseURLPooled string // DATABASE_URL_POOLED as provided
	DatabaseURLDirect string // for migrations / DDL (may be empty)
	SQLitePath        string // embedded store, used when no DATABASE_URL is set

	// CORS
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	// Rate Limiting
	RateLimitRPS   int
	RateLimitBurst int
	// RateLimitAuthPerMinute ограничивает POST /v1/auth/* на один IP
	RateLimitAuthPerMinute int

	// Blob (receipts)
	Blob BlobConfig

	// Authentication
	AuthRequired    bool
	JWTSecret       string
	JWTIssuer       string
	JWTTTLMinutes   int
	SeedDemoAccount bool

	// Mail (password reset instructions)
	EmailSenderMode string // local | smtp | resend
	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	SMTPFrom        string
	SMTPUseTLS      bool
	ResendAPIKey    string
	ResendFrom      string

	// Drafts
	DraftTitleMax       int
	DraftDescriptionMax int
	DraftMaxPhotos      int

	// Location mock
	MockLatitude           float64
	MockLongitude          float64
	MockAddress            string
	LocationTimeoutSeconds int

	// Capture mock
	CaptureEXIFProbability float64

	// Migrations
	RunMigrationsOnStartup bool
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

// Load загружает конфигурацию из переменных окружения.
// Некорректные значения заменяются значениями по умолчанию.
func Load() *Config {
	cfg := &Config{
		// APP_ENV (ENV оставлен для обратной совместимости)
		Env:      envString("APP_ENV", envString("ENV", "local")),
		Port:     envInt("PORT", 8080),
		LogLevel: envString("LOG_LEVEL", "debug"),
	}

	// ---------- Database ----------
	// Priority: DATABASE_URL_POOLED > DATABASE_URL > DATABASE_URL_DIRECT
	cfg.DatabaseURLPooled = envString("DATABASE_URL_POOLED", "")
	cfg.DatabaseURLRaw = envString("DATABASE_URL", "")
	cfg.DatabaseURLDirect = envString("DATABASE_URL_DIRECT", "")
	cfg.DatabaseURL = firstNonEmpty(cfg.DatabaseURLPooled, cfg.DatabaseURLRaw, cfg.DatabaseURLDirect)
	cfg.SQLitePath = envString("SQLITE_PATH", "")
	cfg.RunMigrationsOnStartup = parseBoolEnv("RUN_MIGRATIONS_ON_STARTUP")

	// ---------- CORS / rate limiting ----------
	cfg.CORSAllowedOrigins = parseCORSOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"), cfg.Env)
	cfg.CORSAllowCredentials = os.Getenv("CORS_ALLOW_CREDENTIALS") == "1"
	cfg.RateLimitRPS = envInt("RATE_LIMIT_RPS", 0)
	cfg.RateLimitBurst = envInt("RATE_LIMIT_BURST", 0)
	cfg.RateLimitAuthPerMinute = envInt("RATE_LIMIT_AUTH_PER_MINUTE", 0)

	// ---------- Blob / S3 ----------
	receiptsMode := envString("RECEIPTS_MODE", "")
	cfg.Blob = BlobConfig{
		Mode:            envEnum("BLOB_MODE", BlobModeLocal, BlobModeLocal, BlobModeS3, BlobModeAuto),
		ReceiptsMode:    envEnum("RECEIPTS_MODE", BlobModeLocal, BlobModeLocal, BlobModeS3, BlobModeAuto),
		ReceiptsModeSet: receiptsMode != "",
		S3: S3Config{
			Endpoint:          envString("S3_ENDPOINT", ""),
			Region:            envString("S3_REGION", ""),
			Bucket:            envString("S3_BUCKET", ""),
			AccessKeyID:       envString("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey:   envString("S3_SECRET_ACCESS_KEY", ""),
			PublicBaseURL:     envString("S3_PUBLIC_BASE_URL", ""),
			PresignTTLSeconds: envPositiveInt("S3_PRESIGN_TTL_SECONDS", 900),
			PreferPublicURL:   parseBoolEnv("S3_PREFER_PUBLIC_URL"),
		},
	}

	// ---------- Auth ----------
	cfg.AuthRequired = parseBoolEnv("AUTH_REQUIRED")
	cfg.JWTSecret = envString("JWT_SECRET", DefaultJWTSecret)
	if cfg.JWTSecret == DefaultJWTSecret && cfg.Env != "local" {
		log.Printf("WARNING: JWT_SECRET is set to %q in non-local environment!", DefaultJWTSecret)
	}
	cfg.JWTIssuer = envString("JWT_ISSUER", "incident-hub")
	cfg.JWTTTLMinutes = envPositiveInt("JWT_TTL_MINUTES", 7*24*60)
	// по умолчанию демо-аккаунт создаётся везде, кроме prod
	cfg.SeedDemoAccount = !cfg.IsProduction()
	if os.Getenv("SEED_DEMO_ACCOUNT") != "" {
		cfg.SeedDemoAccount = parseBoolEnv("SEED_DEMO_ACCOUNT")
	}

	// ---------- Mail ----------
	cfg.EmailSenderMode = envEnum("EMAIL_SENDER_MODE", "local", "local", "smtp", "resend")
	cfg.ResendAPIKey = envString("RESEND_API_KEY", "")
	cfg.ResendFrom = envString("RESEND_FROM", "Incident Hub <onboarding@resend.dev>")
	cfg.SMTPHost = envString("SMTP_HOST", "")
	cfg.SMTPPort = envPositiveInt("SMTP_PORT", 587)
	cfg.SMTPUsername = envString("SMTP_USERNAME", "")
	cfg.SMTPPassword = envString("SMTP_PASSWORD", "")
	cfg.SMTPFrom = envString("SMTP_FROM", "Incident Hub <no-reply@yourdomain.com>")
	cfg.SMTPUseTLS = parseBoolEnv("SMTP_USE_TLS")

	// ---------- Drafts ----------
	cfg.DraftTitleMax = envPositiveInt("DRAFT_TITLE_MAX", 100)
	cfg.DraftDescriptionMax = envPositiveInt("DRAFT_DESCRIPTION_MAX", 1000)
	cfg.DraftMaxPhotos = max(envInt("DRAFT_MAX_PHOTOS", 0), 0) // 0 = unlimited

	// ---------- Location / capture mocks ----------
	cfg.MockLatitude = envFloat("MOCK_LATITUDE", 37.7749)
	cfg.MockLongitude = envFloat("MOCK_LONGITUDE", -122.4194)
	cfg.MockAddress = envString("MOCK_ADDRESS", "123 Main Street, San Francisco, CA 94102, USA")
	cfg.LocationTimeoutSeconds = envPositiveInt("LOCATION_TIMEOUT_SECONDS", 10)
	cfg.CaptureEXIFProbability = min(max(envFloat("CAPTURE_EXIF_PROBABILITY", 0.7), 0), 1)

	return cfg
}

// parseCORSOrigins parses CORS_ALLOWED_ORIGINS env var.
// In local mode, defaults to localhost origins if empty.
func parseCORSOrigins(raw, env string) []string {
	if strings.TrimSpace(raw) == "" {
		if env == "local" {
			return []string{"http://localhost:3000", "http://localhost:8081"}
		}
		return nil // prod: deny by default
	}

	var origins []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// envString returns the trimmed value of key or defaultVal when unset.
func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

// envEnum lower-cases key and falls back to defaultVal (with a warning)
// when the value is not one of allowed.
func envEnum(key, defaultVal string, allowed ...string) string {
	v := strings.ToLower(envString(key, ""))
	if v == "" {
		return defaultVal
	}
	if !slices.Contains(allowed, v) {
		log.Printf("WARNING: unknown %s=%q, fallback to %s", key, v, defaultVal)
		return defaultVal
	}
	return v
}

// envInt reads an int env var with a default value.
func envInt(key string, defaultVal int) int {
	v, err := strconv.Atoi(envString(key, ""))
	if err != nil {
		return defaultVal
	}
	return v
}

// envPositiveInt is envInt that also rejects values <= 0.
func envPositiveInt(key string, defaultVal int) int {
	if v := envInt(key, defaultVal); v > 0 {
		return v
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	v, err := strconv.ParseFloat(envString(key, ""), 64)
	if err != nil {
		return defaultVal
	}
	return v
}

func parseBoolEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}
