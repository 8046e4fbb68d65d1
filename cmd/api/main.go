package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	_ "github.com/joho/godotenv/autoload"

	"github.com/fdg312/incident-hub/internal/config"
	"github.com/fdg312/incident-hub/internal/dbmigrate"
	"github.com/fdg312/incident-hub/internal/httpserver"
)

func main() {
	cfg := config.Load()

	printStartupBanner(cfg)

	if cfg.RunMigrationsOnStartup {
		sel, err := dbmigrate.SelectDatabaseURL(cfg, true)
		if err != nil {
			log.Fatalf("FATAL startup migrations: %v", err)
		}

		log.Printf("startup migrations: command=up using=%s", sel.Source)
		if err := dbmigrate.Run(context.Background(), "up", sel.URL, dbmigrate.DefaultMigrationsDir); err != nil {
			log.Fatalf("FATAL startup migrations failed: %v", err)
		}
		log.Printf("startup migrations: completed")
	}

	validateConfig(cfg)

	server := httpserver.New(cfg)
	defer server.Close()

	log.Fatal(server.Start())
}

// printStartupBanner logs a one-time summary of the resolved configuration.
// Secrets are printed as "set" / "not set" only.
func printStartupBanner(cfg *config.Config) {
	log.Println("========== Incident Hub API ==========")
	log.Printf("  env              = %s", cfg.Env)
	log.Printf("  port             = %d", cfg.Port)

	// ---- Database ----
	log.Println("---- database ----")
	log.Printf("  runtime_url      = %s", describeDBURL(cfg.DatabaseURL, cfg.DatabaseURLPooled, cfg.SQLitePath))
	log.Printf("  pooled           = %s", setOrNot(cfg.DatabaseURLPooled))
	log.Printf("  direct           = %s", setOrNot(cfg.DatabaseURLDirect))
	log.Printf("  sqlite_path      = %s", nonEmptyOrDash(cfg.SQLitePath))
	log.Printf("  migrations_on_startup = %t", cfg.RunMigrationsOnStartup)
	if cfg.RunMigrationsOnStartup {
		if cfg.DatabaseURLDirect != "" {
			log.Printf("  migrations_via   = DATABASE_URL_DIRECT")
		} else {
			log.Printf("  migrations_via   = (will fail, DATABASE_URL_DIRECT not set)")
		}
	}

	// ---- HTTP ----
	log.Println("---- http ----")
	log.Printf("  cors_origins     = %s", nonEmptyOrDash(strings.Join(cfg.CORSAllowedOrigins, ",")))
	log.Printf("  rate_limit_rps   = %s", limitOrUnlimited(cfg.RateLimitRPS))
	log.Printf("  rate_limit_auth  = %s/min", limitOrUnlimited(cfg.RateLimitAuthPerMinute))

	// ---- Auth ----
	log.Println("---- auth ----")
	log.Printf("  auth_required    = %t", cfg.AuthRequired)
	log.Printf("  jwt_secret       = %s", secretStatus(cfg.JWTSecret, config.DefaultJWTSecret))
	log.Printf("  jwt_ttl_minutes  = %d", cfg.JWTTTLMinutes)
	log.Printf("  seed_demo        = %t", cfg.SeedDemoAccount)

	// ---- Mailer ----
	log.Println("---- mailer ----")
	log.Printf("  email_sender     = %s", cfg.EmailSenderMode)
	switch cfg.EmailSenderMode {
	case "smtp":
		log.Printf("  smtp_host        = %s", nonEmptyOrDash(cfg.SMTPHost))
		log.Printf("  smtp_port        = %d", cfg.SMTPPort)
		log.Printf("  smtp_from        = %s", nonEmptyOrDash(cfg.SMTPFrom))
		log.Printf("  smtp_username    = %s", setOrNot(cfg.SMTPUsername))
		log.Printf("  smtp_password    = %s", setOrNot(cfg.SMTPPassword))
		log.Printf("  smtp_use_tls     = %t", cfg.SMTPUseTLS)
	case "resend":
		log.Printf("  resend_api_key   = %s", setOrNot(cfg.ResendAPIKey))
		log.Printf("  resend_from      = %s", nonEmptyOrDash(cfg.ResendFrom))
	default:
		log.Printf("  (reset emails will be printed to the server console)")
	}

	// ---- Drafts ----
	log.Println("---- drafts ----")
	log.Printf("  title_max        = %d", cfg.DraftTitleMax)
	log.Printf("  description_max  = %d", cfg.DraftDescriptionMax)
	log.Printf("  max_photos       = %s", limitOrUnlimited(cfg.DraftMaxPhotos))
	log.Printf("  mock_location    = %.6f, %.6f", cfg.MockLatitude, cfg.MockLongitude)
	log.Printf("  location_timeout = %ds", cfg.LocationTimeoutSeconds)
	log.Printf("  exif_probability = %.2f", cfg.CaptureEXIFProbability)

	// ---- Blob / S3 ----
	log.Println("---- blob ----")
	log.Printf("  blob_mode        = %s", cfg.Blob.Mode)
	log.Printf("  receipts_mode    = %s (effective=%s)", displayReceiptsMode(cfg), cfg.Blob.EffectiveReceiptsMode())
	if cfg.Blob.EffectiveReceiptsMode() != config.BlobModeLocal {
		log.Printf("  s3: %s", cfg.Blob.S3.DiagnosticsSummary())
	}

	log.Println("======================================")
}

// validateConfig logs every problem found by configProblems and exits if
// any of them is fatal.
func validateConfig(cfg *config.Config) {
	fatal, warnings := configProblems(cfg)
	for _, w := range warnings {
		log.Printf("WARN %s", w)
	}
	for _, f := range fatal {
		log.Printf("FATAL %s", f)
	}
	if len(fatal) > 0 {
		log.Fatalf("FATAL config: %d problem(s), refusing to start", len(fatal))
	}
}

// configProblems returns fatal misconfigurations and warnings. Checks on the
// JWT secret, demo seeding and the database only apply to staging and prod.
func configProblems(cfg *config.Config) (fatal, warnings []string) {
	deployed := cfg.IsProduction() || cfg.Env == "staging"

	if cfg.Blob.EffectiveReceiptsMode() == config.BlobModeS3 {
		if missing := cfg.Blob.S3.MissingRequired(); len(missing) > 0 {
			fatal = append(fatal, "blob: receipts mode is 's3' but S3 config is incomplete, missing: "+strings.Join(missing, ", "))
		}
	}

	switch cfg.EmailSenderMode {
	case "smtp":
		var missing []string
		if strings.TrimSpace(cfg.SMTPHost) == "" {
			missing = append(missing, "SMTP_HOST")
		}
		if strings.TrimSpace(cfg.SMTPFrom) == "" {
			missing = append(missing, "SMTP_FROM")
		}
		if len(missing) > 0 {
			fatal = append(fatal, "mailer: EMAIL_SENDER_MODE=smtp but config is incomplete, missing: "+strings.Join(missing, ", "))
		}
	case "resend":
		if strings.TrimSpace(cfg.ResendAPIKey) == "" {
			fatal = append(fatal, "mailer: EMAIL_SENDER_MODE=resend but RESEND_API_KEY is not set")
		}
	default:
		if deployed {
			warnings = append(warnings, fmt.Sprintf("mailer: password reset emails are only logged in %s", cfg.Env))
		}
	}

	if !deployed {
		return fatal, warnings
	}

	if cfg.AuthRequired && cfg.JWTSecret == config.DefaultJWTSecret {
		fatal = append(fatal, fmt.Sprintf("auth: JWT_SECRET must not be %q in %s with AUTH_REQUIRED=1", config.DefaultJWTSecret, cfg.Env))
	}
	if !cfg.AuthRequired {
		warnings = append(warnings, fmt.Sprintf("auth: AUTH_REQUIRED is off in %s, drafts are shared by anonymous clients", cfg.Env))
	}
	if cfg.SeedDemoAccount {
		warnings = append(warnings, fmt.Sprintf("auth: SEED_DEMO_ACCOUNT is enabled in %s", cfg.Env))
	}
	if cfg.DatabaseURL == "" {
		fatal = append(fatal, fmt.Sprintf("db: no DATABASE_URL configured in %s", cfg.Env))
	}

	return fatal, warnings
}

// ---- helpers (no secrets) ----

func setOrNot(v string) string {
	if strings.TrimSpace(v) == "" {
		return "not set"
	}
	return "set"
}

func nonEmptyOrDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

func secretStatus(v, insecureDefault string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "not set"
	}
	if v == insecureDefault {
		return fmt.Sprintf("set (DEFAULT, insecure '%s')", insecureDefault)
	}
	return "set (custom)"
}

func limitOrUnlimited(n int) string {
	if n <= 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d", n)
}

func describeDBURL(runtime, pooled, sqlitePath string) string {
	if runtime == "" {
		if sqlitePath != "" {
			return "not set (will use SQLite)"
		}
		return "not set (will use in-memory storage)"
	}
	if pooled != "" && runtime == pooled {
		return "set (via DATABASE_URL_POOLED)"
	}
	return "set"
}

func displayReceiptsMode(cfg *config.Config) string {
	if cfg.Blob.ReceiptsModeSet {
		return cfg.Blob.ReceiptsMode
	}
	return fmt.Sprintf("(inherits BLOB_MODE=%s)", cfg.Blob.Mode)
}
