// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gitlab.com/yelinaung/gastos-bot/internal/models"
)

// Ledger backends.
const (
	LedgerSheets   = "sheets"
	LedgerPostgres = "postgres"
)

// Archive backends.
const (
	ArchiveNone  = "none"
	ArchiveAzure = "azure"
	ArchiveDrive = "drive"
)

// Chart renderers.
const (
	ChartLocal      = "local"
	ChartQuickChart = "quickchart"
)

// Config holds all configuration for the application.
type Config struct {
	TelegramBotToken string

	LedgerBackend string
	SheetID       string
	SheetName     string
	GoogleJSONKey string
	DatabaseURL   string

	GeminiAPIKey string
	OCRLanguages []string
	OCRTimeout   time.Duration

	ArchiveBackend        string
	AzureConnectionString string
	AzureContainer        string
	DriveFolderID         string
	ArchiveTimeout        time.Duration

	CategorySet string
	Categories  []models.Category

	Timezone string
	Location *time.Location
	Currency string

	PendingTTL    time.Duration
	ChartRenderer string

	SummaryCron    string
	SummaryChatIDs []int64

	WhitelistedUserIDs   []int64
	WhitelistedUsernames []string

	Port         string
	LogLevel     string
	LogFormat    string
	OTelExporter string
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TelegramBotToken:      firstNonEmpty(os.Getenv("BOT_TOKEN"), os.Getenv("TELEGRAM_BOT_TOKEN")),
		LedgerBackend:         strings.ToLower(getEnv("LEDGER_BACKEND", LedgerSheets)),
		SheetID:               os.Getenv("SHEET_ID"),
		SheetName:             os.Getenv("SHEET_NAME"),
		GoogleJSONKey:         os.Getenv("GOOGLE_JSON_KEY"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		GeminiAPIKey:          os.Getenv("GEMINI_API_KEY"),
		OCRLanguages:          splitList(getEnv("OCR_LANGUAGES", "es,en")),
		ArchiveBackend:        strings.ToLower(getEnv("ARCHIVE_BACKEND", ArchiveNone)),
		AzureConnectionString: os.Getenv("AZURE_STORAGE_CONNECTION_STRING"),
		AzureContainer:        getEnv("AZURE_STORAGE_CONTAINER", "recibos"),
		DriveFolderID:         os.Getenv("DRIVE_FOLDER_ID"),
		CategorySet:           strings.ToLower(getEnv("CATEGORY_SET", models.CategorySetV2)),
		Timezone:              getEnv("TIMEZONE", "America/Argentina/Buenos_Aires"),
		Currency:              strings.ToUpper(getEnv("CURRENCY", "ARS")),
		ChartRenderer:         strings.ToLower(getEnv("CHART_RENDERER", ChartLocal)),
		SummaryCron:           strings.TrimSpace(os.Getenv("SUMMARY_CRON")),
		Port:                  getEnv("PORT", "8000"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		OTelExporter:          strings.ToLower(os.Getenv("OTEL_EXPORTER")),
	}

	var errs []string

	cfg.OCRTimeout = parseDuration("OCR_TIMEOUT", 30*time.Second, &errs)
	cfg.ArchiveTimeout = parseDuration("ARCHIVE_TIMEOUT", 20*time.Second, &errs)
	cfg.PendingTTL = parseDuration("PENDING_TTL", 20*time.Minute, &errs)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		errs = append(errs, fmt.Sprintf("TIMEZONE %q is invalid: %v", cfg.Timezone, err))
	}
	cfg.Location = loc

	if override := os.Getenv("CATEGORIES"); override != "" {
		cats, err := models.ParseCategories(override)
		if err != nil {
			errs = append(errs, fmt.Sprintf("CATEGORIES: %v", err))
		}
		cfg.Categories = cats
	} else {
		cats, ok := models.CategorySetByName(cfg.CategorySet)
		if !ok {
			errs = append(errs, fmt.Sprintf("CATEGORY_SET %q is unknown (use v1 or v2)", cfg.CategorySet))
		}
		cfg.Categories = cats
	}

	cfg.SummaryChatIDs = parseIDs("SUMMARY_CHAT_IDS")
	cfg.WhitelistedUserIDs = parseIDs("WHITELISTED_USER_IDS")
	for _, username := range splitList(os.Getenv("WHITELISTED_USERNAMES")) {
		cfg.WhitelistedUsernames = append(cfg.WhitelistedUsernames, strings.TrimPrefix(username, "@"))
	}

	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return cfg, nil
}

// validate checks that all required configuration is present.
func (c *Config) validate() []string {
	var errs []string

	if c.TelegramBotToken == "" {
		errs = append(errs, "BOT_TOKEN (or TELEGRAM_BOT_TOKEN) is required")
	}

	switch c.LedgerBackend {
	case LedgerSheets:
		if c.SheetID == "" {
			errs = append(errs, "SHEET_ID is required when LEDGER_BACKEND=sheets")
		}
		if c.GoogleJSONKey == "" {
			errs = append(errs, "GOOGLE_JSON_KEY is required when LEDGER_BACKEND=sheets")
		}
	case LedgerPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when LEDGER_BACKEND=postgres")
		}
	default:
		errs = append(errs, fmt.Sprintf("LEDGER_BACKEND %q is unknown (use sheets or postgres)", c.LedgerBackend))
	}

	switch c.ArchiveBackend {
	case ArchiveNone:
	case ArchiveAzure:
		if c.AzureConnectionString == "" {
			errs = append(errs, "AZURE_STORAGE_CONNECTION_STRING is required when ARCHIVE_BACKEND=azure")
		}
	case ArchiveDrive:
		if c.GoogleJSONKey == "" {
			errs = append(errs, "GOOGLE_JSON_KEY is required when ARCHIVE_BACKEND=drive")
		}
		if c.DriveFolderID == "" {
			errs = append(errs, "DRIVE_FOLDER_ID is required when ARCHIVE_BACKEND=drive")
		}
	default:
		errs = append(errs, fmt.Sprintf("ARCHIVE_BACKEND %q is unknown (use none, azure or drive)", c.ArchiveBackend))
	}

	if c.ChartRenderer != ChartLocal && c.ChartRenderer != ChartQuickChart {
		errs = append(errs, fmt.Sprintf("CHART_RENDERER %q is unknown (use local or quickchart)", c.ChartRenderer))
	}

	if c.SummaryCron != "" && len(c.SummaryChatIDs) == 0 {
		errs = append(errs, "SUMMARY_CHAT_IDS is required when SUMMARY_CRON is set")
	}

	if c.PendingTTL <= 0 {
		errs = append(errs, "PENDING_TTL must be positive")
	}

	return errs
}

// OCREnabled reports whether photo receipts can be processed.
func (c *Config) OCREnabled() bool {
	return c.GeminiAPIKey != ""
}

// WhitelistEnabled reports whether an access list was configured.
func (c *Config) WhitelistEnabled() bool {
	return len(c.WhitelistedUserIDs) > 0 || len(c.WhitelistedUsernames) > 0
}

// IsUserWhitelisted checks if a Telegram user ID or username may use the bot.
// Without a configured access list every user is allowed.
func (c *Config) IsUserWhitelisted(userID int64, username string) bool {
	if !c.WhitelistEnabled() {
		return true
	}

	if slices.Contains(c.WhitelistedUserIDs, userID) {
		return true
	}

	username = strings.TrimPrefix(username, "@")
	if username == "" {
		return false
	}
	return slices.ContainsFunc(c.WhitelistedUsernames, func(w string) bool {
		return strings.EqualFold(w, username)
	})
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func splitList(raw string) []string {
	var out []string
	for item := range strings.SplitSeq(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseIDs reads a comma separated list of numeric ids, skipping invalid entries.
func parseIDs(key string) []int64 {
	var ids []int64
	for _, item := range splitList(os.Getenv(key)) {
		id, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func parseDuration(key string, fallback time.Duration, errs *[]string) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s %q is not a duration", key, raw))
		return fallback
	}
	return d
}
