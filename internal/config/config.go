package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/cesargomez89/pdfhunter/internal/constants"
)

// Config holds all application configuration
type Config struct {
	Port         string
	DBPath       string
	DownloadsDir string
	LogLevel     string
	LogFormat    string
	CrossRefURL  string
	UserAgent    string

	// Source credentials and capabilities
	ContactEmail          string
	CoreAPIKey            string
	SemanticScholarAPIKey string
	InstitutionalProxy    string
	MirrorURLs            []string
	SourcesFile           string

	// Download validation
	MinPDFBytes        int64
	MaxPDFBytes        int64
	VerifyPDFStructure bool

	// Batch and retry behaviour
	DownloadDelay     time.Duration
	StaleThreshold    time.Duration
	RetryPollInterval time.Duration
	MaxRetries        int
	MaxRetryDelay     time.Duration

	// Identifier validation
	ValidationWorkers  int
	ValidationCacheTTL time.Duration
	ValidationDelay    time.Duration
}

// Load loads configuration from environment variables with defaults.
// A .env file in the working directory is read first when present; real
// environment variables always win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:                  getEnv("PORT", constants.DefaultPort),
		DBPath:                getEnv("DB_PATH", constants.DefaultDBPath),
		DownloadsDir:          getEnv("DOWNLOADS_DIR", constants.DefaultDownloadsDir),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "text"),
		CrossRefURL:           getEnv("CROSSREF_URL", constants.DefaultCrossRefURL),
		UserAgent:             getEnv("USER_AGENT", constants.APIUserAgent),
		ContactEmail:          getEnv("CONTACT_EMAIL", ""),
		CoreAPIKey:            getEnv("CORE_API_KEY", ""),
		SemanticScholarAPIKey: getEnv("SEMANTIC_SCHOLAR_API_KEY", ""),
		InstitutionalProxy:    getEnv("INSTITUTIONAL_PROXY", ""),
		MirrorURLs:            splitList(getEnv("MIRROR_URLS", "")),
		SourcesFile:           getEnv("SOURCES_FILE", ""),
		MinPDFBytes:           getEnvInt64("MIN_PDF_BYTES", constants.DefaultMinPDFBytes),
		MaxPDFBytes:           getEnvInt64("MAX_PDF_BYTES", constants.DefaultMaxPDFBytes),
		VerifyPDFStructure:    getEnvBool("VERIFY_PDF_STRUCTURE", false),
		DownloadDelay:         getEnvDuration("DOWNLOAD_DELAY", constants.DefaultDownloadDelay),
		StaleThreshold:        getEnvDuration("STALE_THRESHOLD", constants.DefaultStaleThreshold),
		RetryPollInterval:     getEnvDuration("RETRY_POLL_INTERVAL", constants.DefaultRetryPollInterval),
		MaxRetries:            int(getEnvInt64("MAX_RETRIES", constants.DefaultMaxRetries)),
		MaxRetryDelay:         getEnvDuration("MAX_RETRY_DELAY", constants.DefaultMaxRetryDelay),
		ValidationWorkers:     int(getEnvInt64("VALIDATION_WORKERS", constants.DefaultValidationWorkers)),
		ValidationCacheTTL:    getEnvDuration("VALIDATION_CACHE_TTL", constants.DefaultValidationTTL),
		ValidationDelay:       getEnvDuration("VALIDATION_DELAY", constants.DefaultValidationDelay),
	}
}

// Capabilities reports which optional source requirements this configuration satisfies.
func (c *Config) Capabilities() map[string]bool {
	return map[string]bool{
		constants.CapabilityContactEmail: c.ContactEmail != "",
		constants.CapabilityCoreAPIKey:   c.CoreAPIKey != "",
		constants.CapabilityMirrorURLs:   len(c.MirrorURLs) > 0,
		constants.CapabilityProxy:        c.InstitutionalProxy != "",
	}
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	// Validate Port
	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	if c.DownloadsDir == "" {
		errors = append(errors, "DOWNLOADS_DIR cannot be empty")
	}

	if c.CrossRefURL == "" {
		errors = append(errors, "CROSSREF_URL cannot be empty")
	} else if _, err := url.ParseRequestURI(c.CrossRefURL); err != nil {
		errors = append(errors, fmt.Sprintf("CROSSREF_URL is not a valid URL: %s", c.CrossRefURL))
	}

	if c.InstitutionalProxy != "" {
		if u, err := url.Parse(c.InstitutionalProxy); err != nil || u.Host == "" {
			errors = append(errors, fmt.Sprintf("INSTITUTIONAL_PROXY is not a valid URL: %s", c.InstitutionalProxy))
		}
	}

	for _, m := range c.MirrorURLs {
		if _, err := url.ParseRequestURI(m); err != nil {
			errors = append(errors, fmt.Sprintf("MIRROR_URLS contains an invalid URL: %s", m))
		}
	}

	if c.MinPDFBytes < 0 {
		errors = append(errors, "MIN_PDF_BYTES cannot be negative")
	}
	if c.MaxPDFBytes <= c.MinPDFBytes {
		errors = append(errors, "MAX_PDF_BYTES must be greater than MIN_PDF_BYTES")
	}

	if c.StaleThreshold <= 0 {
		errors = append(errors, "STALE_THRESHOLD must be positive")
	}
	if c.RetryPollInterval <= 0 {
		errors = append(errors, "RETRY_POLL_INTERVAL must be positive")
	}
	if c.MaxRetries < 1 {
		errors = append(errors, "MAX_RETRIES must be at least 1")
	}
	if c.MaxRetryDelay <= 0 {
		errors = append(errors, "MAX_RETRY_DELAY must be positive")
	}
	if c.ValidationWorkers < 1 {
		errors = append(errors, "VALIDATION_WORKERS must be at least 1")
	}

	// Validate LogLevel
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	// Validate LogFormat
	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return b
}

// getEnvDuration accepts Go duration strings ("90s", "5m") or plain seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
