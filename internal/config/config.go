// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Server    ServerConfig
	Storage   StorageConfig
	Tagging   TaggingConfig
	Vision    VisionConfig
	RateLimit RateLimitConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Name         string
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// StorageConfig holds file storage configuration.
type StorageConfig struct {
	// BasePath is the root directory for stored files (default: ~/FileDrop/storage).
	BasePath string
	// DatabasePath is the SQLite database location (default: {base}/filedrop.db).
	DatabasePath string
	// MaxUploadBytes caps the size of a single upload (default: 100 MiB).
	MaxUploadBytes int64
}

// TaggingConfig holds auto-tagging configuration.
type TaggingConfig struct {
	// AutoTagEnabled controls whether uploads are tagged automatically (default: true).
	AutoTagEnabled bool
	// MaxTagsPerFile caps the generated tag set per file (default: 10).
	MaxTagsPerFile int
}

// VisionConfig holds the external image-labeling API configuration.
// When APIKey is empty the vision client is disabled and image uploads
// receive base tags only.
type VisionConfig struct {
	Endpoint  string
	APIKey    string
	Timeout   time.Duration // Per-request timeout (default: 10s)
	MaxLabels int           // Labels requested per image (default: 5)
}

// RateLimitConfig holds inbound request rate limiting configuration.
type RateLimitConfig struct {
	// RequestsPerMinute limits uploads per client IP (default: 60).
	RequestsPerMinute int
	// Burst is the token bucket burst size (default: 10).
	Burst int
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	serverName := flag.String("server-name", "", "Name for the server")
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	storagePath := flag.String("storage-path", "", "Base path for file storage")
	databasePath := flag.String("database-path", "", "Path to the SQLite database")
	maxUpload := flag.String("max-upload-bytes", "", "Maximum upload size in bytes (default: 104857600)")

	autoTag := flag.String("auto-tag", "", "Enable automatic tagging of uploads (default: true)")
	maxTags := flag.String("max-tags-per-file", "", "Maximum tags per file (default: 10)")

	visionEndpoint := flag.String("vision-endpoint", "", "Vision API endpoint URL")
	visionKey := flag.String("vision-api-key", "", "Vision API key (empty disables image labeling)")
	visionTimeout := flag.String("vision-timeout", "", "Vision API request timeout (default: 10s)")

	rateLimit := flag.String("rate-limit", "", "Upload requests per minute per client (default: 60)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Name: getConfigValue(*serverName, "SERVER_NAME", "FileDrop Server"),
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
		Storage: StorageConfig{
			BasePath:       getConfigValue(*storagePath, "STORAGE_PATH", ""),
			DatabasePath:   getConfigValue(*databasePath, "DATABASE_PATH", ""),
			MaxUploadBytes: getInt64ConfigValue(*maxUpload, "MAX_UPLOAD_BYTES", 100*1024*1024),
		},
		Tagging: TaggingConfig{
			AutoTagEnabled: getBoolConfigValue(*autoTag, "AUTO_TAG_ENABLED", true),
			MaxTagsPerFile: getIntConfigValue(*maxTags, "MAX_TAGS_PER_FILE", 10),
		},
		Vision: VisionConfig{
			Endpoint:  getConfigValue(*visionEndpoint, "VISION_ENDPOINT", ""),
			APIKey:    getConfigValue(*visionKey, "VISION_API_KEY", ""),
			MaxLabels: getIntConfigValue("", "VISION_MAX_LABELS", 5),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getIntConfigValue(*rateLimit, "RATE_LIMIT", 60),
			Burst:             getIntConfigValue("", "RATE_LIMIT_BURST", 10),
		},
	}

	// Parse durations.
	var err error
	if cfg.Server.ReadTimeout, err = parseDurationValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = parseDurationValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = parseDurationValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}
	if cfg.Vision.Timeout, err = parseDurationValue(*visionTimeout, "VISION_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	// Expand and validate storage paths.
	if err := cfg.expandStoragePath(); err != nil {
		return nil, fmt.Errorf("invalid storage path: %w", err)
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = filepath.Join(cfg.Storage.BasePath, "filedrop.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Storage.BasePath == "" {
		return errors.New("storage base path cannot be empty after expansion")
	}
	if c.Storage.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive, got %d", c.Storage.MaxUploadBytes)
	}
	if c.Tagging.MaxTagsPerFile <= 0 {
		return fmt.Errorf("max tags per file must be positive, got %d", c.Tagging.MaxTagsPerFile)
	}

	// Vision endpoint is only required when an API key is configured.
	if c.Vision.APIKey != "" && c.Vision.Endpoint == "" {
		return errors.New("vision endpoint is required when a vision API key is set")
	}

	return nil
}

// VisionEnabled reports whether the external vision API is configured.
func (c *Config) VisionEnabled() bool {
	return c.Vision.APIKey != "" && c.Vision.Endpoint != ""
}

// expandStoragePath expands ~ and makes the path absolute.
// Defaults to ~/FileDrop/storage.
func (c *Config) expandStoragePath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "FileDrop", "storage")

	expanded, err := expandPath(c.Storage.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Storage.BasePath = expanded
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// parseDurationValue resolves a duration from flag, env var, or default.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	str := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(str)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToLower(envKey), str, err)
	}
	return d, nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getInt64ConfigValue returns an int64 from flag, env var, or default.
func getInt64ConfigValue(flagValue, envKey string, defaultValue int64) int64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int64
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Env vars take precedence over .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
