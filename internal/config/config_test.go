package config

import (
	"path/filepath"
	"testing"
	"time"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Server: ServerConfig{
			Name:         "Test",
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Storage: StorageConfig{
			BasePath:       dir,
			DatabasePath:   filepath.Join(dir, "test.db"),
			MaxUploadBytes: 100 * 1024 * 1024,
		},
		Tagging: TaggingConfig{
			AutoTagEnabled: true,
			MaxTagsPerFile: 10,
		},
	}
}

func TestValidate(t *testing.T) {
	cfg := validConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidate_InvalidEnvironment(t *testing.T) {
	cfg := validConfig(t)
	cfg.App.Environment = "testing"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid environment")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := validConfig(t)
	cfg.Logger.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestValidate_MaxTags(t *testing.T) {
	cfg := validConfig(t)
	cfg.Tagging.MaxTagsPerFile = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero max tags")
	}
}

func TestValidate_VisionKeyWithoutEndpoint(t *testing.T) {
	cfg := validConfig(t)
	cfg.Vision.APIKey = "secret"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for vision key without endpoint")
	}

	cfg.Vision.Endpoint = "https://vision.example.com/v1/annotate"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid vision config rejected: %v", err)
	}
	if !cfg.VisionEnabled() {
		t.Error("VisionEnabled() = false with key and endpoint set")
	}
}

func TestVisionEnabled_Default(t *testing.T) {
	cfg := validConfig(t)
	if cfg.VisionEnabled() {
		t.Error("VisionEnabled() = true without credentials")
	}
}

func TestExpandPath(t *testing.T) {
	got, err := expandPath("", "/default/path")
	if err != nil {
		t.Fatalf("expandPath: %v", err)
	}
	if got != "/default/path" {
		t.Errorf("expandPath empty = %q, want default", got)
	}

	got, err = expandPath("/var/data/../data", "")
	if err != nil {
		t.Fatalf("expandPath: %v", err)
	}
	if got != "/var/data" {
		t.Errorf("expandPath = %q, want /var/data", got)
	}
}
