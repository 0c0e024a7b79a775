package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBDriver != "sqlite" || cfg.DBPath != "silver.db" {
		t.Errorf("unexpected db defaults: %+v", cfg)
	}
	if cfg.ConfirmTTL != 3*time.Minute {
		t.Errorf("ConfirmTTL = %v, want 3m", cfg.ConfirmTTL)
	}
	if cfg.ExportSchedule != "@every 6h" {
		t.Errorf("ExportSchedule = %q", cfg.ExportSchedule)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("MetricsAddr = %q", cfg.MetricsAddr)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "SILVER_DB_PATH=from-file.db\nSILVER_CONFIRM_TTL=90s\nLOG_LEVEL=debug\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	// the environment wins over the file
	t.Setenv("LOG_LEVEL", "warn")
	// registered so t cleans up what godotenv sets
	t.Setenv("SILVER_DB_PATH", "")
	os.Unsetenv("SILVER_DB_PATH")
	t.Setenv("SILVER_CONFIRM_TTL", "")
	os.Unsetenv("SILVER_CONFIRM_TTL")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "from-file.db" {
		t.Errorf("DBPath = %q, want from-file.db", cfg.DBPath)
	}
	if cfg.ConfirmTTL != 90*time.Second {
		t.Errorf("ConfirmTTL = %v, want 90s", cfg.ConfirmTTL)
	}
	if cfg.Level() != slog.LevelWarn {
		t.Errorf("Level = %v, want warn", cfg.Level())
	}
}

func TestLoadMissingEnvFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("missing env file should be ignored: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"bad duration", map[string]string{"SILVER_CONFIRM_TTL": "soon"}, "parse env:"},
		{"unknown driver", map[string]string{"SILVER_DB_DRIVER": "mysql"}, "unsupported SILVER_DB_DRIVER"},
		{"postgres without url", map[string]string{"SILVER_DB_DRIVER": "postgres"}, "SILVER_DATABASE_URL"},
		{"zero ttl", map[string]string{"SILVER_CONFIRM_TTL": "0s"}, "SILVER_CONFIRM_TTL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := (Config{LogLevel: in}).Level(); got != want {
			t.Errorf("Level(%q) = %v, want %v", in, got, want)
		}
	}
}
