package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimalConfig = `
base_url: https://qa.example.com
api_token: tok-123
products:
  manager:
    project_id: 42
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Common.BatchSize != DefaultBatchSize {
		t.Errorf("batch size = %d, want %d", cfg.Common.BatchSize, DefaultBatchSize)
	}
	if cfg.Common.MaxRetries != DefaultMaxRetries {
		t.Errorf("max retries = %d, want %d", cfg.Common.MaxRetries, DefaultMaxRetries)
	}
	if cfg.Common.RequestTimeout != DefaultRequestTimeout {
		t.Errorf("request timeout = %v", cfg.Common.RequestTimeout)
	}
	if cfg.Store.Path != DefaultStorePath {
		t.Errorf("store path = %q", cfg.Store.Path)
	}
}

func TestLoadFullConfig(t *testing.T) {
	content := `
base_url: https://qa.example.com
username: migrator
password: hunter2
products:
  manager:
    project_id: 42
  parameters:
    project_id: 42
  data_export:
    project_id: 42
    base_path: /api/v1/export
common:
  max_requests_per_minute: 120
  bypass_ssl: true
  max_retries: 5
  request_timeout: 10s
  batch_size: 50
  cleanup_before_migration: true
telemetry:
  log_level: debug
  log_format: json
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Products.Parameters == nil || cfg.Products.DataExport == nil {
		t.Fatal("optional product blocks not parsed")
	}
	if cfg.Products.Scenario != nil {
		t.Error("absent product block should stay nil")
	}
	if cfg.Products.DataExport.BasePath != "/api/v1/export" {
		t.Errorf("base path = %q", cfg.Products.DataExport.BasePath)
	}
	if cfg.Common.RequestTimeout != 10*time.Second {
		t.Errorf("request timeout = %v", cfg.Common.RequestTimeout)
	}
	if !cfg.Common.CleanupBeforeMigration {
		t.Error("cleanup flag not parsed")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			"missing credentials",
			"base_url: https://qa.example.com\nproducts:\n  manager:\n    project_id: 1\n",
			"api_token or username",
		},
		{
			"username without password",
			"base_url: https://qa.example.com\nusername: m\nproducts:\n  manager:\n    project_id: 1\n",
			"api_token or username",
		},
		{
			"token alongside basic auth",
			"base_url: https://qa.example.com\napi_token: t\nusername: m\npassword: p\nproducts:\n  manager:\n    project_id: 1\n",
			"mutually exclusive",
		},
		{
			"missing manager block",
			"base_url: https://qa.example.com\napi_token: t\nproducts: {}\n",
			"invalid configuration",
		},
		{
			"bad base url",
			"base_url: not-a-url\napi_token: t\nproducts:\n  manager:\n    project_id: 1\n",
			"invalid configuration",
		},
		{
			"zero project id",
			"base_url: https://qa.example.com\napi_token: t\nproducts:\n  manager:\n    project_id: 0\n",
			"invalid configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}
