package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := load(viper.New())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8081" {
		t.Errorf("port: got %q, want 8081", cfg.Port)
	}
	if cfg.WorkflowCountSkipped {
		t.Error("workflow_count_skipped should default to false")
	}
	if !cfg.MigrateOnStart {
		t.Error("migrate_on_start should default to true")
	}
	if len(cfg.CORSAllowedOrigins) != 1 {
		t.Errorf("cors origins: got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("WORKFLOW_COUNT_SKIPPED", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://dapur.example.id, https://admin.example.id")

	cfg, err := load(viper.New())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("port: got %q, want 9090", cfg.Port)
	}
	if cfg.JWTSecret != "s3cret" {
		t.Errorf("jwt secret: got %q", cfg.JWTSecret)
	}
	if !cfg.WorkflowCountSkipped {
		t.Error("workflow_count_skipped should be true")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://admin.example.id" {
		t.Errorf("cors origins: got %#v", cfg.CORSAllowedOrigins)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a, ,b ,c")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("splitList: got %#v", got)
	}
}
