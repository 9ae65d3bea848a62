package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Server.Addr != ":3000" || cfg.Server.BasePath != "/api" {
		t.Fatalf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.Ingest.TrustedSender == "" {
		t.Fatalf("expected default trusted sender")
	}
	if len(cfg.Categories) != 4 {
		t.Fatalf("expected 4 categories, got %d", len(cfg.Categories))
	}
}

func TestValidateRejectsMissingTrustedSender(t *testing.T) {
	cfg := Default()
	cfg.Ingest.TrustedSender = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for missing trusted sender")
	}
}

func TestValidateRejectsPipelineNotStartingAtInbox(t *testing.T) {
	cfg := Default()
	cfg.Categories["Produk"] = []string{"Layout", "Finish"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for pipeline not starting at Inbox")
	}
}

func TestValidateRejectsEmptyPipeline(t *testing.T) {
	cfg := Default()
	cfg.Categories["Motif"] = nil
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for empty pipeline")
	}
}

func TestLoadOptionalFallsBackToDefault(t *testing.T) {
	cfg, err := LoadOptional(t.TempDir())
	if err != nil {
		t.Fatalf("load optional: %v", err)
	}
	if cfg.Server.Addr != Default().Server.Addr {
		t.Fatalf("expected default config")
	}
}

func TestLoadReadsWorkspaceFile(t *testing.T) {
	workspace := t.TempDir()
	yaml := `server:
  addr: ":4000"
  base_path: /api
ingest:
  trusted_sender: orders@example.com
categories:
  Produk: [Inbox, Finish]
`
	if err := os.WriteFile(filepath.Join(workspace, "kriya.yml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(workspace)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":4000" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Ingest.TrustedSender != "orders@example.com" {
		t.Fatalf("trusted sender = %q", cfg.Ingest.TrustedSender)
	}
}

func TestWriteDefaultRefusesOverwrite(t *testing.T) {
	workspace := t.TempDir()
	if _, err := WriteDefault(workspace); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if _, err := WriteDefault(workspace); err == nil {
		t.Fatalf("expected error on existing config")
	}
	cfg, err := Load(workspace)
	if err != nil {
		t.Fatalf("load written default: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("written default invalid: %v", err)
	}
}
