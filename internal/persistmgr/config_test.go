package persistmgr

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("driver: sqlite3\nurl: \":memory:\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MinBlobSize != 4096 {
		t.Errorf("MinBlobSize = %d, want default 4096", cfg.MinBlobSize)
	}
	if cfg.Schema != "default" {
		t.Errorf("Schema = %q, want default", cfg.Schema)
	}
}

func TestLoadConfigParsesAllFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlText := `
driver: sqlite3
url: "./data.db"
schema: splitlong
schemaObjectPrefix: "jcr "
minBlobSize: 1024
externalBLOBs: true
consistencyCheck: true
consistencyFix: false
errorHandling: "mf"
bundleCacheSize: 500
`
	if err := os.WriteFile(path, []byte(yamlText), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Schema != "splitlong" || cfg.MinBlobSize != 1024 || !cfg.ExternalBLOBs {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if !cfg.ConsistencyCheck || cfg.ConsistencyFix {
		t.Errorf("unexpected consistency flags: %+v", cfg)
	}
	if cfg.BundleCacheSize != 500 {
		t.Errorf("BundleCacheSize = %d, want 500", cfg.BundleCacheSize)
	}
}

func TestPolicyParsesErrorHandlingFlags(t *testing.T) {
	cfg := &Config{ErrorHandling: "mv"}
	p := cfg.Policy()
	if !p.LenientMixins {
		t.Error("expected LenientMixins to be set")
	}
	if !p.Verbose {
		t.Error("expected Verbose to be set")
	}
	if p.LenientMissingChild {
		t.Error("expected LenientMissingChild to be unset")
	}
}
