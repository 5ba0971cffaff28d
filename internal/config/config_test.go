package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":8553" || cfg.PistonMode != "claims_only" {
		t.Fatalf("defaults: %+v", cfg)
	}
	if cfg.DBPath != filepath.Join("./data", "claims.sqlite") {
		t.Fatalf("db path: %q", cfg.DBPath)
	}
	if !cfg.ClaimsEnabledDefault || !cfg.BlockClaimExplosions || !cfg.AuditEnabled {
		t.Fatalf("policy defaults: %+v", cfg)
	}
	if cfg.Rate.MsgsPerSec != 2000 || cfg.Rate.Burst != 500 {
		t.Fatalf("rate defaults: %+v", cfg.Rate)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
listen_addr: ":9000"
data_dir: "/var/lib/landguard"
piston_mode: " EVERYWHERE "
min_claim_width: 10
claims_enabled_default: true
block_surface_explosions: true
sea_level: 62
worlds:
  - id: world
    claims_enabled: true
  - id: creative
    claims_enabled: false
rate:
  msgs_per_sec: 100
  burst: 20
cors_origins:
  - "https://map.example.com"
audit_enabled: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":9000" || cfg.PistonMode != "everywhere" {
		t.Fatalf("parsed: %+v", cfg)
	}
	if cfg.DBPath != filepath.Join("/var/lib/landguard", "claims.sqlite") {
		t.Fatalf("db path should derive from data_dir: %q", cfg.DBPath)
	}
	m := cfg.ClaimsEnabledByWorld()
	if len(m) != 2 || !m["world"] || m["creative"] {
		t.Fatalf("world toggles: %+v", m)
	}
	if cfg.Rate.MsgsPerSec != 100 || cfg.Rate.Burst != 20 {
		t.Fatalf("rate: %+v", cfg.Rate)
	}
}

func TestLoad_Rejections(t *testing.T) {
	cases := map[string]string{
		"bad piston mode": "piston_mode: sideways\n",
		"empty world id":  "worlds:\n  - id: \"\"\n",
		"duplicate world": "worlds:\n  - id: world\n  - id: world\n",
		"negative budget": "default_accrued_blocks: -1\n",
	}
	for name, body := range cases {
		if _, err := Load(writeFile(t, body)); err == nil {
			t.Fatalf("%s: want error", name)
		} else if !strings.Contains(err.Error(), "server.yaml") {
			t.Fatalf("%s: error should name the file: %v", name, err)
		}
	}
}

func TestClaimsEnabledByWorld_EmptyIsNil(t *testing.T) {
	cfg := defaults()
	if cfg.ClaimsEnabledByWorld() != nil {
		t.Fatalf("no worlds should yield a nil map")
	}
}
