package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration (configs/server.yaml).
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	AdminAddr  string `yaml:"admin_addr"`
	DataDir    string `yaml:"data_dir"`
	DBPath     string `yaml:"db_path"`

	PistonMode    string `yaml:"piston_mode"`
	MinClaimWidth int    `yaml:"min_claim_width"`
	MinClaimArea  int    `yaml:"min_claim_area"`

	// DefaultAccruedBlocks is the claim-block balance assumed for players the
	// ledger has never seen.
	DefaultAccruedBlocks int `yaml:"default_accrued_blocks"`

	Worlds               []WorldSpec `yaml:"worlds,omitempty"`
	ClaimsEnabledDefault bool        `yaml:"claims_enabled_default"`

	BlockClaimExplosions   bool `yaml:"block_claim_explosions"`
	BlockSurfaceExplosions bool `yaml:"block_surface_explosions"`
	SeaLevel               int  `yaml:"sea_level"`

	Rate RateSpec `yaml:"rate"`

	CORSOrigins []string `yaml:"cors_origins,omitempty"`

	AuditEnabled bool `yaml:"audit_enabled"`
}

// WorldSpec overrides the claims toggle for one world.
type WorldSpec struct {
	ID            string `yaml:"id"`
	ClaimsEnabled bool   `yaml:"claims_enabled"`
}

// RateSpec is the per-connection websocket message budget.
type RateSpec struct {
	MsgsPerSec float64 `yaml:"msgs_per_sec"`
	Burst      int     `yaml:"burst"`
}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("server.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("server.yaml: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		ListenAddr:           ":8553",
		AdminAddr:            "127.0.0.1:8554",
		DataDir:              "./data",
		PistonMode:           "claims_only",
		MinClaimWidth:        5,
		MinClaimArea:         100,
		DefaultAccruedBlocks: 100,
		ClaimsEnabledDefault: true,
		BlockClaimExplosions: true,
		SeaLevel:             63,
		Rate: RateSpec{
			MsgsPerSec: 2000,
			Burst:      500,
		},
		AuditEnabled: true,
	}
}

func (c *Config) Normalize() {
	c.ListenAddr = strings.TrimSpace(c.ListenAddr)
	c.AdminAddr = strings.TrimSpace(c.AdminAddr)
	c.DataDir = strings.TrimSpace(c.DataDir)
	c.DBPath = strings.TrimSpace(c.DBPath)
	c.PistonMode = strings.ToLower(strings.TrimSpace(c.PistonMode))
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "claims.sqlite")
	}
	if c.PistonMode == "" {
		c.PistonMode = "claims_only"
	}
	if c.Rate.MsgsPerSec <= 0 {
		c.Rate.MsgsPerSec = 2000
	}
	if c.Rate.Burst <= 0 {
		c.Rate.Burst = 500
	}
	for i := range c.Worlds {
		c.Worlds[i].ID = strings.TrimSpace(c.Worlds[i].ID)
	}
}

func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	switch c.PistonMode {
	case "everywhere", "everywhere_simple", "claims_only", "ignored":
	default:
		return fmt.Errorf("unknown piston_mode %q", c.PistonMode)
	}
	if c.MinClaimWidth < 0 || c.MinClaimArea < 0 {
		return fmt.Errorf("claim minimums must not be negative")
	}
	if c.DefaultAccruedBlocks < 0 {
		return fmt.Errorf("default_accrued_blocks must not be negative")
	}
	seen := map[string]bool{}
	for _, w := range c.Worlds {
		if w.ID == "" {
			return fmt.Errorf("world entry with empty id")
		}
		if seen[w.ID] {
			return fmt.Errorf("duplicate world id %q", w.ID)
		}
		seen[w.ID] = true
	}
	return nil
}

// ClaimsEnabledByWorld flattens the world list into the engine's toggle map.
func (c *Config) ClaimsEnabledByWorld() map[string]bool {
	if len(c.Worlds) == 0 {
		return nil
	}
	m := make(map[string]bool, len(c.Worlds))
	for _, w := range c.Worlds {
		m[w.ID] = w.ClaimsEnabled
	}
	return m
}
