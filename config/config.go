/*
Package config loads server configuration and seed data.

PRECEDENCE (lowest to highest):
  1. Built-in defaults
  2. YAML config file (-config flag)
  3. Environment variables (PORT, DB_PATH; a .env file is honored by main)

The rewards list is seed data: applied once at startup when the catalog
table is empty, then owned by the admin API. Thresholds from the file are
written through the same runtime-editable store row the admin API uses.
*/
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/beanloop/loyalty-engine/loyalty"
)

// Config is the full server configuration.
type Config struct {
	Port       int                    `yaml:"port"`
	DBPath     string                 `yaml:"db_path"`
	EarnRate   string                 `yaml:"earn_rate"` // currency per point, e.g. "0.50"
	Thresholds loyalty.TierThresholds `yaml:"thresholds"`
	Rewards    []RewardSeed           `yaml:"rewards"`
}

// RewardSeed describes a catalog entry to create at first startup.
type RewardSeed struct {
	Name         string `yaml:"name"`
	PointsCost   int64  `yaml:"points_cost"`
	TierRequired string `yaml:"tier_required"`
	AutoApprove  bool   `yaml:"auto_approve"`
	Inventory    *int64 `yaml:"inventory"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:       8080,
		DBPath:     "loyalty.db",
		EarnRate:   "1",
		Thresholds: loyalty.TierThresholds{SilverMin: 200, GoldMin: 550},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q", port)
		}
		cfg.Port = p
	}
	if db := os.Getenv("DB_PATH"); db != "" {
		cfg.DBPath = db
	}

	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SeedRewards converts the reward seeds into domain rewards. Unknown
// tiers default to bronze rather than failing startup.
func (c *Config) SeedRewards() []loyalty.Reward {
	out := make([]loyalty.Reward, 0, len(c.Rewards))
	for _, s := range c.Rewards {
		tier := loyalty.Tier(s.TierRequired)
		if !tier.Valid() {
			tier = loyalty.TierBronze
		}
		var inv *int64
		if s.Inventory != nil {
			v := *s.Inventory
			inv = &v
		}
		out = append(out, loyalty.Reward{
			ID:           loyalty.NewRewardID(),
			Name:         s.Name,
			PointsCost:   s.PointsCost,
			TierRequired: tier,
			Active:       true,
			AutoApprove:  s.AutoApprove,
			Inventory:    inv,
		})
	}
	return out
}
