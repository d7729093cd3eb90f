// Package config loads villabot's TOML configuration file, mirroring the
// original Python Pydantic schema (core/config.py) section for section.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the full application configuration, one struct per TOML
// table in the original schema.
type Config struct {
	Server        ServerConfig               `toml:"server"`
	Browser       BrowserConfig              `toml:"browser"`
	Bot           BotConfig                  `toml:"bot"`
	Building      BuildingConfig             `toml:"building"`
	Farming       FarmingConfig              `toml:"farming"`
	Scavenging    ScavengingConfig           `toml:"scavenging"`
	Troops        TroopsConfig               `toml:"troops"`
	Humanizer     HumanizerConfig            `toml:"humanizer"`
	Telegram      TelegramConfig             `toml:"telegram"`
	BotProtection BotProtectionConfig        `toml:"bot_protection"`
	API           APIConfig                  `toml:"api"`
	// VillageOverrides is keyed by village id as a decimal string, since
	// TOML table keys are always strings.
	VillageOverrides map[string]VillageOverride `toml:"village_overrides"`
}

type ServerConfig struct {
	World string `toml:"world"`
}

type BrowserConfig struct {
	HeadlessMode   string `toml:"headless_mode"` // "headed" | "headless" | "xvfb"
	ViewportWidth  int    `toml:"viewport_width"`
	ViewportHeight int    `toml:"viewport_height"`
}

type BotConfig struct {
	ActiveHours   string     `toml:"active_hours"`
	ActiveDelay   [2]float64 `toml:"active_delay"`
	InactiveDelay [2]float64 `toml:"inactive_delay"`
}

type BuildingConfig struct {
	Enabled  bool   `toml:"enabled"`
	Template string `toml:"template"`
}

// FarmTemplate is a per-unit troop composition sent on a farm run.
type FarmTemplate struct {
	Spear    int `toml:"spear"`
	Sword    int `toml:"sword"`
	Axe      int `toml:"axe"`
	Archer   int `toml:"archer"`
	Light    int `toml:"light"`
	Heavy    int `toml:"heavy"`
	Ram      int `toml:"ram"`
	Catapult int `toml:"catapult"`
	Knight   int `toml:"knight"`
	Snob     int `toml:"snob"`
}

type FarmingConfig struct {
	Enabled      bool           `toml:"enabled"`
	Radius       int            `toml:"radius"`
	TemplateA    FarmTemplate   `toml:"template_a"`
	TemplateB    FarmTemplate   `toml:"template_b"`
	StopOnAttack bool           `toml:"stop_on_attack"`
	MinReserve   map[string]int `toml:"min_reserve"`
	LCThreshold  int            `toml:"lc_threshold"`
}

type ScavengingConfig struct {
	Enabled bool    `toml:"enabled"`
	Mode    string  `toml:"mode"` // time_based | max_efficiency | send_all | ratio
	TargetMinutes int `toml:"target_minutes"`
	// OptionRatios is keyed by tier as a decimal string ("1".."4").
	OptionRatios    map[string]float64 `toml:"option_ratios"`
	DryRun          bool               `toml:"dry_run"`
	ScavengeExclude []string           `toml:"scavenge_exclude"`
	ScavengeReserve map[string]int     `toml:"scavenge_reserve"`
}

type TroopsConfig struct {
	Enabled   bool           `toml:"enabled"`
	Mode      string         `toml:"mode"` // targets | fill_scavenge
	FillUnits []string       `toml:"fill_units"`
	Targets   map[string]int `toml:"targets"`
}

type HumanizerConfig struct {
	DelayRange      [2]float64 `toml:"delay_range"`
	JitterFactor    float64    `toml:"jitter_factor"`
	LongPauseChance float64    `toml:"long_pause_chance"`
	LongPauseRange  [2]float64 `toml:"long_pause_range"`
}

type TelegramConfig struct {
	BotToken      string `toml:"bot_token"`
	ChatID        string `toml:"chat_id"`
	AlertCooldown int    `toml:"alert_cooldown"` // seconds
}

type BotProtectionConfig struct {
	CheckInterval  int      `toml:"check_interval"` // seconds
	ExtraSelectors []string `toml:"extra_selectors"`
}

// VillageOverride holds per-village feature overrides. A nil pointer
// means "inherit the global setting" -- the three-valued semantics
// panelstate.Override encodes at runtime.
type VillageOverride struct {
	Building   *bool `toml:"building"`
	Farming    *bool `toml:"farming"`
	Scavenging *bool `toml:"scavenging"`
	Troops     *bool `toml:"troops"`
}

type APIConfig struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
}

// IsFeatureEnabled resolves whether feature is enabled for villageID:
// an explicit per-village override wins, otherwise the section's global
// Enabled flag applies.
func IsFeatureEnabled(cfg *Config, villageID int, feature string) bool {
	key := fmt.Sprintf("%d", villageID)
	if override, ok := cfg.VillageOverrides[key]; ok {
		switch feature {
		case "building":
			if override.Building != nil {
				return *override.Building
			}
		case "farming":
			if override.Farming != nil {
				return *override.Farming
			}
		case "scavenging":
			if override.Scavenging != nil {
				return *override.Scavenging
			}
		case "troops":
			if override.Troops != nil {
				return *override.Troops
			}
		}
	}

	switch feature {
	case "building":
		return cfg.Building.Enabled
	case "farming":
		return cfg.Farming.Enabled
	case "scavenging":
		return cfg.Scavenging.Enabled
	case "troops":
		return cfg.Troops.Enabled
	default:
		return false
	}
}

// Load reads and parses path as TOML into a default-seeded Config.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decoding config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads path if it exists, otherwise returns defaultConfig().
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return defaultConfig(), nil
	}
	return Load(path)
}

// Save writes cfg to path as TOML, creating parent directories as
// needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{World: "de220"},
		Browser: BrowserConfig{
			HeadlessMode:   "headed",
			ViewportWidth:  1280,
			ViewportHeight: 720,
		},
		Bot: BotConfig{
			ActiveHours:   "06:00-23:00",
			ActiveDelay:   [2]float64{120, 300},
			InactiveDelay: [2]float64{600, 1200},
		},
		Building: BuildingConfig{
			Enabled:  true,
			Template: "templates/offensive.toml",
		},
		Farming: FarmingConfig{
			Enabled:      true,
			Radius:       15,
			TemplateA:    FarmTemplate{Spear: 10, Light: 5},
			TemplateB:    FarmTemplate{Spear: 25, Sword: 15, Light: 10, Ram: 2},
			StopOnAttack: true,
			MinReserve:   map[string]int{"spear": 50},
			LCThreshold:  20,
		},
		Scavenging: ScavengingConfig{
			Enabled:       true,
			Mode:          "time_based",
			TargetMinutes: 120,
			OptionRatios:  map[string]float64{"1": 2.5, "2": 1.0},
			ScavengeExclude: []string{
				"spear", "sword", "axe", "archer", "light", "marcher", "heavy",
			},
			ScavengeReserve: map[string]int{},
		},
		Troops: TroopsConfig{
			Enabled:   true,
			Mode:      "targets",
			FillUnits: []string{"spear"},
			Targets:   map[string]int{"spear": 500, "sword": 300, "light": 200, "ram": 50},
		},
		Humanizer: HumanizerConfig{
			DelayRange:      [2]float64{3.0, 8.0},
			JitterFactor:    0.3,
			LongPauseChance: 0.05,
			LongPauseRange:  [2]float64{15.0, 45.0},
		},
		Telegram: TelegramConfig{AlertCooldown: 300},
		BotProtection: BotProtectionConfig{
			CheckInterval: 30,
		},
		API: APIConfig{
			Enabled: false,
			Host:    "0.0.0.0",
			Port:    8000,
		},
		VillageOverrides: map[string]VillageOverride{},
	}
}

func defaultConfigDir() string {
	if value := os.Getenv("XDG_CONFIG_HOME"); value != "" {
		return value
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config")
}

// DefaultConfigPath returns the default XDG-compliant config file path.
func DefaultConfigPath() string {
	return filepath.Join(defaultConfigDir(), "villabot", "config.toml")
}

// Diff compares two configs and returns human-readable descriptions of
// what changed, covering the sections that are safe to reload without
// restarting the orchestrator.
func Diff(old, new *Config) []string {
	var changes []string

	if old.Building.Enabled != new.Building.Enabled {
		changes = append(changes, fmt.Sprintf("building.enabled: %v -> %v", old.Building.Enabled, new.Building.Enabled))
	}
	if old.Farming.Enabled != new.Farming.Enabled {
		changes = append(changes, fmt.Sprintf("farming.enabled: %v -> %v", old.Farming.Enabled, new.Farming.Enabled))
	}
	if old.Farming.LCThreshold != new.Farming.LCThreshold {
		changes = append(changes, fmt.Sprintf("farming.lc_threshold: %d -> %d", old.Farming.LCThreshold, new.Farming.LCThreshold))
	}
	if old.Scavenging.Enabled != new.Scavenging.Enabled {
		changes = append(changes, fmt.Sprintf("scavenging.enabled: %v -> %v", old.Scavenging.Enabled, new.Scavenging.Enabled))
	}
	if old.Scavenging.Mode != new.Scavenging.Mode {
		changes = append(changes, fmt.Sprintf("scavenging.mode: %s -> %s", old.Scavenging.Mode, new.Scavenging.Mode))
	}
	if old.Troops.Enabled != new.Troops.Enabled {
		changes = append(changes, fmt.Sprintf("troops.enabled: %v -> %v", old.Troops.Enabled, new.Troops.Enabled))
	}
	if old.Telegram.BotToken != new.Telegram.BotToken {
		changes = append(changes, "telegram.bot_token: changed")
	}
	if old.BotProtection.CheckInterval != new.BotProtection.CheckInterval {
		changes = append(changes, fmt.Sprintf("bot_protection.check_interval: %d -> %d", old.BotProtection.CheckInterval, new.BotProtection.CheckInterval))
	}

	for id, ov := range new.VillageOverrides {
		oldOv, ok := old.VillageOverrides[id]
		if !ok {
			changes = append(changes, fmt.Sprintf("village_overrides: added %s", id))
			continue
		}
		if !boolPtrEqual(oldOv.Building, ov.Building) || !boolPtrEqual(oldOv.Farming, ov.Farming) ||
			!boolPtrEqual(oldOv.Scavenging, ov.Scavenging) || !boolPtrEqual(oldOv.Troops, ov.Troops) {
			changes = append(changes, fmt.Sprintf("village_overrides: %s changed", id))
		}
	}
	for id := range old.VillageOverrides {
		if _, ok := new.VillageOverrides[id]; !ok {
			changes = append(changes, fmt.Sprintf("village_overrides: removed %s", id))
		}
	}

	return changes
}

func boolPtrEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
