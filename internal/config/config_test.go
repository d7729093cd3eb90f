package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfigMatchesOriginalSchema(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.World != "de220" {
		t.Errorf("Server.World = %q, want %q", cfg.Server.World, "de220")
	}
	if cfg.Browser.HeadlessMode != "headed" {
		t.Errorf("Browser.HeadlessMode = %q, want %q", cfg.Browser.HeadlessMode, "headed")
	}
	if cfg.Farming.LCThreshold != 20 {
		t.Errorf("Farming.LCThreshold = %d, want 20", cfg.Farming.LCThreshold)
	}
	if cfg.Scavenging.OptionRatios["1"] != 2.5 {
		t.Errorf("Scavenging.OptionRatios[1] = %v, want 2.5", cfg.Scavenging.OptionRatios["1"])
	}
	if len(cfg.Scavenging.ScavengeExclude) != 7 {
		t.Errorf("len(ScavengeExclude) = %d, want 7", len(cfg.Scavenging.ScavengeExclude))
	}
}

func TestIsFeatureEnabledFallsBackToGlobal(t *testing.T) {
	cfg := defaultConfig()
	cfg.Farming.Enabled = true

	if !IsFeatureEnabled(cfg, 99, "farming") {
		t.Error("expected village with no override to inherit global farming=true")
	}
}

func TestIsFeatureEnabledVillageOverrideWins(t *testing.T) {
	cfg := defaultConfig()
	cfg.Farming.Enabled = true
	no := false
	cfg.VillageOverrides["7"] = VillageOverride{Farming: &no}

	if IsFeatureEnabled(cfg, 7, "farming") {
		t.Error("expected village 7's explicit override=false to win over global=true")
	}
	if !IsFeatureEnabled(cfg, 8, "farming") {
		t.Error("expected village 8 (no override) to still inherit global=true")
	}
}

func TestLoadOrDefaultMissingFileReturnsDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nonexistent.toml"))
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Server.World != "de220" {
		t.Errorf("Server.World = %q, want default %q", cfg.Server.World, "de220")
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := defaultConfig()
	cfg.Server.World = "en150"
	cfg.Telegram.BotToken = "test-token"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Server.World != "en150" {
		t.Errorf("loaded Server.World = %q, want %q", loaded.Server.World, "en150")
	}
	if loaded.Telegram.BotToken != "test-token" {
		t.Errorf("loaded Telegram.BotToken = %q, want %q", loaded.Telegram.BotToken, "test-token")
	}
}

func TestDiffDetectsChangedFields(t *testing.T) {
	old := defaultConfig()
	newCfg := defaultConfig()
	newCfg.Farming.Enabled = !old.Farming.Enabled
	newCfg.Scavenging.Mode = "max_efficiency"

	changes := Diff(old, newCfg)
	if len(changes) != 2 {
		t.Fatalf("len(changes) = %d, want 2: %v", len(changes), changes)
	}
}

func TestDiffNoChangesWhenEqual(t *testing.T) {
	cfg := defaultConfig()
	if changes := Diff(cfg, defaultConfig()); len(changes) != 0 {
		t.Errorf("Diff on identical configs = %v, want empty", changes)
	}
}
