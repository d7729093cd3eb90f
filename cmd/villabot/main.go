package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/villabot/villabot/internal/action"
	"github.com/villabot/villabot/internal/browser"
	"github.com/villabot/villabot/internal/building"
	"github.com/villabot/villabot/internal/config"
	"github.com/villabot/villabot/internal/extractor"
	"github.com/villabot/villabot/internal/farm"
	"github.com/villabot/villabot/internal/frontend"
	"github.com/villabot/villabot/internal/gameclient"
	"github.com/villabot/villabot/internal/httpapi"
	"github.com/villabot/villabot/internal/humanizer"
	"github.com/villabot/villabot/internal/logging"
	"github.com/villabot/villabot/internal/orchestrator"
	"github.com/villabot/villabot/internal/panelstate"
	"github.com/villabot/villabot/internal/pipeline"
	"github.com/villabot/villabot/internal/projection"
	"github.com/villabot/villabot/internal/protection"
	"github.com/villabot/villabot/internal/scavenge"
	"github.com/villabot/villabot/internal/troops"
	"github.com/villabot/villabot/internal/village"
)

// defaultTrainSeconds is a per-world-speed-1 training time used to size
// fill-scavenge batches. No screen in this module reads the live
// unit_managers.units[unit].build_time value the original pulls from the
// barracks page's JS data, so this is a fixed stand-in an operator tunes
// via world speed until that read exists.
const defaultTrainSeconds = 600.0

// defaultMaxAffordable caps a single fill-scavenge training batch absent
// a live resource-affordability check.
const defaultMaxAffordable = 50

// elementVisibleChecker adapts browser.Driver.QuerySelector onto
// protection.PageChecker -- same shape, different method name, so the
// two packages don't need to agree on a method identifier just to share
// one DOM probe.
type elementVisibleChecker struct {
	driver browser.Driver
}

func (c elementVisibleChecker) ElementVisible(selector string) (bool, error) {
	return c.driver.QuerySelector(selector)
}

func main() {
	profile := flag.String("profile", "default", "profile name, isolating config/data/logs")
	headless := flag.Bool("headless", false, "force headless mode with the HTTP/WebSocket API")
	apiPort := flag.Int("api-port", 0, "HTTP API port (implies --headless)")
	configPath := flag.String("config", "", "path to config file (defaults to the profile's XDG config path)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if *apiPort > 0 {
		*headless = true
	}

	logging.Init(*verbose)
	log := logging.Get("main")

	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = profileConfigPath(*profile)
	}
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}
	if *apiPort > 0 {
		cfg.API.Port = *apiPort
	}
	if *headless {
		cfg.API.Enabled = true
	}

	store := panelstate.New()
	h := humanizer.New(humanizer.Config{
		JitterFactor:    cfg.Humanizer.JitterFactor,
		LongPauseChance: cfg.Humanizer.LongPauseChance,
		LongPause:       humanizer.Range{Low: cfg.Humanizer.LongPauseRange[0], High: cfg.Humanizer.LongPauseRange[1]},
	})

	// driver is the one concrete browser.Driver instance shared across
	// every wiring site below -- a chromedp-backed implementation
	// compiled in via the chromedp build tag, mirroring how
	// internal/frontend and internal/projection gate their embedded
	// panel assets behind the embed tag rather than each caller
	// depending on a fixed backing implementation.
	driver := browser.NewChromeDriver()
	viewport := browser.Viewport{Width: cfg.Browser.ViewportWidth, Height: cfg.Browser.ViewportHeight}
	mode := browser.ModeHeaded
	if *headless || cfg.Browser.HeadlessMode == "headless" {
		mode = browser.ModeHeadless
	}
	if err := driver.Launch(mode, viewport, profileDataDir(*profile)); err != nil {
		log.Fatal().Err(err).Msg("launching browser")
	}
	defer driver.Close()

	extract := extractor.New()
	baseURL := fmt.Sprintf("https://%s.tribalwars.net", cfg.Server.World)
	client := gameclient.New(driver, extract, baseURL)

	notifier := protection.NewTelegramSender(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	monitor := protection.New(protection.Config{
		AlertCooldown:  time.Duration(cfg.Telegram.AlertCooldown) * time.Second,
		CheckInterval:  time.Duration(cfg.BotProtection.CheckInterval) * time.Second,
		ExtraSelectors: cfg.BotProtection.ExtraSelectors,
	}, notifier)

	villageIDs := resolveVillageIDs(cfg, client, log)

	world := village.WorldParameters{
		Speed:     1.0,
		UnitCarry: map[string]int{"light": 80, "heavy": 50, "spear": 25, "sword": 15, "axe": 10, "archer": 10},
	}

	managers := buildManagers(client, cfg, world, villageIDs)
	report := gameclient.NewReportManager(client, villageIDs[0])

	waiter := gameclient.NewScavengeWaiter(client)
	pipe := pipeline.New(client, store, h, waiter)

	orch, err := orchestrator.New(store, pipe, managers, report, h, orchestrator.Config{
		VillageIDs:    villageIDs,
		ActiveHours:   cfg.Bot.ActiveHours,
		ActiveDelay:   humanizer.Range{Low: cfg.Bot.ActiveDelay[0], High: cfg.Bot.ActiveDelay[1]},
		InactiveDelay: humanizer.Range{Low: cfg.Bot.InactiveDelay[0], High: cfg.Bot.InactiveDelay[1]},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("constructing orchestrator")
	}

	orch.SetProtectionWaiter(monitor)
	orch.SetReauthenticator(gameclient.NewSession(client, baseURL+"/"))
	if fillUnits := cfg.Troops.FillUnits; cfg.Troops.Mode == "fill_scavenge" && len(fillUnits) > 0 {
		orch.SetFillScavengeRunner(gameclient.NewFillScavengeAdapter(
			troops.New(gameclient.NewTroopsDriver(client)),
			waiter,
			villageIDs[0],
			fillUnits[0],
			defaultTrainSeconds/world.Speed,
			defaultMaxAffordable,
		))
	}

	handlers := action.Handlers{
		OnStart: orch.Start,
		OnPause: orch.Pause,
		OnStop:  orch.Stop,
		OnToggleBuilding: func(enabled bool) {
			cfg.Building.Enabled = enabled
			store.SetGlobalToggle("building", enabled)
		},
		OnToggleFarming: func(enabled bool) {
			cfg.Farming.Enabled = enabled
			store.SetGlobalToggle("farming", enabled)
		},
		OnToggleScavenging: func(enabled bool) {
			cfg.Scavenging.Enabled = enabled
			store.SetGlobalToggle("scavenging", enabled)
		},
		OnToggleTroops: func(enabled bool) {
			cfg.Troops.Enabled = enabled
			store.SetGlobalToggle("troops", enabled)
		},
		OnVillageToggle: func(villageID int, feature string, enabled bool) {
			value := panelstate.No
			if enabled {
				value = panelstate.Yes
			}
			store.SetVillageOverride(villageID, feature, value)
		},
		OnBotProtectionResolved: monitor.ManualResolve,
	}
	bus := action.New(handlers, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup

	checker := elementVisibleChecker{driver: driver}
	currentURL := ""
	wg.Add(1)
	go func() {
		defer wg.Done()
		monitor.StartPeriodic(ctx, func() string { return currentURL }, checker, *profile, cfg.Server.World,
			func(pattern string) {
				log.Warn().Str("pattern", pattern).Msg("bot_protection_detected")
				store.SetProtection(true, pattern)
			},
			func() {
				log.Info().Msg("bot_protection_cleared")
				store.SetProtection(false, "")
			})
	}()

	if cfg.API.Enabled {
		broadcaster := projection.NewBroadcaster(store, 200*time.Millisecond, 30*time.Second)
		defer broadcaster.Stop()

		server := httpapi.NewServer(cfg, store, bus, broadcaster, *profile, cfg.Telegram.BotToken)
		server.SetActiveVillage(villageIDs[0])

		mux := http.NewServeMux()
		server.SetupRoutes(mux)
		mux.Handle("/", frontend.Handler())

		go func() {
			if err := httpapi.ListenAndServe(cfg.API.Host, cfg.API.Port, mux); err != nil {
				log.Error().Err(err).Msg("api_server_error")
			}
		}()
	} else {
		injector := projection.NewInjector(driver)
		store.Subscribe(func(ev panelstate.Event) {
			if err := injector.PushEvent(ev); err != nil {
				log.Warn().Err(err).Msg("panel_push_failed")
			}
		})
		if err := injector.PushSnapshot(store.ToSnapshot()); err != nil {
			log.Warn().Err(err).Msg("panel_snapshot_failed")
		}
	}

	orch.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutting_down")
		cancel()
		orch.Stop()
	}()

	if err := orch.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("orchestrator_exited")
	}
	wg.Wait()
	os.Exit(0)
}

func buildManagers(client *gameclient.Client, cfg *config.Config, world village.WorldParameters, villageIDs []int) []pipeline.Manager {
	var managers []pipeline.Manager

	if cfg.Building.Enabled {
		targetLevels := map[string]int{"main": 30, "wood": 30, "stone": 30, "iron": 30, "storage": 30, "farm": 30, "barracks": 25}
		priorityOrder := []string{"main", "wood", "stone", "iron", "storage", "farm", "barracks"}
		planner := building.New(gameclient.NewBuildingDriver(client), targetLevels, priorityOrder)
		managers = append(managers, gameclient.NewBuildingManager(client, planner, nil))
	}

	if cfg.Scavenging.Enabled {
		reserve := village.TroopCount{}
		for unit, count := range cfg.Scavenging.ScavengeReserve {
			reserve[unit] = count
		}
		excluded := make(map[string]bool, len(cfg.Scavenging.ScavengeExclude))
		for _, u := range cfg.Scavenging.ScavengeExclude {
			excluded[u] = true
		}
		for _, vid := range villageIDs {
			planner := scavenge.New(gameclient.NewScavengeDriver(client, vid), world)
			managers = append(managers, gameclient.NewScavengeManager(client, planner, reserve, excluded, cfg.Scavenging.DryRun))
		}
	}

	if cfg.Farming.Enabled {
		runner := farm.New(gameclient.NewFarmDriver(client, villageIDs[0]))
		managers = append(managers, gameclient.NewFarmManager(client, runner, world, cfg.Farming.LCThreshold))
	}

	if cfg.Troops.Enabled && cfg.Troops.Mode == "targets" {
		cavalry := map[string]bool{"light": true, "heavy": true, "marcher": true, "knight": true}
		var targets []troops.UnitTarget
		for unit, count := range cfg.Troops.Targets {
			class := troops.ClassInfantry
			if cavalry[unit] {
				class = troops.ClassCavalry
			}
			targets = append(targets, troops.UnitTarget{Unit: unit, Class: class, Target: count})
		}
		recruiter := troops.New(gameclient.NewTroopsDriver(client))
		managers = append(managers, gameclient.NewTroopsManager(client, recruiter, targets))
	}

	return managers
}

// resolveVillageIDs prefers the operator's configured village_overrides
// keys and otherwise falls back to whatever DiscoverVillageIDs finds on
// the live switch dropdown.
func resolveVillageIDs(cfg *config.Config, client *gameclient.Client, log zerolog.Logger) []int {
	var ids []int
	for key := range cfg.VillageOverrides {
		var id int
		if _, err := fmt.Sscanf(key, "%d", &id); err == nil {
			ids = append(ids, id)
		}
	}
	if len(ids) > 0 {
		return ids
	}
	discovered, err := client.DiscoverVillageIDs()
	if err != nil || len(discovered) == 0 {
		log.Warn().Msg("no villages configured or discovered, defaulting to village 0")
		return []int{0}
	}
	return discovered
}

func profileConfigPath(profile string) string {
	base := config.DefaultConfigPath()
	if profile == "" || profile == "default" {
		return base
	}
	return filepath.Join(filepath.Dir(base), profile, "config.toml")
}

func profileDataDir(profile string) string {
	base := filepath.Dir(config.DefaultConfigPath())
	return filepath.Join(filepath.Dir(base), "data", profile)
}
