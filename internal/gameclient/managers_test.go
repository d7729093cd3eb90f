package gameclient

import (
	"testing"
	"time"

	"github.com/villabot/villabot/internal/building"
	"github.com/villabot/villabot/internal/extractor"
	"github.com/villabot/villabot/internal/farm"
	"github.com/villabot/villabot/internal/scavenge"
	"github.com/villabot/villabot/internal/troops"
	"github.com/villabot/villabot/internal/village"
)

func TestBuildingManagerReadsVillageThenRunsPlanner(t *testing.T) {
	driver := newFakeDriver()
	client := New(driver, extractor.New(), "https://en1.tribalwars.net")
	overviewURL := "https://en1.tribalwars.net/game.php?screen=overview&village=1"
	driver.htmlByURL[overviewURL] = `<span id="wood">500</span><span id="stone">500</span><span id="iron">500</span>`
	hqURL := "https://en1.tribalwars.net/game.php?screen=main&village=1"
	driver.htmlByURL[hqURL] = `<div id="main_buildrow_wood"><span class="level">3</span></div>`

	planner := building.New(NewBuildingDriver(client), map[string]int{"wood": 5}, []string{"wood"})
	mgr := NewBuildingManager(client, planner, nil)

	if err := mgr.Run(1); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if mgr.Feature() != "building" {
		t.Errorf("Feature() = %q", mgr.Feature())
	}
}

func TestBuildingManagerLastBuildResultReflectsMostRecentRun(t *testing.T) {
	mgr := &BuildingManager{lastResult: building.Result{
		QueueFinishTS: time.Unix(1700000000, 0),
		ResourceWait:  90,
		BuildingName:  "barracks",
	}}

	finish, wait, waitingFor := mgr.LastBuildResult()
	if !finish.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("finish = %v, want 1700000000", finish)
	}
	if wait != 90 {
		t.Errorf("wait = %v, want 90", wait)
	}
	if waitingFor != "barracks" {
		t.Errorf("waitingFor = %q, want %q", waitingFor, "barracks")
	}
}

func TestBuildingManagerLastBuildResultOmitsWaitingForWhenOrdered(t *testing.T) {
	mgr := &BuildingManager{lastResult: building.Result{
		Ordered:      true,
		BuildingName: "wood",
	}}

	_, wait, waitingFor := mgr.LastBuildResult()
	if wait != 0 {
		t.Errorf("wait = %v, want 0", wait)
	}
	if waitingFor != "" {
		t.Errorf("waitingFor = %q, want empty", waitingFor)
	}
}

func TestScavengeManagerReadsIdleTroopsThenPlans(t *testing.T) {
	driver := newFakeDriver()
	client := New(driver, extractor.New(), "https://en1.tribalwars.net")
	url := "https://en1.tribalwars.net/game.php?mode=scavenge&screen=place&village=6"
	driver.htmlByURL[url] = `<div data-unit="spear">100</div><div class="scavenge-option locked"></div>`

	planner := scavenge.New(NewScavengeDriver(client, 6), village.WorldParameters{})
	mgr := NewScavengeManager(client, planner, village.TroopCount{}, nil, false)

	if err := mgr.Run(6); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if mgr.Feature() != "scavenging" {
		t.Errorf("Feature() = %q", mgr.Feature())
	}
}

func TestFarmManagerDelegatesToRunnerWithLightCarry(t *testing.T) {
	driver := newFakeDriver()
	client := New(driver, extractor.New(), "https://en1.tribalwars.net")
	url := "https://en1.tribalwars.net/game.php?screen=am_farm&village=8"
	driver.htmlByURL[url] = `<table id="plunder_list"><tbody></tbody></table>`

	runner := farm.New(NewFarmDriver(client, 8))
	world := village.WorldParameters{UnitCarry: map[string]int{"light": 80}}
	mgr := NewFarmManager(client, runner, world, 4)

	if err := mgr.Run(8); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if mgr.Feature() != "farming" {
		t.Errorf("Feature() = %q", mgr.Feature())
	}
}

func TestTroopsManagerReadsBarracksOwnedCountsBeforeTargets(t *testing.T) {
	driver := newFakeDriver()
	client := New(driver, extractor.New(), "https://en1.tribalwars.net")
	url := "https://en1.tribalwars.net/game.php?screen=barracks&village=9"
	driver.htmlByURL[url] = `<div data-unit="spear">5</div>`

	recruiter := troops.New(NewTroopsDriver(client))
	targets := []troops.UnitTarget{{Unit: "spear", Class: troops.ClassInfantry, Target: 20}}
	mgr := NewTroopsManager(client, recruiter, targets)

	if err := mgr.Run(9); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if driver.filled["#train_unit_spear"] != "15" {
		t.Errorf("filled spear = %q, want 15 (deficit of 20-5)", driver.filled["#train_unit_spear"])
	}
	if mgr.Feature() != "troops" {
		t.Errorf("Feature() = %q", mgr.Feature())
	}
}
