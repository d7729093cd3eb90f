package gameclient

import (
	"testing"

	"github.com/villabot/villabot/internal/extractor"
	"github.com/villabot/villabot/internal/villaerr"
)

func TestGetHQStateReadsCostsAndPremiumViaEvaluate(t *testing.T) {
	driver := newFakeDriver()
	client := New(driver, extractor.New(), "https://en1.tribalwars.net")
	url := "https://en1.tribalwars.net/game.php?screen=main&village=4"
	driver.htmlByURL[url] = `<div id="main_buildrow_barracks"><span class="level">2</span></div>
		<table id="buildqueue"><tr id="bq_barracks" data-endtime="9999999999"></tr></table>`
	driver.evalResults = []interface{}{
		`{"barracks":{"wood":200,"stone":150,"iron":90}}`,
		true,
	}

	d := NewBuildingDriver(client)
	state, err := d.GetHQState(4)
	if err != nil {
		t.Fatalf("GetHQState() error = %v", err)
	}
	if !state.Premium {
		t.Error("Premium = false, want true")
	}
	info, ok := state.Available["barracks"]
	if !ok {
		t.Fatal("Available[barracks] missing")
	}
	if info.Cost.Wood != 200 || info.Cost.Stone != 150 || info.Cost.Iron != 90 {
		t.Errorf("cost = %+v", info.Cost)
	}
	if state.Levels["barracks"] != 2 {
		t.Errorf("Levels[barracks] = %d, want 2", state.Levels["barracks"])
	}
	if len(state.Queue) != 1 {
		t.Errorf("len(Queue) = %d, want 1", len(state.Queue))
	}
}

func TestUpgradeBuildingDetectsFullQueue(t *testing.T) {
	driver := newFakeDriver()
	client := New(driver, extractor.New(), "https://en1.tribalwars.net")
	driver.selectors["#main_buildlink_barracks"] = true
	driver.selectors[".queue_full, #buildqueue.queue_full"] = true

	d := NewBuildingDriver(client)
	ok, err := d.UpgradeBuilding(4, "barracks")
	if ok {
		t.Error("ok = true, want false on a full queue")
	}
	if err != villaerr.ErrQueueFull {
		t.Errorf("err = %v, want ErrQueueFull", err)
	}
	if len(driver.clicked) != 1 || driver.clicked[0] != "#main_buildlink_barracks" {
		t.Errorf("clicked = %v", driver.clicked)
	}
}

func TestUpgradeBuildingReturnsFalseWhenLinkMissing(t *testing.T) {
	driver := newFakeDriver()
	client := New(driver, extractor.New(), "https://en1.tribalwars.net")

	d := NewBuildingDriver(client)
	ok, err := d.UpgradeBuilding(4, "barracks")
	if err != nil {
		t.Fatalf("UpgradeBuilding() error = %v", err)
	}
	if ok {
		t.Error("ok = true, want false when the upgrade link isn't present")
	}
	if len(driver.clicked) != 0 {
		t.Errorf("clicked = %v, want no clicks", driver.clicked)
	}
}
