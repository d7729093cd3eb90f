package gameclient

import (
	"testing"
	"time"

	"github.com/villabot/villabot/internal/extractor"
	"github.com/villabot/villabot/internal/troops"
)

func TestFillScavengeAdapterRunSkipsWhenNothingRunning(t *testing.T) {
	driver := newFakeDriver()
	client := New(driver, extractor.New(), "https://en1.tribalwars.net")
	url := "https://en1.tribalwars.net/game.php?mode=scavenge&screen=place&village=5"
	driver.htmlByURL[url] = `<div class="scavenge-option locked"></div>`

	waiter := NewScavengeWaiter(client)
	recruiter := troops.New(NewTroopsDriver(client))
	adapter := NewFillScavengeAdapter(recruiter, waiter, 5, "spear", 600, 50)

	if err := adapter.Run(time.Now()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(driver.clicked) != 0 || len(driver.filled) != 0 {
		t.Errorf("expected no training submitted, filled=%v clicked=%v", driver.filled, driver.clicked)
	}
}

func TestFillScavengeAdapterRunTrainsWhenReturnIsFarOff(t *testing.T) {
	driver := newFakeDriver()
	client := New(driver, extractor.New(), "https://en1.tribalwars.net")
	url := "https://en1.tribalwars.net/game.php?mode=scavenge&screen=place&village=5"
	future := time.Now().Add(1 * time.Hour).Unix()
	driver.htmlByURL[url] = `<div class="scavenge-option" data-endtime="` + itoa(int(future)) + `"></div>`

	waiter := NewScavengeWaiter(client)
	recruiter := troops.New(NewTroopsDriver(client))
	adapter := NewFillScavengeAdapter(recruiter, waiter, 5, "spear", 600, 50)

	if err := adapter.Run(time.Now()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if driver.filled["#train_unit_spear"] == "" {
		t.Error("expected a training batch to be submitted")
	}
}
