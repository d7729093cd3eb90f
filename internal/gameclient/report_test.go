package gameclient

import (
	"testing"

	"github.com/villabot/villabot/internal/extractor"
)

func TestReportManagerRefreshesFarmAssistantPage(t *testing.T) {
	driver := newFakeDriver()
	client := New(driver, extractor.New(), "https://en1.tribalwars.net")
	want := "https://en1.tribalwars.net/game.php?screen=am_farm&village=14"
	driver.htmlByURL[want] = `<table id="plunder_list"><tbody></tbody></table>`

	mgr := NewReportManager(client, 14)
	if err := mgr.Run(14); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if driver.lastURL != want {
		t.Errorf("lastURL = %q, want %q", driver.lastURL, want)
	}
}
