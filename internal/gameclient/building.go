package gameclient

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/villabot/villabot/internal/building"
	"github.com/villabot/villabot/internal/village"
	"github.com/villabot/villabot/internal/villaerr"
)

// BuildingDriver implements building.Driver over a Client, grounded on
// HeadquartersScreen.get_hq_state / _get_available_buildings_js.
type BuildingDriver struct {
	client *Client
}

// NewBuildingDriver constructs a BuildingDriver.
func NewBuildingDriver(client *Client) *BuildingDriver { return &BuildingDriver{client: client} }

type jsBuildingCost struct {
	Wood  float64 `json:"wood"`
	Stone float64 `json:"stone"`
	Iron  float64 `json:"iron"`
}

// GetHQState fetches the headquarters screen and composes levels, the
// build queue, available-building costs (read from the page's JS game
// data via Evaluate, since costs aren't present as plain page text) and
// premium status.
func (d *BuildingDriver) GetHQState(villageID int) (building.HQState, error) {
	html, err := d.client.navigate("main", villageID, nil)
	if err != nil {
		return building.HQState{}, fmt.Errorf("navigating hq for village %d: %w", villageID, err)
	}

	levels, err := d.client.extract.BuildingLevels(html)
	if err != nil {
		return building.HQState{}, err
	}
	queue, err := d.client.extract.BuildQueue(html)
	if err != nil {
		return building.HQState{}, err
	}

	available := make(map[string]building.BuildingInfo)
	if raw, err := d.client.driver.Evaluate(`JSON.stringify(window.BuildingMain && window.BuildingMain.data && window.BuildingMain.data.buildings || {})`); err == nil {
		if text, ok := raw.(string); ok {
			var costs map[string]jsBuildingCost
			if json.Unmarshal([]byte(text), &costs) == nil {
				for name, c := range costs {
					available[name] = building.BuildingInfo{Cost: building.Resources{Wood: c.Wood, Stone: c.Stone, Iron: c.Iron}}
				}
			}
		}
	}

	premium := false
	if raw, err := d.client.driver.Evaluate(`!!(window.game_data && window.game_data.player && window.game_data.player.is_premium)`); err == nil {
		if b, ok := raw.(bool); ok {
			premium = b
		}
	}

	queueEntries := make([]village.BuildQueueEntry, len(queue))
	copy(queueEntries, queue)

	return building.HQState{
		Levels:    levels,
		Queue:     queueEntries,
		Available: available,
		Premium:   premium,
	}, nil
}

// UpgradeBuilding clicks the upgrade button for building on the already-
// loaded headquarters page. A full-queue response is surfaced as
// villaerr.ErrQueueFull so the planner can stop its loop cleanly.
func (d *BuildingDriver) UpgradeBuilding(villageID int, buildingName string) (bool, error) {
	selector := fmt.Sprintf("#main_buildlink_%s", buildingName)
	exists, err := d.client.driver.QuerySelector(selector)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}
	if err := d.client.driver.Click(selector, 5*time.Second); err != nil {
		return false, err
	}
	if full, _ := d.client.driver.QuerySelector(".queue_full, #buildqueue.queue_full"); full {
		return false, villaerr.ErrQueueFull
	}
	return true, nil
}
