// Package gameclient adapts the narrow per-feature Driver interfaces
// (building.Driver, scavenge.Driver, farm.Driver, troops.Driver) that
// villabot's planners consume onto a single browser.Driver +
// extractor.Extractor pair, grounded on the original's per-screen
// BrowserClient.navigate_to_screen idiom.
package gameclient

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/villabot/villabot/internal/browser"
	"github.com/villabot/villabot/internal/extractor"
	"github.com/villabot/villabot/internal/village"
)

// Client is the shared navigation core every per-feature adapter in this
// package wraps. baseURL is the world's game domain, e.g.
// "https://en123.tribalwars.net".
type Client struct {
	driver  browser.Driver
	extract extractor.Extractor
	baseURL string
}

// New constructs a Client. baseURL should not have a trailing slash.
func New(driver browser.Driver, extract extractor.Extractor, baseURL string) *Client {
	return &Client{driver: driver, extract: extract, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// navigate loads a game.php screen for villageID with the given extra
// query parameters, returning the resulting page HTML.
func (c *Client) navigate(screen string, villageID int, extra map[string]string) (string, error) {
	q := url.Values{}
	q.Set("village", fmt.Sprintf("%d", villageID))
	q.Set("screen", screen)
	for k, v := range extra {
		q.Set(k, v)
	}
	target := fmt.Sprintf("%s/game.php?%s", c.baseURL, q.Encode())
	return c.driver.Navigate(target)
}

// ReadVillage implements pipeline.VillageReader: navigates the overview
// screen and composes resources, levels and incoming-attack count into
// one village.Village snapshot.
func (c *Client) ReadVillage(villageID int) (village.Village, error) {
	html, err := c.navigate("overview", villageID, nil)
	if err != nil {
		return village.Village{}, fmt.Errorf("navigating overview for village %d: %w", villageID, err)
	}
	v, err := c.extract.Resources(html)
	if err != nil {
		return village.Village{}, err
	}
	v.ID = villageID

	levels, err := c.extract.BuildingLevels(html)
	if err != nil {
		return village.Village{}, err
	}
	v.Levels = levels

	incoming, err := c.extract.IncomingAttacks(html)
	if err != nil {
		return village.Village{}, err
	}
	v.Incoming = incoming

	wood, stone, iron, err := c.productionRates()
	if err == nil {
		v.WoodRate, v.StoneRate, v.IronRate = wood, stone, iron
	}

	return v, nil
}

// productionRateScript tries three JS data sources in turn, grounded on
// OverviewScreen._extract_production_rates' game_data -> Accountmanager ->
// DOM fallback chain.
const productionRateScript = `JSON.stringify((function() {
	try {
		if (typeof game_data !== 'undefined' && game_data.village) {
			var v = game_data.village;
			var w = parseInt(v.wood_prod || v.wood_float || 0);
			var s = parseInt(v.stone_prod || v.stone_float || 0);
			var i = parseInt(v.iron_prod || v.iron_float || 0);
			if (w > 0 || s > 0 || i > 0) return {wood: w, stone: s, iron: i};
		}
		if (typeof Accountmanager !== 'undefined' && Accountmanager.farm) {
			var f = Accountmanager.farm;
			return {wood: parseInt(f.wood) || 0, stone: parseInt(f.stone) || 0, iron: parseInt(f.iron) || 0};
		}
		var wp = document.querySelector('#wood_prod, .res_wood .production');
		var sp = document.querySelector('#stone_prod, .res_stone .production');
		var ip = document.querySelector('#iron_prod, .res_iron .production');
		if (wp) {
			return {
				wood: parseInt(wp.textContent) || 0,
				stone: sp ? (parseInt(sp.textContent) || 0) : 0,
				iron: ip ? (parseInt(ip.textContent) || 0) : 0,
			};
		}
	} catch (e) {}
	return {wood: 0, stone: 0, iron: 0};
})())`

// productionRates reads the village's per-hour resource production,
// returning zero rates rather than an error when every JS source comes up
// empty, matching the original's best-effort fallback.
func (c *Client) productionRates() (wood, stone, iron float64, err error) {
	raw, err := c.driver.Evaluate(productionRateScript)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("reading production rates: %w", err)
	}
	text, ok := raw.(string)
	if !ok {
		return 0, 0, 0, nil
	}
	var rates struct {
		Wood  float64 `json:"wood"`
		Stone float64 `json:"stone"`
		Iron  float64 `json:"iron"`
	}
	if err := json.Unmarshal([]byte(text), &rates); err != nil {
		return 0, 0, 0, nil
	}
	return rates.Wood, rates.Stone, rates.Iron, nil
}

// DiscoverVillageIDs reads the village-switch dropdown's option values from
// the currently loaded page, grounded on OverviewScreen.get_village_ids'
// village-list scrape.
func (c *Client) DiscoverVillageIDs() ([]int, error) {
	raw, err := c.driver.Evaluate(`JSON.stringify(Array.from(document.querySelectorAll('#switch_village option')).map(o => o.value))`)
	if err != nil {
		return nil, fmt.Errorf("discovering village ids: %w", err)
	}
	text, ok := raw.(string)
	if !ok {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(text), &values); err != nil {
		return nil, nil
	}
	ids := make([]int, 0, len(values))
	for _, v := range values {
		if id, err := strconv.Atoi(v); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
