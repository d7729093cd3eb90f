package gameclient

import (
	"fmt"
	"strconv"
	"time"

	"github.com/villabot/villabot/internal/farm"
	"github.com/villabot/villabot/internal/village"
)

// FarmDriver implements farm.Driver over a Client, grounded on
// FarmAssistantScreen.get_farm_list / template button interaction.
type FarmDriver struct {
	client    *Client
	villageID int
}

// NewFarmDriver constructs a FarmDriver scoped to one village.
func NewFarmDriver(client *Client, villageID int) *FarmDriver {
	return &FarmDriver{client: client, villageID: villageID}
}

func (d *FarmDriver) Rows(villageID int) ([]farm.Row, error) {
	html, err := d.client.navigate("am_farm", villageID, nil)
	if err != nil {
		return nil, fmt.Errorf("navigating farm assistant for village %d: %w", villageID, err)
	}
	return d.client.extract.FarmRows(html)
}

func (d *FarmDriver) TemplateEnabled(rowID string, tmpl farm.Template) (bool, error) {
	selector := fmt.Sprintf("#%s .farm_icon_%s:not(.disabled)", rowID, tmpl)
	return d.client.driver.QuerySelector(selector)
}

func (d *FarmDriver) ClickTemplate(rowID string, tmpl farm.Template) error {
	selector := fmt.Sprintf("#%s .farm_icon_%s", rowID, tmpl)
	return d.client.driver.Click(selector, 5*time.Second)
}

// ScavengeDriver implements scavenge.Driver for a single village,
// grounded on ScavengeScreen's shared-input-then-per-option-start flow.
type ScavengeDriver struct {
	client    *Client
	villageID int
}

// NewScavengeDriver constructs a ScavengeDriver scoped to one village.
func NewScavengeDriver(client *Client, villageID int) *ScavengeDriver {
	return &ScavengeDriver{client: client, villageID: villageID}
}

func (d *ScavengeDriver) TierStatuses() ([]village.TierStatus, error) {
	html, err := d.client.navigate("place", d.villageID, map[string]string{"mode": "scavenge"})
	if err != nil {
		return nil, err
	}
	return d.client.extract.ScavengeOptions(html)
}

func (d *ScavengeDriver) fillTroops(troops village.TroopCount) error {
	for unit, count := range troops {
		selector := fmt.Sprintf("#scavenge_unit_input_%s", unit)
		if err := d.client.driver.Fill(selector, strconv.Itoa(count)); err != nil {
			return err
		}
	}
	return nil
}

func (d *ScavengeDriver) Dispatch(tier village.ScavengeTier, troops village.TroopCount) (time.Time, error) {
	if err := d.fillTroops(troops); err != nil {
		return time.Time{}, err
	}
	selector := fmt.Sprintf(".scavenge-option:nth-child(%d) .start", tier)
	if err := d.client.driver.Click(selector, 5*time.Second); err != nil {
		return time.Time{}, err
	}
	statuses, err := d.TierStatuses()
	if err != nil {
		return time.Time{}, err
	}
	for _, s := range statuses {
		if s.Tier == tier && s.Running {
			return s.ReturnTime, nil
		}
	}
	return time.Time{}, nil
}

func (d *ScavengeDriver) PreviewFill(tier village.ScavengeTier, troops village.TroopCount) error {
	return d.fillTroops(troops)
}
