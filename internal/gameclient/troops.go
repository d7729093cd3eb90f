package gameclient

import (
	"fmt"
	"strconv"
	"time"
)

// TroopsDriver implements troops.Driver over a Client, training units
// from whichever screen (barracks or stable) the unit belongs to.
type TroopsDriver struct {
	client *Client
}

// NewTroopsDriver constructs a TroopsDriver.
func NewTroopsDriver(client *Client) *TroopsDriver { return &TroopsDriver{client: client} }

// stableUnits lists the cavalry trained from the Stable screen; every
// other unit is trained from the Barracks.
var stableUnits = map[string]bool{
	"light": true, "heavy": true, "marcher": true, "knight": true,
}

func (d *TroopsDriver) Train(villageID int, unit string, count int) error {
	screen := "barracks"
	if stableUnits[unit] {
		screen = "stable"
	}
	if _, err := d.client.navigate(screen, villageID, nil); err != nil {
		return fmt.Errorf("navigating %s for village %d: %w", screen, villageID, err)
	}
	selector := fmt.Sprintf("#train_unit_%s", unit)
	if err := d.client.driver.Fill(selector, strconv.Itoa(count)); err != nil {
		return err
	}
	return d.client.driver.Click(fmt.Sprintf("#%s_unit_%s .btn-train", screen, unit), 5*time.Second)
}
