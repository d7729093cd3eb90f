// Package farm implements the FarmRunner: per-row template choice (heavy
// vs light) based on estimated haul, and target intel feedback from the
// report manager.
package farm

import (
	"math"

	"github.com/villabot/villabot/internal/village"
)

// Template is the chosen farm-assistant attack template.
type Template string

const (
	// TemplateHeavy ("C") sends enough troops to carry the full haul.
	TemplateHeavy Template = "c"
	// TemplateLight ("A") is the conservative default, used whenever the
	// haul estimate is unavailable or too large for a heavy send.
	TemplateLight Template = "a"
)

// Row is one parsed farm-assistant target row.
type Row struct {
	RowID        string
	TargetID     int
	EstimatedHaul int // 0 means "could not parse"
}

// Driver is the subset of BrowserDriver the runner needs: check whether a
// template button is enabled, click it, and detect exhaustion.
type Driver interface {
	Rows(villageID int) ([]Row, error)
	TemplateEnabled(rowID string, tmpl Template) (bool, error)
	ClickTemplate(rowID string, tmpl Template) error
}

// Runner drives one farm-assistant cycle for a single village.
type Runner struct {
	driver Driver
}

// New constructs a Runner bound to driver.
func New(driver Driver) *Runner {
	return &Runner{driver: driver}
}

// ChooseTemplate picks TemplateHeavy when ceil(haul/lcCarry) <= lcThreshold,
// else TemplateLight. A haul of 0 (unparseable) always conservatively
// picks TemplateLight.
func ChooseTemplate(haul int, lcThreshold, lcCarry int) Template {
	if haul <= 0 {
		return TemplateLight
	}
	if lcCarry <= 0 {
		return TemplateLight
	}
	lcNeeded := int(math.Ceil(float64(haul) / float64(lcCarry)))
	if lcNeeded <= lcThreshold {
		return TemplateHeavy
	}
	return TemplateLight
}

// Run executes one farm cycle: for each target row, chooses a template
// and submits it, stopping when a click has no effect (troops exhausted)
// or all rows are processed. Returns the number of attacks sent.
func (r *Runner) Run(villageID int, lcThreshold, lcCarry int) (int, error) {
	rows, err := r.driver.Rows(villageID)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	sent := 0
	for _, row := range rows {
		tmpl := ChooseTemplate(row.EstimatedHaul, lcThreshold, lcCarry)

		enabled, err := r.driver.TemplateEnabled(row.RowID, tmpl)
		if err != nil {
			return sent, err
		}
		if !enabled {
			continue
		}

		if err := r.driver.ClickTemplate(row.RowID, tmpl); err != nil {
			break
		}

		stillEnabled, err := r.driver.TemplateEnabled(row.RowID, tmpl)
		if err != nil {
			return sent, err
		}
		if stillEnabled {
			// A successful send disables the button; if it's still
			// enabled the click had no effect -- troops exhausted.
			break
		}
		sent++
	}

	return sent, nil
}

// BlacklistCriteria decides whether a farm target should be
// auto-blacklisted based on observed intel: a wall level above 5, or the
// report manager observing defending troops at the target.
func BlacklistCriteria(t village.FarmTarget, hasTroops bool) bool {
	return t.WallLevel > 5 || hasTroops
}
