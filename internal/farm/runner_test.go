package farm

import (
	"testing"

	"github.com/villabot/villabot/internal/village"
)

func TestChooseTemplate(t *testing.T) {
	tests := []struct {
		name        string
		haul        int
		lcThreshold int
		lcCarry     int
		want        Template
	}{
		{"unparseable haul defaults light", 0, 5, 80, TemplateLight},
		{"small haul fits heavy", 100, 5, 80, TemplateHeavy},
		{"large haul needs light", 10000, 5, 80, TemplateLight},
		{"exact threshold boundary picks heavy", 400, 5, 80, TemplateHeavy},
		{"just over threshold picks light", 401, 5, 80, TemplateLight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChooseTemplate(tt.haul, tt.lcThreshold, tt.lcCarry); got != tt.want {
				t.Errorf("ChooseTemplate(%d, %d, %d) = %v, want %v", tt.haul, tt.lcThreshold, tt.lcCarry, got, tt.want)
			}
		})
	}
}

type fakeFarmDriver struct {
	rows        []Row
	enabled     map[string]bool
	clickCalls  []string
	disableNext map[string]bool
}

func (f *fakeFarmDriver) Rows(villageID int) ([]Row, error) { return f.rows, nil }

func (f *fakeFarmDriver) TemplateEnabled(rowID string, tmpl Template) (bool, error) {
	return f.enabled[rowID], nil
}

func (f *fakeFarmDriver) ClickTemplate(rowID string, tmpl Template) error {
	f.clickCalls = append(f.clickCalls, rowID)
	if f.disableNext[rowID] {
		f.enabled[rowID] = false
	}
	return nil
}

func TestRunStopsOnExhaustion(t *testing.T) {
	driver := &fakeFarmDriver{
		rows: []Row{
			{RowID: "r1", EstimatedHaul: 100},
			{RowID: "r2", EstimatedHaul: 100},
		},
		enabled:     map[string]bool{"r1": true, "r2": true},
		disableNext: map[string]bool{"r1": true}, // r2 stays enabled -> exhausted
	}
	r := New(driver)
	sent, err := r.Run(1, 5, 80)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sent != 1 {
		t.Errorf("sent = %d, want 1 (stop after r2 stays enabled)", sent)
	}
}

func TestRunSkipsDisabledRows(t *testing.T) {
	driver := &fakeFarmDriver{
		rows:        []Row{{RowID: "r1", EstimatedHaul: 100}},
		enabled:     map[string]bool{"r1": false},
		disableNext: map[string]bool{},
	}
	r := New(driver)
	sent, err := r.Run(1, 5, 80)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sent != 0 {
		t.Errorf("sent = %d, want 0", sent)
	}
	if len(driver.clickCalls) != 0 {
		t.Errorf("expected no clicks on a disabled row")
	}
}

func TestBlacklistCriteria(t *testing.T) {
	tests := []struct {
		name      string
		target    village.FarmTarget
		hasTroops bool
		want      bool
	}{
		{"low wall no troops", village.FarmTarget{WallLevel: 2}, false, false},
		{"high wall", village.FarmTarget{WallLevel: 8}, false, true},
		{"has troops", village.FarmTarget{WallLevel: 0}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BlacklistCriteria(tt.target, tt.hasTroops); got != tt.want {
				t.Errorf("BlacklistCriteria() = %v, want %v", got, tt.want)
			}
		})
	}
}
