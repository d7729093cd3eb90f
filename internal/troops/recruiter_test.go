package troops

import (
	"testing"
	"time"

	"github.com/villabot/villabot/internal/village"
)

type fakeTrainDriver struct {
	calls []trainCall
}

type trainCall struct {
	villageID int
	unit      string
	count     int
}

func (f *fakeTrainDriver) Train(villageID int, unit string, count int) error {
	f.calls = append(f.calls, trainCall{villageID, unit, count})
	return nil
}

func TestRunTargetsCapsBatchByClass(t *testing.T) {
	driver := &fakeTrainDriver{}
	r := New(driver)

	targets := []UnitTarget{
		{Unit: "spear", Class: ClassInfantry, Target: 200},
		{Unit: "knight", Class: ClassCavalry, Target: 200},
	}
	owned := village.TroopCount{"spear": 50, "knight": 50}
	queued := village.TroopCount{}

	if err := r.RunTargets(1, targets, owned, queued); err != nil {
		t.Fatalf("RunTargets() error = %v", err)
	}
	if len(driver.calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(driver.calls))
	}
	byUnit := map[string]int{}
	for _, c := range driver.calls {
		byUnit[c.unit] = c.count
	}
	if byUnit["spear"] != 50 {
		t.Errorf("spear batch = %d, want 50 (cap)", byUnit["spear"])
	}
	if byUnit["knight"] != 25 {
		t.Errorf("knight batch = %d, want 25 (cavalry cap)", byUnit["knight"])
	}
}

func TestRunTargetsSkipsSatisfiedDeficit(t *testing.T) {
	driver := &fakeTrainDriver{}
	r := New(driver)
	targets := []UnitTarget{{Unit: "spear", Class: ClassInfantry, Target: 100}}
	owned := village.TroopCount{"spear": 80}
	queued := village.TroopCount{"spear": 30}

	if err := r.RunTargets(1, targets, owned, queued); err != nil {
		t.Fatalf("RunTargets() error = %v", err)
	}
	if len(driver.calls) != 0 {
		t.Errorf("expected no training call when owned+queued >= target")
	}
}

func TestRunFillScavengeSkipsWhenRemainingTooSmall(t *testing.T) {
	driver := &fakeTrainDriver{}
	r := New(driver)
	in := FillScavengeInput{Unit: "spear", ScavengeRemaining: 20, TrainSeconds: 10, MaxAffordable: 100}

	result, err := r.RunFillScavenge(1, in, time.Now())
	if err != nil {
		t.Fatalf("RunFillScavenge() error = %v", err)
	}
	if !result.Skipped {
		t.Errorf("expected Skipped=true when remaining <= 30s")
	}
}

func TestRunFillScavengeSkipsWhenQueueAlreadyCovers(t *testing.T) {
	driver := &fakeTrainDriver{}
	r := New(driver)
	in := FillScavengeInput{Unit: "spear", ScavengeRemaining: 100, QueueSeconds: 90, TrainSeconds: 10, MaxAffordable: 100}

	result, err := r.RunFillScavenge(1, in, time.Now())
	if err != nil {
		t.Fatalf("RunFillScavenge() error = %v", err)
	}
	if !result.Skipped {
		t.Errorf("expected Skipped=true when queue already terminates within 30s of return")
	}
}

func TestRunFillScavengeBatchFormula(t *testing.T) {
	driver := &fakeTrainDriver{}
	r := New(driver)
	// remaining=500, queue=0, per_unit=50 -> gap=500, floor(500/50)+1 = 11
	in := FillScavengeInput{Unit: "spear", ScavengeRemaining: 500, QueueSeconds: 0, TrainSeconds: 50, MaxAffordable: 100}

	result, err := r.RunFillScavenge(1, in, time.Now())
	if err != nil {
		t.Fatalf("RunFillScavenge() error = %v", err)
	}
	if result.Skipped {
		t.Fatal("expected a batch, not skipped")
	}
	if result.Batch != 11 {
		t.Errorf("Batch = %d, want 11", result.Batch)
	}
	if len(driver.calls) != 1 || driver.calls[0].count != 11 {
		t.Errorf("driver.Train call = %+v, want count 11", driver.calls)
	}
}

func TestRunFillScavengeClampedByMaxAffordable(t *testing.T) {
	driver := &fakeTrainDriver{}
	r := New(driver)
	in := FillScavengeInput{Unit: "spear", ScavengeRemaining: 5000, QueueSeconds: 0, TrainSeconds: 10, MaxAffordable: 5}

	result, err := r.RunFillScavenge(1, in, time.Now())
	if err != nil {
		t.Fatalf("RunFillScavenge() error = %v", err)
	}
	if result.Batch != 5 {
		t.Errorf("Batch = %d, want 5 (clamped by max affordable)", result.Batch)
	}
}
