package orchestrator

import (
	"testing"

	"github.com/villabot/villabot/internal/humanizer"
)

func TestWakeUpEarliestEvent(t *testing.T) {
	h := humanizer.New(humanizer.Config{JitterFactor: 0})
	events := WakeEvents{
		ScavengeReturn: 600, HasScavengeReturn: true,
		BuildFinish: 1200, HasBuildFinish: true,
		ResourceWait: 300, HasResourceWait: true,
		FarmCooldown: 50, HasFarmCooldown: true,
	}

	wake := ComputeWakeUp(events, h, humanizer.Range{Low: 120, High: 300})

	if wake < 60 || wake > 80 {
		t.Errorf("ComputeWakeUp() = %v, want in [60, 80]", wake)
	}
}

func TestWakeUpDropsEventsBelowThreshold(t *testing.T) {
	h := humanizer.New(humanizer.Config{JitterFactor: 0})
	events := WakeEvents{
		ScavengeReturn: 10, HasScavengeReturn: true,
		FarmCooldown: 600, HasFarmCooldown: true,
	}

	wake := ComputeWakeUp(events, h, humanizer.Range{Low: 120, High: 300})

	if wake < 610 || wake > 630 {
		t.Errorf("ComputeWakeUp() = %v, want in [610, 630] (scavenge return dropped)", wake)
	}
}

func TestWakeUpFallsBackToActiveDelayWhenNoEvents(t *testing.T) {
	h := humanizer.New(humanizer.Config{JitterFactor: 0})

	wake := ComputeWakeUp(WakeEvents{}, h, humanizer.Range{Low: 120, High: 300})

	if wake < 120 || wake > 300 {
		t.Errorf("ComputeWakeUp() = %v, want in [120, 300]", wake)
	}
}
