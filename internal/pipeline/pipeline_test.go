package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/villabot/villabot/internal/humanizer"
	"github.com/villabot/villabot/internal/panelstate"
	"github.com/villabot/villabot/internal/village"
)

type fakeReader struct {
	v   village.Village
	err error
}

func (f *fakeReader) ReadVillage(villageID int) (village.Village, error) {
	return f.v, f.err
}

type fakeManager struct {
	feature string
	calls   *[]string
	err     error
}

func (f *fakeManager) Feature() string { return f.feature }
func (f *fakeManager) Run(villageID int) error {
	*f.calls = append(*f.calls, f.feature)
	return f.err
}

type fakeReport struct {
	ran bool
}

func (f *fakeReport) Run(villageID int) error {
	f.ran = true
	return nil
}

type fakeWaiter struct {
	seconds float64
	ok      bool
}

func (f *fakeWaiter) SecondsUntilReturn(villageID int) (float64, bool) {
	return f.seconds, f.ok
}

func newTestPipeline(v village.Village) (*Pipeline, *panelstate.Store) {
	store := panelstate.New()
	store.SetGlobalToggle("building", true)
	store.SetGlobalToggle("farming", true)
	store.SetGlobalToggle("scavenging", true)
	store.SetGlobalToggle("troops", true)
	h := humanizer.New(humanizer.Config{JitterFactor: 0.1})
	return New(&fakeReader{v: v}, store, h, &fakeWaiter{seconds: 45, ok: true}), store
}

func TestRunSkipsManagersUnderAttack(t *testing.T) {
	p, _ := newTestPipeline(village.Village{ID: 1, Name: "Berlin", Incoming: 2})
	var calls []string
	managers := []Manager{&fakeManager{feature: "building", calls: &calls}}

	result, err := p.Run(1, managers, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.SkippedForDefense {
		t.Error("expected SkippedForDefense=true")
	}
	if len(calls) != 0 {
		t.Errorf("expected no manager calls under attack, got %v", calls)
	}
}

func TestRunStillRunsReportUnderAttackWhenFarmingEnabled(t *testing.T) {
	p, _ := newTestPipeline(village.Village{ID: 1, Name: "Berlin", Incoming: 2})
	var calls []string
	managers := []Manager{&fakeManager{feature: "building", calls: &calls}}
	report := &fakeReport{}

	result, err := p.Run(1, managers, report)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.SkippedForDefense {
		t.Error("expected SkippedForDefense=true")
	}
	if len(calls) != 0 {
		t.Errorf("expected no manager calls under attack, got %v", calls)
	}
	if !report.ran {
		t.Error("expected report manager to still run under attack since farming is enabled")
	}
}

func TestRunSkipsReportUnderAttackWhenFarmingDisabled(t *testing.T) {
	p, store := newTestPipeline(village.Village{ID: 1, Name: "Berlin", Incoming: 2})
	store.SetGlobalToggle("farming", false)
	report := &fakeReport{}

	if _, err := p.Run(1, nil, report); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.ran {
		t.Error("expected report manager NOT to run under attack since farming is disabled")
	}
}

func TestRunCallsAllEnabledManagers(t *testing.T) {
	p, _ := newTestPipeline(village.Village{ID: 1, Name: "Berlin"})
	var calls []string
	managers := []Manager{
		&fakeManager{feature: "building", calls: &calls},
		&fakeManager{feature: "farming", calls: &calls},
		&fakeManager{feature: "scavenging", calls: &calls},
	}
	report := &fakeReport{}

	result, err := p.Run(1, managers, report)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(calls) != 3 {
		t.Fatalf("len(calls) = %d, want 3: %v", len(calls), calls)
	}
	if !report.ran {
		t.Error("expected report manager to run since farming ran")
	}
	for _, feature := range []string{"building", "farming", "scavenging"} {
		if !result.ManagerResults[feature] {
			t.Errorf("ManagerResults[%s] = false, want true", feature)
		}
	}
}

func TestRunRespectsDisabledFeature(t *testing.T) {
	p, store := newTestPipeline(village.Village{ID: 1, Name: "Berlin"})
	store.SetGlobalToggle("scavenging", false)
	var calls []string
	managers := []Manager{
		&fakeManager{feature: "building", calls: &calls},
		&fakeManager{feature: "scavenging", calls: &calls},
	}

	if _, err := p.Run(1, managers, nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, c := range calls {
		if c == "scavenging" {
			t.Error("scavenging manager ran despite being disabled")
		}
	}
}

func TestRunSkipsReportWhenFarmingDidNotRun(t *testing.T) {
	p, store := newTestPipeline(village.Village{ID: 1, Name: "Berlin"})
	store.SetGlobalToggle("farming", false)
	var calls []string
	managers := []Manager{&fakeManager{feature: "farming", calls: &calls}}
	report := &fakeReport{}

	if _, err := p.Run(1, managers, report); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.ran {
		t.Error("expected report manager NOT to run since farming is disabled")
	}
}

func TestRunPropagatesManagerErrorButContinues(t *testing.T) {
	p, _ := newTestPipeline(village.Village{ID: 1, Name: "Berlin"})
	var calls []string
	managers := []Manager{
		&fakeManager{feature: "building", calls: &calls, err: errors.New("boom")},
		&fakeManager{feature: "farming", calls: &calls},
	}

	result, err := p.Run(1, managers, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.ManagerResults["building"] {
		t.Error("expected building manager result = false on error")
	}
	if !result.ManagerResults["farming"] {
		t.Error("expected farming manager result = true")
	}
	if len(calls) != 2 {
		t.Errorf("expected both managers to run despite one error, got %v", calls)
	}
}

func TestRunCollectsScavengeWait(t *testing.T) {
	p, _ := newTestPipeline(village.Village{ID: 1, Name: "Berlin"})
	result, err := p.Run(1, nil, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.HasScavengeWait || result.ScavengeWaitSeconds != 45 {
		t.Errorf("ScavengeWaitSeconds = %v (has=%v), want 45 (has=true)", result.ScavengeWaitSeconds, result.HasScavengeWait)
	}
}

func TestRunReaderErrorPropagates(t *testing.T) {
	store := panelstate.New()
	h := humanizer.New(humanizer.Config{})
	p := New(&fakeReader{err: errors.New("navigation failed")}, store, h, nil)

	if _, err := p.Run(1, nil, nil); err == nil {
		t.Error("expected error to propagate from VillageReader")
	}
}

type fakeBuildManager struct {
	finishTS   time.Time
	resourceWait float64
	waitingFor string
}

func (f *fakeBuildManager) Feature() string              { return "building" }
func (f *fakeBuildManager) Run(villageID int) error       { return nil }
func (f *fakeBuildManager) LastBuildResult() (time.Time, float64, string) {
	return f.finishTS, f.resourceWait, f.waitingFor
}

func TestRunFoldsBuildResultIntoResult(t *testing.T) {
	p, _ := newTestPipeline(village.Village{ID: 1, Name: "Berlin"})
	finish := time.Now().Add(10 * time.Minute)
	mgr := &fakeBuildManager{finishTS: finish, resourceWait: 120, waitingFor: "barracks"}

	result, err := p.Run(1, []Manager{mgr}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.BuildQueueFinishTS.Equal(finish) {
		t.Errorf("BuildQueueFinishTS = %v, want %v", result.BuildQueueFinishTS, finish)
	}
	if result.BuildResourceWait != 120 {
		t.Errorf("BuildResourceWait = %v, want 120", result.BuildResourceWait)
	}
	if result.BuildWaitingFor != "barracks" {
		t.Errorf("BuildWaitingFor = %q, want %q", result.BuildWaitingFor, "barracks")
	}
}
