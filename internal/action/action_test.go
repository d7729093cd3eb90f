package action

import (
	"testing"

	"github.com/villabot/villabot/internal/panelstate"
)

func TestDispatchRoutesToHandler(t *testing.T) {
	var started, paused bool
	bus := New(Handlers{
		OnStart: func() { started = true },
		OnPause: func() { paused = true },
	}, nil)

	if !bus.Dispatch(Command{Kind: KindStart}) {
		t.Fatal("Dispatch(start) returned handled=false")
	}
	if !started {
		t.Error("OnStart was not called")
	}

	bus.Dispatch(Command{Kind: KindPause})
	if !paused {
		t.Error("OnPause was not called")
	}
}

func TestDispatchUnknownKindNotHandled(t *testing.T) {
	bus := New(Handlers{}, nil)
	if bus.Dispatch(Command{Kind: "nonsense"}) {
		t.Error("expected handled=false for unrecognized kind")
	}
}

func TestDispatchNilHandlerIsSafe(t *testing.T) {
	bus := New(Handlers{}, nil)
	if !bus.Dispatch(Command{Kind: KindStart}) {
		t.Error("expected handled=true even with a nil handler func")
	}
}

func TestVillageToggleMirrorsIntoStore(t *testing.T) {
	store := panelstate.New()
	bus := New(Handlers{}, store)

	bus.Dispatch(Command{Kind: KindVillageToggle, VillageID: 7, Feature: "farming", Enabled: false})
	if store.IsEnabled(7, "farming") {
		t.Error("expected village 7 farming override to resolve false")
	}

	bus.Dispatch(Command{Kind: KindVillageToggle, VillageID: 7, Feature: "farming", Enabled: true})
	if !store.IsEnabled(7, "farming") {
		t.Error("expected village 7 farming override to resolve true")
	}
}

func TestFillUnitMirrorsIntoStore(t *testing.T) {
	store := panelstate.New()
	var got string
	bus := New(Handlers{OnFillUnit: func(unit string) { got = unit }}, store)

	bus.Dispatch(Command{Kind: KindFillUnit, Unit: "spear", Enabled: true})
	if got != "spear" {
		t.Errorf("handler received %q, want %q", got, "spear")
	}
	snap := store.ToSnapshot()
	if !snap.ScavengeUnitPrefs["spear"] {
		t.Errorf("store ScavengeUnitPrefs[spear] = false, want true")
	}
}

func TestBuildQueueCommandsRoute(t *testing.T) {
	var addedBuilding string
	var removedIdx int
	var movedFrom, movedTo int
	var cleared bool

	bus := New(Handlers{
		OnBuildQueueAdd:    func(vid int, building string, level int) { addedBuilding = building },
		OnBuildQueueRemove: func(vid, idx int) { removedIdx = idx },
		OnBuildQueueMove:   func(vid, from, to int) { movedFrom, movedTo = from, to },
		OnBuildQueueClear:  func(vid int) { cleared = true },
	}, nil)

	bus.Dispatch(Command{Kind: KindBuildQueueAdd, VillageID: 1, Building: "main", Level: 5})
	bus.Dispatch(Command{Kind: KindBuildQueueRemove, VillageID: 1, Index: 2})
	bus.Dispatch(Command{Kind: KindBuildQueueMove, VillageID: 1, Index: 0, ToIndex: 3})
	bus.Dispatch(Command{Kind: KindBuildQueueClear, VillageID: 1})

	if addedBuilding != "main" {
		t.Errorf("addedBuilding = %q, want %q", addedBuilding, "main")
	}
	if removedIdx != 2 {
		t.Errorf("removedIdx = %d, want 2", removedIdx)
	}
	if movedFrom != 0 || movedTo != 3 {
		t.Errorf("moved = (%d,%d), want (0,3)", movedFrom, movedTo)
	}
	if !cleared {
		t.Error("OnBuildQueueClear was not called")
	}
}
