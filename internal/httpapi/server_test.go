package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/villabot/villabot/internal/action"
	"github.com/villabot/villabot/internal/config"
	"github.com/villabot/villabot/internal/panelstate"
	"github.com/villabot/villabot/internal/projection"
)

func newTestServer(t *testing.T) (*Server, *panelstate.Store) {
	t.Helper()
	store := panelstate.New()
	cfg := &config.Config{}
	bcast := projection.NewBroadcaster(store, time.Millisecond, time.Hour)
	t.Cleanup(bcast.Stop)
	bus := action.New(action.Handlers{}, store)
	return NewServer(cfg, store, bus, bcast, "profile1", ""), store
}

func TestHandleHealthReportsBotState(t *testing.T) {
	s, store := newTestServer(t)
	store.SetBotState(panelstate.StateRunning)

	mux := http.NewServeMux()
	s.SetupRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleControlStartDispatches(t *testing.T) {
	store := panelstate.New()
	cfg := &config.Config{}
	bcast := projection.NewBroadcaster(store, time.Millisecond, time.Hour)
	defer bcast.Stop()

	var started bool
	bus := action.New(action.Handlers{OnStart: func() { started = true }}, store)
	s := NewServer(cfg, store, bus, bcast, "p", "")

	mux := http.NewServeMux()
	s.SetupRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/api/control/start", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !started {
		t.Error("expected OnStart to be called")
	}
}

func TestHandleControlUnknownActionIsBadRequest(t *testing.T) {
	s, _ := newTestServer(t)
	mux := http.NewServeMux()
	s.SetupRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/api/control/nonsense", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleFillUnitRejectsUnknownUnit(t *testing.T) {
	s, _ := newTestServer(t)
	mux := http.NewServeMux()
	s.SetupRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/api/fill-unit/catapult", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unsupported fill unit", rec.Code)
	}
}

func TestHandleFillUnitAcceptsKnownUnit(t *testing.T) {
	s, _ := newTestServer(t)
	mux := http.NewServeMux()
	s.SetupRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/api/fill-unit/spear", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuthorizeRejectsMissingToken(t *testing.T) {
	store := panelstate.New()
	cfg := &config.Config{}
	bcast := projection.NewBroadcaster(store, time.Millisecond, time.Hour)
	defer bcast.Stop()
	bus := action.New(action.Handlers{}, store)
	s := NewServer(cfg, store, bus, bcast, "p", "secret")

	mux := http.NewServeMux()
	s.SetupRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthorizeAcceptsQueryToken(t *testing.T) {
	store := panelstate.New()
	cfg := &config.Config{}
	bcast := projection.NewBroadcaster(store, time.Millisecond, time.Hour)
	defer bcast.Stop()
	bus := action.New(action.Handlers{}, store)
	s := NewServer(cfg, store, bus, bcast, "p", "secret")

	mux := http.NewServeMux()
	s.SetupRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/health?token=secret", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestActiveVillageIDReportedInVillagesRoute(t *testing.T) {
	s, _ := newTestServer(t)
	s.SetActiveVillage(42)

	mux := http.NewServeMux()
	s.SetupRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/villages", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !contains(rec.Body.String(), `"active_village_id":42`) {
		t.Errorf("body = %s, want active_village_id=42", rec.Body.String())
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && (func() bool {
		for i := 0; i+len(needle) <= len(haystack); i++ {
			if haystack[i:i+len(needle)] == needle {
				return true
			}
		}
		return false
	})()
}
