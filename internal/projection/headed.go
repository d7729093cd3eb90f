//go:build embed

package projection

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sync"

	"github.com/villabot/villabot/internal/browser"
	"github.com/villabot/villabot/internal/logging"
	"github.com/villabot/villabot/internal/panelstate"
)

//go:embed static/*
var staticFiles embed.FS

// PanelAssets exposes the bundled panel stylesheet and client script as
// an opaque fs.FS, the same shape the frontend package uses for its
// embedded bundle.
func PanelAssets() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Injector pushes the panel overlay into an already-open game tab via
// the BrowserDriver's Evaluate hook: a one-time stylesheet/DOM/script
// injection, then narrow incremental pushes per PanelStateStore event.
// injectMu serializes every call into the page so two goroutines never
// interleave JS evaluations against the same document.
type Injector struct {
	injectMu sync.Mutex
	driver   browser.Driver
	injected bool
}

// NewInjector constructs an Injector bound to driver.
func NewInjector(driver browser.Driver) *Injector {
	return &Injector{driver: driver}
}

// EnsureInjected installs the panel DOM, stylesheet and client script
// exactly once. Safe to call before every push; subsequent calls are
// no-ops.
func (inj *Injector) EnsureInjected() error {
	inj.injectMu.Lock()
	defer inj.injectMu.Unlock()
	if inj.injected {
		return nil
	}

	script, err := fs.ReadFile(PanelAssets(), "panel.js")
	if err != nil {
		return fmt.Errorf("reading panel bundle: %w", err)
	}
	style, err := fs.ReadFile(PanelAssets(), "panel.css")
	if err != nil {
		return fmt.Errorf("reading panel stylesheet: %w", err)
	}

	js := fmt.Sprintf(`(function(){
		if (window.__villabotPanel) return;
		window.__villabotPanel = true;
		var style = document.createElement('style');
		style.textContent = %s;
		document.head.appendChild(style);
		%s
	})();`, jsonString(string(style)), string(script))

	if _, err := inj.driver.Evaluate(js); err != nil {
		return fmt.Errorf("injecting panel: %w", err)
	}
	inj.injected = true
	return nil
}

// PushSnapshot sends a full-state hydration call into the page.
func (inj *Injector) PushSnapshot(snap panelstate.Snapshot) error {
	if err := inj.EnsureInjected(); err != nil {
		return err
	}
	return inj.callPanel("hydrate", snap)
}

// PushEvent sends one narrow, targeted incremental update into the
// page -- the headed-mode analogue of a WebSocket delta message.
func (inj *Injector) PushEvent(ev panelstate.Event) error {
	if err := inj.EnsureInjected(); err != nil {
		return err
	}
	return inj.callPanel("apply", ev)
}

func (inj *Injector) callPanel(method string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling panel payload: %w", err)
	}

	inj.injectMu.Lock()
	defer inj.injectMu.Unlock()

	js := fmt.Sprintf("window.__villabotPanelCall && window.__villabotPanelCall(%s, %s);", jsonString(method), string(data))
	if _, err := inj.driver.Evaluate(js); err != nil {
		logging.Get("projection.headed").Warn().Err(err).Str("method", method).Msg("panel_push_failed")
		return err
	}
	return nil
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
