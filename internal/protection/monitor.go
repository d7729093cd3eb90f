// Package protection implements the ProtectionMonitor: pattern-based
// anti-automation detection, cooldown-throttled external alerting, and a
// manual-resolve latch.
package protection

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/villabot/villabot/internal/logging"
)

// Pattern is one named detection signature: a CSS selector to probe for,
// plus a human-readable description.
type Pattern struct {
	Name        string
	Selector    string
	Description string
}

// DefaultPatterns covers both DE and EN variants of the game's bot
// protection indicators.
var DefaultPatterns = []Pattern{
	{Name: "bot_check_link", Selector: `a[href*="screen=bot_check"], a[href*="screen=bot_protection"]`, Description: "Link to bot check / bot protection screen"},
	{Name: "bot_schutz_tooltip_de", Selector: `[data-title*="Bot-Schutz"]`, Description: "German tooltip: Bot-Schutz"},
	{Name: "bot_protection_tooltip_en", Selector: `[data-title*="Bot Protection"]`, Description: "English tooltip: Bot Protection"},
	{Name: "manager_icon", Selector: `.manager_icon[href*="bot_check"]`, Description: "Manager icon linking to bot_check"},
	{Name: "bot_protection_class", Selector: `[class*="bot-protection"], [class*="bot_protection"]`, Description: "Element with bot-protection CSS class"},
	{Name: "bot_check_popup", Selector: `#popup_box_bot_check, #popup_box_bot_protection`, Description: "Bot check popup box"},
}

// PageChecker is the subset of BrowserDriver the monitor needs to probe
// the live page for detection patterns.
type PageChecker interface {
	// ElementVisible reports whether selector matches a visible element
	// on the current page.
	ElementVisible(selector string) (bool, error)
}

// Notifier sends an external alert. Implemented by TelegramSender.
type Notifier interface {
	Send(message string) error
}

// Config holds the monitor's tunables.
type Config struct {
	AlertCooldown  time.Duration
	CheckInterval  time.Duration
	ExtraSelectors []string
}

// Monitor holds detection patterns and the clear/detected state machine.
type Monitor struct {
	mu sync.Mutex

	patterns      []Pattern
	alertCooldown time.Duration
	checkInterval time.Duration

	detected      bool
	lastAlertedAt time.Time
	resolved      chan struct{}

	notifier Notifier
}

// New constructs a Monitor with DefaultPatterns plus any ExtraSelectors,
// each becoming a pattern named custom_<index>.
func New(cfg Config, notifier Notifier) *Monitor {
	patterns := make([]Pattern, len(DefaultPatterns))
	copy(patterns, DefaultPatterns)
	for i, sel := range cfg.ExtraSelectors {
		patterns = append(patterns, Pattern{Name: "custom_" + itoa(i), Selector: sel, Description: "user-configured selector"})
	}
	return &Monitor{
		patterns:      patterns,
		alertCooldown: cfg.AlertCooldown,
		checkInterval: cfg.CheckInterval,
		notifier:      notifier,
		resolved:      make(chan struct{}, 1),
	}
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	if neg {
		digits = append([]byte{'-'}, digits...)
	}
	return string(digits)
}

// Detected reports whether the monitor currently considers protection
// active.
func (m *Monitor) Detected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detected
}

// CheckURL checks whether url itself indicates bot protection -- this
// works even when the page failed to load at all.
func (m *Monitor) CheckURL(url string) string {
	lower := strings.ToLower(url)
	if strings.Contains(lower, "bot_check") || strings.Contains(lower, "bot_protection") {
		return "url_bot_check"
	}
	return ""
}

// CheckPage probes the current page for every detection pattern, URL
// first (works even when the DOM is broken), then DOM selectors.
func (m *Monitor) CheckPage(url string, driver PageChecker) (string, error) {
	if pattern := m.CheckURL(url); pattern != "" {
		return pattern, nil
	}
	for _, p := range m.patterns {
		visible, err := driver.ElementVisible(p.Selector)
		if err != nil {
			continue // transient driver error: tolerated, try next pattern
		}
		if visible {
			return p.Name, nil
		}
	}
	return "", nil
}

// OnDetection transitions clear->detected, firing a cooldown-throttled
// external alert. Safe to call repeatedly while already detected.
func (m *Monitor) OnDetection(pattern, profile, world, villageInfo string) {
	m.mu.Lock()
	m.detected = true
	now := time.Now()
	sinceLast := now.Sub(m.lastAlertedAt)
	if sinceLast < m.alertCooldown {
		m.mu.Unlock()
		return
	}
	m.lastAlertedAt = now
	m.mu.Unlock()

	if m.notifier != nil {
		msg := "Bot Protection Detected!\nProfile: " + profile + "\nWorld: " + world +
			"\nVillage: " + villageInfo + "\nPattern: " + pattern
		_ = m.notifier.Send(msg)
	}
}

// OnClear transitions detected->clear, firing a "cleared" notification.
// No-op if not currently detected.
func (m *Monitor) OnClear(profile, world string) {
	m.mu.Lock()
	if !m.detected {
		m.mu.Unlock()
		return
	}
	m.detected = false
	m.mu.Unlock()

	if m.notifier != nil {
		msg := "Bot Protection Cleared\nProfile: " + profile + "\nWorld: " + world + "\nBot resuming normal operation."
		_ = m.notifier.Send(msg)
	}
}

// ManualResolve signals that protection was manually cleared by an
// operator action, releasing anything waiting on WaitForResolve.
func (m *Monitor) ManualResolve() {
	select {
	case m.resolved <- struct{}{}:
	default:
	}
}

// WaitForResolve blocks until ManualResolve is called or ctx is
// cancelled.
func (m *Monitor) WaitForResolve(ctx context.Context) error {
	select {
	case <-m.resolved:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartPeriodic runs a background check loop at CheckInterval, invoking
// onDetected/onCleared on state transitions, until ctx is cancelled.
// Transient driver errors are tolerated (CheckPage skips a pattern whose
// probe fails, unlogged; the loop continues) -- cancellation is the only
// way out.
func (m *Monitor) StartPeriodic(ctx context.Context, currentURL func() string, driver PageChecker, profile, world string, onDetected func(string), onCleared func()) {
	log := logging.Get("protection")
	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pattern, err := m.CheckPage(currentURL(), driver)
			if err != nil {
				log.Debug().Err(err).Msg("bot_protection_check_error")
				continue
			}
			wasDetected := m.Detected()
			if pattern != "" && !wasDetected {
				m.OnDetection(pattern, profile, world, "")
				if onDetected != nil {
					onDetected(pattern)
				}
			} else if pattern == "" && wasDetected {
				m.OnClear(profile, world)
				if onCleared != nil {
					onCleared()
				}
			}
		}
	}
}
