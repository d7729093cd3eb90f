package gameclient

import (
	"fmt"
	"strings"
	"time"
)

// loginWaitTimeout is the default bound on how long Reauthenticate waits
// for a human to complete login in headed mode, matching the core's
// 300s login-wait default.
const loginWaitTimeout = 300 * time.Second

// Session implements orchestrator.Reauthenticator by navigating to the
// world's login page and polling the page location until it lands back
// on game.php, grounded on SessionManager.login/wait_for_game_page's
// navigate-then-poll idiom.
type Session struct {
	client   *Client
	loginURL string
	timeout  time.Duration
}

// NewSession constructs a Session bound to loginURL (the world's game
// login entry point).
func NewSession(client *Client, loginURL string) *Session {
	return &Session{client: client, loginURL: loginURL, timeout: loginWaitTimeout}
}

// Reauthenticate navigates to the login page and blocks until the page
// lands on game.php or the timeout elapses.
func (s *Session) Reauthenticate() error {
	if _, err := s.client.driver.Navigate(s.loginURL); err != nil {
		return fmt.Errorf("navigating to login: %w", err)
	}

	deadline := time.Now().Add(s.timeout)
	for time.Now().Before(deadline) {
		raw, err := s.client.driver.Evaluate(`window.location.href`)
		if err == nil {
			if href, ok := raw.(string); ok && strings.Contains(href, "/game.php") {
				return nil
			}
		}
		time.Sleep(time.Second)
	}
	return fmt.Errorf("login timed out after %s", s.timeout)
}
