package protection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/villabot/villabot/internal/logging"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramSender sends alert messages via the Telegram Bot API. Failures
// are logged but never fatal -- alerting is best-effort. A token-bucket
// limiter backstops the monitor's cooldown latch against bursty detection
// flicker feeding more requests than Telegram's own rate limits allow.
type TelegramSender struct {
	botToken string
	chatID   string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewTelegramSender constructs a sender. If botToken or chatID is empty,
// Send is a silent no-op (matching the original's "telegram disabled"
// behavior).
func NewTelegramSender(botToken, chatID string) *TelegramSender {
	return &TelegramSender{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 10 * time.Second},
		limiter:  rate.NewLimiter(rate.Every(time.Minute), 5),
	}
}

// Send posts message to the configured Telegram chat.
func (t *TelegramSender) Send(message string) error {
	log := logging.Get("protection.telegram")
	if t.botToken == "" || t.chatID == "" {
		log.Debug().Msg("telegram_disabled")
		return nil
	}

	if err := t.limiter.Wait(context.Background()); err != nil {
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"chat_id":    t.chatID,
		"text":       message,
		"parse_mode": "HTML",
	})
	if err != nil {
		return fmt.Errorf("marshaling telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", telegramAPIBase, t.botToken)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("telegram_send_failed")
		return nil
	}
	defer resp.Body.Close()

	log.Info().Int("status", resp.StatusCode).Msg("telegram_sent")
	return nil
}
