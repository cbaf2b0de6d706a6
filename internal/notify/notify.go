// Package notify delivers trade and error notifications to external channels.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"condor-trader/internal/config"
	"condor-trader/pkg/utils"
)

// Kind classifies a notification for level filtering.
type Kind string

const (
	KindTrade  Kind = "trade"
	KindExit   Kind = "exit"
	KindError  Kind = "error"
	KindStatus Kind = "status"
)

// Notification is a single message to deliver.
type Notification struct {
	Kind      Kind
	Title     string
	Message   string
	Pnl       float64
	Timestamp time.Time
}

// Notifier delivers notifications to a channel.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
	Name() string
}

// NewFromConfig builds a MultiNotifier from the notification configuration.
// Disabled configuration yields a NoOpNotifier.
func NewFromConfig(cfg config.NotificationConfig, logger zerolog.Logger) Notifier {
	if !cfg.Enabled {
		return &NoOpNotifier{}
	}

	var channels []Notifier
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		channels = append(channels, NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID))
	}
	if cfg.Webhook.Enabled && cfg.Webhook.URL != "" {
		channels = append(channels, NewWebhookNotifier(cfg.Webhook.URL))
	}
	if len(channels) == 0 {
		return &NoOpNotifier{}
	}

	return NewMultiNotifier(cfg.Level, logger, channels...)
}

// MultiNotifier fans a notification out to several channels, filtered by
// level. A channel failure is logged and does not block the others.
type MultiNotifier struct {
	level    string
	channels []Notifier
	logger   zerolog.Logger
}

// NewMultiNotifier creates a notifier fanning out to the given channels.
func NewMultiNotifier(level string, logger zerolog.Logger, channels ...Notifier) *MultiNotifier {
	return &MultiNotifier{
		level:    level,
		channels: channels,
		logger:   logger.With().Str("component", "notify").Logger(),
	}
}

// Send delivers the notification to every channel that passes the level
// filter.
func (m *MultiNotifier) Send(ctx context.Context, n Notification) error {
	if !m.allowed(n.Kind) {
		return nil
	}
	for _, ch := range m.channels {
		if err := ch.Send(ctx, n); err != nil {
			m.logger.Warn().Err(err).Str("channel", ch.Name()).Msg("Notification delivery failed")
		}
	}
	return nil
}

// Name returns the notifier name.
func (m *MultiNotifier) Name() string { return "multi" }

func (m *MultiNotifier) allowed(kind Kind) bool {
	switch m.level {
	case "errors_only":
		return kind == KindError
	case "trades_only":
		return kind == KindTrade || kind == KindExit || kind == KindError
	default:
		return true
	}
}

// TelegramNotifier sends notifications via the Telegram bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	client   *http.Client
}

// NewTelegramNotifier creates a Telegram notifier.
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Send delivers the notification as a Telegram message.
func (t *TelegramNotifier) Send(ctx context.Context, n Notification) error {
	text := formatText(n)

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	form := url.Values{
		"chat_id": {t.chatID},
		"text":    {text},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}

// Name returns the notifier name.
func (t *TelegramNotifier) Name() string { return "telegram" }

// WebhookNotifier POSTs notifications as JSON to a configured URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(webhookURL string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    webhookURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send POSTs the notification to the webhook URL.
func (w *WebhookNotifier) Send(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(map[string]interface{}{
		"kind":      string(n.Kind),
		"title":     n.Title,
		"message":   n.Message,
		"pnl":       n.Pnl,
		"timestamp": n.Timestamp.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Name returns the notifier name.
func (w *WebhookNotifier) Name() string { return "webhook" }

// NoOpNotifier discards all notifications.
type NoOpNotifier struct{}

// Send discards the notification.
func (n *NoOpNotifier) Send(ctx context.Context, _ Notification) error { return nil }

// Name returns the notifier name.
func (n *NoOpNotifier) Name() string { return "noop" }

func formatText(n Notification) string {
	var b strings.Builder
	b.WriteString(n.Title)
	if n.Message != "" {
		b.WriteString("\n")
		b.WriteString(n.Message)
	}
	if n.Kind == KindExit || n.Kind == KindTrade {
		b.WriteString("\nP&L: ")
		b.WriteString(utils.FormatPnl(n.Pnl))
	}
	return b.String()
}

// Ensure all notifiers implement the Notifier interface
var (
	_ Notifier = (*MultiNotifier)(nil)
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = (*WebhookNotifier)(nil)
	_ Notifier = (*NoOpNotifier)(nil)
)
