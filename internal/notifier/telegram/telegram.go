// Package telegram implements a Telegram Bot API notifier
package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/znyinc/scanner-sub000/internal/core"
	"github.com/znyinc/scanner-sub000/internal/notifier"
)

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Init(cfg notifier.Config) error {
	if token, ok := cfg.Params["bot_token"].(string); ok {
		t.botToken = token
	}
	if chatID, ok := cfg.Params["chat_id"].(string); ok {
		t.chatID = chatID
	}

	if t.botToken == "" {
		return fmt.Errorf("telegram: bot_token is required")
	}
	if t.chatID == "" {
		return fmt.Errorf("telegram: chat_id is required")
	}

	if t.client == nil {
		t.client = &http.Client{Timeout: 30 * time.Second}
	}

	return nil
}

func (t *Telegram) Send(sig core.Signal) error {
	return t.sendMessage(formatSignal(sig))
}

func (t *Telegram) SendBatch(sigs []core.Signal) error {
	if len(sigs) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 *%d Trading Signals*\n\n", len(sigs)))

	for i, sig := range sigs {
		sb.WriteString(formatSignal(sig))
		if i < len(sigs)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return t.sendMessage(sb.String())
}

func formatSignal(sig core.Signal) string {
	var sb strings.Builder

	emoji := "📈"
	if sig.Type == core.SignalShort {
		emoji = "📉"
	}

	sb.WriteString(fmt.Sprintf("%s *%s* - %s\n", emoji, sig.Symbol, sig.Type))
	sb.WriteString(fmt.Sprintf("📊 Confidence: %.1f%%\n", sig.Confidence*100))
	sb.WriteString(fmt.Sprintf("💰 Price: $%.2f\n", sig.Price))
	sb.WriteString(fmt.Sprintf("📏 ATR: %.4f\n", sig.Indicators.ATR))
	sb.WriteString(fmt.Sprintf("⏰ Time: %s", sig.Timestamp.Format("2006-01-02 15:04:05")))

	return sb.String()
}

func (t *Telegram) sendMessage(text string) error {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	resp, err := t.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result)
	}

	return nil
}
