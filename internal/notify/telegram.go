package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Telegram delivers alerts through the bot sendMessage API.
type Telegram struct {
	Token  string
	ChatID string
	Client *http.Client

	// BaseURL overrides the Telegram API host (tests).
	BaseURL string
}

func NewTelegram(token, chatID string) *Telegram {
	if token == "" || chatID == "" {
		return nil
	}
	return &Telegram{
		Token:  token,
		ChatID: chatID,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

type telegramPayload struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func (t *Telegram) Send(ctx context.Context, title, text string) error {
	if t == nil || t.Token == "" {
		return errors.New("telegram disabled")
	}
	base := t.BaseURL
	if base == "" {
		base = "https://api.telegram.org"
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", base, t.Token)

	body, _ := json.Marshal(telegramPayload{
		ChatID:    t.ChatID,
		Text:      "*" + title + "*\n\n" + text,
		ParseMode: "Markdown",
	})
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("telegram status %d", resp.StatusCode)
	}
	return nil
}
