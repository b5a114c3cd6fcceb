package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"techflow-engine/internal/domain"
)

const defaultTelegramBase = "https://api.telegram.org"

type Telegram struct {
	base   string
	token  string
	chatID string
	client *http.Client
}

func NewTelegram(base, botToken, chatID string, client *http.Client) *Telegram {
	if base == "" {
		base = defaultTelegramBase
	}
	return &Telegram{base: strings.TrimRight(base, "/"), token: botToken, chatID: chatID, client: defaultClient(client)}
}

func (t *Telegram) Channel() string { return domain.ChannelTelegram }

type telegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

func (t *Telegram) Publish(ctx context.Context, p Post) (Result, error) {
	if t.token == "" || t.chatID == "" {
		return Result{}, errors.New("telegram not configured")
	}
	var out struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	err := postJSON(ctx, t.client, t.Channel(), fmt.Sprintf("%s/bot%s/sendMessage", t.base, t.token), "",
		telegramMessage{ChatID: t.chatID, Text: p.Text, ParseMode: "Markdown"}, &out)
	if err != nil {
		return Result{}, redactToken(err, t.token)
	}
	if !out.OK {
		return Result{}, fmt.Errorf("telegram: %s", out.Description)
	}
	return Result{}, nil
}

// redactToken keeps the bot token, which is part of the URL, out of logs.
func redactToken(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "***"))
}
