package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"techflow-engine/internal/domain"
)

const (
	defaultWhatsAppBase = "https://graph.facebook.com"
	whatsAppAPIVersion  = "v18.0"
)

type WhatsApp struct {
	base          string
	token         string
	phoneNumberID string
	to            string
	client        *http.Client
}

func NewWhatsApp(base, accessToken, phoneNumberID, to string, client *http.Client) *WhatsApp {
	if base == "" {
		base = defaultWhatsAppBase
	}
	return &WhatsApp{
		base:          strings.TrimRight(base, "/"),
		token:         accessToken,
		phoneNumberID: phoneNumberID,
		to:            to,
		client:        defaultClient(client),
	}
}

func (w *WhatsApp) Channel() string { return domain.ChannelWhatsApp }

type whatsAppMessage struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

func (w *WhatsApp) Publish(ctx context.Context, p Post) (Result, error) {
	if w.token == "" || w.phoneNumberID == "" || w.to == "" {
		return Result{}, errors.New("whatsapp not configured")
	}
	msg := whatsAppMessage{MessagingProduct: "whatsapp", To: w.to, Type: "text"}
	msg.Text.Body = p.Text

	var out struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	endpoint := fmt.Sprintf("%s/%s/%s/messages", w.base, whatsAppAPIVersion, w.phoneNumberID)
	if err := postJSON(ctx, w.client, w.Channel(), endpoint, w.token, msg, &out); err != nil {
		return Result{}, err
	}
	if len(out.Messages) == 0 {
		return Result{}, errors.New("whatsapp: message not accepted")
	}
	return Result{}, nil
}
