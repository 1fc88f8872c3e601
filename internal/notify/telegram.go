package notify

import (
	"context"
	"html"
)

const telegramAPIBase = "https://api.telegram.org"

type telegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// TelegramSender posts notifications through the Bot API sendMessage call.
type TelegramSender struct {
	webhook
	apiBase string
	token   string
	chatID  string
}

// NewTelegramSender creates a TelegramSender for a bot token and chat id.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		webhook: newWebhook("telegram"),
		apiBase: telegramAPIBase,
		token:   token,
		chatID:  chatID,
	}
}

// Send renders the title in bold. HTML mode is used because event names
// and pool ids contain characters Markdown would treat as markup.
func (t *TelegramSender) Send(ctx context.Context, n Notification) error {
	text := "<b>" + html.EscapeString(n.Title) + "</b>\n" + html.EscapeString(n.Body)
	return t.post(ctx, t.apiBase+"/bot"+t.token+"/sendMessage", telegramMessage{
		ChatID:                t.chatID,
		Text:                  truncate(text, 4096),
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
}

// Name returns "telegram".
func (t *TelegramSender) Name() string { return t.name }
