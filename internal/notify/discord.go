package notify

import (
	"context"
	"time"

	"github.com/akbaridria/obrix/internal/domain"
)

// Embed colours per event; anything else renders grey.
var discordColors = map[string]int{
	domain.EventVolatilitySpike:   0xE67E22,
	domain.EventMeanReversionHigh: 0x3498DB,
	domain.EventTWAPDeviation:     0x9B59B6,
	domain.EventError:             0xE74C3C,
}

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp,omitempty"`
}

type discordMessage struct {
	Username string         `json:"username"`
	Embeds   []discordEmbed `json:"embeds"`
}

// DiscordSender posts notifications to a Discord webhook as embeds.
type DiscordSender struct {
	webhook
	url string
	now func() time.Time
}

// NewDiscordSender creates a DiscordSender for webhookURL.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{webhook: newWebhook("discord"), url: webhookURL, now: time.Now}
}

// Send posts one embed.
func (d *DiscordSender) Send(ctx context.Context, n Notification) error {
	color, ok := discordColors[n.Event]
	if !ok {
		color = 0x95A5A6
	}
	return d.post(ctx, d.url, discordMessage{
		Username: "obrix",
		Embeds: []discordEmbed{{
			Title:       truncate(n.Title, 256),
			Description: truncate(n.Body, 4096),
			Color:       color,
			Timestamp:   d.now().UTC().Format(time.RFC3339),
		}},
	})
}

// Name returns "discord".
func (d *DiscordSender) Name() string { return d.name }
