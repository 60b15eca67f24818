package discord

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Notifier posts pipeline failures to a Discord channel webhook.
type Notifier struct {
	session *discordgo.Session
	id      string
	token   string
}

// NewNotifier parses a webhook URL of the form
// https://discord.com/api/webhooks/{id}/{token}.
func NewNotifier(webhookURL string) (*Notifier, error) {
	id, token, err := parseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	// webhooks need no bot token
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	return &Notifier{session: session, id: id, token: token}, nil
}

func parseWebhookURL(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid webhook url: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("invalid webhook url: expected /webhooks/{id}/{token}")
}

func (n *Notifier) NotifyFailure(ctx context.Context, userID, stage string, cause error) error {
	params := &discordgo.WebhookParams{
		Username: "finrag",
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "Reindex failed",
			Description: truncate(cause.Error(), 1024),
			Color:       0xE74C3C,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
			Fields: []*discordgo.MessageEmbedField{
				{Name: "User", Value: userID, Inline: true},
				{Name: "Stage", Value: stage, Inline: true},
			},
		}},
	}
	_, err := n.session.WebhookExecute(n.id, n.token, true, params, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
