package service

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/adrianoneco/app-chatapp/internal/logger"
	"github.com/adrianoneco/app-chatapp/internal/metrics"
	"github.com/adrianoneco/app-chatapp/internal/model"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	colorNewConversation = 0x3498DB
	colorClientMessage   = 0x2ECC71
	colorUrgent          = 0xE74C3C
)

// DiscordNotifier posts agent alerts to a Discord channel through a webhook.
// Alerts are fire-and-forget and rate limited; bursts beyond the limit are
// dropped rather than queued.
type DiscordNotifier struct {
	session   *discordgo.Session
	webhookID string
	token     string
	limiter   *rate.Limiter
}

// NewDiscordNotifier returns nil, nil when webhookURL is empty.
func NewDiscordNotifier(webhookURL string) (*DiscordNotifier, error) {
	if webhookURL == "" {
		return nil, nil
	}
	id, token, err := parseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	s, err := discordgo.New("")
	if err != nil {
		return nil, err
	}
	return &DiscordNotifier{
		session:   s,
		webhookID: id,
		token:     token,
		limiter:   rate.NewLimiter(rate.Every(2*time.Second), 5),
	}, nil
}

// parseWebhookURL extracts the id and token from
// https://discord.com/api/webhooks/<id>/<token>.
func parseWebhookURL(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse discord webhook url: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, part := range parts {
		if part == "webhooks" && i+2 < len(parts) {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", errors.New("discord webhook url must look like .../webhooks/<id>/<token>")
}

func (n *DiscordNotifier) ConversationCreated(conv *model.Conversation) {
	color := colorNewConversation
	if conv.Priority == model.PriorityUrgent {
		color = colorUrgent
	}
	subject := "-"
	if conv.Subject != nil && *conv.Subject != "" {
		subject = *conv.Subject
	}
	n.send(&discordgo.MessageEmbed{
		Title: "New conversation " + conv.Protocol,
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Client", Value: orDash(conv.ClientName), Inline: true},
			{Name: "Priority", Value: string(conv.Priority), Inline: true},
			{Name: "Subject", Value: subject},
		},
		Timestamp: conv.CreatedAt.UTC().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: "Support Console"},
	})
}

func (n *DiscordNotifier) ClientMessage(conv *model.Conversation, msg *model.Message) {
	n.send(&discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s wrote in %s", msg.SenderName, conv.Protocol),
		Description: msg.Preview(),
		Color:       colorClientMessage,
		Timestamp:   msg.CreatedAt.UTC().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: "Support Console"},
	})
}

func (n *DiscordNotifier) send(embed *discordgo.MessageEmbed) {
	if !n.limiter.Allow() {
		metrics.NotificationsDropped.Inc()
		return
	}
	go func() {
		_, err := n.session.WebhookExecute(n.webhookID, n.token, false, &discordgo.WebhookParams{
			Username: "Support Console",
			Embeds:   []*discordgo.MessageEmbed{embed},
		})
		if err != nil {
			logger.Log.Warn("discord webhook failed", zap.String("title", embed.Title), zap.Error(err))
		}
	}()
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
