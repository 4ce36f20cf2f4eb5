package notifyService

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"stormStakes/config"
)

// Dispatcher delivers user notifications over a Discord webhook. It is
// fire-and-forget from the engine's point of view: delivery failures
// are logged and never surfaced to settlement code.
type Dispatcher struct {
	session      *discordgo.Session
	webhookID    string
	webhookToken string
	logger       *logrus.Logger
}

func NewDispatcher(cfg *config.NotifyConfig, logger *logrus.Logger) (*Dispatcher, error) {
	// Webhook execution needs no bot token; the session is only a
	// configured HTTP client.
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &Dispatcher{
		session:      session,
		webhookID:    cfg.WebhookID,
		webhookToken: cfg.WebhookToken,
		logger:       logger,
	}, nil
}

// Notify sends one message referencing the wager or rule it concerns.
// With no webhook configured it logs the payload and reports success,
// which keeps local development quiet.
func (d *Dispatcher) Notify(userID uint, title, body, refID, refType string) error {
	if d.webhookID == "" || d.webhookToken == "" {
		d.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"title":   title,
			"ref":     refID,
		}).Debug("notification skipped, webhook not configured")
		return nil
	}

	_, err := d.session.WebhookExecute(d.webhookID, d.webhookToken, false, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       title,
			Description: body,
			Footer: &discordgo.MessageEmbedFooter{
				Text: fmt.Sprintf("user %d · %s %s", userID, refType, refID),
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("webhook execute: %w", err)
	}
	return nil
}
