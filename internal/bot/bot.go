// Package bot runs the companion Telegram bot: greeting with a mini-app
// link, the premium plan menu, Stars invoices, and successful-payment
// handling that feeds the premium reconciler.
package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/luvhive/backend/internal/logging"
	"github.com/luvhive/backend/internal/server/config"
	"github.com/luvhive/backend/internal/server/services"
)

type Bot struct {
	api       *tgbotapi.BotAPI
	identity  *services.IdentityService
	premium   *services.PremiumService
	logger    logging.Logger
	webAppURL string
	plans     []config.PremiumPlan
}

func New(api *tgbotapi.BotAPI, identity *services.IdentityService, premium *services.PremiumService,
	logger logging.Logger, cfg *config.Config) *Bot {
	return &Bot{
		api:       api,
		identity:  identity,
		premium:   premium,
		logger:    logger.With("module", "bot"),
		webAppURL: cfg.WebAppURL,
		plans:     cfg.PremiumPlans,
	}
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info(ctx, "bot polling started", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, upd)
		}
	}
}
