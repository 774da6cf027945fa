package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/luvhive/backend/internal/server/config"
	"github.com/luvhive/backend/internal/server/services"
)

const buyCallbackPrefix = "buy_"

func (b *Bot) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.PreCheckoutQuery != nil:
		b.handlePreCheckout(ctx, upd.PreCheckoutQuery)
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.SuccessfulPayment != nil:
		b.handleSuccessfulPayment(ctx, upd.Message)
	case upd.Message != nil && upd.Message.IsCommand():
		b.handleCommand(ctx, upd.Message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.sendWelcome(ctx, msg.Chat.ID)
	case "premium":
		b.sendPlanMenu(ctx, msg.Chat.ID)
	case "status":
		b.sendStatus(ctx, msg)
	default:
		b.reply(ctx, msg.Chat.ID, "Unknown command. Try /start, /premium or /status.")
	}
}

func (b *Bot) sendWelcome(ctx context.Context, chatID int64) {
	text := "Welcome to LuvHive! 💜\n\nOpen the app to set up your profile and start matching."
	m := tgbotapi.NewMessage(chatID, text)
	if b.webAppURL != "" {
		m.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("Open LuvHive", b.webAppURL),
			),
		)
	}
	if _, err := b.api.Send(m); err != nil {
		b.logger.Error(ctx, "send welcome failed", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) sendPlanMenu(ctx context.Context, chatID int64) {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(b.plans))
	for _, plan := range b.plans {
		label := fmt.Sprintf("%s — %d ⭐", plan.Label, plan.AmountXTR)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, buyCallbackPrefix+plan.Token),
		))
	}

	m := tgbotapi.NewMessage(chatID, "Choose a premium plan:")
	m.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(m); err != nil {
		b.logger.Error(ctx, "send plan menu failed", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) sendStatus(ctx context.Context, msg *tgbotapi.Message) {
	account, _, err := b.identity.EnsureTelegramAccount(ctx, msg.From.ID,
		strings.TrimSpace(msg.From.FirstName+" "+msg.From.LastName), msg.From.UserName, "")
	if err != nil {
		b.logger.Error(ctx, "status lookup failed", "telegram_id", msg.From.ID, "error", err)
		b.reply(ctx, msg.Chat.ID, "Could not load your account right now, please try again later.")
		return
	}

	if account.IsPremium && account.PremiumUntil != nil {
		b.reply(ctx, msg.Chat.ID,
			fmt.Sprintf("You are premium until %s. ✨", account.PremiumUntil.Format("2 Jan 2006")))
		return
	}
	b.reply(ctx, msg.Chat.ID, "You are on the free plan. Use /premium to upgrade.")
}

// handleCallback turns a plan button press into a Stars invoice.
func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		b.logger.Warn(ctx, "callback ack failed", "error", err)
	}

	token, ok := strings.CutPrefix(q.Data, buyCallbackPrefix)
	if !ok || q.Message == nil {
		return
	}

	plan := findPlan(b.plans, token)
	if plan == nil {
		b.logger.Warn(ctx, "callback for unknown plan", "token", token)
		return
	}

	b.sendInvoice(ctx, q.Message.Chat.ID, plan)
}

func (b *Bot) sendInvoice(ctx context.Context, chatID int64, plan *config.PremiumPlan) {
	invoice := tgbotapi.NewInvoice(chatID,
		"LuvHive Premium — "+plan.Label,
		fmt.Sprintf("Premium access for %d days.", plan.Days),
		"premium_"+plan.Token,
		"", // Stars payments carry no provider token
		"",
		"XTR",
		[]tgbotapi.LabeledPrice{{Label: plan.Label, Amount: int(plan.AmountXTR)}},
	)

	if _, err := b.api.Request(invoice); err != nil {
		b.logger.Error(ctx, "send invoice failed", "chat_id", chatID, "plan", plan.Token, "error", err)
	}
}

// handlePreCheckout approves the pre-checkout query. Rejecting here would
// cancel the payment; validation of the product happens after the charge,
// where an unknown payload still credits a default duration.
func (b *Bot) handlePreCheckout(ctx context.Context, q *tgbotapi.PreCheckoutQuery) {
	answer := tgbotapi.PreCheckoutConfig{PreCheckoutQueryID: q.ID, OK: true}
	if _, err := b.api.Request(answer); err != nil {
		b.logger.Error(ctx, "pre-checkout answer failed", "query_id", q.ID, "error", err)
	}
}

func (b *Bot) handleSuccessfulPayment(ctx context.Context, msg *tgbotapi.Message) {
	payment := msg.SuccessfulPayment

	account, _, err := b.identity.EnsureTelegramAccount(ctx, msg.From.ID,
		strings.TrimSpace(msg.From.FirstName+" "+msg.From.LastName), msg.From.UserName, "")
	if err != nil {
		// the charge is recorded on Telegram's side; the retry comes via the
		// next delivery of this update
		b.logger.Error(ctx, "account resolution for payment failed",
			"telegram_id", msg.From.ID, "charge_id", payment.TelegramPaymentChargeID, "error", err)
		return
	}

	result, err := b.premium.Activate(ctx, services.Activation{
		UserID:     account.ID,
		ExternalID: msg.From.ID,
		ChargeID:   payment.TelegramPaymentChargeID,
		Amount:     int64(payment.TotalAmount),
		Currency:   payment.Currency,
		Payload:    payment.InvoicePayload,
	})
	if err != nil {
		b.logger.Error(ctx, "premium activation failed",
			"charge_id", payment.TelegramPaymentChargeID, "error", err)
		b.reply(ctx, msg.Chat.ID,
			"Payment received, activation is pending. Support has been notified if it does not apply shortly.")
		return
	}

	if !result.Activated {
		b.logger.Info(ctx, "replayed payment notification ignored",
			"charge_id", payment.TelegramPaymentChargeID)
	}

	b.reply(ctx, msg.Chat.ID,
		fmt.Sprintf("Thank you! Premium is active until %s. ✨", result.ExpiresAt.Format("2 Jan 2006")))
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error(ctx, "send message failed", "chat_id", chatID, "error", err)
	}
}

func findPlan(plans []config.PremiumPlan, token string) *config.PremiumPlan {
	for i := range plans {
		if plans[i].Token == token {
			return &plans[i]
		}
	}
	return nil
}
