package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/magabrotheeeer/llm-service/internal/lib/sl"
	"github.com/magabrotheeeer/llm-service/internal/models"
	dispatcherservice "github.com/magabrotheeeer/llm-service/internal/services/dispatcher"
)

const welcomeText = `Welcome! You've been registered with 20 coins.

Commands:
/subscribe - buy a subscription
/balance - show wallet and subscription status
/topup <amount> - add coins to your wallet

Just send me any text and I'll answer it (active subscription required).`

func (h *Handler) handleStart(chatID int64) {
	h.reply(chatID, welcomeText)
}

func (h *Handler) handleSubscribe(ctx context.Context, chatID int64, user *models.User) {
	result, err := h.ledger.Subscribe(ctx, user.UID)
	if err != nil {
		var insufficient *models.InsufficientFundsError
		switch {
		case errors.As(err, &insufficient):
			h.reply(chatID, fmt.Sprintf("Insufficient funds: the subscription costs %d coins, you have %d. Use /topup to add coins.",
				insufficient.Required, insufficient.Available))
		case errors.Is(err, models.ErrActiveSubscriptionExists):
			h.reply(chatID, "You already have an active subscription.")
		default:
			h.log.Error("failed to subscribe", sl.Err(err))
			h.reply(chatID, "Sorry, could not complete the purchase. Please try again later.")
		}
		return
	}
	h.reply(chatID, fmt.Sprintf("Subscription activated until %s. Charged %d coins, balance: %d.",
		result.EndDate.Format("2006-01-02"), result.Cost, result.NewBalance))
}

func (h *Handler) handleBalance(ctx context.Context, chatID int64, user *models.User) {
	// баланс перечитываем: user мог быть создан до предыдущих операций
	fresh, err := h.users.GetUser(ctx, user.UID)
	if err != nil {
		h.log.Error("failed to read user", sl.Err(err))
		h.reply(chatID, "Sorry, could not read your balance. Please try again later.")
		return
	}
	active, err := h.ledger.HasActiveSubscription(ctx, user.UID)
	if err != nil {
		h.log.Error("failed to check subscription", sl.Err(err))
		h.reply(chatID, "Sorry, could not read your balance. Please try again later.")
		return
	}
	status := "no active subscription"
	if active {
		status = "subscription active"
	}
	h.reply(chatID, fmt.Sprintf("Wallet: %d coins, %s.", fresh.Wallet, status))
}

func (h *Handler) handleTopup(ctx context.Context, chatID int64, user *models.User, text string) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		h.reply(chatID, "Usage: /topup <amount>")
		return
	}
	amount, err := strconv.Atoi(fields[1])
	if err != nil || amount <= 0 {
		h.reply(chatID, "Amount must be a positive number, e.g. /topup 100")
		return
	}

	newBalance, err := h.ledger.Topup(ctx, user.UID, amount)
	if err != nil {
		h.log.Error("failed to top up wallet", sl.Err(err))
		h.reply(chatID, "Sorry, could not top up your wallet. Please try again later.")
		return
	}
	h.reply(chatID, fmt.Sprintf("Added %d coins. Balance: %d.", amount, newBalance))
}

// handlePrompt отправляет prompt в диспетчер и показывает пользователю
// заглушку на время ожидания. Ответ приходит правкой того же сообщения.
func (h *Handler) handlePrompt(ctx context.Context, chatID int64, user *models.User, text string) {
	placeholder, err := h.api.Send(tgbotapi.NewMessage(chatID, dispatcherservice.StillProcessingText))
	if err != nil {
		h.log.Error("failed to send placeholder", sl.Err(err))
		return
	}

	result, err := h.dispatcher.Ask(ctx, user.UID, text)
	if err != nil {
		answer := "Sorry, I encountered an error processing your request."
		if errors.Is(err, models.ErrNoActiveSubscription) {
			answer = "You need an active subscription to ask questions. Use /subscribe to get one."
		} else {
			h.log.Error("failed to dispatch prompt", sl.Err(err))
		}
		h.edit(chatID, placeholder.MessageID, answer)
		return
	}
	if result.Pending {
		// дедлайн истёк, заглушка и так уже видна пользователю
		return
	}
	h.edit(chatID, placeholder.MessageID, result.Answer)
}

func (h *Handler) edit(chatID int64, messageID int, text string) {
	if _, err := h.api.Send(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		h.log.Error("failed to edit message", sl.Err(err))
	}
}
