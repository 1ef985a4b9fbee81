// Package bot реализует телеграм-интерфейс сервиса: регистрацию по первому
// контакту, покупку подписки, пополнение кошелька и отправку prompt-ов
// в диспетчер. Каждый prompt обрабатывается в собственной горутине, чтобы
// ожидание ответа модели не блокировало других пользователей.
package bot

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/magabrotheeeer/llm-service/internal/lib/sl"
	"github.com/magabrotheeeer/llm-service/internal/models"
	dispatcherservice "github.com/magabrotheeeer/llm-service/internal/services/dispatcher"
	ledgerservice "github.com/magabrotheeeer/llm-service/internal/services/ledger"
)

// Users описывает операции хранилища, нужные боту.
type Users interface {
	GetOrCreateUser(ctx context.Context, telegramID string) (*models.User, error)
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// Handler обрабатывает обновления телеграм-бота.
type Handler struct {
	api        *tgbotapi.BotAPI
	log        *slog.Logger
	users      Users
	ledger     *ledgerservice.LedgerService
	dispatcher *dispatcherservice.DispatcherService
}

// NewHandler создает новый Handler с переданными зависимостями.
func NewHandler(api *tgbotapi.BotAPI, log *slog.Logger, users Users,
	ledger *ledgerservice.LedgerService, dispatcher *dispatcherservice.DispatcherService) *Handler {
	return &Handler{
		api:        api,
		log:        log,
		users:      users,
		ledger:     ledger,
		dispatcher: dispatcher,
	}
}

// HandleUpdate разбирает одно обновление. Пользователь создаётся при первом
// обращении с любой командой или сообщением.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	if !msg.Chat.IsPrivate() {
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	telegramID := strconv.FormatInt(msg.From.ID, 10)
	user, err := h.users.GetOrCreateUser(ctx, telegramID)
	if err != nil {
		h.log.Error("failed to get or create user", sl.Err(err))
		h.reply(msg.Chat.ID, "Sorry, the service is temporarily unavailable. Please try again later.")
		return
	}

	switch {
	case strings.HasPrefix(text, "/start"):
		h.handleStart(msg.Chat.ID)
	case strings.HasPrefix(text, "/subscribe"):
		h.handleSubscribe(ctx, msg.Chat.ID, user)
	case strings.HasPrefix(text, "/balance"):
		h.handleBalance(ctx, msg.Chat.ID, user)
	case strings.HasPrefix(text, "/topup"):
		h.handleTopup(ctx, msg.Chat.ID, user, text)
	default:
		// prompt к модели; ответа ждём в отдельной горутине
		go h.handlePrompt(ctx, msg.Chat.ID, user, text)
	}
}

func (h *Handler) reply(chatID int64, text string) {
	if _, err := h.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		h.log.Error("failed to send reply", sl.Err(err))
	}
}
