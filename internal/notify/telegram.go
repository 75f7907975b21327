package notify

import (
	"context"
	"fmt"

	"titan/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramSender is the part of *tgbotapi.BotAPI the notifier needs.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier pings the owner's chat about new bookings.
type TelegramNotifier struct {
	bot    TelegramSender
	chatID int64
	logger *zerolog.Logger
}

// NewTelegramBot connects to the Bot API. An empty token disables it.
func NewTelegramBot(token string, debug bool) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	bot.Debug = debug
	return bot, nil
}

func NewTelegramNotifier(bot TelegramSender, chatID int64, logger *zerolog.Logger) *TelegramNotifier {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &TelegramNotifier{bot: bot, chatID: chatID, logger: logger}
}

func (n *TelegramNotifier) NotifyBookingCreated(ctx context.Context, b models.Booking) error {
	if n.bot == nil || n.chatID == 0 {
		n.logger.Debug().Str("booking_id", b.ID).Msg("telegram notification skipped (bot disabled)")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrNotification, err)
	}

	owner := OwnerMessage(b)
	msg := tgbotapi.NewMessage(n.chatID, owner.Subject+"\n\n"+owner.Body)

	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("%w: telegram: %w", ErrNotification, err)
	}
	return nil
}
