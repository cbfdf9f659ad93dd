package notify

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender sends one Telegram message. *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// RecipientStore resolves a user's Telegram chat.
type RecipientStore interface {
	// TelegramRecipient returns the linked chat id and whether the user
	// wants Telegram notifications. chatID is 0 when no chat is linked.
	TelegramRecipient(ctx context.Context, userID string) (chatID int64, enabled bool, err error)
}

// TelegramChannel delivers notices as Telegram messages.
type TelegramChannel struct {
	sender     Sender
	recipients RecipientStore
	loc        *time.Location
}

// NewTelegramChannel creates a Telegram channel. Timestamps are shown in loc,
// or UTC when loc is nil.
func NewTelegramChannel(sender Sender, recipients RecipientStore, loc *time.Location) *TelegramChannel {
	if loc == nil {
		loc = time.UTC
	}
	return &TelegramChannel{sender: sender, recipients: recipients, loc: loc}
}

// Name returns "telegram".
func (c *TelegramChannel) Name() string { return "telegram" }

// Deliver sends n to the user's linked chat. Users without a chat or with
// Telegram notifications off are skipped.
func (c *TelegramChannel) Deliver(ctx context.Context, userID string, n Notice) error {
	chatID, enabled, err := c.recipients.TelegramRecipient(ctx, userID)
	if err != nil {
		return fmt.Errorf("looking up telegram chat: %w", err)
	}
	if chatID == 0 || !enabled {
		return nil
	}

	text := formatNotice(n, c.loc)
	if text == "" {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return sendMarkdown(c.sender, chatID, text)
}

func sendMarkdown(s Sender, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := s.Send(msg); err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	return nil
}
