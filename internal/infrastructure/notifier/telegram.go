package notifier

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain/value"
)

// TelegramBot pushes settlement notifications into the operations chat.
type TelegramBot struct {
	bot    *telego.Bot
	chatID int64
}

func NewTelegramBot(token string, chatID int64) (*TelegramBot, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	return &TelegramBot{
		bot:    bot,
		chatID: chatID,
	}, nil
}

// SendText sends a plain text message.
func (b *TelegramBot) SendText(ctx context.Context, text string) error {
	msg := tu.Message(tu.ID(b.chatID), text)

	_, err := b.bot.SendMessage(ctx, msg)
	return err
}

// SendStaleSaleAlert reports a sale record whose transfer approval has been
// revoked. The record is left in place; this is information, not cleanup.
func (b *TelegramBot) SendStaleSaleAlert(ctx context.Context, tokenID value.TokenID, seller value.Address) error {
	text := fmt.Sprintf(
		"⚠️ <b>Stale sale</b>\n\n"+
			"🖼 <b>Token:</b> %s\n"+
			"👤 <b>Seller:</b> %s\n\n"+
			"Transfer approval revoked; the sale reads as inactive.",
		tokenID,
		seller,
	)

	msg := tu.Message(
		tu.ID(b.chatID),
		text,
	).WithParseMode(telego.ModeHTML)

	if _, err := b.bot.SendMessage(ctx, msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	return nil
}
