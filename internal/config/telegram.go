package config

type Telegram struct {
	// BotToken empty disables the notification channel entirely.
	BotToken string `env:"BOT_TOKEN" json:"-"`
	ChatID   int64  `env:"BOT_CHAT_ID"`
}
