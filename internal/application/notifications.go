package application

import (
	"context"
	"log/slog"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain/value"
)

type notifications interface {
	SendText(ctx context.Context, text string) error
	SendStaleSaleAlert(ctx context.Context, tokenID value.TokenID, seller value.Address) error
}

// logNotifier stands in when no bot is configured.
type logNotifier struct{}

func (logNotifier) SendText(ctx context.Context, text string) error {
	logger(ctx).Info("notification", slog.String("text", text))
	return nil
}

func (logNotifier) SendStaleSaleAlert(ctx context.Context, tokenID value.TokenID, seller value.Address) error {
	logger(ctx).Warn("stale sale",
		slog.String("token-id", tokenID.String()),
		slog.String("seller", seller.String()),
	)
	return nil
}
