package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain/event"
	"github.com/Unagi-Games/evm-whitelabel/pkg/contextx"
	"github.com/Unagi-Games/evm-whitelabel/pkg/logx"

	"github.com/hibiken/asynq"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type notifier interface {
	SendText(ctx context.Context, text string) error
}

// Handler consumes settlement events off the queue and forwards a short
// summary to the operations channel.
type Handler struct {
	notifier notifier
}

func NewHandler(n notifier) *Handler {
	return &Handler{notifier: n}
}

func (h *Handler) HandleSettlementEvent(ctx context.Context, task *asynq.Task) error {
	var envelope eventEnvelope
	if err := json.Unmarshal(task.Payload(), &envelope); err != nil {
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	logger(ctx).Info("settlement event", slog.String("event", envelope.Name))

	text, err := summarize(envelope)
	if err != nil {
		return err
	}

	if err := h.notifier.SendText(ctx, text); err != nil {
		logger(ctx).Error("notifier.SendText", slog.String("event", envelope.Name), logx.Error(err))
		return fmt.Errorf("notifier.SendText: %w", err)
	}

	return nil
}

//nolint:cyclop
func summarize(envelope eventEnvelope) (string, error) {
	switch envelope.Name {
	case event.SaleCreated{}.EventName():
		var e event.SaleCreated
		if err := json.Unmarshal(envelope.Payload, &e); err != nil {
			return "", fmt.Errorf("json.Unmarshal %s: %w", envelope.Name, err)
		}
		return fmt.Sprintf("🟢 Sale created: token %s for %d by %s", e.TokenID, e.Price, e.Seller), nil

	case event.SaleUpdated{}.EventName():
		var e event.SaleUpdated
		if err := json.Unmarshal(envelope.Payload, &e); err != nil {
			return "", fmt.Errorf("json.Unmarshal %s: %w", envelope.Name, err)
		}
		return fmt.Sprintf("🔄 Sale updated: token %s now %d", e.TokenID, e.Price), nil

	case event.SaleAccepted{}.EventName():
		var e event.SaleAccepted
		if err := json.Unmarshal(envelope.Payload, &e); err != nil {
			return "", fmt.Errorf("json.Unmarshal %s: %w", envelope.Name, err)
		}
		return fmt.Sprintf("💰 Sale settled: token %s for %d, %s → %s", e.TokenID, e.Price, e.Seller, e.Buyer), nil

	case event.SaleDestroyed{}.EventName():
		var e event.SaleDestroyed
		if err := json.Unmarshal(envelope.Payload, &e); err != nil {
			return "", fmt.Errorf("json.Unmarshal %s: %w", envelope.Name, err)
		}
		return fmt.Sprintf("⚪ Sale destroyed: token %s by %s", e.TokenID, e.Seller), nil

	case event.FeesUpdated{}.EventName():
		var e event.FeesUpdated
		if err := json.Unmarshal(envelope.Payload, &e); err != nil {
			return "", fmt.Errorf("json.Unmarshal %s: %w", envelope.Name, err)
		}
		return fmt.Sprintf("⚙️ Fees updated: sell %d%%, buy %d%%, burn %d%%", e.SellPercent, e.BuyPercent, e.BurnPercent), nil

	case event.FeeReceiverUpdated{}.EventName():
		var e event.FeeReceiverUpdated
		if err := json.Unmarshal(envelope.Payload, &e); err != nil {
			return "", fmt.Errorf("json.Unmarshal %s: %w", envelope.Name, err)
		}
		return fmt.Sprintf("⚙️ Fee receiver updated: %s", e.Address), nil

	case event.EscrowReserved{}.EventName():
		var e event.EscrowReserved
		if err := json.Unmarshal(envelope.Payload, &e); err != nil {
			return "", fmt.Errorf("json.Unmarshal %s: %w", envelope.Name, err)
		}
		return fmt.Sprintf("🔒 Escrow reserved: %s from %s, %d NFTs + %d", e.CorrelationID, e.From, len(e.TokenIDs), e.Amount), nil

	case event.EscrowExecuted{}.EventName():
		var e event.EscrowExecuted
		if err := json.Unmarshal(envelope.Payload, &e); err != nil {
			return "", fmt.Errorf("json.Unmarshal %s: %w", envelope.Name, err)
		}
		return fmt.Sprintf("✅ Escrow executed: %s from %s", e.CorrelationID, e.From), nil

	case event.EscrowReverted{}.EventName():
		var e event.EscrowReverted
		if err := json.Unmarshal(envelope.Payload, &e); err != nil {
			return "", fmt.Errorf("json.Unmarshal %s: %w", envelope.Name, err)
		}
		return fmt.Sprintf("↩️ Escrow reverted: %s back to %s", e.CorrelationID, e.From), nil
	}

	return fmt.Sprintf("settlement event %s", envelope.Name), nil
}
