package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain/entity"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/value"
	"github.com/Unagi-Games/evm-whitelabel/internal/metrics"
	"github.com/Unagi-Games/evm-whitelabel/pkg/contextx"
	"github.com/Unagi-Games/evm-whitelabel/pkg/logx"

	"github.com/patrickmn/go-cache"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type SaleRepository interface {
	List(ctx context.Context, limit, offset int) ([]entity.Sale, error)
}

type NFTLedger interface {
	OwnerOf(ctx context.Context, tokenID value.TokenID) (value.Address, error)
	GetApproved(ctx context.Context, tokenID value.TokenID) (value.Address, error)
	IsApprovedForAll(ctx context.Context, owner, operator value.Address) (bool, error)
}

type alerter interface {
	SendStaleSaleAlert(ctx context.Context, tokenID value.TokenID, seller value.Address) error
}

// StaleSaleSweeper periodically walks the stored sale records and reports the
// ones whose transfer approval has been revoked. Stale records are never
// purged; the marketplace deliberately leaves them dangling and reads them as
// inactive. The sweeper only measures and alerts.
type StaleSaleSweeper struct {
	sales    SaleRepository
	nft      NFTLedger
	alerter  alerter
	operator value.Address

	interval time.Duration
	pageSize int
	alerted  *cache.Cache
}

func NewStaleSaleSweeper(sales SaleRepository, nft NFTLedger, alerter alerter, operator value.Address) *StaleSaleSweeper {
	return &StaleSaleSweeper{
		sales:    sales,
		nft:      nft,
		alerter:  alerter,
		operator: operator,
		interval: 5 * time.Minute,
		pageSize: 100,
		alerted:  cache.New(24*time.Hour, time.Hour),
	}
}

func (w *StaleSaleSweeper) WithInterval(interval time.Duration) *StaleSaleSweeper {
	w.interval = interval
	return w
}

func (w *StaleSaleSweeper) WithPageSize(size int) *StaleSaleSweeper {
	w.pageSize = size
	return w
}

func (w *StaleSaleSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err() //nolint:wrapcheck
		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger(ctx).Error("sweep failed", logx.Error(err))
			}
		}
	}
}

// Sweep walks every stored sale record once and refreshes the stale gauge.
func (w *StaleSaleSweeper) Sweep(ctx context.Context) error {
	var stale int

	for offset := 0; ; offset += w.pageSize {
		sales, err := w.sales.List(ctx, w.pageSize, offset)
		if err != nil {
			return fmt.Errorf("sales.List: %w", err)
		}
		if len(sales) == 0 {
			break
		}

		for i := range sales {
			isStale, err := w.checkSale(ctx, &sales[i])
			if err != nil {
				logger(ctx).Error("check sale",
					slog.String("token-id", sales[i].TokenID.String()),
					logx.Error(err),
				)
				continue
			}
			if isStale {
				stale++
			}
		}

		if len(sales) < w.pageSize {
			break
		}
	}

	metrics.StaleSales.Set(float64(stale))
	logger(ctx).Info("sweep complete", slog.Int("stale", stale))

	return nil
}

func (w *StaleSaleSweeper) checkSale(ctx context.Context, sale *entity.Sale) (bool, error) {
	owner, err := w.nft.OwnerOf(ctx, sale.TokenID)
	if err != nil {
		return false, fmt.Errorf("nft.OwnerOf: %w", err)
	}

	approved, err := w.nft.GetApproved(ctx, sale.TokenID)
	if err != nil {
		return false, fmt.Errorf("nft.GetApproved: %w", err)
	}
	if approved == w.operator {
		return false, nil
	}

	all, err := w.nft.IsApprovedForAll(ctx, owner, w.operator)
	if err != nil {
		return false, fmt.Errorf("nft.IsApprovedForAll: %w", err)
	}
	if all {
		return false, nil
	}

	w.alert(ctx, sale)

	return true, nil
}

// alert notifies once per token per cache window, so a long-stale record does
// not spam the channel on every sweep.
func (w *StaleSaleSweeper) alert(ctx context.Context, sale *entity.Sale) {
	key := sale.TokenID.String()
	if _, seen := w.alerted.Get(key); seen {
		return
	}

	if err := w.alerter.SendStaleSaleAlert(ctx, sale.TokenID, sale.Seller); err != nil {
		logger(ctx).Error("stale sale alert",
			slog.String("token-id", key),
			logx.Error(err),
		)
		return
	}

	w.alerted.SetDefault(key, struct{}{})
}
