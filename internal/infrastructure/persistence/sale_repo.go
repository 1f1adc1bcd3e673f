package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/entity"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/value"
	"github.com/Unagi-Games/evm-whitelabel/pkg/errcodes"

	"github.com/jmoiron/sqlx"
)

type SaleRepository struct {
	db *sqlx.DB
}

func NewSaleRepository(db *sqlx.DB) *SaleRepository {
	return &SaleRepository{db: db}
}

func (r *SaleRepository) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	return transact(ctx, r.db, fn)
}

func (r *SaleRepository) Get(ctx context.Context, tokenID value.TokenID) (*entity.Sale, error) {
	query := `
		SELECT token_id, seller, price, reserved_buyer, created_at, updated_at
		FROM sales
		WHERE token_id = $1`

	var schema saleSchema
	if err := queryable(ctx, r.db).GetContext(ctx, &schema, query, tokenID.Int64()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(errcodes.KindNotFound, errcodes.SaleNotFound, "sale not found")
		}
		return nil, domain.WrapError(err, errcodes.KindInternal, errcodes.InternalServerError, "failed to get sale")
	}

	return schema.toDomain(), nil
}

// Put inserts or overwrites the sale record for its token id. At most one
// record per token id can exist.
func (r *SaleRepository) Put(ctx context.Context, sale *entity.Sale) error {
	now := time.Now()
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = now
	}
	sale.UpdatedAt = now

	query := `
		INSERT INTO sales (token_id, seller, price, reserved_buyer, created_at, updated_at)
		VALUES (:token_id, :seller, :price, :reserved_buyer, :created_at, :updated_at)
		ON CONFLICT (token_id) DO UPDATE
		SET seller = :seller, price = :price, reserved_buyer = :reserved_buyer, updated_at = :updated_at`

	params := map[string]any{
		"token_id":       sale.TokenID.Int64(),
		"seller":         sale.Seller.String(),
		"price":          sale.Price,
		"reserved_buyer": sale.ReservedBuyer.String(),
		"created_at":     sale.CreatedAt,
		"updated_at":     sale.UpdatedAt,
	}

	if _, err := queryable(ctx, r.db).NamedExecContext(ctx, query, params); err != nil {
		return domain.WrapError(err, errcodes.KindInternal, errcodes.InternalServerError, "failed to put sale")
	}

	return nil
}

func (r *SaleRepository) Delete(ctx context.Context, tokenID value.TokenID) error {
	query := `DELETE FROM sales WHERE token_id = $1`

	res, err := queryable(ctx, r.db).ExecContext(ctx, query, tokenID.Int64())
	if err != nil {
		return domain.WrapError(err, errcodes.KindInternal, errcodes.InternalServerError, "failed to delete sale")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return domain.WrapError(err, errcodes.KindInternal, errcodes.InternalServerError, "failed to check affected rows")
	}

	if rows == 0 {
		return domain.NewError(errcodes.KindNotFound, errcodes.SaleNotFound, "sale not found")
	}

	return nil
}

// List pages through stored sale records, oldest first. Records with revoked
// approvals are included; filtering them is the caller's concern.
func (r *SaleRepository) List(ctx context.Context, limit, offset int) ([]entity.Sale, error) {
	query := `
		SELECT token_id, seller, price, reserved_buyer, created_at, updated_at
		FROM sales
		ORDER BY created_at, token_id
		LIMIT $1 OFFSET $2`

	var schemas []saleSchema
	if err := queryable(ctx, r.db).SelectContext(ctx, &schemas, query, limit, offset); err != nil {
		return nil, domain.WrapError(err, errcodes.KindInternal, errcodes.InternalServerError, "failed to list sales")
	}

	sales := make([]entity.Sale, 0, len(schemas))
	for _, s := range schemas {
		sales = append(sales, *s.toDomain())
	}

	return sales, nil
}
