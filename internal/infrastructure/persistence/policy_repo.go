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

// PolicyRepository stores the singleton fee policy row and the role grants.
// Role reads are never cached: a revocation must bite on the very next call.
type PolicyRepository struct {
	db *sqlx.DB
}

func NewPolicyRepository(db *sqlx.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

func (r *PolicyRepository) GetPolicy(ctx context.Context) (*entity.FeePolicy, error) {
	query := `
		SELECT sell_percent, buy_percent, burn_percent, receiver, paused, updated_at
		FROM fee_policy
		WHERE id = 1`

	var schema policySchema
	if err := queryable(ctx, r.db).GetContext(ctx, &schema, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(errcodes.KindNotFound, errcodes.NotFound, "fee policy not configured")
		}
		return nil, domain.WrapError(err, errcodes.KindInternal, errcodes.InternalServerError, "failed to get fee policy")
	}

	return schema.toDomain(), nil
}

func (r *PolicyRepository) UpdateFees(ctx context.Context, sellPercent, buyPercent, burnPercent int64) error {
	query := `
		UPDATE fee_policy
		SET sell_percent = $1, buy_percent = $2, burn_percent = $3, updated_at = $4
		WHERE id = 1`

	return r.execUpdate(ctx, query, sellPercent, buyPercent, burnPercent, time.Now())
}

func (r *PolicyRepository) UpdateReceiver(ctx context.Context, receiver value.Address) error {
	query := `
		UPDATE fee_policy
		SET receiver = $1, updated_at = $2
		WHERE id = 1`

	return r.execUpdate(ctx, query, receiver.String(), time.Now())
}

func (r *PolicyRepository) SetPaused(ctx context.Context, paused bool) error {
	query := `
		UPDATE fee_policy
		SET paused = $1, updated_at = $2
		WHERE id = 1`

	return r.execUpdate(ctx, query, paused, time.Now())
}

func (r *PolicyRepository) HasRole(ctx context.Context, role value.Role, addr value.Address) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM role_grants WHERE role = $1 AND address = $2)`

	var exists bool
	if err := queryable(ctx, r.db).GetContext(ctx, &exists, query, string(role), addr.String()); err != nil {
		return false, domain.WrapError(err, errcodes.KindInternal, errcodes.InternalServerError, "failed to check role")
	}

	return exists, nil
}

func (r *PolicyRepository) GrantRole(ctx context.Context, role value.Role, addr value.Address) error {
	query := `
		INSERT INTO role_grants (role, address, granted_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (role, address) DO NOTHING`

	if _, err := queryable(ctx, r.db).ExecContext(ctx, query, string(role), addr.String(), time.Now()); err != nil {
		return domain.WrapError(err, errcodes.KindInternal, errcodes.InternalServerError, "failed to grant role")
	}

	return nil
}

func (r *PolicyRepository) RevokeRole(ctx context.Context, role value.Role, addr value.Address) error {
	query := `DELETE FROM role_grants WHERE role = $1 AND address = $2`

	if _, err := queryable(ctx, r.db).ExecContext(ctx, query, string(role), addr.String()); err != nil {
		return domain.WrapError(err, errcodes.KindInternal, errcodes.InternalServerError, "failed to revoke role")
	}

	return nil
}

func (r *PolicyRepository) execUpdate(ctx context.Context, query string, args ...any) error {
	res, err := queryable(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return domain.WrapError(err, errcodes.KindInternal, errcodes.InternalServerError, "failed to execute update")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return domain.WrapError(err, errcodes.KindInternal, errcodes.InternalServerError, "failed to check affected rows")
	}

	if rows == 0 {
		return domain.NewError(errcodes.KindNotFound, errcodes.NotFound, "fee policy not configured")
	}

	return nil
}
