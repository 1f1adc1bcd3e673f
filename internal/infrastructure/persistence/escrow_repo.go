package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/entity"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/value"
	"github.com/Unagi-Games/evm-whitelabel/pkg/errcodes"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

const pgUniqueViolation = "23505"

type EscrowRepository struct {
	db *sqlx.DB
}

func NewEscrowRepository(db *sqlx.DB) *EscrowRepository {
	return &EscrowRepository{db: db}
}

func (r *EscrowRepository) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	return transact(ctx, r.db, fn)
}

func (r *EscrowRepository) Get(ctx context.Context, correlationID string, from value.Address) (*entity.EscrowRecord, error) {
	query := `
		SELECT correlation_id, from_address, token_ids, amount, state, created_at, updated_at
		FROM escrows
		WHERE correlation_id = $1 AND from_address = $2`

	var schema escrowSchema
	if err := queryable(ctx, r.db).GetContext(ctx, &schema, query, correlationID, from.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(errcodes.KindNotFound, errcodes.EscrowNotFound, "escrow not found")
		}
		return nil, domain.WrapError(err, errcodes.KindInternal, errcodes.InternalServerError, "failed to get escrow")
	}

	return schema.toDomain()
}

// Create inserts a new escrow record. A second record under the same
// (correlation id, from) pair, terminal or not, is a state conflict.
func (r *EscrowRepository) Create(ctx context.Context, record *entity.EscrowRecord) error {
	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now

	ids, err := json.Marshal(record.TokenIDs)
	if err != nil {
		return domain.WrapError(err, errcodes.KindInternal, errcodes.InternalServerError, "failed to marshal token ids")
	}

	query := `
		INSERT INTO escrows (correlation_id, from_address, token_ids, amount, state, created_at, updated_at)
		VALUES (:correlation_id, :from_address, :token_ids, :amount, :state, :created_at, :updated_at)`

	params := map[string]any{
		"correlation_id": record.CorrelationID,
		"from_address":   record.From.String(),
		"token_ids":      ids,
		"amount":         record.Amount,
		"state":          record.State.String(),
		"created_at":     record.CreatedAt,
		"updated_at":     record.UpdatedAt,
	}

	if _, err := queryable(ctx, r.db).NamedExecContext(ctx, query, params); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.NewStateConflictError("escrow already exists for the correlation id")
		}
		return domain.WrapError(err, errcodes.KindInternal, errcodes.InternalServerError, "failed to insert escrow")
	}

	return nil
}

// TransitionFromReserved flips the record into a terminal state. The WHERE
// clause pins the current state, so a record already released loses the race
// with a state conflict instead of a double release.
func (r *EscrowRepository) TransitionFromReserved(ctx context.Context, correlationID string, from value.Address, to entity.EscrowState) error {
	if !to.Terminal() {
		return domain.NewPreconditionError("target state must be terminal")
	}

	query := `
		UPDATE escrows
		SET state = $1, updated_at = $2
		WHERE correlation_id = $3 AND from_address = $4 AND state = $5`

	res, err := queryable(ctx, r.db).ExecContext(ctx, query,
		to.String(), time.Now(), correlationID, from.String(), entity.EscrowReserved.String())
	if err != nil {
		return domain.WrapError(err, errcodes.KindInternal, errcodes.InternalServerError, "failed to transition escrow")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return domain.WrapError(err, errcodes.KindInternal, errcodes.InternalServerError, "failed to check affected rows")
	}

	if rows == 0 {
		return domain.NewStateConflictError("escrow is not in the reserved state")
	}

	return nil
}

func (r *EscrowRepository) List(ctx context.Context, state entity.EscrowState, limit, offset int) ([]entity.EscrowRecord, error) {
	query := `
		SELECT correlation_id, from_address, token_ids, amount, state, created_at, updated_at
		FROM escrows
		WHERE state = $1
		ORDER BY created_at, correlation_id
		LIMIT $2 OFFSET $3`

	var schemas []escrowSchema
	if err := queryable(ctx, r.db).SelectContext(ctx, &schemas, query, state.String(), limit, offset); err != nil {
		return nil, domain.WrapError(err, errcodes.KindInternal, errcodes.InternalServerError, "failed to list escrows")
	}

	records := make([]entity.EscrowRecord, 0, len(schemas))
	for _, s := range schemas {
		record, err := s.toDomain()
		if err != nil {
			return nil, domain.WrapError(err, errcodes.KindInternal, errcodes.InternalServerError, "failed to convert escrow")
		}
		records = append(records, *record)
	}

	return records, nil
}
