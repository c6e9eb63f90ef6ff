package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/classmarket/wallet/internal/apperrors"
	"github.com/classmarket/wallet/internal/models"
)

type PayoutMethodRepo struct {
	db DBTX
}

const createPayoutMethod = `-- name: CreatePayoutMethod
INSERT INTO payout_methods (user_id, type, label, details, is_default)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_id, type, label, details, is_default, is_verified, is_active, created_at, updated_at
`

func (r *PayoutMethodRepo) Create(ctx context.Context, m models.PayoutMethod) (models.PayoutMethod, error) {
	details, err := json.Marshal(m.Details)
	if err != nil {
		return models.PayoutMethod{}, fmt.Errorf("can't encode method details: %w", err)
	}

	rows, _ := r.db.Query(ctx, createPayoutMethod, m.UserID, m.Type, m.Label, details, m.IsDefault)
	created, err := pgx.CollectOneRow(rows, rowToPayoutMethod)
	if err != nil {
		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const getPayoutMethodByID = `-- name: GetPayoutMethodByID
SELECT id, user_id, type, label, details, is_default, is_verified, is_active, created_at, updated_at
FROM payout_methods
WHERE id = $1
`

func (r *PayoutMethodRepo) GetByID(ctx context.Context, id uuid.UUID) (models.PayoutMethod, error) {
	rows, _ := r.db.Query(ctx, getPayoutMethodByID, id)
	method, err := pgx.CollectOneRow(rows, rowToPayoutMethod)

	switch {
	case err == nil:
		return method, nil
	case errors.Is(err, pgx.ErrNoRows):
		return method, apperrors.ErrPayoutMethodNotFound
	default:
		return method, fmt.Errorf("db error: %w", err)
	}
}

const listPayoutMethods = `-- name: ListPayoutMethods
SELECT id, user_id, type, label, details, is_default, is_verified, is_active, created_at, updated_at
FROM payout_methods
WHERE user_id = $1 AND (NOT $2::bool OR is_active)
ORDER BY is_default DESC, created_at
`

func (r *PayoutMethodRepo) ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]models.PayoutMethod, error) {
	rows, _ := r.db.Query(ctx, listPayoutMethods, userID, activeOnly)
	methods, err := pgx.CollectRows(rows, rowToPayoutMethod)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return methods, nil
}

const updatePayoutMethod = `-- name: UpdatePayoutMethod
UPDATE payout_methods
SET type = $2, label = $3, details = $4, updated_at = now()
WHERE id = $1 AND is_active
RETURNING id, user_id, type, label, details, is_default, is_verified, is_active, created_at, updated_at
`

func (r *PayoutMethodRepo) Update(ctx context.Context, m models.PayoutMethod) (models.PayoutMethod, error) {
	details, err := json.Marshal(m.Details)
	if err != nil {
		return models.PayoutMethod{}, fmt.Errorf("can't encode method details: %w", err)
	}

	rows, _ := r.db.Query(ctx, updatePayoutMethod, m.ID, m.Type, m.Label, details)
	updated, err := pgx.CollectOneRow(rows, rowToPayoutMethod)

	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, pgx.ErrNoRows):
		return updated, apperrors.ErrPayoutMethodNotFound
	default:
		return updated, fmt.Errorf("db error: %w", err)
	}
}

const clearDefaultPayoutMethod = `-- name: ClearDefaultPayoutMethod
UPDATE payout_methods
SET is_default = FALSE, updated_at = now()
WHERE user_id = $1 AND is_default AND id <> $2
`

const setDefaultPayoutMethod = `-- name: SetDefaultPayoutMethod
UPDATE payout_methods
SET is_default = TRUE, updated_at = now()
WHERE id = $1 AND user_id = $2 AND is_active
`

// SetDefault has to be called inside a transaction so the
// one-default-per-user index never observes two set flags
func (r *PayoutMethodRepo) SetDefault(ctx context.Context, userID uuid.UUID, methodID uuid.UUID) error {
	_, err := r.db.Exec(ctx, clearDefaultPayoutMethod, userID, methodID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	tag, err := r.db.Exec(ctx, setDefaultPayoutMethod, methodID, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrPayoutMethodNotFound
	}

	return nil
}

const deactivatePayoutMethod = `-- name: DeactivatePayoutMethod
UPDATE payout_methods
SET is_active = FALSE, is_default = FALSE, updated_at = now()
WHERE id = $1 AND is_active
`

func (r *PayoutMethodRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, deactivatePayoutMethod, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrPayoutMethodNotFound
	}

	return nil
}

const setPayoutMethodVerified = `-- name: SetPayoutMethodVerified
UPDATE payout_methods
SET is_verified = $2, updated_at = now()
WHERE id = $1
RETURNING id, user_id, type, label, details, is_default, is_verified, is_active, created_at, updated_at
`

func (r *PayoutMethodRepo) SetVerified(ctx context.Context, id uuid.UUID, verified bool) (models.PayoutMethod, error) {
	rows, _ := r.db.Query(ctx, setPayoutMethodVerified, id, verified)
	method, err := pgx.CollectOneRow(rows, rowToPayoutMethod)

	switch {
	case err == nil:
		return method, nil
	case errors.Is(err, pgx.ErrNoRows):
		return method, apperrors.ErrPayoutMethodNotFound
	default:
		return method, fmt.Errorf("db error: %w", err)
	}
}

func rowToPayoutMethod(row pgx.CollectableRow) (models.PayoutMethod, error) {
	var m models.PayoutMethod
	var details []byte

	err := row.Scan(&m.ID, &m.UserID, &m.Type, &m.Label, &details, &m.IsDefault, &m.IsVerified, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return m, err
	}

	err = json.Unmarshal(details, &m.Details)
	return m, err
}
