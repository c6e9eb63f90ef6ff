package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/classmarket/wallet/internal/apperrors"
	"github.com/classmarket/wallet/internal/models"
)

type WalletRepo struct {
	db DBTX
}

const createWallet = `-- name: CreateWallet
INSERT INTO wallets (user_id, currency)
VALUES ($1, $2)
ON CONFLICT (user_id) DO NOTHING
RETURNING id, user_id, available, pending, currency, created_at, updated_at
`

// Create inserts a zero-initialized wallet. A conflict with an existing
// wallet returns ErrWalletExists without raising a database error, so
// the surrounding transaction stays usable and the caller may re-read
// the winner's row.
func (r *WalletRepo) Create(ctx context.Context, userID uuid.UUID, currency string) (models.Wallet, error) {
	rows, _ := r.db.Query(ctx, createWallet, userID, currency)
	wallet, err := pgx.CollectOneRow(rows, rowToWallet)

	switch {
	case err == nil:
		return wallet, nil
	case errors.Is(err, pgx.ErrNoRows):
		return wallet, apperrors.ErrWalletExists
	default:
		return wallet, fmt.Errorf("db error: %w", err)
	}
}

const getWalletByUserID = `-- name: GetWalletByUserID
SELECT id, user_id, available, pending, currency, created_at, updated_at FROM wallets
WHERE user_id = $1
`

func (r *WalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID, forUpdate bool) (models.Wallet, error) {
	return r.get(ctx, getWalletByUserID, userID, forUpdate)
}

const getWalletByID = `-- name: GetWalletByID
SELECT id, user_id, available, pending, currency, created_at, updated_at FROM wallets
WHERE id = $1
`

func (r *WalletRepo) GetByID(ctx context.Context, walletID uuid.UUID, forUpdate bool) (models.Wallet, error) {
	return r.get(ctx, getWalletByID, walletID, forUpdate)
}

func (r *WalletRepo) get(ctx context.Context, query string, id uuid.UUID, forUpdate bool) (models.Wallet, error) {
	if forUpdate {
		query += "FOR UPDATE\n"
	}

	rows, _ := r.db.Query(ctx, query, id)
	wallet, err := pgx.CollectOneRow(rows, rowToWallet)

	switch {
	case err == nil:
		return wallet, nil
	case errors.Is(err, pgx.ErrNoRows):
		return wallet, apperrors.ErrWalletNotFound
	default:
		return wallet, fmt.Errorf("db error: %w", err)
	}
}

const applyWalletDelta = `-- name: ApplyWalletDelta
UPDATE wallets
SET available = available + $2,
    pending = pending + $3,
    updated_at = now()
WHERE id = $1
RETURNING id, user_id, available, pending, currency, created_at, updated_at
`

// ApplyDelta shifts the cached balances. The CHECK constraints on the
// wallets table reject any delta that would drive a balance negative.
func (r *WalletRepo) ApplyDelta(ctx context.Context, walletID uuid.UUID, available decimal.Decimal, pending decimal.Decimal) (models.Wallet, error) {
	rows, _ := r.db.Query(ctx, applyWalletDelta, walletID, available, pending)
	wallet, err := pgx.CollectOneRow(rows, rowToWallet)

	switch {
	case err == nil:
		return wallet, nil
	case errors.Is(err, pgx.ErrNoRows):
		return wallet, apperrors.ErrWalletNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation {
		return wallet, apperrors.ErrBalanceInsufficient
	}

	return wallet, fmt.Errorf("db error: %w", err)
}

func rowToWallet(row pgx.CollectableRow) (models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.Available, &w.Pending, &w.Currency, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}
