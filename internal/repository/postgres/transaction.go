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
	"github.com/classmarket/wallet/internal/repository"
)

const defaultTransactionPageSize = 50

type TransactionRepo struct {
	db DBTX
}

const createTransaction = `-- name: CreateTransaction
INSERT INTO wallet_transactions (wallet_id, type, source, amount, metadata)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, wallet_id, type, source, amount, metadata, created_at
`

func (r *TransactionRepo) Create(ctx context.Context, tr models.Transaction) (models.Transaction, error) {
	metadata, err := models.EncodeMetadata(tr.Metadata)
	if err != nil {
		return models.Transaction{}, err
	}

	rows, _ := r.db.Query(ctx, createTransaction, tr.WalletID, tr.Type, tr.Source, tr.Amount, metadata)
	created, err := pgx.CollectOneRow(rows, rowToTransaction)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return created, apperrors.ErrWalletNotFound
		}
		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const listTransactions = `-- name: ListTransactions
SELECT id, wallet_id, type, source, amount, metadata, created_at FROM wallet_transactions
WHERE wallet_id = $1
  AND ($2 = '' OR type = $2)
  AND ($3 = '' OR source = $3)
ORDER BY created_at DESC, id DESC
LIMIT $4 OFFSET $5
`

func (r *TransactionRepo) List(ctx context.Context, walletID uuid.UUID, filter repository.TransactionFilter) ([]models.Transaction, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultTransactionPageSize
	}

	rows, _ := r.db.Query(ctx, listTransactions, walletID, filter.Type, filter.Source, limit, filter.Offset)
	transactions, err := pgx.CollectRows(rows, rowToTransaction)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return transactions, nil
}

const sumTransactionsByType = `-- name: SumTransactionsByType
SELECT
    COALESCE(SUM(amount) FILTER (WHERE type = 'credit'), 0),
    COALESCE(SUM(amount) FILTER (WHERE type = 'debit'), 0)
FROM wallet_transactions
WHERE wallet_id = $1
`

func (r *TransactionRepo) SumByType(ctx context.Context, walletID uuid.UUID) (credit decimal.Decimal, debit decimal.Decimal, err error) {
	err = r.db.QueryRow(ctx, sumTransactionsByType, walletID).Scan(&credit, &debit)
	if err != nil {
		return credit, debit, fmt.Errorf("db error: %w", err)
	}

	return credit, debit, nil
}

const hasBackfillMarker = `-- name: HasBackfillMarker
SELECT EXISTS (
    SELECT 1 FROM wallet_transactions
    WHERE wallet_id = $1
      AND metadata ->> 'kind' = 'backfill'
      AND metadata -> 'data' ->> 'marker' = $2
)
`

func (r *TransactionRepo) HasBackfillMarker(ctx context.Context, walletID uuid.UUID, marker string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, hasBackfillMarker, walletID, marker).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return exists, nil
}

func rowToTransaction(row pgx.CollectableRow) (models.Transaction, error) {
	var tr models.Transaction
	var metadata []byte

	err := row.Scan(&tr.ID, &tr.WalletID, &tr.Type, &tr.Source, &tr.Amount, &metadata, &tr.CreatedAt)
	if err != nil {
		return tr, err
	}

	tr.Metadata, err = models.DecodeMetadata(metadata)
	return tr, err
}
