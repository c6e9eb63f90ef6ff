package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/classmarket/wallet/internal/apperrors"
	"github.com/classmarket/wallet/internal/models"
)

type PayoutRequestRepo struct {
	db DBTX
}

const createPayoutRequest = `-- name: CreatePayoutRequest
INSERT INTO payout_requests (wallet_id, method_id, amount, note)
VALUES ($1, $2, $3, $4)
RETURNING id, wallet_id, method_id, amount, note, status, external_ref, requested_at, resolved_at
`

func (r *PayoutRequestRepo) Create(ctx context.Context, pr models.PayoutRequest) (models.PayoutRequest, error) {
	rows, _ := r.db.Query(ctx, createPayoutRequest, pr.WalletID, pr.MethodID, pr.Amount, pr.Note)
	created, err := pgx.CollectOneRow(rows, rowToPayoutRequest)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return created, apperrors.ErrWalletNotFound
		}
		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const getPayoutRequestByID = `-- name: GetPayoutRequestByID
SELECT id, wallet_id, method_id, amount, note, status, external_ref, requested_at, resolved_at
FROM payout_requests
WHERE id = $1
`

func (r *PayoutRequestRepo) GetByID(ctx context.Context, id uuid.UUID, forUpdate bool) (models.PayoutRequest, error) {
	query := getPayoutRequestByID
	if forUpdate {
		query += "FOR UPDATE\n"
	}

	rows, _ := r.db.Query(ctx, query, id)
	request, err := pgx.CollectOneRow(rows, rowToPayoutRequest)

	switch {
	case err == nil:
		return request, nil
	case errors.Is(err, pgx.ErrNoRows):
		return request, apperrors.ErrPayoutRequestNotFound
	default:
		return request, fmt.Errorf("db error: %w", err)
	}
}

const listPayoutRequestsByWallet = `-- name: ListPayoutRequestsByWallet
SELECT id, wallet_id, method_id, amount, note, status, external_ref, requested_at, resolved_at
FROM payout_requests
WHERE wallet_id = $1
ORDER BY requested_at DESC, id DESC
`

func (r *PayoutRequestRepo) ListByWallet(ctx context.Context, walletID uuid.UUID) ([]models.PayoutRequest, error) {
	rows, _ := r.db.Query(ctx, listPayoutRequestsByWallet, walletID)
	requests, err := pgx.CollectRows(rows, rowToPayoutRequest)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return requests, nil
}

const listPayoutRequestsByStatus = `-- name: ListPayoutRequestsByStatus
SELECT id, wallet_id, method_id, amount, note, status, external_ref, requested_at, resolved_at
FROM payout_requests
WHERE status = $1
ORDER BY requested_at
LIMIT $2
`

func (r *PayoutRequestRepo) ListByStatus(ctx context.Context, status string, limit int) ([]models.PayoutRequest, error) {
	if limit <= 0 {
		limit = defaultTransactionPageSize
	}

	rows, _ := r.db.Query(ctx, listPayoutRequestsByStatus, status, limit)
	requests, err := pgx.CollectRows(rows, rowToPayoutRequest)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return requests, nil
}

const updatePayoutRequestStatus = `-- name: UpdatePayoutRequestStatus
UPDATE payout_requests
SET status = $2, external_ref = $3, resolved_at = $4
WHERE id = $1
RETURNING id, wallet_id, method_id, amount, note, status, external_ref, requested_at, resolved_at
`

func (r *PayoutRequestRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string, externalRef string, resolvedAt *time.Time) (models.PayoutRequest, error) {
	rows, _ := r.db.Query(ctx, updatePayoutRequestStatus, id, status, externalRef, resolvedAt)
	request, err := pgx.CollectOneRow(rows, rowToPayoutRequest)

	switch {
	case err == nil:
		return request, nil
	case errors.Is(err, pgx.ErrNoRows):
		return request, apperrors.ErrPayoutRequestNotFound
	default:
		return request, fmt.Errorf("db error: %w", err)
	}
}

const sumOpenPayoutAmounts = `-- name: SumOpenPayoutAmounts
SELECT COALESCE(SUM(amount), 0) FROM payout_requests
WHERE wallet_id = $1 AND status IN ('requested', 'processing')
`

func (r *PayoutRequestRepo) SumOpenAmounts(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.QueryRow(ctx, sumOpenPayoutAmounts, walletID).Scan(&sum)
	if err != nil {
		return sum, fmt.Errorf("db error: %w", err)
	}

	return sum, nil
}

func rowToPayoutRequest(row pgx.CollectableRow) (models.PayoutRequest, error) {
	var pr models.PayoutRequest
	err := row.Scan(&pr.ID, &pr.WalletID, &pr.MethodID, &pr.Amount, &pr.Note, &pr.Status, &pr.ExternalRef, &pr.RequestedAt, &pr.ResolvedAt)
	return pr, err
}
