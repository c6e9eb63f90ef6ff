package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/classmarket/wallet/internal/models"
)

// Storage bundles all repositories over one database handle.
// InTx runs fn against a Storage bound to a single transaction: every
// repository call inside fn commits or rolls back together.
type Storage interface {
	Wallet() WalletRepo
	Transaction() TransactionRepo
	PayoutMethod() PayoutMethodRepo
	PayoutRequest() PayoutRequestRepo
	Legacy() LegacyRepo

	InTx(ctx context.Context, fn func(Storage) error) error
}

// Wallet repository interface
type WalletRepo interface {
	// Create zero-initialized wallet for user
	// If the wallet exists already has to return apperrors.ErrWalletExists
	Create(ctx context.Context, userID uuid.UUID, currency string) (models.Wallet, error)

	// Get wallet by owning user or by wallet id
	// forUpdate locks the row for the rest of the surrounding transaction
	// If wallet not found must return apperrors.ErrWalletNotFound
	GetByUserID(ctx context.Context, userID uuid.UUID, forUpdate bool) (models.Wallet, error)
	GetByID(ctx context.Context, walletID uuid.UUID, forUpdate bool) (models.Wallet, error)

	// Apply balance deltas atomically at the database level.
	// A delta that would drive a balance negative must return
	// apperrors.ErrBalanceInsufficient
	ApplyDelta(ctx context.Context, walletID uuid.UUID, available decimal.Decimal, pending decimal.Decimal) (models.Wallet, error)
}

type TransactionFilter struct {
	Type   string
	Source string
	Limit  int
	Offset int
}

// Transaction repository interface. The log is append-only: there are
// no update or delete methods on purpose.
type TransactionRepo interface {
	Create(ctx context.Context, tr models.Transaction) (models.Transaction, error)

	// List wallet transactions reverse-chronologically
	List(ctx context.Context, walletID uuid.UUID, filter TransactionFilter) ([]models.Transaction, error)

	// Sum all credit and debit amounts for the wallet
	SumByType(ctx context.Context, walletID uuid.UUID) (credit decimal.Decimal, debit decimal.Decimal, err error)

	// Report whether a backfill transaction with this provenance marker
	// already exists for the wallet
	HasBackfillMarker(ctx context.Context, walletID uuid.UUID, marker string) (bool, error)
}

// PayoutMethod repository interface
type PayoutMethodRepo interface {
	Create(ctx context.Context, m models.PayoutMethod) (models.PayoutMethod, error)

	// If method not found must return apperrors.ErrPayoutMethodNotFound
	GetByID(ctx context.Context, id uuid.UUID) (models.PayoutMethod, error)

	ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]models.PayoutMethod, error)

	// Update label, type and details of the method
	Update(ctx context.Context, m models.PayoutMethod) (models.PayoutMethod, error)

	// Make the method the user's single default; clears the flag on others
	SetDefault(ctx context.Context, userID uuid.UUID, methodID uuid.UUID) error

	// Soft delete: historical payout requests keep referencing the row
	Deactivate(ctx context.Context, id uuid.UUID) error

	SetVerified(ctx context.Context, id uuid.UUID, verified bool) (models.PayoutMethod, error)
}

// PayoutRequest repository interface
type PayoutRequestRepo interface {
	Create(ctx context.Context, pr models.PayoutRequest) (models.PayoutRequest, error)

	// If request not found must return apperrors.ErrPayoutRequestNotFound
	GetByID(ctx context.Context, id uuid.UUID, forUpdate bool) (models.PayoutRequest, error)

	ListByWallet(ctx context.Context, walletID uuid.UUID) ([]models.PayoutRequest, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]models.PayoutRequest, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status string, externalRef string, resolvedAt *time.Time) (models.PayoutRequest, error)

	// Sum amounts of requests still in requested or processing state
	SumOpenAmounts(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error)
}

// LegacyRepo reads the marketplace's authoritative tables consumed by
// the reconciliation jobs.
type LegacyRepo interface {
	// Per-teacher totals over completed legacy payments
	CompletedEarningsByTeacher(ctx context.Context) ([]models.TeacherEarnings, error)

	ListTeacherIDs(ctx context.Context) ([]uuid.UUID, error)

	// Recompute the true unique-student count from enrollments
	CountDistinctStudents(ctx context.Context, teacherID uuid.UUID) (int, error)

	// Overwrite the cached counter
	// If teacher not found must return apperrors.ErrTeacherNotFound
	SetTotalStudents(ctx context.Context, teacherID uuid.UUID, total int) error

	GetTotalStudents(ctx context.Context, teacherID uuid.UUID) (int, error)
}
