package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/classmarket/wallet/internal/apperrors"
	"github.com/classmarket/wallet/internal/cache"
	"github.com/classmarket/wallet/internal/logger"
	"github.com/classmarket/wallet/internal/metrics"
	"github.com/classmarket/wallet/internal/models"
	"github.com/classmarket/wallet/internal/repository"
)

const (
	defaultCurrency   = "USD"
	defaultSummaryTTL = 30 * time.Second
)

type Config struct {
	// Currency for lazily created wallets. Defaults to USD
	Currency string

	// How long wallet summaries may be served from cache
	SummaryTTL time.Duration
}

// Service maintains the pairing between cached wallet balances and the
// append-only transaction log. Every balance mutation runs in a single
// database transaction with the wallet row locked, so concurrent
// operations on one wallet serialize and the ledger never drifts.
type Service struct {
	storage   repository.Storage
	currency  string
	summaries *cache.Cache[Summary]
	metrics   *metrics.Metrics
	logger    logger.Logger
}

func NewService(storage repository.Storage, c Config, m *metrics.Metrics, l logger.Logger) *Service {
	if c.Currency == "" {
		c.Currency = defaultCurrency
	}
	if c.SummaryTTL <= 0 {
		c.SummaryTTL = defaultSummaryTTL
	}
	if m == nil {
		m = metrics.New()
	}
	if l == nil {
		l = logger.NewNoOp()
	}

	return &Service{
		storage:   storage,
		currency:  c.Currency,
		summaries: cache.New[Summary](c.SummaryTTL),
		metrics:   m,
		logger:    l,
	}
}

// Summary is the teacher-facing view of a wallet
type Summary struct {
	Available decimal.Decimal
	Pending   decimal.Decimal
	Currency  string
}

// FindWallet returns the wallet owned by user, without creating one.
// Returns apperrors.ErrWalletNotFound if the user has no wallet yet.
func (s *Service) FindWallet(ctx context.Context, ownerID uuid.UUID) (models.Wallet, error) {
	return s.storage.Wallet().GetByUserID(ctx, ownerID, false)
}

// EnsureWallet returns the wallet owned by user, creating a
// zero-initialized one if absent. Safe to call concurrently: the loser
// of a creation race reads the winner's row.
func (s *Service) EnsureWallet(ctx context.Context, ownerID uuid.UUID) (models.Wallet, error) {
	wallet, err := s.storage.Wallet().GetByUserID(ctx, ownerID, false)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, apperrors.ErrWalletNotFound) {
		return wallet, err
	}

	wallet, err = s.storage.Wallet().Create(ctx, ownerID, s.currency)
	if errors.Is(err, apperrors.ErrWalletExists) {
		return s.storage.Wallet().GetByUserID(ctx, ownerID, false)
	}

	return wallet, err
}

// Credit increases the wallet's available balance and appends the
// paired credit transaction. The wallet is created lazily on first
// credit.
func (s *Service) Credit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, source string, metadata models.Metadata) (models.Transaction, error) {
	var created models.Transaction

	if !amount.IsPositive() {
		return created, apperrors.ErrInvalidAmount
	}

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		wallet, err := s.lockOrCreateWallet(ctx, storage, ownerID)
		if err != nil {
			return err
		}

		if _, err := storage.Wallet().ApplyDelta(ctx, wallet.ID, amount, decimal.Zero); err != nil {
			return err
		}

		created, err = storage.Transaction().Create(ctx, models.Transaction{
			WalletID: wallet.ID,
			Type:     models.TransactionTypeCredit,
			Source:   source,
			Amount:   amount,
			Metadata: metadata,
		})
		return err
	})
	if err != nil {
		return created, fmt.Errorf("can't credit wallet: %w", err)
	}

	s.summaries.Invalidate(ownerID.String())
	s.metrics.CreditsTotal.WithLabelValues(source).Inc()

	return created, nil
}

// RequestPayout moves amount from available to pending, records the
// payout request and appends the paired debit transaction, all in one
// database transaction.
func (s *Service) RequestPayout(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, methodID *uuid.UUID, note string) (models.PayoutRequest, error) {
	var created models.PayoutRequest

	if !amount.IsPositive() {
		return created, apperrors.ErrInvalidAmount
	}

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		wallet, err := storage.Wallet().GetByUserID(ctx, ownerID, true)
		if err != nil {
			return err
		}

		if methodID != nil {
			method, err := storage.PayoutMethod().GetByID(ctx, *methodID)
			if err != nil {
				return err
			}
			if method.UserID != ownerID {
				return apperrors.ErrPayoutMethodNotFound
			}
			if !method.IsActive {
				return apperrors.ErrPayoutMethodInactive
			}
		}

		// The wallet row is locked, so this check can't race with a
		// concurrent request. The CHECK constraint is the backstop.
		if wallet.Available.LessThan(amount) {
			return apperrors.ErrBalanceInsufficient
		}

		if _, err := storage.Wallet().ApplyDelta(ctx, wallet.ID, amount.Neg(), amount); err != nil {
			return err
		}

		created, err = storage.PayoutRequest().Create(ctx, models.PayoutRequest{
			WalletID: wallet.ID,
			MethodID: methodID,
			Amount:   amount,
			Note:     note,
		})
		if err != nil {
			return err
		}

		_, err = storage.Transaction().Create(ctx, models.Transaction{
			WalletID: wallet.ID,
			Type:     models.TransactionTypeDebit,
			Source:   models.SourcePayout,
			Amount:   amount,
			Metadata: models.PayoutMetadata{RequestID: created.ID, Note: note},
		})
		return err
	})
	if err != nil {
		return created, fmt.Errorf("can't request payout: %w", err)
	}

	s.summaries.Invalidate(ownerID.String())
	s.metrics.PayoutsTotal.Inc()

	return created, nil
}

// MarkProcessing acknowledges that an operator started working on the
// request. Only requested payouts may move to processing.
func (s *Service) MarkProcessing(ctx context.Context, requestID uuid.UUID) (models.PayoutRequest, error) {
	var updated models.PayoutRequest

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		request, err := storage.PayoutRequest().GetByID(ctx, requestID, true)
		if err != nil {
			return err
		}
		if request.Status != models.PayoutStatusRequested {
			return apperrors.ErrInvalidStateTransition
		}

		updated, err = storage.PayoutRequest().UpdateStatus(ctx, requestID, models.PayoutStatusProcessing, "", nil)
		return err
	})
	if err != nil {
		return updated, fmt.Errorf("can't mark payout processing: %w", err)
	}

	return updated, nil
}

// ResolvePayout finalizes a payout request.
//
// completed: the operator moved the money off-platform, so pending is
// drained and the external transfer reference recorded.
//
// rejected: funds return from pending to available and a compensating
// adjustment credit is appended, leaving the wallet as before the
// request.
func (s *Service) ResolvePayout(ctx context.Context, requestID uuid.UUID, outcome string, externalRef string) (models.PayoutRequest, error) {
	var resolved models.PayoutRequest

	if outcome != models.PayoutStatusCompleted && outcome != models.PayoutStatusRejected {
		return resolved, fmt.Errorf("unknown payout outcome %q: %w", outcome, apperrors.ErrInvalidStateTransition)
	}

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		request, err := storage.PayoutRequest().GetByID(ctx, requestID, true)
		if err != nil {
			return err
		}
		if !request.Resolvable() {
			return apperrors.ErrInvalidStateTransition
		}

		wallet, err := storage.Wallet().GetByID(ctx, request.WalletID, true)
		if err != nil {
			return err
		}

		switch outcome {
		case models.PayoutStatusCompleted:
			if _, err := storage.Wallet().ApplyDelta(ctx, wallet.ID, decimal.Zero, request.Amount.Neg()); err != nil {
				return err
			}

		case models.PayoutStatusRejected:
			if _, err := storage.Wallet().ApplyDelta(ctx, wallet.ID, request.Amount, request.Amount.Neg()); err != nil {
				return err
			}

			_, err = storage.Transaction().Create(ctx, models.Transaction{
				WalletID: wallet.ID,
				Type:     models.TransactionTypeCredit,
				Source:   models.SourceAdjustment,
				Amount:   request.Amount,
				Metadata: models.AdjustmentMetadata{RequestID: request.ID, Reason: "payout rejected"},
			})
			if err != nil {
				return err
			}
		}

		now := time.Now()
		resolved, err = storage.PayoutRequest().UpdateStatus(ctx, requestID, outcome, externalRef, &now)
		return err
	})
	if err != nil {
		return resolved, fmt.Errorf("can't resolve payout: %w", err)
	}

	s.invalidateByWallet(ctx, resolved.WalletID)
	s.metrics.ResolvedTotal.WithLabelValues(outcome).Inc()

	return resolved, nil
}

// GetSummary returns available balance, pending payout and currency.
// Users without a wallet yet see zero balances. Served from a short
// TTL cache that mutations invalidate.
func (s *Service) GetSummary(ctx context.Context, ownerID uuid.UUID) (Summary, error) {
	return s.summaries.GetOrCompute(ctx, ownerID.String(), func(ctx context.Context) (Summary, error) {
		wallet, err := s.storage.Wallet().GetByUserID(ctx, ownerID, false)

		switch {
		case err == nil:
			return Summary{Available: wallet.Available, Pending: wallet.Pending, Currency: wallet.Currency}, nil
		case errors.Is(err, apperrors.ErrWalletNotFound):
			return Summary{Available: decimal.Zero, Pending: decimal.Zero, Currency: s.currency}, nil
		default:
			return Summary{}, err
		}
	})
}

// ListTransactions returns the wallet's ledger entries, newest first.
// Users without a wallet get an empty list.
func (s *Service) ListTransactions(ctx context.Context, ownerID uuid.UUID, filter repository.TransactionFilter) ([]models.Transaction, error) {
	wallet, err := s.storage.Wallet().GetByUserID(ctx, ownerID, false)
	if errors.Is(err, apperrors.ErrWalletNotFound) {
		return []models.Transaction{}, nil
	}
	if err != nil {
		return nil, err
	}

	return s.storage.Transaction().List(ctx, wallet.ID, filter)
}

// ListPayouts returns the wallet's payout requests, newest first
func (s *Service) ListPayouts(ctx context.Context, ownerID uuid.UUID) ([]models.PayoutRequest, error) {
	wallet, err := s.storage.Wallet().GetByUserID(ctx, ownerID, false)
	if errors.Is(err, apperrors.ErrWalletNotFound) {
		return []models.PayoutRequest{}, nil
	}
	if err != nil {
		return nil, err
	}

	return s.storage.PayoutRequest().ListByWallet(ctx, wallet.ID)
}

// ListPayoutsByStatus returns payout requests across all wallets for
// the admin queue
func (s *Service) ListPayoutsByStatus(ctx context.Context, status string, limit int) ([]models.PayoutRequest, error) {
	return s.storage.PayoutRequest().ListByStatus(ctx, status, limit)
}

// LedgerReport compares the cached balance projection against the
// transaction log.
type LedgerReport struct {
	Available decimal.Decimal
	Pending   decimal.Decimal

	// Sum of credits minus debits: what Available must equal
	LedgerBalance decimal.Decimal

	// Sum of open payout request amounts: what Pending must equal
	OpenPayouts decimal.Decimal
}

func (r LedgerReport) Consistent() bool {
	return r.Available.Equal(r.LedgerBalance) && r.Pending.Equal(r.OpenPayouts)
}

// VerifyLedger recomputes the wallet's balances from the transaction
// log and the open payout requests. The ledger is the source of truth;
// any drift means the projection is broken.
func (s *Service) VerifyLedger(ctx context.Context, ownerID uuid.UUID) (LedgerReport, error) {
	var report LedgerReport

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		wallet, err := storage.Wallet().GetByUserID(ctx, ownerID, false)
		if err != nil {
			return err
		}

		credit, debit, err := storage.Transaction().SumByType(ctx, wallet.ID)
		if err != nil {
			return err
		}

		open, err := storage.PayoutRequest().SumOpenAmounts(ctx, wallet.ID)
		if err != nil {
			return err
		}

		report = LedgerReport{
			Available:     wallet.Available,
			Pending:       wallet.Pending,
			LedgerBalance: credit.Sub(debit),
			OpenPayouts:   open,
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("can't verify ledger: %w", err)
	}

	return report, nil
}

// lockOrCreateWallet is EnsureWallet under the surrounding transaction:
// the returned wallet row is locked until the transaction ends
func (s *Service) lockOrCreateWallet(ctx context.Context, storage repository.Storage, ownerID uuid.UUID) (models.Wallet, error) {
	wallet, err := storage.Wallet().GetByUserID(ctx, ownerID, true)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, apperrors.ErrWalletNotFound) {
		return wallet, err
	}

	wallet, err = storage.Wallet().Create(ctx, ownerID, s.currency)
	if errors.Is(err, apperrors.ErrWalletExists) {
		return storage.Wallet().GetByUserID(ctx, ownerID, true)
	}

	return wallet, err
}

func (s *Service) invalidateByWallet(ctx context.Context, walletID uuid.UUID) {
	wallet, err := s.storage.Wallet().GetByID(ctx, walletID, false)
	if err != nil {
		// The stale summary lives until the TTL expires
		s.logger.Error("can't invalidate summary cache", "wallet_id", walletID, "error", err)
		return
	}

	s.summaries.Invalidate(wallet.UserID.String())
}
