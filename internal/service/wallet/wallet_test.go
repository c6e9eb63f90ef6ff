package wallet

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/classmarket/wallet/internal/apperrors"
	"github.com/classmarket/wallet/internal/logger"
	"github.com/classmarket/wallet/internal/models"
	"github.com/classmarket/wallet/internal/repository"
	"github.com/classmarket/wallet/internal/repository/postgres"
	"github.com/classmarket/wallet/internal/testutil"
)

func TestWalletService(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Helper function to create wallet Service within transaction
	inTx := func(t *testing.T, fn func(s *Service, storage repository.Storage)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			service := NewService(storage, Config{}, nil, nil)
			fn(service, storage)
		})
	}

	t.Run("EnsureWallet", func(t *testing.T) {
		t.Run("creates wallet lazily", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				ownerID := uuid.New()

				_, err := s.FindWallet(t.Context(), ownerID)
				require.ErrorIs(t, err, apperrors.ErrWalletNotFound, "find should never create a wallet")

				wallet, err := s.EnsureWallet(t.Context(), ownerID)

				require.NoError(t, err, "ensuring wallet should be ok")
				require.Equal(t, ownerID, wallet.UserID)
				require.Equal(t, "USD", wallet.Currency, "default currency should apply")
				require.True(t, wallet.Available.IsZero(), "new wallet should start empty")
				require.True(t, wallet.Pending.IsZero())
			})
		})

		t.Run("returns existing wallet", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				ownerID := uuid.New()

				first, err := s.EnsureWallet(t.Context(), ownerID)
				require.NoError(t, err)

				second, err := s.EnsureWallet(t.Context(), ownerID)

				require.NoError(t, err)
				require.Equal(t, first.ID, second.ID, "second ensure should return the same wallet")
			})
		})
	})

	t.Run("Credit", func(t *testing.T) {
		t.Run("credit ok", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage) {
				ownerID := uuid.New()
				paymentID := uuid.New()

				created, err := s.Credit(t.Context(), ownerID, decimal.NewFromInt(150), models.SourceCourseSale, models.SaleMetadata{PaymentID: paymentID})

				require.NoError(t, err, "crediting should be ok")
				require.Equal(t, models.TransactionTypeCredit, created.Type)
				require.Equal(t, models.SourceCourseSale, created.Source)
				require.True(t, created.Amount.Equal(decimal.NewFromInt(150)))

				wallet, err := s.FindWallet(t.Context(), ownerID)
				require.NoError(t, err, "first credit should create the wallet")
				require.True(t, wallet.Available.Equal(decimal.NewFromInt(150)), "available should be 150 after credit")
				require.True(t, wallet.Pending.IsZero())

				transactions, err := storage.Transaction().List(t.Context(), wallet.ID, repository.TransactionFilter{})
				require.NoError(t, err)
				require.Len(t, transactions, 1, "every credit should append exactly one transaction")
			})
		})

		t.Run("zero or negative amount fail", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				ownerID := uuid.New()

				_, err := s.Credit(t.Context(), ownerID, decimal.Zero, models.SourceCourseSale, nil)
				require.ErrorIs(t, err, apperrors.ErrInvalidAmount)

				_, err = s.Credit(t.Context(), ownerID, decimal.NewFromInt(-5), models.SourceCourseSale, nil)
				require.ErrorIs(t, err, apperrors.ErrInvalidAmount)

				_, err = s.FindWallet(t.Context(), ownerID)
				require.ErrorIs(t, err, apperrors.ErrWalletNotFound, "rejected credit should not create a wallet")
			})
		})
	})

	t.Run("RequestPayout", func(t *testing.T) {
		t.Run("request ok", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage) {
				ownerID := uuid.New()
				_, err := s.Credit(t.Context(), ownerID, decimal.NewFromInt(150), models.SourceCourseSale, nil)
				require.NoError(t, err)

				request, err := s.RequestPayout(t.Context(), ownerID, decimal.NewFromInt(100), nil, "rent money")

				require.NoError(t, err, "requesting payout should be ok")
				require.Equal(t, models.PayoutStatusRequested, request.Status)
				require.True(t, request.Amount.Equal(decimal.NewFromInt(100)))
				require.Equal(t, "rent money", request.Note)

				wallet, err := s.FindWallet(t.Context(), ownerID)
				require.NoError(t, err)
				require.True(t, wallet.Available.Equal(decimal.NewFromInt(50)), "available should drop to 50")
				require.True(t, wallet.Pending.Equal(decimal.NewFromInt(100)), "pending should hold the requested amount")

				transactions, err := storage.Transaction().List(t.Context(), wallet.ID, repository.TransactionFilter{Type: models.TransactionTypeDebit})
				require.NoError(t, err)
				require.Len(t, transactions, 1, "request should append the paired debit")
				require.Equal(t, models.SourcePayout, transactions[0].Source)

				payout, ok := transactions[0].Metadata.(models.PayoutMetadata)
				require.True(t, ok, "debit should reference the payout request")
				require.Equal(t, request.ID, payout.RequestID)
			})
		})

		t.Run("insufficient balance fail", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage) {
				ownerID := uuid.New()
				_, err := s.Credit(t.Context(), ownerID, decimal.NewFromInt(150), models.SourceCourseSale, nil)
				require.NoError(t, err)

				_, err = s.RequestPayout(t.Context(), ownerID, decimal.NewFromInt(200), nil, "")

				require.Error(t, err, "requesting more than available should fail")
				require.ErrorIs(t, err, apperrors.ErrBalanceInsufficient)

				wallet, err := s.FindWallet(t.Context(), ownerID)
				require.NoError(t, err)
				require.True(t, wallet.Available.Equal(decimal.NewFromInt(150)), "failed request should leave available untouched")
				require.True(t, wallet.Pending.IsZero(), "failed request should leave pending untouched")

				transactions, err := storage.Transaction().List(t.Context(), wallet.ID, repository.TransactionFilter{})
				require.NoError(t, err)
				require.Len(t, transactions, 1, "failed request should not append a debit")
			})
		})

		t.Run("no wallet fail", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				_, err := s.RequestPayout(t.Context(), uuid.New(), decimal.NewFromInt(10), nil, "")

				require.ErrorIs(t, err, apperrors.ErrWalletNotFound)
			})
		})

		t.Run("foreign method fail", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage) {
				ownerID := uuid.New()
				_, err := s.Credit(t.Context(), ownerID, decimal.NewFromInt(100), models.SourceCourseSale, nil)
				require.NoError(t, err)

				foreign, err := storage.PayoutMethod().Create(t.Context(), models.PayoutMethod{
					UserID: uuid.New(),
					Type:   models.PayoutMethodBankTransfer,
					Label:  "Someone else's bank",
				})
				require.NoError(t, err)

				_, err = s.RequestPayout(t.Context(), ownerID, decimal.NewFromInt(10), &foreign.ID, "")

				require.ErrorIs(t, err, apperrors.ErrPayoutMethodNotFound, "foreign method must look nonexistent")
			})
		})

		t.Run("deactivated method fail", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage) {
				ownerID := uuid.New()
				_, err := s.Credit(t.Context(), ownerID, decimal.NewFromInt(100), models.SourceCourseSale, nil)
				require.NoError(t, err)

				method, err := s.CreateMethod(t.Context(), ownerID, models.PayoutMethod{
					Type:  models.PayoutMethodBankTransfer,
					Label: "Closed account",
				})
				require.NoError(t, err)
				err = s.DeactivateMethod(t.Context(), ownerID, method.ID)
				require.NoError(t, err)

				_, err = s.RequestPayout(t.Context(), ownerID, decimal.NewFromInt(10), &method.ID, "")

				require.ErrorIs(t, err, apperrors.ErrPayoutMethodInactive)
			})
		})
	})

	t.Run("MarkProcessing", func(t *testing.T) {
		inTx(t, func(s *Service, _ repository.Storage) {
			ownerID := uuid.New()
			_, err := s.Credit(t.Context(), ownerID, decimal.NewFromInt(100), models.SourceCourseSale, nil)
			require.NoError(t, err)
			request, err := s.RequestPayout(t.Context(), ownerID, decimal.NewFromInt(50), nil, "")
			require.NoError(t, err)

			updated, err := s.MarkProcessing(t.Context(), request.ID)

			require.NoError(t, err)
			require.Equal(t, models.PayoutStatusProcessing, updated.Status)

			_, err = s.MarkProcessing(t.Context(), request.ID)

			require.ErrorIs(t, err, apperrors.ErrInvalidStateTransition, "only requested payouts may move to processing")
		})
	})

	t.Run("ResolvePayout", func(t *testing.T) {
		// Credit 150 and request payout of 100
		setup := func(t *testing.T, s *Service) (uuid.UUID, models.PayoutRequest) {
			ownerID := uuid.New()
			_, err := s.Credit(t.Context(), ownerID, decimal.NewFromInt(150), models.SourceCourseSale, nil)
			require.NoError(t, err)

			request, err := s.RequestPayout(t.Context(), ownerID, decimal.NewFromInt(100), nil, "")
			require.NoError(t, err)

			return ownerID, request
		}

		t.Run("completed", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage) {
				ownerID, request := setup(t, s)

				resolved, err := s.ResolvePayout(t.Context(), request.ID, models.PayoutStatusCompleted, "SWIFT-42")

				require.NoError(t, err, "resolving payout should be ok")
				require.Equal(t, models.PayoutStatusCompleted, resolved.Status)
				require.Equal(t, "SWIFT-42", resolved.ExternalRef)
				require.NotNil(t, resolved.ResolvedAt, "resolution timestamp should be set")

				wallet, err := s.FindWallet(t.Context(), ownerID)
				require.NoError(t, err)
				require.True(t, wallet.Available.Equal(decimal.NewFromInt(50)), "completion should not touch available")
				require.True(t, wallet.Pending.IsZero(), "completion should drain pending")

				transactions, err := storage.Transaction().List(t.Context(), wallet.ID, repository.TransactionFilter{})
				require.NoError(t, err)
				require.Len(t, transactions, 2, "completion should not append a transaction")

				report, err := s.VerifyLedger(t.Context(), ownerID)
				require.NoError(t, err)
				require.True(t, report.Consistent(), "ledger should stay consistent after completion")
			})
		})

		t.Run("rejected", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage) {
				ownerID, request := setup(t, s)

				resolved, err := s.ResolvePayout(t.Context(), request.ID, models.PayoutStatusRejected, "")

				require.NoError(t, err)
				require.Equal(t, models.PayoutStatusRejected, resolved.Status)

				wallet, err := s.FindWallet(t.Context(), ownerID)
				require.NoError(t, err)
				require.True(t, wallet.Available.Equal(decimal.NewFromInt(150)), "rejection should return funds to available")
				require.True(t, wallet.Pending.IsZero())

				credits, err := storage.Transaction().List(t.Context(), wallet.ID, repository.TransactionFilter{Source: models.SourceAdjustment})
				require.NoError(t, err)
				require.Len(t, credits, 1, "rejection should append the compensating credit")
				require.Equal(t, models.TransactionTypeCredit, credits[0].Type)
				require.True(t, credits[0].Amount.Equal(decimal.NewFromInt(100)))

				adjustment, ok := credits[0].Metadata.(models.AdjustmentMetadata)
				require.True(t, ok)
				require.Equal(t, request.ID, adjustment.RequestID)

				report, err := s.VerifyLedger(t.Context(), ownerID)
				require.NoError(t, err)
				require.True(t, report.Consistent(), "ledger should stay consistent after rejection")
			})
		})

		t.Run("processing may still be resolved", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				_, request := setup(t, s)

				_, err := s.MarkProcessing(t.Context(), request.ID)
				require.NoError(t, err)

				resolved, err := s.ResolvePayout(t.Context(), request.ID, models.PayoutStatusCompleted, "")

				require.NoError(t, err)
				require.Equal(t, models.PayoutStatusCompleted, resolved.Status)
			})
		})

		t.Run("double resolve fail", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				ownerID, request := setup(t, s)

				_, err := s.ResolvePayout(t.Context(), request.ID, models.PayoutStatusCompleted, "")
				require.NoError(t, err)

				_, err = s.ResolvePayout(t.Context(), request.ID, models.PayoutStatusRejected, "")

				require.ErrorIs(t, err, apperrors.ErrInvalidStateTransition, "resolved payout must stay resolved")

				wallet, err := s.FindWallet(t.Context(), ownerID)
				require.NoError(t, err)
				require.True(t, wallet.Available.Equal(decimal.NewFromInt(50)), "failed resolve should not move funds")
			})
		})

		t.Run("unknown outcome fail", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				_, request := setup(t, s)

				_, err := s.ResolvePayout(t.Context(), request.ID, "vanished", "")

				require.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)
			})
		})
	})

	t.Run("GetSummary", func(t *testing.T) {
		t.Run("no wallet yet", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				summary, err := s.GetSummary(t.Context(), uuid.New())

				require.NoError(t, err, "users without a wallet should see zero balances")
				require.True(t, summary.Available.IsZero())
				require.True(t, summary.Pending.IsZero())
				require.Equal(t, "USD", summary.Currency)
			})
		})

		t.Run("reflects mutations", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage) {
				ownerID := uuid.New()

				summary, err := s.GetSummary(t.Context(), ownerID)
				require.NoError(t, err)
				require.True(t, summary.Available.IsZero())

				_, err = s.Credit(t.Context(), ownerID, decimal.NewFromInt(150), models.SourceCourseSale, nil)
				require.NoError(t, err)

				summary, err = s.GetSummary(t.Context(), ownerID)
				require.NoError(t, err, "credit should invalidate the cached summary")
				require.True(t, summary.Available.Equal(decimal.NewFromInt(150)))

				_, err = s.RequestPayout(t.Context(), ownerID, decimal.NewFromInt(100), nil, "")
				require.NoError(t, err)

				summary, err = s.GetSummary(t.Context(), ownerID)
				require.NoError(t, err, "payout request should invalidate the cached summary")
				require.True(t, summary.Available.Equal(decimal.NewFromInt(50)))
				require.True(t, summary.Pending.Equal(decimal.NewFromInt(100)))
			})
		})
	})

	t.Run("Listing", func(t *testing.T) {
		inTx(t, func(s *Service, _ repository.Storage) {
			t.Run("no wallet gives empty lists", func(t *testing.T) {
				transactions, err := s.ListTransactions(t.Context(), uuid.New(), repository.TransactionFilter{})
				require.NoError(t, err)
				require.Empty(t, transactions)

				payouts, err := s.ListPayouts(t.Context(), uuid.New())
				require.NoError(t, err)
				require.Empty(t, payouts)
			})

			t.Run("payouts by status", func(t *testing.T) {
				ownerID := uuid.New()
				_, err := s.Credit(t.Context(), ownerID, decimal.NewFromInt(100), models.SourceCourseSale, nil)
				require.NoError(t, err)
				request, err := s.RequestPayout(t.Context(), ownerID, decimal.NewFromInt(40), nil, "")
				require.NoError(t, err)

				queue, err := s.ListPayoutsByStatus(t.Context(), models.PayoutStatusRequested, 0)
				require.NoError(t, err)
				require.Len(t, queue, 1)
				require.Equal(t, request.ID, queue[0].ID)
			})
		})
	})

	t.Run("cache invalidation lookup failure is logged", func(t *testing.T) {
		inTx(t, func(_ *Service, storage repository.Storage) {
			rec := &recordingLogger{Logger: logger.NewNoOp()}
			s := NewService(storage, Config{}, nil, rec)

			s.invalidateByWallet(t.Context(), uuid.New())

			require.Len(t, rec.errs, 1, "failed invalidation lookup should be logged")
			require.Contains(t, rec.errs[0], "can't invalidate summary cache")
		})
	})
}

// recordingLogger captures Error calls, everything else is discarded
type recordingLogger struct {
	logger.Logger
	errs []string
}

func (l *recordingLogger) Error(msg string, args ...any) {
	l.errs = append(l.errs, msg)
}
