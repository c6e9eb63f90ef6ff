package wallet

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/classmarket/wallet/internal/apperrors"
	"github.com/classmarket/wallet/internal/models"
	"github.com/classmarket/wallet/internal/repository/postgres"
	"github.com/classmarket/wallet/internal/testutil"
)

// These tests run on the pool directly instead of the rollback helper.
// Each call gets its own connection, so goroutines really contend for
// the wallet row lock.
func TestWalletServiceConcurrent(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	s := NewService(postgres.NewStorage(pg.Pool), Config{}, nil, nil)

	t.Run("racing payouts cannot overdraft", func(t *testing.T) {
		ownerID := uuid.New()
		_, err := s.Credit(t.Context(), ownerID, decimal.NewFromInt(100), models.SourceCourseSale, nil)
		require.NoError(t, err)

		results := make(chan error, 2)
		for range 2 {
			go func() {
				_, err := s.RequestPayout(t.Context(), ownerID, decimal.NewFromInt(100), nil, "")
				results <- err
			}()
		}

		var granted, rejected int
		for range 2 {
			err := <-results
			switch {
			case err == nil:
				granted++
			case errors.Is(err, apperrors.ErrBalanceInsufficient):
				rejected++
			default:
				require.NoError(t, err, "payout request failed for an unexpected reason")
			}
		}

		require.Equal(t, 1, granted, "exactly one racing request should win")
		require.Equal(t, 1, rejected, "the loser should see insufficient balance")

		report, err := s.VerifyLedger(t.Context(), ownerID)
		require.NoError(t, err)
		require.True(t, report.Consistent(), "ledger should stay consistent under contention")
		require.True(t, report.Available.IsZero())
		require.True(t, report.Pending.Equal(decimal.NewFromInt(100)))
	})

	t.Run("racing first credits share one wallet", func(t *testing.T) {
		ownerID := uuid.New()

		results := make(chan error, 2)
		for range 2 {
			go func() {
				_, err := s.Credit(t.Context(), ownerID, decimal.NewFromInt(50), models.SourceCourseSale, nil)
				results <- err
			}()
		}
		for range 2 {
			require.NoError(t, <-results, "racing first credits should both succeed")
		}

		wallet, err := s.FindWallet(t.Context(), ownerID)
		require.NoError(t, err)
		require.True(t, wallet.Available.Equal(decimal.NewFromInt(100)), "both credits should land on the same wallet")

		report, err := s.VerifyLedger(t.Context(), ownerID)
		require.NoError(t, err)
		require.True(t, report.Consistent())
	})
}
