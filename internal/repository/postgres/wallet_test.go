package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/classmarket/wallet/internal/apperrors"
	"github.com/classmarket/wallet/internal/repository"
	"github.com/classmarket/wallet/internal/testutil"
)

func TestWallet(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, outerTx DBTX, fn func(pgx.Tx, repository.Storage)) {
		testutil.InTx(outerTx, t, func(innerTx pgx.Tx) {
			storage := NewStorage(innerTx)
			fn(innerTx, storage)
		})
	}

	t.Run("Create", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			userID := uuid.New()

			t.Run("create ok", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					wallet, err := storage.Wallet().Create(t.Context(), userID, "USD")

					require.NoError(t, err, "wallet has to be created ok")
					require.NotZero(t, wallet.ID)
					require.Equal(t, userID, wallet.UserID)
					require.Equal(t, "USD", wallet.Currency)
					require.True(t, wallet.Available.IsZero(), "new wallet should start with zero available")
					require.True(t, wallet.Pending.IsZero(), "new wallet should start with zero pending")
				})
			})

			t.Run("create duplicate", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					_, err := storage.Wallet().Create(t.Context(), userID, "USD")
					require.NoError(t, err, "first wallet creation should be ok")

					_, err = storage.Wallet().Create(t.Context(), userID, "USD")

					require.Error(t, err, "creating wallet twice should fail")
					require.ErrorIs(t, err, apperrors.ErrWalletExists, "should return well known error")
				})
			})

			t.Run("duplicate create keeps transaction usable", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					created, err := storage.Wallet().Create(t.Context(), userID, "USD")
					require.NoError(t, err)

					_, err = storage.Wallet().Create(t.Context(), userID, "USD")
					require.ErrorIs(t, err, apperrors.ErrWalletExists)

					// The conflict must not abort the transaction: the
					// loser of a creation race re-reads the winner's row
					// on the same connection
					got, err := storage.Wallet().GetByUserID(t.Context(), userID, true)

					require.NoError(t, err, "locked re-select should work after a duplicate insert")
					require.Equal(t, created.ID, got.ID)
				})
			})
		})
	})

	t.Run("Get", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			userID := uuid.New()
			wallet, err := storage.Wallet().Create(t.Context(), userID, "USD")
			require.NoError(t, err)

			t.Run("get by user id", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					got, err := storage.Wallet().GetByUserID(t.Context(), userID, false)

					require.NoError(t, err)
					require.Equal(t, wallet.ID, got.ID)
					require.Equal(t, userID, got.UserID)
				})
			})

			t.Run("get by wallet id with lock", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					got, err := storage.Wallet().GetByID(t.Context(), wallet.ID, true)

					require.NoError(t, err, "locking select should work inside transaction")
					require.Equal(t, wallet.ID, got.ID)
				})
			})

			t.Run("get nonexistent wallet", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					_, err := storage.Wallet().GetByUserID(t.Context(), uuid.New(), false)
					require.ErrorIs(t, err, apperrors.ErrWalletNotFound, "should return well known error")

					_, err = storage.Wallet().GetByID(t.Context(), uuid.New(), false)
					require.ErrorIs(t, err, apperrors.ErrWalletNotFound, "should return well known error")
				})
			})
		})
	})

	t.Run("ApplyDelta", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			wallet, err := storage.Wallet().Create(t.Context(), uuid.New(), "USD")
			require.NoError(t, err)

			t.Run("credit available", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					got, err := storage.Wallet().ApplyDelta(t.Context(), wallet.ID, decimal.NewFromInt(150), decimal.Zero)

					require.NoError(t, err)
					require.True(t, got.Available.Equal(decimal.NewFromInt(150)), "available should be 150 after credit")
					require.True(t, got.Pending.IsZero())
				})
			})

			t.Run("move available to pending", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					_, err := storage.Wallet().ApplyDelta(t.Context(), wallet.ID, decimal.NewFromInt(150), decimal.Zero)
					require.NoError(t, err)

					amount := decimal.NewFromInt(100)
					got, err := storage.Wallet().ApplyDelta(t.Context(), wallet.ID, amount.Neg(), amount)

					require.NoError(t, err)
					require.True(t, got.Available.Equal(decimal.NewFromInt(50)), "available should be 50 after hold")
					require.True(t, got.Pending.Equal(decimal.NewFromInt(100)), "pending should be 100 after hold")
				})
			})

			t.Run("negative available rejected", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					_, err := storage.Wallet().ApplyDelta(t.Context(), wallet.ID, decimal.NewFromInt(100).Neg(), decimal.Zero)

					require.Error(t, err, "driving available negative should fail")
					require.ErrorIs(t, err, apperrors.ErrBalanceInsufficient, "should return well known error")
				})
			})

			t.Run("negative pending rejected", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					_, err := storage.Wallet().ApplyDelta(t.Context(), wallet.ID, decimal.Zero, decimal.NewFromInt(1).Neg())

					require.ErrorIs(t, err, apperrors.ErrBalanceInsufficient, "should return well known error")
				})
			})

			t.Run("nonexistent wallet", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					_, err := storage.Wallet().ApplyDelta(t.Context(), uuid.New(), decimal.NewFromInt(10), decimal.Zero)

					require.ErrorIs(t, err, apperrors.ErrWalletNotFound, "should return well known error")
				})
			})
		})
	})
}
