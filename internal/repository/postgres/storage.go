package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/classmarket/wallet/internal/repository"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so every repository
// works the same inside and outside a transaction
type DBTX interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Storage struct {
	db DBTX
}

func NewStorage(db DBTX) repository.Storage {
	return &Storage{db: db}
}

func (s *Storage) Wallet() repository.WalletRepo {
	return &WalletRepo{db: s.db}
}

func (s *Storage) Transaction() repository.TransactionRepo {
	return &TransactionRepo{db: s.db}
}

func (s *Storage) PayoutMethod() repository.PayoutMethodRepo {
	return &PayoutMethodRepo{db: s.db}
}

func (s *Storage) PayoutRequest() repository.PayoutRequestRepo {
	return &PayoutRequestRepo{db: s.db}
}

func (s *Storage) Legacy() repository.LegacyRepo {
	return &LegacyRepo{db: s.db}
}

func (s *Storage) InTx(ctx context.Context, fn func(repository.Storage) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("db tx error: %w", err)
	}

	defer func() {
		switch err {
		case nil:
			err = tx.Commit(ctx)
		default:
			_ = tx.Rollback(ctx)
		}
	}()

	err = fn(NewStorage(tx))

	return err
}
