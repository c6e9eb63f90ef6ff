// Command backfill credits teacher wallets with earnings from legacy
// completed payments that predate the wallet ledger. Safe to re-run:
// wallets already carrying this run's provenance marker are skipped.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/classmarket/wallet/internal/db"
	"github.com/classmarket/wallet/internal/logger"
	"github.com/classmarket/wallet/internal/repository/postgres"
	"github.com/classmarket/wallet/internal/service/reconcile"
)

const defaultMarker = "earnings-backfill-v1"

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "backfill failed:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URI")
	marker := defaultMarker
	currency := "USD"
	logLevel := logger.LevelInfo

	fs := pflag.NewFlagSet("backfill", pflag.ContinueOnError)
	fs.StringVarP(&dsn, "database", "d", dsn, "Database connection string")
	fs.StringVarP(&marker, "marker", "m", marker, "Provenance marker for this backfill run")
	fs.StringVarP(&currency, "currency", "c", currency, "Currency for newly created wallets")
	fs.StringVarP(&logLevel, "log-level", "l", logLevel, "Logging level (debug, info, warn, error)")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	l, err := logger.New(logger.EnvDevelopment, logLevel)
	if err != nil {
		return err
	}

	pool, err := db.ConnectAndMigrate(ctx, dsn)
	if err != nil {
		return fmt.Errorf("can't connect to database: %w", err)
	}
	defer pool.Close()

	service := reconcile.NewService(postgres.NewStorage(pool), currency, l)

	report, err := service.BackfillEarnings(ctx, marker)
	if err != nil {
		return err
	}

	fmt.Println(report)
	return nil
}
