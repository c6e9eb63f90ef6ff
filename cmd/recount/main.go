// Command recount recomputes every teacher's unique-student counter
// from the enrollments table and overwrites the cached value. Naturally
// idempotent.
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

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "recount failed:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URI")
	logLevel := logger.LevelInfo

	fs := pflag.NewFlagSet("recount", pflag.ContinueOnError)
	fs.StringVarP(&dsn, "database", "d", dsn, "Database connection string")
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

	service := reconcile.NewService(postgres.NewStorage(pool), "", l)

	report, err := service.RecountStudents(ctx)
	if err != nil {
		return err
	}

	fmt.Println(report)
	return nil
}
