package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/classmarket/wallet/internal/apperrors"
	"github.com/classmarket/wallet/internal/logger"
	"github.com/classmarket/wallet/internal/models"
	"github.com/classmarket/wallet/internal/repository"
)

// Service runs the one-shot batch jobs that derive wallet state from
// the marketplace's authoritative tables. Both jobs are idempotent:
// the backfill checks a provenance marker before crediting, the recount
// simply overwrites with freshly computed truth.
type Service struct {
	storage  repository.Storage
	currency string
	logger   logger.Logger
}

func NewService(storage repository.Storage, currency string, l logger.Logger) *Service {
	if currency == "" {
		currency = "USD"
	}
	if l == nil {
		l = logger.NewNoOp()
	}

	return &Service{
		storage:  storage,
		currency: currency,
		logger:   l,
	}
}

// BackfillReport tallies one backfill run
type BackfillReport struct {
	Teachers int
	Credited int
	Skipped  int
	Errors   int
	Total    decimal.Decimal
}

func (r BackfillReport) String() string {
	return fmt.Sprintf(
		"earnings backfill: %d teachers, %d credited (total %s), %d skipped, %d errors",
		r.Teachers, r.Credited, r.Total.StringFixed(2), r.Skipped, r.Errors,
	)
}

// BackfillEarnings credits every teacher's wallet with the sum of their
// completed legacy payments, once. Re-runs skip wallets that already
// carry a transaction tagged with marker. A failure on one teacher is
// logged and tallied; the batch moves on to the next.
func (s *Service) BackfillEarnings(ctx context.Context, marker string) (BackfillReport, error) {
	var report BackfillReport

	if marker == "" {
		return report, errors.New("provenance marker must not be empty")
	}

	earnings, err := s.storage.Legacy().CompletedEarningsByTeacher(ctx)
	if err != nil {
		return report, fmt.Errorf("can't read legacy earnings: %w", err)
	}
	report.Teachers = len(earnings)

	for _, e := range earnings {
		credited, err := s.backfillTeacher(ctx, e, marker)

		switch {
		case err != nil:
			report.Errors++
			s.logger.Error("backfill failed for teacher", "teacher_id", e.TeacherID, "error", err)
		case credited:
			report.Credited++
			report.Total = report.Total.Add(e.Total)
			s.logger.Info("backfilled teacher earnings",
				"teacher_id", e.TeacherID,
				"amount", e.Total.StringFixed(2),
				"payments", e.PaymentCount,
			)
		default:
			report.Skipped++
			s.logger.Debug("backfill already applied, skipping", "teacher_id", e.TeacherID, "marker", marker)
		}
	}

	return report, nil
}

func (s *Service) backfillTeacher(ctx context.Context, e models.TeacherEarnings, marker string) (credited bool, err error) {
	err = s.storage.InTx(ctx, func(storage repository.Storage) error {
		wallet, err := lockOrCreateWallet(ctx, storage, e, s.currency)
		if err != nil {
			return err
		}

		applied, err := storage.Transaction().HasBackfillMarker(ctx, wallet.ID, marker)
		if err != nil || applied {
			return err
		}

		if _, err := storage.Wallet().ApplyDelta(ctx, wallet.ID, e.Total, decimal.Zero); err != nil {
			return err
		}

		_, err = storage.Transaction().Create(ctx, models.Transaction{
			WalletID: wallet.ID,
			Type:     models.TransactionTypeCredit,
			Source:   models.SourceCourseSale,
			Amount:   e.Total,
			Metadata: models.BackfillMetadata{
				Marker:       marker,
				PaymentCount: e.PaymentCount,
				From:         e.From,
				To:           e.To,
			},
		})
		if err != nil {
			return err
		}

		credited = true
		return nil
	})

	return credited, err
}

// RecountReport tallies one recount run
type RecountReport struct {
	Teachers int
	Updated  int
	Errors   int
}

func (r RecountReport) String() string {
	return fmt.Sprintf("student recount: %d teachers, %d updated, %d errors", r.Teachers, r.Updated, r.Errors)
}

// RecountStudents overwrites every teacher's cached unique-student
// counter with a fresh COUNT(DISTINCT) over enrollments. Naturally
// idempotent; per-teacher failures don't abort the batch.
func (s *Service) RecountStudents(ctx context.Context) (RecountReport, error) {
	var report RecountReport

	teacherIDs, err := s.storage.Legacy().ListTeacherIDs(ctx)
	if err != nil {
		return report, fmt.Errorf("can't list teachers: %w", err)
	}
	report.Teachers = len(teacherIDs)

	for _, teacherID := range teacherIDs {
		count, err := s.storage.Legacy().CountDistinctStudents(ctx, teacherID)
		if err == nil {
			err = s.storage.Legacy().SetTotalStudents(ctx, teacherID, count)
		}

		if err != nil {
			report.Errors++
			s.logger.Error("recount failed for teacher", "teacher_id", teacherID, "error", err)
			continue
		}

		report.Updated++
		s.logger.Debug("recounted students", "teacher_id", teacherID, "total", count)
	}

	return report, nil
}

func lockOrCreateWallet(ctx context.Context, storage repository.Storage, e models.TeacherEarnings, currency string) (models.Wallet, error) {
	wallet, err := storage.Wallet().GetByUserID(ctx, e.TeacherID, true)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, apperrors.ErrWalletNotFound) {
		return wallet, err
	}

	wallet, err = storage.Wallet().Create(ctx, e.TeacherID, currency)
	if errors.Is(err, apperrors.ErrWalletExists) {
		return storage.Wallet().GetByUserID(ctx, e.TeacherID, true)
	}

	return wallet, err
}
