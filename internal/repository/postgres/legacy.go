package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/classmarket/wallet/internal/apperrors"
	"github.com/classmarket/wallet/internal/models"
)

// LegacyRepo reads the marketplace tables that predate the wallet ledger
type LegacyRepo struct {
	db DBTX
}

const completedEarningsByTeacher = `-- name: CompletedEarningsByTeacher
SELECT teacher_id, SUM(amount), COUNT(*), MIN(created_at), MAX(created_at)
FROM payments
WHERE status = 'completed'
GROUP BY teacher_id
ORDER BY teacher_id
`

func (r *LegacyRepo) CompletedEarningsByTeacher(ctx context.Context) ([]models.TeacherEarnings, error) {
	rows, _ := r.db.Query(ctx, completedEarningsByTeacher)
	earnings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.TeacherEarnings, error) {
		var e models.TeacherEarnings
		err := row.Scan(&e.TeacherID, &e.Total, &e.PaymentCount, &e.From, &e.To)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return earnings, nil
}

const listTeacherIDs = `-- name: ListTeacherIDs
SELECT user_id FROM teachers
ORDER BY user_id
`

func (r *LegacyRepo) ListTeacherIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, _ := r.db.Query(ctx, listTeacherIDs)
	ids, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (uuid.UUID, error) {
		var id uuid.UUID
		err := row.Scan(&id)
		return id, err
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return ids, nil
}

const countDistinctStudents = `-- name: CountDistinctStudents
SELECT COUNT(DISTINCT student_id) FROM enrollments
WHERE teacher_id = $1
`

func (r *LegacyRepo) CountDistinctStudents(ctx context.Context, teacherID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, countDistinctStudents, teacherID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return count, nil
}

const setTotalStudents = `-- name: SetTotalStudents
UPDATE teachers
SET total_students = $2
WHERE user_id = $1
`

func (r *LegacyRepo) SetTotalStudents(ctx context.Context, teacherID uuid.UUID, total int) error {
	tag, err := r.db.Exec(ctx, setTotalStudents, teacherID, total)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTeacherNotFound
	}

	return nil
}

const getTotalStudents = `-- name: GetTotalStudents
SELECT total_students FROM teachers
WHERE user_id = $1
`

func (r *LegacyRepo) GetTotalStudents(ctx context.Context, teacherID uuid.UUID) (int, error) {
	var total int
	err := r.db.QueryRow(ctx, getTotalStudents, teacherID).Scan(&total)

	switch {
	case err == nil:
		return total, nil
	case errors.Is(err, pgx.ErrNoRows):
		return 0, apperrors.ErrTeacherNotFound
	default:
		return 0, fmt.Errorf("db error: %w", err)
	}
}
