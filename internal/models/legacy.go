package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const PaymentStatusCompleted = "completed"

// Payment is a row of the legacy payments table. The backfill job reads
// it as the authoritative source of historical teacher earnings.
type Payment struct {
	ID        uuid.UUID
	TeacherID uuid.UUID
	Amount    decimal.Decimal
	Status    string
	CreatedAt time.Time
}

// TeacherEarnings is the per-teacher aggregation the backfill credits from
type TeacherEarnings struct {
	TeacherID    uuid.UUID
	Total        decimal.Decimal
	PaymentCount int
	From         time.Time
	To           time.Time
}
