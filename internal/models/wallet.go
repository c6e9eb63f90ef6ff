package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TransactionTypeCredit = "credit"
	TransactionTypeDebit  = "debit"
)

// Transaction sources classify the cause of a balance movement
const (
	SourceCourseSale = "course_sale"
	SourcePayout     = "payout"
	SourceAdjustment = "adjustment"
	SourceRefund     = "refund"
)

// Wallet holds the cached balance projection for a single teacher.
// The transaction log is the source of truth; Available always equals
// the sum of credit amounts minus debit amounts for the wallet.
type Wallet struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Available decimal.Decimal
	Pending   decimal.Decimal
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is an append-only ledger entry. Once written it is never
// updated or deleted.
type Transaction struct {
	ID        uuid.UUID
	WalletID  uuid.UUID
	Type      string
	Source    string
	Amount    decimal.Decimal
	Metadata  Metadata
	CreatedAt time.Time
}
