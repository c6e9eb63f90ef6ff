package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PayoutStatusRequested  = "requested"
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
	PayoutStatusRejected   = "rejected"
)

const (
	PayoutMethodBankTransfer = "bank_transfer"
	PayoutMethodEWallet      = "e_wallet"
	PayoutMethodOther        = "other"
)

// PayoutMethodDetails holds the destination fields. Bank transfers use
// the bank fields, e-wallets the provider fields.
type PayoutMethodDetails struct {
	BankName      string `json:"bank_name,omitempty"`
	AccountName   string `json:"account_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	Provider      string `json:"provider,omitempty"`
	WalletID      string `json:"wallet_id,omitempty"`
}

// PayoutMethod is a registered withdrawal destination. Methods referenced
// by historical payouts are deactivated, never deleted.
type PayoutMethod struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Type       string
	Label      string
	Details    PayoutMethodDetails
	IsDefault  bool
	IsVerified bool
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PayoutRequest is a teacher-initiated withdrawal.
// Status moves requested -> processing -> completed | rejected,
// with rejection allowed straight from requested.
type PayoutRequest struct {
	ID          uuid.UUID
	WalletID    uuid.UUID
	MethodID    *uuid.UUID
	Amount      decimal.Decimal
	Note        string
	Status      string
	ExternalRef string
	RequestedAt time.Time
	ResolvedAt  *time.Time
}

// Resolvable reports whether the request may still be completed or rejected
func (r PayoutRequest) Resolvable() bool {
	return r.Status == PayoutStatusRequested || r.Status == PayoutStatusProcessing
}
