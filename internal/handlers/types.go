package handlers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/classmarket/wallet/internal/models"
)

// JSON shapes shared between the teacher-facing and admin handlers

type transactionJSON struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Amount    decimal.Decimal `json:"amount"`
	Metadata  models.Metadata `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func toTransactionJSON(tr models.Transaction) transactionJSON {
	return transactionJSON{
		ID:        tr.ID.String(),
		Type:      tr.Type,
		Source:    tr.Source,
		Amount:    tr.Amount,
		Metadata:  tr.Metadata,
		CreatedAt: tr.CreatedAt,
	}
}

type payoutJSON struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	MethodID    *string         `json:"method_id,omitempty"`
	Note        string          `json:"note,omitempty"`
	Status      string          `json:"status"`
	ExternalRef string          `json:"external_ref,omitempty"`
	RequestedAt time.Time       `json:"requested_at"`
	ResolvedAt  *time.Time      `json:"resolved_at,omitempty"`
}

func toPayoutJSON(pr models.PayoutRequest) payoutJSON {
	p := payoutJSON{
		ID:          pr.ID.String(),
		Amount:      pr.Amount,
		Note:        pr.Note,
		Status:      pr.Status,
		ExternalRef: pr.ExternalRef,
		RequestedAt: pr.RequestedAt,
		ResolvedAt:  pr.ResolvedAt,
	}
	if pr.MethodID != nil {
		id := pr.MethodID.String()
		p.MethodID = &id
	}
	return p
}

type methodJSON struct {
	ID         string                     `json:"id"`
	Type       string                     `json:"type"`
	Label      string                     `json:"label"`
	Details    models.PayoutMethodDetails `json:"details"`
	IsDefault  bool                       `json:"is_default"`
	IsVerified bool                       `json:"is_verified"`
	IsActive   bool                       `json:"is_active"`
	CreatedAt  time.Time                  `json:"created_at"`
}

func toMethodJSON(m models.PayoutMethod) methodJSON {
	return methodJSON{
		ID:         m.ID.String(),
		Type:       m.Type,
		Label:      m.Label,
		Details:    m.Details,
		IsDefault:  m.IsDefault,
		IsVerified: m.IsVerified,
		IsActive:   m.IsActive,
		CreatedAt:  m.CreatedAt,
	}
}
