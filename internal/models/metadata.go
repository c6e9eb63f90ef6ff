package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	MetadataKindSale       = "sale"
	MetadataKindBackfill   = "backfill"
	MetadataKindPayout     = "payout"
	MetadataKindAdjustment = "adjustment"
	MetadataKindRefund     = "refund"
)

// Metadata is the typed payload attached to a transaction.
// The concrete shape depends on what caused the movement.
type Metadata interface {
	Kind() string
}

// SaleMetadata links a credit to the payment that produced it
type SaleMetadata struct {
	PaymentID uuid.UUID `json:"payment_id"`
	CourseID  uuid.UUID `json:"course_id,omitzero"`
	Note      string    `json:"note,omitempty"`
}

func (SaleMetadata) Kind() string { return MetadataKindSale }

// BackfillMetadata marks a credit created by the historical earnings
// backfill job. Marker is the provenance tag checked on re-runs.
type BackfillMetadata struct {
	Marker       string    `json:"marker"`
	PaymentCount int       `json:"payment_count"`
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
}

func (BackfillMetadata) Kind() string { return MetadataKindBackfill }

// PayoutMetadata links a debit to its payout request
type PayoutMetadata struct {
	RequestID uuid.UUID `json:"request_id"`
	Note      string    `json:"note,omitempty"`
}

func (PayoutMetadata) Kind() string { return MetadataKindPayout }

// AdjustmentMetadata describes a manual or compensating correction,
// e.g. returning funds of a rejected payout request.
type AdjustmentMetadata struct {
	RequestID uuid.UUID `json:"request_id,omitzero"`
	Reason    string    `json:"reason"`
}

func (AdjustmentMetadata) Kind() string { return MetadataKindAdjustment }

type RefundMetadata struct {
	PaymentID uuid.UUID `json:"payment_id"`
	Reason    string    `json:"reason,omitempty"`
}

func (RefundMetadata) Kind() string { return MetadataKindRefund }

type metadataEnvelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// EncodeMetadata serializes metadata together with its kind discriminator
func EncodeMetadata(m Metadata) ([]byte, error) {
	if m == nil {
		return []byte(`{}`), nil
	}

	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("can't encode %q metadata: %w", m.Kind(), err)
	}

	return json.Marshal(metadataEnvelope{Kind: m.Kind(), Data: data})
}

// DecodeMetadata restores the typed metadata from its serialized form.
// Empty payloads decode to nil.
func DecodeMetadata(raw []byte) (Metadata, error) {
	var env metadataEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("can't decode metadata envelope: %w", err)
	}

	if env.Kind == "" {
		return nil, nil
	}

	switch env.Kind {
	case MetadataKindSale:
		var m SaleMetadata
		return m, json.Unmarshal(env.Data, &m)
	case MetadataKindBackfill:
		var m BackfillMetadata
		return m, json.Unmarshal(env.Data, &m)
	case MetadataKindPayout:
		var m PayoutMetadata
		return m, json.Unmarshal(env.Data, &m)
	case MetadataKindAdjustment:
		var m AdjustmentMetadata
		return m, json.Unmarshal(env.Data, &m)
	case MetadataKindRefund:
		var m RefundMetadata
		return m, json.Unmarshal(env.Data, &m)
	default:
		return nil, fmt.Errorf("unknown metadata kind %q", env.Kind)
	}
}
