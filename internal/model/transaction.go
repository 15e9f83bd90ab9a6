package model

import (
	"time"
)

type TransactionType string

const (
	TxTypeAdd        TransactionType = "add"
	TxTypeSubtract   TransactionType = "subtract"
	TxTypeDonation   TransactionType = "donation"
	TxTypePurchase   TransactionType = "purchase"
	TxTypeRefund     TransactionType = "refund"
	TxTypeAdjustment TransactionType = "adjustment"
)

// ValidTransactionType reports whether t is one of the known types.
func ValidTransactionType(t TransactionType) bool {
	switch t {
	case TxTypeAdd, TxTypeSubtract, TxTypeDonation, TxTypePurchase, TxTypeRefund, TxTypeAdjustment:
		return true
	}
	return false
}

// IsCredit reports whether the type increases the balance.
func (t TransactionType) IsCredit() bool {
	switch t {
	case TxTypeAdd, TxTypeDonation, TxTypeRefund:
		return true
	}
	return false
}

// ReversalType returns the type recorded for a reversal of t:
// debits are reversed by refunds, credits by adjustments.
func ReversalType(t TransactionType) TransactionType {
	if t.IsCredit() {
		return TxTypeAdjustment
	}
	return TxTypeRefund
}

type TransactionStatus string

const (
	TxStatusPending   TransactionStatus = "pending"
	TxStatusSuccess   TransactionStatus = "success"
	TxStatusFailed    TransactionStatus = "failed"
	TxStatusReversed  TransactionStatus = "reversed"
	TxStatusCancelled TransactionStatus = "cancelled"
)

// ValidTransactionStatus reports whether s is one of the known statuses.
func ValidTransactionStatus(s TransactionStatus) bool {
	switch s {
	case TxStatusPending, TxStatusSuccess, TxStatusFailed, TxStatusReversed, TxStatusCancelled:
		return true
	}
	return false
}

// Transaction is an immutable ledger entry. IDs are assigned by the store,
// monotonically increasing and never reused. The only mutation after creation
// is the status flip to reversed, performed by an explicit reversal; the
// reversal itself is a new transaction whose ReversesID points at the original.
type Transaction struct {
	ID         int64             `json:"id"`
	GrowID     string            `json:"growid"`
	Type       TransactionType   `json:"type"`
	Amount     int64             `json:"amount"`
	OldBalance int64             `json:"old_balance"`
	NewBalance int64             `json:"new_balance"`
	Status     TransactionStatus `json:"status"`
	Reason     string            `json:"reason,omitempty"`
	ReversesID *int64            `json:"reverses_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"timestamp"`
}
