package model

import "time"

// Account is a ledger account keyed by GrowID. Balance is a non-negative
// integer number of World Locks; donation and purchase totals are derived
// from the transaction log, not stored.
type Account struct {
	GrowID        string    `json:"growid"`
	Balance       int64     `json:"balance"`
	DonationTotal int64     `json:"donation_total"`
	PurchaseTotal int64     `json:"purchase_total"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"last_updated"`
}
