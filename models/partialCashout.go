package models

import "gorm.io/gorm"

// PartialCashout is an append-only ledger entry. Entries are never
// updated or deleted; the sum of WalletAmount for a wager stays below
// the wager's potential win.
type PartialCashout struct {
	gorm.Model
	ID             uint   `gorm:"primaryKey"`
	PublicID       string `gorm:"uniqueIndex; size:36"`
	WagerID        uint   `gorm:"index"`
	WalletAmount   int64
	Percentage     int
	RemainingStake int64
}
