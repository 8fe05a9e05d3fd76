package models

import "time"

// Credit transaction types recorded in the ledger.
const (
	TransactionPurchase          = "purchase"
	TransactionChapterGeneration = "chapter_generation"
	TransactionInitialAllocation = "initial_allocation"
	TransactionManualAdjustment  = "manual_adjustment"
	TransactionDirectorMode      = "director_mode"
)

// UserCredits holds the current credit balance of a user. One row per user.
type UserCredits struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"user_id"`
	Credits   int       `gorm:"not null;default:0" json:"credits"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UserCredits) TableName() string {
	return "user_credits"
}

// CreditTransaction is an append-only audit row for every balance change.
type CreditTransaction struct {
	ID              string    `gorm:"type:char(36);primaryKey" json:"id"`
	UserID          string    `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Amount          int       `gorm:"not null" json:"amount"`
	TransactionType string    `gorm:"type:varchar(32);not null;index" json:"transaction_type"`
	Description     string    `gorm:"type:varchar(255);default:''" json:"description"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (CreditTransaction) TableName() string {
	return "credit_transactions"
}

// IsValidTransactionType reports whether t is one of the known ledger reasons.
func IsValidTransactionType(t string) bool {
	switch t {
	case TransactionPurchase,
		TransactionChapterGeneration,
		TransactionInitialAllocation,
		TransactionManualAdjustment,
		TransactionDirectorMode:
		return true
	default:
		return false
	}
}
