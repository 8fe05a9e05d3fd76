package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/BookForge/app/models"
)

// creditRepository implements the CreditRepository interface
type creditRepository struct {
	db *gorm.DB
}

// NewCreditRepository creates a new credit repository instance
func NewCreditRepository(db *gorm.DB) CreditRepository {
	return &creditRepository{db: db}
}

// GetOrCreate returns the balance row for a user and provisions it with
// initialCredits (plus an initial_allocation transaction) on first access.
// The bool reports whether this call provisioned the row.
func (r *creditRepository) GetOrCreate(userID string, initialCredits int) (*models.UserCredits, bool, error) {
	var uc models.UserCredits
	err := r.db.Where("user_id = ?", userID).First(&uc).Error
	if err == nil {
		return &uc, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	created := false
	err = r.db.Transaction(func(tx *gorm.DB) error {
		row := &models.UserCredits{UserID: userID, Credits: initialCredits}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// provisioned concurrently
			return nil
		}
		created = true
		return tx.Create(newTransaction(userID, initialCredits, models.TransactionInitialAllocation, "Initial credit allocation")).Error
	})
	if err != nil {
		return nil, false, err
	}

	if err := r.db.Where("user_id = ?", userID).First(&uc).Error; err != nil {
		return nil, false, err
	}
	return &uc, created, nil
}

// Deduct atomically subtracts amount when the balance covers it. The bool is
// false when the balance was insufficient; the returned int is the balance
// after the call in both cases.
func (r *creditRepository) Deduct(userID string, amount int, transactionType, description string) (int, bool, error) {
	var balance int
	deducted := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UserCredits{}).
			Where("user_id = ? AND credits >= ?", userID, amount).
			Updates(map[string]interface{}{
				"credits":    gorm.Expr("credits - ?", amount),
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			deducted = true
			if err := tx.Create(newTransaction(userID, -amount, transactionType, description)).Error; err != nil {
				return err
			}
		}

		b, err := currentBalance(tx, userID)
		if err != nil {
			return err
		}
		balance = b
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return balance, deducted, nil
}

// Add credits amount to an existing balance and returns the new balance.
// It returns gorm.ErrRecordNotFound when the user has no balance row yet.
func (r *creditRepository) Add(userID string, amount int, transactionType, description string) (int, error) {
	var balance int
	err := r.db.Transaction(func(tx *gorm.DB) error {
		b, err := addCreditsTx(tx, userID, amount, transactionType, description)
		if err != nil {
			return err
		}
		balance = b
		return nil
	})
	return balance, err
}

// ListTransactions returns the newest transactions of a user first.
func (r *creditRepository) ListTransactions(userID string, limit int) ([]models.CreditTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var txs []models.CreditTransaction
	err := r.db.Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}

func addCreditsTx(tx *gorm.DB, userID string, amount int, transactionType, description string) (int, error) {
	res := tx.Model(&models.UserCredits{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"credits":    gorm.Expr("credits + ?", amount),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	if err := tx.Create(newTransaction(userID, amount, transactionType, description)).Error; err != nil {
		return 0, err
	}
	return currentBalance(tx, userID)
}

func currentBalance(tx *gorm.DB, userID string) (int, error) {
	var uc models.UserCredits
	if err := tx.Where("user_id = ?", userID).First(&uc).Error; err != nil {
		return 0, err
	}
	return uc.Credits, nil
}

func newTransaction(userID string, amount int, transactionType, description string) *models.CreditTransaction {
	return &models.CreditTransaction{
		ID:              uuid.NewString(),
		UserID:          userID,
		Amount:          amount,
		TransactionType: transactionType,
		Description:     description,
	}
}
