package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/BookForge/app/models"
)

// paymentRepository implements the PaymentRepository interface
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// CreateOrderIfNotExists stores an order unless the user already created one
// with the same receipt. The stored order is returned either way.
func (r *paymentRepository) CreateOrderIfNotExists(order *models.PaymentOrder) (bool, *models.PaymentOrder, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "receipt"},
		},
		DoNothing: true,
	}).Create(order)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.PaymentOrder
	if err := r.db.Where("user_id = ? AND receipt = ?", order.UserID, order.Receipt).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *paymentRepository) GetOrderByGatewayID(gatewayOrderID string) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	if err := r.db.Where("gateway_order_id = ?", gatewayOrderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateVerificationIfNotExists records a verification keyed by the gateway
// payment id. A replayed payment id returns the first stored record.
func (r *paymentRepository) CreateVerificationIfNotExists(v *models.PaymentVerification) (bool, *models.PaymentVerification, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "gateway_payment_id"}},
		DoNothing: true,
	}).Create(v)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.PaymentVerification
	if err := r.db.Where("gateway_payment_id = ?", v.GatewayPaymentID).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *paymentRepository) SaveVerification(v *models.PaymentVerification) error {
	return r.db.Save(v).Error
}

// CreditOnce credits the verification's user exactly once. The claim of the
// credited flag, the balance update, the purchase transaction and the order
// status change commit together. When the verification was already credited
// the stored new balance is returned with false.
func (r *paymentRepository) CreditOnce(verificationID uint, description string) (int, bool, error) {
	var balance int
	credited := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var v models.PaymentVerification
		if err := tx.First(&v, verificationID).Error; err != nil {
			return err
		}

		claim := tx.Model(&models.PaymentVerification{}).
			Where("id = ? AND credited = ?", verificationID, false).
			Updates(map[string]interface{}{
				"credited":   true,
				"updated_at": time.Now(),
			})
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			balance = v.NewBalance
			return nil
		}

		b, err := addCreditsTx(tx, v.UserID, v.Credits, models.TransactionPurchase, description)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.PaymentVerification{}).
			Where("id = ?", verificationID).
			Update("new_balance", b).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.PaymentOrder{}).
			Where("gateway_order_id = ?", v.GatewayOrderID).
			Update("status", models.PaymentOrderStatusPaid).Error; err != nil {
			return err
		}

		balance = b
		credited = true
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return balance, credited, nil
}
