package models

import "time"

// Payment gateway and order status constants.
const (
	PaymentGatewayRazorpay = "razorpay"

	PaymentOrderStatusCreated = "created"
	PaymentOrderStatusPaid    = "paid"
)

// PaymentOrder mirrors an order created at the payment gateway for a credit package.
type PaymentOrder struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	GatewayOrderID string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"id"`
	UserID         string    `gorm:"type:varchar(64);not null;index:ux_payment_orders_user_receipt,unique,priority:1" json:"user_id"`
	Receipt        string    `gorm:"type:varchar(64);not null;index:ux_payment_orders_user_receipt,unique,priority:2" json:"receipt"`
	PackageID      string    `gorm:"type:varchar(32);not null" json:"package_id"`
	Credits        int       `gorm:"not null" json:"credits"`
	Amount         int64     `gorm:"not null" json:"amount"`
	Currency       string    `gorm:"type:varchar(3);not null" json:"currency"`
	Status         string    `gorm:"type:varchar(20);not null;default:'created'" json:"status"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PaymentVerification records one verification of a checkout callback. The
// unique payment id keeps a payment from being credited more than once.
type PaymentVerification struct {
	ID               uint      `gorm:"primaryKey" json:"-"`
	GatewayPaymentID string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"payment_id"`
	GatewayOrderID   string    `gorm:"type:varchar(64);not null;index" json:"order_id"`
	UserID           string    `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Credits          int       `gorm:"not null" json:"credits"`
	SignatureValid   bool      `gorm:"not null;default:false" json:"signature_valid"`
	Credited         bool      `gorm:"not null;default:false" json:"credited"`
	NewBalance       int       `gorm:"not null;default:0" json:"new_balance"`
	Error            string    `gorm:"type:varchar(255);default:''" json:"error,omitempty"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
