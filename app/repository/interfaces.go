package repository

import (
	"github.com/ManuelReschke/BookForge/app/models"
	"gorm.io/gorm"
)

// CreditRepository defines the ledger operations on balances and transactions.
// Every method that changes a balance writes exactly one transaction row in
// the same database transaction.
type CreditRepository interface {
	GetOrCreate(userID string, initialCredits int) (*models.UserCredits, bool, error)
	Deduct(userID string, amount int, transactionType, description string) (int, bool, error)
	Add(userID string, amount int, transactionType, description string) (int, error)
	ListTransactions(userID string, limit int) ([]models.CreditTransaction, error)
}

// PaymentRepository defines persistence for gateway orders and verifications.
type PaymentRepository interface {
	CreateOrderIfNotExists(order *models.PaymentOrder) (bool, *models.PaymentOrder, error)
	GetOrderByGatewayID(gatewayOrderID string) (*models.PaymentOrder, error)
	CreateVerificationIfNotExists(v *models.PaymentVerification) (bool, *models.PaymentVerification, error)
	SaveVerification(v *models.PaymentVerification) error
	CreditOnce(verificationID uint, description string) (int, bool, error)
}

// DirectorRepository defines persistence for director mode projects.
type DirectorRepository interface {
	CreateProject(project *models.DirectorProject) error
	GetProject(userID, projectID string) (*models.DirectorProject, error)
	SaveChapter(chapter *models.DirectorChapter) error
}

// ExportRepository defines persistence for export job records.
type ExportRepository interface {
	Create(record *models.ExportJobRecord) error
	GetByID(id string) (*models.ExportJobRecord, error)
	GetForUser(userID, id string) (*models.ExportJobRecord, error)
	UpdateStatus(id, status, objectKey, url, errMsg string) error
	SetJobID(id, jobID string) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	Credit   CreditRepository
	Payment  PaymentRepository
	Director DirectorRepository
	Export   ExportRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Credit:   NewCreditRepository(db),
		Payment:  NewPaymentRepository(db),
		Director: NewDirectorRepository(db),
		Export:   NewExportRepository(db),
	}
}
