package credits

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BookForge/app/models"
	"github.com/ManuelReschke/BookForge/app/repository"
	"github.com/ManuelReschke/BookForge/internal/pkg/env"
)

// DefaultInitialCredits is granted to a user on first balance access.
const DefaultInitialCredits = 30

// CreditsPerChapter is the price of one planned chapter.
const CreditsPerChapter = 6

// ErrorInsufficientCredits is the structured failure code of a deduction
// that the balance did not cover.
const ErrorInsufficientCredits = "insufficient_credits"

var (
	ErrNotAuthenticated       = errors.New("not authenticated")
	ErrInvalidAmount          = errors.New("amount must be greater than zero")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
)

// DeductResult reports the outcome of a deduction. Insufficient balance is
// not an error: Success is false and Error carries the code.
type DeductResult struct {
	Success  bool   `json:"success"`
	Credits  int    `json:"credits"`
	Deducted int    `json:"deducted,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Ledger owns all balance changes of users.
type Ledger struct {
	repo           repository.CreditRepository
	initialCredits int
}

// NewLedger creates a ledger granting initialCredits to new users.
func NewLedger(repo repository.CreditRepository, initialCredits int) *Ledger {
	if initialCredits < 0 {
		initialCredits = 0
	}
	return &Ledger{repo: repo, initialCredits: initialCredits}
}

// NewLedgerFromEnv creates a ledger reading INITIAL_CREDITS.
func NewLedgerFromEnv(repo repository.CreditRepository) *Ledger {
	return NewLedger(repo, env.GetEnvInt("INITIAL_CREDITS", DefaultInitialCredits))
}

// GetBalance returns the user's balance and provisions it on first access.
func (l *Ledger) GetBalance(ctx context.Context, userID string) (int, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, ErrNotAuthenticated
	}

	uc, created, err := l.repo.GetOrCreate(userID, l.initialCredits)
	if err != nil {
		return 0, fmt.Errorf("load balance: %w", err)
	}
	if created {
		log.Infof("[Credits] Provisioned %d initial credits for user %s", l.initialCredits, userID)
	}
	return uc.Credits, nil
}

// Deduct subtracts amount from the balance if it covers it.
func (l *Ledger) Deduct(ctx context.Context, userID string, amount int, transactionType, description string) (*DeductResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if transactionType == "" {
		transactionType = models.TransactionChapterGeneration
	}
	if !models.IsValidTransactionType(transactionType) {
		return nil, ErrInvalidTransactionType
	}

	// make sure the row exists so new users can spend their allocation
	if _, err := l.GetBalance(ctx, userID); err != nil {
		return nil, err
	}

	balance, ok, err := l.repo.Deduct(userID, amount, transactionType, description)
	if err != nil {
		return nil, fmt.Errorf("deduct credits: %w", err)
	}
	if !ok {
		log.Infof("[Credits] Insufficient credits for user %s: need %d, have %d", userID, amount, balance)
		return &DeductResult{Success: false, Credits: balance, Error: ErrorInsufficientCredits}, nil
	}

	log.Infof("[Credits] Deducted %d credits from user %s (%s), balance %d", amount, userID, transactionType, balance)
	return &DeductResult{Success: true, Credits: balance, Deducted: amount}, nil
}

// Add credits amount and returns the new balance.
func (l *Ledger) Add(ctx context.Context, userID string, amount int, transactionType, description string) (int, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, ErrNotAuthenticated
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if !models.IsValidTransactionType(transactionType) {
		return 0, ErrInvalidTransactionType
	}

	balance, err := l.repo.Add(userID, amount, transactionType, description)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if _, err = l.GetBalance(ctx, userID); err != nil {
			return 0, err
		}
		balance, err = l.repo.Add(userID, amount, transactionType, description)
	}
	if err != nil {
		return 0, fmt.Errorf("add credits: %w", err)
	}

	log.Infof("[Credits] Added %d credits to user %s (%s), balance %d", amount, userID, transactionType, balance)
	return balance, nil
}

// ListTransactions returns the user's newest transactions first.
func (l *Ledger) ListTransactions(ctx context.Context, userID string, limit int) ([]models.CreditTransaction, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	return l.repo.ListTransactions(userID, limit)
}

// CostForChapters returns the credit price of an outline with n chapters.
func CostForChapters(n int) int {
	if n <= 0 {
		return 0
	}
	return n * CreditsPerChapter
}
