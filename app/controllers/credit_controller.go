package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/BookForge/app/models"
	"github.com/ManuelReschke/BookForge/internal/pkg/credits"
)

// CreditController serves balances, the transaction log and deductions.
type CreditController struct {
	ledger *credits.Ledger
}

func NewCreditController(ledger *credits.Ledger) *CreditController {
	return &CreditController{ledger: ledger}
}

// HandleGetBalance returns the balance, provisioning new users.
func (cc *CreditController) HandleGetBalance(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}
	balance, err := cc.ledger.GetBalance(c.UserContext(), userID)
	if err != nil {
		log.Errorf("[Credits] Balance lookup failed for %s: %v", userID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load credits")
	}
	return c.JSON(fiber.Map{"credits": balance})
}

// HandleListTransactions returns the newest ledger rows of the user.
func (cc *CreditController) HandleListTransactions(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	txs, err := cc.ledger.ListTransactions(c.UserContext(), userID, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load transactions")
	}
	if txs == nil {
		txs = []models.CreditTransaction{}
	}
	return c.JSON(fiber.Map{"transactions": txs})
}

type deductRequest struct {
	UserID          string `json:"user_id" validate:"max=64"`
	Amount          int    `json:"amount" validate:"required,gt=0,lte=10000"`
	TransactionType string `json:"transaction_type" validate:"omitempty,oneof=chapter_generation director_mode"`
	Description     string `json:"description" validate:"max=255"`
}

// HandleDeduct takes credits from the caller. Insufficient balance answers
// 402 with success=false; clients only trust success=true.
func (cc *CreditController) HandleDeduct(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}
	var req deductRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	if req.UserID != "" && strings.TrimSpace(req.UserID) != userID {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Credits can only be deducted from your own account")
	}

	res, err := cc.ledger.Deduct(c.UserContext(), userID, req.Amount, req.TransactionType, req.Description)
	if err != nil {
		if errors.Is(err, credits.ErrInvalidAmount) || errors.Is(err, credits.ErrInvalidTransactionType) {
			return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
		}
		log.Errorf("[Credits] Deduction failed for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "internal_server_error",
			"message": "Failed to deduct credits",
		})
	}
	if !res.Success {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"success": false,
			"credits": res.Credits,
			"error":   res.Error,
			"message": "Not enough credits",
		})
	}
	return c.JSON(res)
}
