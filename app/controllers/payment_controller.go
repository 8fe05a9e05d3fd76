package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/BookForge/internal/pkg/payment"
)

// PaymentController serves the credit package checkout.
type PaymentController struct {
	service *payment.Service
}

func NewPaymentController(service *payment.Service) *PaymentController {
	return &PaymentController{service: service}
}

// HandleListPackages returns the package catalog. No authentication needed.
func (pc *PaymentController) HandleListPackages(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"packages":      payment.Packages(),
		"currencies":    []string{payment.CurrencyUSD, payment.CurrencyINR},
		"support_email": pc.service.SupportEmail(),
	})
}

// HandleCreateOrder creates a gateway order for a package.
func (pc *PaymentController) HandleCreateOrder(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}
	var in payment.CreateOrderInput
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	order, err := pc.service.CreateOrder(c.UserContext(), userID, in)
	if err != nil {
		return paymentError(c, err)
	}
	return c.JSON(fiber.Map{
		"id":       order.GatewayOrderID,
		"amount":   order.Amount,
		"currency": order.Currency,
		"receipt":  order.Receipt,
		"status":   order.Status,
	})
}

// HandleVerify verifies a checkout callback and credits the purchase.
func (pc *PaymentController) HandleVerify(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}
	var in payment.VerifyInput
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	res, err := pc.service.VerifyAndCredit(c.UserContext(), userID, in)
	if err != nil {
		return paymentError(c, err)
	}
	return c.JSON(res)
}

// HandleSupport forwards an unverifiable payment to support.
func (pc *PaymentController) HandleSupport(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}
	var in payment.SupportInput
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if err := pc.service.RequestSupport(c.UserContext(), userID, in); err != nil {
		return paymentError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"success": true})
}

func paymentError(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, "internal_server_error"
	switch {
	case errors.Is(err, payment.ErrInvalidRequest):
		status, code = fiber.StatusBadRequest, "validation_failed"
	case errors.Is(err, payment.ErrUnknownPackage):
		status, code = fiber.StatusBadRequest, "unknown_package"
	case errors.Is(err, payment.ErrUnsupportedCurrency):
		status, code = fiber.StatusBadRequest, "unsupported_currency"
	case errors.Is(err, payment.ErrAmountMismatch):
		status, code = fiber.StatusBadRequest, "amount_mismatch"
	case errors.Is(err, payment.ErrInvalidSignature):
		status, code = fiber.StatusBadRequest, "invalid_signature"
	case errors.Is(err, payment.ErrCreditsMismatch):
		status, code = fiber.StatusBadRequest, "credits_mismatch"
	case errors.Is(err, payment.ErrOrderMismatch):
		status, code = fiber.StatusForbidden, "order_mismatch"
	case errors.Is(err, payment.ErrGatewayNotConfigured), errors.Is(err, payment.ErrSupportUnavailable):
		status, code = fiber.StatusServiceUnavailable, "unavailable"
	default:
		log.Errorf("[Payments] Request failed: %v", err)
	}
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		message = "Payment request failed"
	}
	return c.Status(status).JSON(fiber.Map{"success": false, "error": code, "message": message})
}
