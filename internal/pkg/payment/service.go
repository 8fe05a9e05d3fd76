package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BookForge/app/models"
	"github.com/ManuelReschke/BookForge/app/repository"
	"github.com/ManuelReschke/BookForge/internal/pkg/credits"
	"github.com/ManuelReschke/BookForge/internal/pkg/mail"
)

var (
	ErrInvalidRequest     = errors.New("invalid payment request")
	ErrAmountMismatch     = errors.New("amount does not match package price")
	ErrInvalidSignature   = errors.New("invalid payment signature")
	ErrCreditsMismatch    = errors.New("credits do not match order")
	ErrOrderMismatch      = errors.New("order belongs to another user")
	ErrSupportUnavailable = errors.New("support contact not configured")
)

// CreateOrderInput is the order creation body. Amount is in minor units.
type CreateOrderInput struct {
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Currency  string `json:"currency" validate:"required,len=3"`
	Receipt   string `json:"receipt" validate:"required,max=40"`
	PackageID string `json:"package_id,omitempty" validate:"max=32"`
}

// VerifyInput is the checkout callback triple plus the expected credits.
type VerifyInput struct {
	PaymentID string `json:"razorpay_payment_id" validate:"required,max=64"`
	OrderID   string `json:"razorpay_order_id" validate:"required,max=64"`
	Signature string `json:"razorpay_signature" validate:"required,max=128"`
	Credits   int    `json:"credits" validate:"required,gt=0"`
}

// VerifyResult is returned for a verified payment. A replayed payment id
// returns the original result with AlreadyProcessed set.
type VerifyResult struct {
	Success          bool `json:"success"`
	CreditsAdded     int  `json:"credits_added"`
	NewBalance       int  `json:"new_balance"`
	AlreadyProcessed bool `json:"already_processed,omitempty"`
}

// SupportInput is a manual reconciliation request for a payment that could
// not be verified automatically.
type SupportInput struct {
	PaymentID string `json:"payment_id" validate:"required,max=64"`
	OrderID   string `json:"order_id" validate:"required,max=64"`
	Signature string `json:"signature" validate:"max=128"`
	Email     string `json:"email" validate:"omitempty,email"`
	Message   string `json:"message" validate:"max=2000"`
}

// Options configures a Service.
type Options struct {
	KeySecret    string
	SupportEmail string
	Receipts     ReceiptStore
	Mailer       mail.Mailer
}

// Service creates gateway orders and turns verified payments into credits.
type Service struct {
	repo     repository.PaymentRepository
	ledger   *credits.Ledger
	gateway  Gateway
	opts     Options
	validate *validator.Validate
}

func NewService(repo repository.PaymentRepository, ledger *credits.Ledger, gateway Gateway, opts Options) *Service {
	return &Service{
		repo:     repo,
		ledger:   ledger,
		gateway:  gateway,
		opts:     opts,
		validate: validator.New(),
	}
}

// CreateOrder validates the amount against the catalog and creates the
// gateway order. Repeating a receipt returns the order created first.
func (s *Service) CreateOrder(ctx context.Context, userID string, in CreateOrderInput) (*models.PaymentOrder, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, credits.ErrNotAuthenticated
	}
	in.Currency = NormalizeCurrency(in.Currency)
	in.Receipt = strings.TrimSpace(in.Receipt)
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	pkg, err := s.resolvePackage(in)
	if err != nil {
		return nil, err
	}

	if s.opts.Receipts != nil {
		if orderID, ok := s.opts.Receipts.Lookup(userID, in.Receipt); ok {
			if order, err := s.repo.GetOrderByGatewayID(orderID); err == nil {
				return order, nil
			}
		}
	}

	gwOrder, err := s.gateway.CreateOrder(ctx, OrderRequest{
		Amount:   in.Amount,
		Currency: in.Currency,
		Receipt:  in.Receipt,
		Notes: map[string]string{
			"user_id":    userID,
			"package_id": pkg.ID,
		},
	})
	if err != nil {
		log.Errorf("[Payments] Order creation failed for user %s: %v", userID, err)
		return nil, err
	}

	created, order, err := s.repo.CreateOrderIfNotExists(&models.PaymentOrder{
		GatewayOrderID: gwOrder.ID,
		UserID:         userID,
		Receipt:        in.Receipt,
		PackageID:      pkg.ID,
		Credits:        pkg.Credits,
		Amount:         in.Amount,
		Currency:       in.Currency,
		Status:         models.PaymentOrderStatusCreated,
	})
	if err != nil {
		return nil, err
	}
	if created {
		log.Infof("[Payments] Created order %s for user %s (%s, %d %s)", order.GatewayOrderID, userID, pkg.ID, in.Amount, in.Currency)
	}
	if s.opts.Receipts != nil {
		s.opts.Receipts.Remember(userID, in.Receipt, order.GatewayOrderID)
	}
	return order, nil
}

func (s *Service) resolvePackage(in CreateOrderInput) (Package, error) {
	if in.PackageID == "" {
		pkg, err := FindByAmount(in.Amount, in.Currency)
		if errors.Is(err, ErrUnknownPackage) {
			return Package{}, ErrAmountMismatch
		}
		return pkg, err
	}

	pkg, err := FindPackage(in.PackageID)
	if err != nil {
		return Package{}, err
	}
	amount, err := pkg.AmountMinor(in.Currency)
	if err != nil {
		return Package{}, err
	}
	if amount != in.Amount {
		return Package{}, ErrAmountMismatch
	}
	return pkg, nil
}

// VerifyAndCredit checks the callback signature and credits the user once
// per gateway payment id.
func (s *Service) VerifyAndCredit(ctx context.Context, userID string, in VerifyInput) (*VerifyResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, credits.ErrNotAuthenticated
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	if !VerifySignature(in.OrderID, in.PaymentID, in.Signature, s.opts.KeySecret) {
		log.Infof("[Payments] Invalid signature for payment %s (order %s, user %s)", in.PaymentID, in.OrderID, userID)
		return nil, ErrInvalidSignature
	}

	order, err := s.repo.GetOrderByGatewayID(in.OrderID)
	switch {
	case err == nil:
		if order.UserID != userID {
			return nil, ErrOrderMismatch
		}
		if order.Credits != in.Credits {
			return nil, ErrCreditsMismatch
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// order created outside this service; credits must still be a catalog package
		if _, perr := FindByCredits(in.Credits); perr != nil {
			return nil, ErrCreditsMismatch
		}
	default:
		return nil, err
	}

	// provision the balance row before crediting
	if _, err := s.ledger.GetBalance(ctx, userID); err != nil {
		return nil, err
	}

	_, stored, err := s.repo.CreateVerificationIfNotExists(&models.PaymentVerification{
		GatewayPaymentID: in.PaymentID,
		GatewayOrderID:   in.OrderID,
		UserID:           userID,
		Credits:          in.Credits,
		SignatureValid:   true,
	})
	if err != nil {
		return nil, err
	}
	if stored.UserID != userID || stored.GatewayOrderID != in.OrderID {
		return nil, ErrOrderMismatch
	}

	description := fmt.Sprintf("Purchased %d credits (order %s)", stored.Credits, stored.GatewayOrderID)
	balance, credited, err := s.repo.CreditOnce(stored.ID, description)
	if err != nil {
		stored.Error = truncate(err.Error(), 255)
		if serr := s.repo.SaveVerification(stored); serr != nil {
			log.Errorf("[Payments] Failed to record error for payment %s: %v", in.PaymentID, serr)
		}
		log.Errorf("[Payments] Crediting payment %s failed: %v", in.PaymentID, err)
		return nil, err
	}

	if credited {
		log.Infof("[Payments] Credited %d credits to user %s for payment %s, balance %d", stored.Credits, userID, in.PaymentID, balance)
	} else {
		log.Infof("[Payments] Payment %s already processed", in.PaymentID)
	}
	return &VerifyResult{
		Success:          true,
		CreditsAdded:     stored.Credits,
		NewBalance:       balance,
		AlreadyProcessed: !credited,
	}, nil
}

// RequestSupport emails the payment details to the support address for
// manual reconciliation.
func (s *Service) RequestSupport(ctx context.Context, userID string, in SupportInput) error {
	if strings.TrimSpace(userID) == "" {
		return credits.ErrNotAuthenticated
	}
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if s.opts.Mailer == nil || s.opts.SupportEmail == "" {
		return ErrSupportUnavailable
	}

	var body strings.Builder
	fmt.Fprintf(&body, "A payment could not be verified automatically.\n\n")
	fmt.Fprintf(&body, "User ID: %s\n", userID)
	fmt.Fprintf(&body, "Payment ID: %s\n", in.PaymentID)
	fmt.Fprintf(&body, "Order ID: %s\n", in.OrderID)
	fmt.Fprintf(&body, "Signature: %s\n", in.Signature)
	if in.Email != "" {
		fmt.Fprintf(&body, "Contact: %s\n", in.Email)
	}
	if in.Message != "" {
		fmt.Fprintf(&body, "\nMessage:\n%s\n", in.Message)
	}

	err := s.opts.Mailer.Send(mail.Message{
		To:      s.opts.SupportEmail,
		ReplyTo: in.Email,
		Subject: "Payment verification issue - " + in.PaymentID,
		Body:    body.String(),
	})
	if err != nil {
		return fmt.Errorf("send support mail: %w", err)
	}
	log.Infof("[Payments] Support request sent for payment %s (user %s)", in.PaymentID, userID)
	return nil
}

// SupportEmail returns the configured support address.
func (s *Service) SupportEmail() string {
	return s.opts.SupportEmail
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
