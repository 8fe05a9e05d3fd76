package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/BookForge/internal/pkg/apiclient"
	"github.com/ManuelReschke/BookForge/internal/pkg/payment"
)

const (
	// MaxVerifyAttempts counts the first verification call plus its retries.
	MaxVerifyAttempts = 3
	RetryDelay        = 3 * time.Second
)

// ErrCheckoutDismissed is returned by a CheckoutOpener when the user closed
// the checkout without paying.
var ErrCheckoutDismissed = errors.New("checkout dismissed")

// API is the part of the BookForge API used by the payment flow.
type API interface {
	CreateOrder(ctx context.Context, in payment.CreateOrderInput) (*apiclient.Order, error)
	VerifyPayment(ctx context.Context, in payment.VerifyInput) (*payment.VerifyResult, error)
	ContactSupport(ctx context.Context, in payment.SupportInput) error
}

// CheckoutResult is the callback payload of the hosted checkout.
type CheckoutResult struct {
	PaymentID string
	OrderID   string
	Signature string
}

// CheckoutOpener presents the hosted checkout for an order and blocks until
// the user paid or dismissed it.
type CheckoutOpener interface {
	Open(ctx context.Context, order apiclient.Order, pkg payment.Package) (*CheckoutResult, error)
}

// Status is the final state of a purchase.
type Status string

const (
	StatusCredited     Status = "credited"
	StatusCancelled    Status = "cancelled"
	StatusManualReview Status = "manual_review"
)

// Outcome describes how a purchase ended.
type Outcome struct {
	Status   Status
	Package  payment.Package
	Order    *apiclient.Order
	Result   *payment.VerifyResult
	Attempts int
	Manual   *ManualFallback
}

// ManualFallback carries what support needs to credit a payment by hand.
type ManualFallback struct {
	PaymentID    string
	OrderID      string
	Signature    string
	Credits      int
	SupportEmail string
	LastError    string
}

// CopyText is the block the user can copy into a support request.
func (m ManualFallback) CopyText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Payment ID: %s\n", m.PaymentID)
	fmt.Fprintf(&b, "Order ID: %s\n", m.OrderID)
	fmt.Fprintf(&b, "Signature: %s\n", m.Signature)
	fmt.Fprintf(&b, "Credits: %d\n", m.Credits)
	return b.String()
}

// MailtoURL opens a prefilled email to support.
func (m ManualFallback) MailtoURL() string {
	q := url.Values{}
	q.Set("subject", "Payment verification failed "+m.PaymentID)
	q.Set("body", "Hello,\n\nmy payment could not be verified. Details:\n\n"+m.CopyText())
	return "mailto:" + m.SupportEmail + "?" + strings.ReplaceAll(q.Encode(), "+", "%20")
}

// Flow runs a credit purchase for one signed-in user.
type Flow struct {
	api          API
	userID       string
	supportEmail string
	attempts     int
	delay        time.Duration
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
}

// Option configures a Flow.
type Option func(*Flow)

// WithSleeper replaces the wait between verification attempts.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(f *Flow) { f.sleep = sleep }
}

// WithClock replaces the clock used for order receipts.
func WithClock(now func() time.Time) Option {
	return func(f *Flow) { f.now = now }
}

func NewFlow(api API, userID, supportEmail string, opts ...Option) *Flow {
	f := &Flow{
		api:          api,
		userID:       userID,
		supportEmail: supportEmail,
		attempts:     MaxVerifyAttempts,
		delay:        RetryDelay,
		now:          time.Now,
		sleep:        sleepContext,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Receipt builds the idempotency receipt of a new order.
func (f *Flow) Receipt() string {
	prefix := f.userID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	prefix = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, prefix)
	return fmt.Sprintf("bf_%s_%d", prefix, f.now().UnixMilli())
}

// Purchase buys packageID in currency. A payment that cannot be verified
// after the bounded retries ends in StatusManualReview with support details;
// that outcome is not an error.
func (f *Flow) Purchase(ctx context.Context, packageID, currency string, opener CheckoutOpener) (*Outcome, error) {
	pkg, err := payment.FindPackage(packageID)
	if err != nil {
		return nil, err
	}
	currency = payment.NormalizeCurrency(currency)
	amount, err := pkg.AmountMinor(currency)
	if err != nil {
		return nil, err
	}

	order, err := f.api.CreateOrder(ctx, payment.CreateOrderInput{
		Amount:    amount,
		Currency:  currency,
		Receipt:   f.Receipt(),
		PackageID: pkg.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	out := &Outcome{Package: pkg, Order: order}

	cb, err := opener.Open(ctx, *order, pkg)
	if errors.Is(err, ErrCheckoutDismissed) {
		out.Status = StatusCancelled
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checkout failed: %w", err)
	}

	in := payment.VerifyInput{
		PaymentID: cb.PaymentID,
		OrderID:   cb.OrderID,
		Signature: cb.Signature,
		Credits:   pkg.Credits,
	}

	var lastErr error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		out.Attempts = attempt
		res, err := f.api.VerifyPayment(ctx, in)
		if err == nil {
			out.Status = StatusCredited
			out.Result = res
			return out, nil
		}
		lastErr = err
		log.Warnf("[Checkout] Verification attempt %d/%d for payment %s failed: %v", attempt, f.attempts, cb.PaymentID, err)

		if attempt < f.attempts {
			if serr := f.sleep(ctx, f.delay); serr != nil {
				lastErr = serr
				break
			}
		}
	}

	out.Status = StatusManualReview
	out.Manual = &ManualFallback{
		PaymentID:    cb.PaymentID,
		OrderID:      cb.OrderID,
		Signature:    cb.Signature,
		Credits:      pkg.Credits,
		SupportEmail: f.supportEmail,
		LastError:    lastErr.Error(),
	}
	return out, nil
}

// ContactSupport sends the fallback details to support through the API.
func (f *Flow) ContactSupport(ctx context.Context, m *ManualFallback, email, message string) error {
	if m == nil {
		return errors.New("no payment to report")
	}
	return f.api.ContactSupport(ctx, payment.SupportInput{
		PaymentID: m.PaymentID,
		OrderID:   m.OrderID,
		Signature: m.Signature,
		Email:     email,
		Message:   strings.TrimSpace(message + "\n\n" + m.CopyText()),
	})
}
