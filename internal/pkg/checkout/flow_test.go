package checkout

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/BookForge/internal/pkg/apiclient"
	"github.com/ManuelReschke/BookForge/internal/pkg/payment"
)

type fakeAPI struct {
	orders      []payment.CreateOrderInput
	verifyCalls []payment.VerifyInput
	failUntil   int
	support     []payment.SupportInput
}

func (f *fakeAPI) CreateOrder(ctx context.Context, in payment.CreateOrderInput) (*apiclient.Order, error) {
	f.orders = append(f.orders, in)
	return &apiclient.Order{ID: "order_1", Amount: in.Amount, Currency: in.Currency, Receipt: in.Receipt, Status: "created"}, nil
}

func (f *fakeAPI) VerifyPayment(ctx context.Context, in payment.VerifyInput) (*payment.VerifyResult, error) {
	f.verifyCalls = append(f.verifyCalls, in)
	if len(f.verifyCalls) <= f.failUntil {
		return nil, errors.New("verification service unavailable")
	}
	return &payment.VerifyResult{Success: true, CreditsAdded: in.Credits, NewBalance: 30 + in.Credits}, nil
}

func (f *fakeAPI) ContactSupport(ctx context.Context, in payment.SupportInput) error {
	f.support = append(f.support, in)
	return nil
}

type paidOpener struct{}

func (paidOpener) Open(ctx context.Context, order apiclient.Order, pkg payment.Package) (*CheckoutResult, error) {
	return &CheckoutResult{PaymentID: "pay_1", OrderID: order.ID, Signature: "sig"}, nil
}

type dismissingOpener struct{}

func (dismissingOpener) Open(ctx context.Context, order apiclient.Order, pkg payment.Package) (*CheckoutResult, error) {
	return nil, ErrCheckoutDismissed
}

type recordingSleeper struct {
	waits []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func newTestFlow(api API, sleeper *recordingSleeper) *Flow {
	now := func() time.Time { return time.UnixMilli(1700000000000) }
	return NewFlow(api, "user-12345678-abc", "support@bookforge.test", WithSleeper(sleeper.Sleep), WithClock(now))
}

func TestPurchase_VerifiedFirstTry(t *testing.T) {
	api := &fakeAPI{}
	sleeper := &recordingSleeper{}
	flow := newTestFlow(api, sleeper)

	out, err := flow.Purchase(context.Background(), "writer", "usd", paidOpener{})
	require.NoError(t, err)
	assert.Equal(t, StatusCredited, out.Status)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, 150, out.Result.CreditsAdded)
	assert.Empty(t, sleeper.waits)

	require.Len(t, api.orders, 1)
	assert.Equal(t, int64(1200), api.orders[0].Amount)
	assert.Equal(t, "USD", api.orders[0].Currency)
	assert.Equal(t, "bf_user123_1700000000000", api.orders[0].Receipt)
	assert.Equal(t, "writer", api.orders[0].PackageID)

	require.Len(t, api.verifyCalls, 1)
	assert.Equal(t, payment.VerifyInput{PaymentID: "pay_1", OrderID: "order_1", Signature: "sig", Credits: 150}, api.verifyCalls[0])
}

func TestPurchase_RecoversOnRetry(t *testing.T) {
	api := &fakeAPI{failUntil: 2}
	sleeper := &recordingSleeper{}
	flow := newTestFlow(api, sleeper)

	out, err := flow.Purchase(context.Background(), "starter", "INR", paidOpener{})
	require.NoError(t, err)
	assert.Equal(t, StatusCredited, out.Status)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, []time.Duration{RetryDelay, RetryDelay}, sleeper.waits)
	assert.Equal(t, int64(39900), api.orders[0].Amount)
}

func TestPurchase_ThreeFailuresFallBackToManual(t *testing.T) {
	api := &fakeAPI{failUntil: 100}
	sleeper := &recordingSleeper{}
	flow := newTestFlow(api, sleeper)

	out, err := flow.Purchase(context.Background(), "author", "USD", paidOpener{})
	require.NoError(t, err)
	assert.Len(t, api.verifyCalls, 3)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, sleeper.waits)

	assert.Equal(t, StatusManualReview, out.Status)
	require.NotNil(t, out.Manual)
	assert.Equal(t, "pay_1", out.Manual.PaymentID)
	assert.Equal(t, "order_1", out.Manual.OrderID)
	assert.Equal(t, "sig", out.Manual.Signature)
	assert.Equal(t, 400, out.Manual.Credits)
	assert.Contains(t, out.Manual.LastError, "unavailable")
	assert.Contains(t, out.Manual.CopyText(), "Payment ID: pay_1")

	mailto := out.Manual.MailtoURL()
	assert.True(t, strings.HasPrefix(mailto, "mailto:support@bookforge.test?"))
	assert.Contains(t, mailto, "pay_1")
	assert.NotContains(t, mailto, "+")

	// nothing retries on its own afterwards
	assert.Len(t, api.verifyCalls, 3)

	require.NoError(t, flow.ContactSupport(context.Background(), out.Manual, "ada@example.com", "Please help"))
	require.Len(t, api.support, 1)
	assert.Equal(t, "pay_1", api.support[0].PaymentID)
	assert.Contains(t, api.support[0].Message, "Please help")
	assert.Contains(t, api.support[0].Message, "Order ID: order_1")
}

func TestPurchase_CancelledWaitStopsRetrying(t *testing.T) {
	api := &fakeAPI{failUntil: 100}
	flow := NewFlow(api, "user-1", "support@bookforge.test", WithSleeper(func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}))

	out, err := flow.Purchase(context.Background(), "starter", "USD", paidOpener{})
	require.NoError(t, err)
	assert.Len(t, api.verifyCalls, 1)
	assert.Equal(t, StatusManualReview, out.Status)
}

func TestPurchase_Dismissed(t *testing.T) {
	api := &fakeAPI{}
	flow := newTestFlow(api, &recordingSleeper{})

	out, err := flow.Purchase(context.Background(), "starter", "USD", dismissingOpener{})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, out.Status)
	assert.Empty(t, api.verifyCalls)
}

func TestPurchase_Validation(t *testing.T) {
	api := &fakeAPI{}
	flow := newTestFlow(api, &recordingSleeper{})

	_, err := flow.Purchase(context.Background(), "platinum", "USD", paidOpener{})
	assert.ErrorIs(t, err, payment.ErrUnknownPackage)

	_, err = flow.Purchase(context.Background(), "starter", "EUR", paidOpener{})
	assert.ErrorIs(t, err, payment.ErrUnsupportedCurrency)
	assert.Empty(t, api.orders)
}

func TestContactSupport_RequiresFallback(t *testing.T) {
	flow := newTestFlow(&fakeAPI{}, &recordingSleeper{})
	assert.Error(t, flow.ContactSupport(context.Background(), nil, "", ""))
}
