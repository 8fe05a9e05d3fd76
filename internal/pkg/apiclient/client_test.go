package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/BookForge/internal/pkg/generation"
	"github.com/ManuelReschke/BookForge/internal/pkg/payment"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", "token-1").WithHTTPClient(srv.Client()).WithUserID("user-1")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_RequiresToken(t *testing.T) {
	c := New("http://127.0.0.1:1", "")
	_, err := c.GetBalance(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestClient_ListPackagesAnonymous(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/packages", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]interface{}{"packages": payment.Packages()})
	}))
	t.Cleanup(srv.Close)

	packages, err := New(srv.URL, "").WithHTTPClient(srv.Client()).ListPackages(context.Background())
	require.NoError(t, err)
	assert.Len(t, packages, len(payment.Packages()))
}

func TestClient_GetBalance(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/credits", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]int{"credits": 42})
	})

	balance, err := c.GetBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, balance)
}

func TestClient_Unauthorized(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized", "message": "missing token"})
	})

	_, err := c.GetBalance(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestClient_Deduct(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    interface{}
		wantErr error
		success bool
	}{
		{"confirmed", http.StatusOK, map[string]interface{}{"success": true, "credits": 18, "deducted": 12}, nil, true},
		{"ok without success flag", http.StatusOK, map[string]interface{}{"credits": 18}, ErrDeductionFailed, false},
		{"explicit failure", http.StatusOK, map[string]interface{}{"success": false, "error": "insufficient_credits"}, ErrInsufficientCredits, false},
		{"payment required", http.StatusPaymentRequired, map[string]interface{}{"success": false, "error": "insufficient_credits", "message": "not enough credits"}, ErrInsufficientCredits, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				var in DeductRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
				assert.Equal(t, "user-1", in.UserID)
				assert.Equal(t, 12, in.Amount)
				assert.Equal(t, "chapter_generation", in.TransactionType)
				writeJSON(w, tt.status, tt.body)
			})

			res, err := c.Deduct(context.Background(), 12, "chapter_generation", "outline")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NotNil(t, res)
			assert.Equal(t, tt.success, res.Success)
		})
	}
}

func TestClient_DeductServerError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
	})

	res, err := c.Deduct(context.Background(), 6, "chapter_generation", "")
	assert.Nil(t, res)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
}

func TestClient_Generate(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var in generation.GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		if in.Type == generation.TypeOutlines {
			writeJSON(w, http.StatusOK, generation.GenerateResponse{Success: true, Content: "Chapter 1: Start"})
			return
		}
		writeJSON(w, http.StatusOK, generation.GenerateResponse{Success: false, Error: "model overloaded"})
	})

	content, err := c.Generate(context.Background(), generation.GenerateRequest{Type: generation.TypeOutlines, Idea: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Chapter 1: Start", content)

	_, err = c.Generate(context.Background(), generation.GenerateRequest{Type: generation.TypeChapter, Title: "x"})
	assert.ErrorContains(t, err, "model overloaded")
}

func TestClient_Payments(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/payments/packages":
			writeJSON(w, http.StatusOK, map[string]interface{}{"packages": payment.Packages()})
		case "/payments/orders":
			var in payment.CreateOrderInput
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			writeJSON(w, http.StatusOK, Order{ID: "order_1", Amount: in.Amount, Currency: in.Currency, Receipt: in.Receipt, Status: "created"})
		case "/payments/verify":
			var in payment.VerifyInput
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			if in.Signature == "bad" {
				writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "invalid_signature"})
				return
			}
			writeJSON(w, http.StatusOK, payment.VerifyResult{Success: true, CreditsAdded: in.Credits, NewBalance: 80})
		case "/payments/support":
			w.WriteHeader(http.StatusAccepted)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	packages, err := c.ListPackages(ctx)
	require.NoError(t, err)
	assert.Len(t, packages, len(payment.Packages()))

	order, err := c.CreateOrder(ctx, payment.CreateOrderInput{Amount: 500, Currency: "USD", Receipt: "bf_1"})
	require.NoError(t, err)
	assert.Equal(t, "order_1", order.ID)
	assert.Equal(t, int64(500), order.Amount)

	res, err := c.VerifyPayment(ctx, payment.VerifyInput{PaymentID: "pay_1", OrderID: "order_1", Signature: "ok", Credits: 50})
	require.NoError(t, err)
	assert.Equal(t, 50, res.CreditsAdded)
	assert.Equal(t, 80, res.NewBalance)

	_, err = c.VerifyPayment(ctx, payment.VerifyInput{PaymentID: "pay_1", OrderID: "order_1", Signature: "bad", Credits: 50})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid_signature", apiErr.Code)

	require.NoError(t, c.ContactSupport(ctx, payment.SupportInput{PaymentID: "pay_1", OrderID: "order_1"}))
}
