package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ManuelReschke/BookForge/internal/pkg/env"
)

const defaultGatewayBaseURL = "https://api.razorpay.com"

var ErrGatewayNotConfigured = errors.New("payment gateway not configured")

// OrderRequest is the order creation payload sent to the gateway.
type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// GatewayOrder is the gateway's view of a created order.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Gateway creates orders at the payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*GatewayOrder, error)
}

// RazorpayGateway implements Gateway against the Razorpay orders API.
type RazorpayGateway struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
}

func NewRazorpayGateway(baseURL, keyID, keySecret string) *RazorpayGateway {
	if baseURL == "" {
		baseURL = defaultGatewayBaseURL
	}
	return &RazorpayGateway{
		keyID:      keyID,
		keySecret:  keySecret,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// NewRazorpayGatewayFromEnv reads RAZORPAY_API_BASE_URL, RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET.
func NewRazorpayGatewayFromEnv() *RazorpayGateway {
	return NewRazorpayGateway(
		env.GetEnv("RAZORPAY_API_BASE_URL", defaultGatewayBaseURL),
		env.GetEnv("RAZORPAY_KEY_ID", ""),
		env.GetEnv("RAZORPAY_KEY_SECRET", ""),
	)
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, req OrderRequest) (*GatewayOrder, error) {
	if g.keyID == "" || g.keySecret == "" {
		return nil, ErrGatewayNotConfigured
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var order GatewayOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("decode gateway order: %w", err)
	}
	if order.ID == "" {
		return nil, errors.New("gateway returned order without id")
	}
	return &order, nil
}
