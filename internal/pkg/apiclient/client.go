package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ManuelReschke/BookForge/app/models"
	"github.com/ManuelReschke/BookForge/internal/pkg/constants"
	"github.com/ManuelReschke/BookForge/internal/pkg/credits"
	"github.com/ManuelReschke/BookForge/internal/pkg/env"
	"github.com/ManuelReschke/BookForge/internal/pkg/export"
	"github.com/ManuelReschke/BookForge/internal/pkg/generation"
	"github.com/ManuelReschke/BookForge/internal/pkg/payment"
)

var (
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrDeductionFailed is returned when the server did not confirm a
	// deduction with success=true.
	ErrDeductionFailed = errors.New("credit deduction not confirmed")
)

// APIError is a non-2xx answer of the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d (%s)", e.Status, e.Code)
}

// Client talks to the BookForge HTTP API on behalf of one signed-in user.
type Client struct {
	baseURL    string
	token      string
	userID     string
	httpClient *http.Client
}

// New creates a client. token is the bearer token of the session; an empty
// token makes every authenticated call fail with ErrNotAuthenticated.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 150 * time.Second},
	}
}

// NewFromEnv reads BOOKFORGE_API_URL and BOOKFORGE_TOKEN.
func NewFromEnv() *Client {
	return New(env.GetEnv("BOOKFORGE_API_URL", "http://localhost:4000"+constants.APIV1Route), env.GetEnv("BOOKFORGE_TOKEN", ""))
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithUserID sets the user id sent with deduction calls.
func (c *Client) WithUserID(userID string) *Client {
	c.userID = userID
	return c
}

// Authenticated reports whether the client carries a session token.
func (c *Client) Authenticated() bool {
	return c.token != ""
}

type errorBody struct {
	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// do sends the request and decodes a 2xx body into out. Non-2xx answers
// become *APIError, 401 additionally matches ErrNotAuthenticated.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	if !c.Authenticated() {
		return ErrNotAuthenticated
	}
	return c.send(ctx, method, path, in, out)
}

// send is do without the local token check, for public routes.
func (c *Client) send(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		apiErr := &APIError{Status: resp.StatusCode, Code: eb.Error, Message: eb.Message}
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %v", ErrNotAuthenticated, apiErr)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// GetBalance returns the current balance. The server provisions new users.
func (c *Client) GetBalance(ctx context.Context) (int, error) {
	var out struct {
		Credits int `json:"credits"`
	}
	if err := c.do(ctx, http.MethodGet, "/credits", nil, &out); err != nil {
		return 0, err
	}
	return out.Credits, nil
}

// Transactions returns the newest ledger entries of the user.
func (c *Client) Transactions(ctx context.Context, limit int) ([]models.CreditTransaction, error) {
	var out struct {
		Transactions []models.CreditTransaction `json:"transactions"`
	}
	path := "/credits/transactions"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Transactions, nil
}

// DeductRequest is the body of the deduction call.
type DeductRequest struct {
	UserID          string `json:"user_id"`
	Amount          int    `json:"amount"`
	TransactionType string `json:"transaction_type"`
	Description     string `json:"description"`
}

// Deduct asks the server to take amount credits. Only a response carrying
// success=true counts; anything else is returned as an error together with
// whatever result the server sent.
func (c *Client) Deduct(ctx context.Context, amount int, transactionType, description string) (*credits.DeductResult, error) {
	in := DeductRequest{
		UserID:          c.userID,
		Amount:          amount,
		TransactionType: transactionType,
		Description:     description,
	}
	var out credits.DeductResult
	err := c.do(ctx, http.MethodPost, "/credits/deduct", in, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == credits.ErrorInsufficientCredits {
		return &credits.DeductResult{Success: false, Error: apiErr.Code}, ErrInsufficientCredits
	}
	if err != nil {
		return nil, err
	}
	if !out.Success {
		if out.Error == credits.ErrorInsufficientCredits {
			return &out, ErrInsufficientCredits
		}
		return &out, ErrDeductionFailed
	}
	return &out, nil
}

// Generate calls the text generation endpoint and returns the content.
func (c *Client) Generate(ctx context.Context, req generation.GenerateRequest) (string, error) {
	var out generation.GenerateResponse
	if err := c.do(ctx, http.MethodPost, "/generate", req, &out); err != nil {
		return "", err
	}
	if !out.Success {
		return "", fmt.Errorf("generation failed: %s", out.Error)
	}
	return out.Content, nil
}

// ListPackages returns the credit package catalog.
func (c *Client) ListPackages(ctx context.Context) ([]payment.Package, error) {
	var out struct {
		Packages []payment.Package `json:"packages"`
	}
	if err := c.send(ctx, http.MethodGet, "/payments/packages", nil, &out); err != nil {
		return nil, err
	}
	return out.Packages, nil
}

// Order is the gateway order returned by the order endpoint.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// CreateOrder creates a gateway order for a package.
func (c *Client) CreateOrder(ctx context.Context, in payment.CreateOrderInput) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodPost, "/payments/orders", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyPayment submits a checkout callback for server-side verification.
// A response without success=true is an error.
func (c *Client) VerifyPayment(ctx context.Context, in payment.VerifyInput) (*payment.VerifyResult, error) {
	var out payment.VerifyResult
	if err := c.do(ctx, http.MethodPost, "/payments/verify", in, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return &out, errors.New("payment verification not confirmed")
	}
	return &out, nil
}

// ContactSupport forwards a payment that could not be verified to support.
func (c *Client) ContactSupport(ctx context.Context, in payment.SupportInput) error {
	return c.do(ctx, http.MethodPost, "/payments/support", in, nil)
}

// CreateDirectorProject starts a director mode project.
func (c *Client) CreateDirectorProject(ctx context.Context, title, idea, language string) (*models.DirectorProject, error) {
	in := map[string]string{"title": title, "idea": idea, "language": language}
	var out models.DirectorProject
	if err := c.do(ctx, http.MethodPost, "/director/projects", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendDirectorMessage sends one instruction to a director project.
func (c *Client) SendDirectorMessage(ctx context.Context, projectID, message string) (*models.DirectorProject, error) {
	var out models.DirectorProject
	path := "/director/projects/" + url.PathEscape(projectID) + "/messages"
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"message": message}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportRequest asks for a book export in one format, either of a director
// project or of a book assembled by the client.
type ExportRequest struct {
	Format    string       `json:"format"`
	ProjectID string       `json:"project_id,omitempty"`
	Book      *export.Book `json:"book,omitempty"`
}

// CreateExport queues an export and returns its record.
func (c *Client) CreateExport(ctx context.Context, in ExportRequest) (*models.ExportJobRecord, error) {
	var out models.ExportJobRecord
	if err := c.do(ctx, http.MethodPost, "/exports", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetExport returns the current state of an export.
func (c *Client) GetExport(ctx context.Context, id string) (*models.ExportJobRecord, error) {
	var out models.ExportJobRecord
	if err := c.do(ctx, http.MethodGet, "/exports/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
