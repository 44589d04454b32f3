package buildium

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/propfolio/backend/internal/models"
)

const defaultBaseURL = "https://apisandbox.buildium.com/v1"

// APIError is a non-2xx response from the Buildium API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("buildium API error: %d. %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("buildium API error: %d", e.StatusCode)
}

// IsNotFound reports whether err is a 404 from the Buildium API.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// Config holds the Buildium Open API credentials.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
}

// Client is a read-only Buildium Open API client covering the endpoints the
// reconciliation engine needs.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	// Buildium Open API authentication (client id + secret headers).
	req.Header.Set("x-buildium-client-id", c.clientID)
	req.Header.Set("x-buildium-client-secret", c.clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("buildium request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// GetBankAccount fetches a bank account by its Buildium id.
func (c *Client) GetBankAccount(ctx context.Context, bankAccountID int64) (*models.BuildiumBankAccount, error) {
	var account models.BuildiumBankAccount
	if err := c.get(ctx, fmt.Sprintf("/bankaccounts/%d", bankAccountID), &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// GetBankDeposit fetches one deposit on a bank account.
func (c *Client) GetBankDeposit(ctx context.Context, bankAccountID, depositID int64) (*models.BuildiumDeposit, error) {
	var deposit models.BuildiumDeposit
	if err := c.get(ctx, fmt.Sprintf("/bankaccounts/%d/deposits/%d", bankAccountID, depositID), &deposit); err != nil {
		return nil, err
	}
	return &deposit, nil
}

// GetGeneralLedgerTransaction fetches a general ledger transaction. A 404 on
// the primary path triggers a retry against the legacy /gltransactions path;
// any other non-2xx is returned as-is.
func (c *Client) GetGeneralLedgerTransaction(ctx context.Context, transactionID int64) (*models.BuildiumGLTransaction, error) {
	var tx models.BuildiumGLTransaction
	err := c.get(ctx, fmt.Sprintf("/generalledger/transactions/%d", transactionID), &tx)
	if err == nil {
		return &tx, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}
	if err := c.get(ctx, fmt.Sprintf("/gltransactions/%d", transactionID), &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}
