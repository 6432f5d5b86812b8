package webpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// StatusAuthorized is the only commit status that counts as a successful
// payment; everything else is surfaced as a failed transaction.
const StatusAuthorized = "AUTHORIZED"

const transactionsPath = "/rswebpaytransaction/api/webpay/v1.2/transactions"

// Client talks to the Webpay Plus REST API. It replaces the transbank-sdk
// dependency the old Node relay carried; the headers below are the ones the
// SDK set on every call.
type Client struct {
	host         string
	commerceCode string
	apiKey       string
	httpClient   *http.Client
}

func NewClient(host, commerceCode, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		host:         host,
		commerceCode: commerceCode,
		apiKey:       apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateRequest starts a transaction; the client app then form-POSTs the
// returned token to the returned URL.
type CreateRequest struct {
	BuyOrder  string `json:"buy_order"`
	SessionID string `json:"session_id"`
	Amount    int64  `json:"amount"`
	ReturnURL string `json:"return_url"`
}

type CreateResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// TransactionResult is the gateway's commit/status payload. The raw body is
// kept alongside the typed fields so it can be stored verbatim.
type TransactionResult struct {
	VCI                string  `json:"vci"`
	Amount             float64 `json:"amount"`
	Status             string  `json:"status"`
	BuyOrder           string  `json:"buy_order"`
	SessionID          string  `json:"session_id"`
	AccountingDate     string  `json:"accounting_date"`
	TransactionDate    string  `json:"transaction_date"`
	AuthorizationCode  string  `json:"authorization_code"`
	PaymentTypeCode    string  `json:"payment_type_code"`
	ResponseCode       int     `json:"response_code"`
	InstallmentsNumber int     `json:"installments_number"`

	Raw map[string]interface{} `json:"-"`
}

// Autorizada reports whether the gateway accepted the payment.
func (t *TransactionResult) Autorizada() bool {
	return t.Status == StatusAuthorized
}

type RefundResponse struct {
	Type              string  `json:"type"`
	Balance           float64 `json:"balance"`
	AuthorizationCode string  `json:"authorization_code"`
	ResponseCode      int     `json:"response_code"`
}

// Create starts a Webpay transaction.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*CreateResponse, error) {
	var out CreateResponse
	if err := c.do(ctx, http.MethodPost, transactionsPath, req, &out, nil); err != nil {
		return nil, fmt.Errorf("webpay create: %w", err)
	}
	if out.Token == "" || out.URL == "" {
		return nil, fmt.Errorf("webpay create: respuesta inválida del gateway")
	}
	return &out, nil
}

// Commit confirms a transaction after the gateway redirect.
func (c *Client) Commit(ctx context.Context, token string) (*TransactionResult, error) {
	var out TransactionResult
	raw := map[string]interface{}{}
	if err := c.do(ctx, http.MethodPut, transactionsPath+"/"+token, nil, &out, raw); err != nil {
		return nil, fmt.Errorf("webpay commit: %w", err)
	}
	out.Raw = raw
	return &out, nil
}

// Status reads a transaction without committing it.
func (c *Client) Status(ctx context.Context, token string) (*TransactionResult, error) {
	var out TransactionResult
	raw := map[string]interface{}{}
	if err := c.do(ctx, http.MethodGet, transactionsPath+"/"+token, nil, &out, raw); err != nil {
		return nil, fmt.Errorf("webpay status: %w", err)
	}
	out.Raw = raw
	return &out, nil
}

// Refund returns money on a committed transaction.
func (c *Client) Refund(ctx context.Context, token string, amount int64) (*RefundResponse, error) {
	var out RefundResponse
	body := map[string]int64{"amount": amount}
	if err := c.do(ctx, http.MethodPost, transactionsPath+"/"+token+"/refunds", body, &out, nil); err != nil {
		return nil, fmt.Errorf("webpay refund: %w", err)
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, raw map[string]interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.host+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Tbk-Api-Key-Id", c.commerceCode)
	req.Header.Set("Tbk-Api-Key-Secret", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call gateway: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	if raw != nil {
		var tmp map[string]interface{}
		if err := json.Unmarshal(data, &tmp); err == nil {
			for k, v := range tmp {
				raw[k] = v
			}
		}
	}
	return nil
}
