package expresspay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnreachable covers transport failures and unparseable processor
// responses; callers decide whether to retry.
var ErrUnreachable = errors.New("payment processor unreachable")

type Config struct {
	BaseURL    string
	MerchantID string
	APIKey     string
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Verification is the processor's view of a transaction. Status carries the
// overall outcome; StatusTag is the processor-specific result tag that must
// additionally be checked against the accepted set.
type Verification struct {
	Status        string `json:"response_status"`
	StatusTag     string `json:"status_tag"`
	TransactionID string `json:"transaction_id"`
	AmountCents   int    `json:"amount"`
	Currency      string `json:"currency"`
	IsTest        bool   `json:"is_test"`
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

type verifyRequest struct {
	MerchantID string `json:"merchant_id"`
	APIKey     string `json:"api_key"`
	Token      string `json:"token"`
}

// VerifyTransaction asks the processor for the final state of a checkout
// token. No retries are applied here; the caller owns retry policy.
func (c *Client) VerifyTransaction(ctx context.Context, token string) (Verification, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Verification{}, fmt.Errorf("verification token is required")
	}

	body, err := json.Marshal(verifyRequest{
		MerchantID: c.cfg.MerchantID,
		APIKey:     c.cfg.APIKey,
		Token:      token,
	})
	if err != nil {
		return Verification{}, fmt.Errorf("marshal verify request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/transactions/verify"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Verification{}, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Verification{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Verification{}, fmt.Errorf("%w: unexpected status %s", ErrUnreachable, resp.Status)
	}

	var verification Verification
	if err := json.NewDecoder(resp.Body).Decode(&verification); err != nil {
		return Verification{}, fmt.Errorf("%w: decode verify response: %v", ErrUnreachable, err)
	}

	return verification, nil
}
