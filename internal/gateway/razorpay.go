// Package gateway talks to the Razorpay REST API. Orders are created
// with basic auth over HTTPS; webhook authenticity is an HMAC-SHA256
// over the raw request body with a shared secret.
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/onnride/vehicle-rental/internal/engine"
)

const defaultBaseURL = "https://api.razorpay.com/v1"

// RazorpayClient implements engine.PaymentGateway. Amounts cross the
// wire in paise (the API's smallest-unit convention), so rupee amounts
// are multiplied by 100 on the way out and divided on the way back.
type RazorpayClient struct {
	keyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	http          *http.Client
}

func NewRazorpayClient(keyID, keySecret, webhookSecret string) *RazorpayClient {
	return &RazorpayClient{
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		baseURL:       defaultBaseURL,
		http:          &http.Client{Timeout: 15 * time.Second},
	}
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder opens a Razorpay order for the given rupee amount. The
// returned session token is the order id itself; the checkout widget
// consumes it together with the public key id.
func (c *RazorpayClient) CreateOrder(ctx context.Context, amount int64, metadata map[string]string) (*engine.PaymentOrder, error) {
	payload := map[string]any{
		"amount":   amount * 100,
		"currency": "INR",
		"receipt":  "rcpt_" + uuid.NewString()[:13],
		"notes":    metadata,
	}
	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/orders", payload, &resp); err != nil {
		return nil, err
	}
	return &engine.PaymentOrder{
		OrderID:      resp.ID,
		SessionToken: resp.ID,
		Amount:       resp.Amount / 100,
		Currency:     resp.Currency,
	}, nil
}

// FetchOrderStatus returns the raw order status string ("created",
// "attempted", "paid").
func (c *RazorpayClient) FetchOrderStatus(ctx context.Context, orderID string) (string, error) {
	var resp orderResponse
	if err := c.do(ctx, http.MethodGet, "/orders/"+orderID, nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header value
// against HMAC-SHA256(webhookSecret, body) in constant time.
func (c *RazorpayClient) VerifyWebhookSignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *RazorpayClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("razorpay request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Description != "" {
			return fmt.Errorf("razorpay %s %s: %s", method, path, apiErr.Error.Description)
		}
		return fmt.Errorf("razorpay %s %s: http %d", method, path, resp.StatusCode)
	}
	return json.Unmarshal(data, out)
}
