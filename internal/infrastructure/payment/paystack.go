package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ignatzorin/freelance-escrow/internal/domain/gateway"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

const (
	DefaultBaseURL  = "https://api.paystack.co"
	SignatureHeader = "X-Paystack-Signature"

	EventChargeSuccess = "charge.success"
)

type Recorder interface {
	GatewayCall(gateway, operation string, started time.Time, err error)
}

// Client verifies transactions against a Paystack-compatible API.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	recorder   Recorder
}

func NewClient(baseURL, secretKey string, timeout time.Duration, recorder Recorder) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: timeout},
		recorder:   recorder,
	}
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Reference string     `json:"reference"`
		Status    string     `json:"status"`
		Amount    int64      `json:"amount"`
		Currency  string     `json:"currency"`
		PaidAt    *time.Time `json:"paid_at"`
	} `json:"data"`
}

func (c *Client) VerifyTransaction(ctx context.Context, reference string) (tx *gateway.PaymentTransaction, err error) {
	started := time.Now()
	defer func() {
		if c.recorder != nil {
			c.recorder.GatewayCall("payment", "verify", started, err)
		}
	}()

	endpoint := fmt.Sprintf("%s/transaction/verify/%s", c.baseURL, url.PathEscape(reference))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperror.Upstream(err, "failed to build payment verification request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperror.Upstream(err, "payment gateway unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperror.Upstream(err, "failed to read payment gateway response")
	}

	var parsed verifyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperror.Upstream(err, fmt.Sprintf("payment gateway returned status %d", resp.StatusCode))
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
		return nil, apperror.Validation("payment reference not recognised: " + parsed.Message)
	case resp.StatusCode >= 300 || !parsed.Status:
		return nil, apperror.Upstream(errors.New(parsed.Message), fmt.Sprintf("payment gateway returned status %d", resp.StatusCode))
	}

	return &gateway.PaymentTransaction{
		Reference: parsed.Data.Reference,
		Status:    parsed.Data.Status,
		Amount:    parsed.Data.Amount,
		Currency:  strings.ToUpper(parsed.Data.Currency),
		PaidAt:    parsed.Data.PaidAt,
	}, nil
}

// Sign returns the hex HMAC-SHA512 of body, as sent in SignatureHeader.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}

type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
	} `json:"data"`
}

func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, apperror.Validation("malformed webhook payload")
	}
	if ev.Event == "" {
		return nil, apperror.Validation("webhook event type is missing")
	}
	return &ev, nil
}

// Transaction converts a webhook payload into the gateway view of the charge.
func (e *WebhookEvent) Transaction() *gateway.PaymentTransaction {
	return &gateway.PaymentTransaction{
		Reference: e.Data.Reference,
		Status:    e.Data.Status,
		Amount:    e.Data.Amount,
		Currency:  strings.ToUpper(e.Data.Currency),
	}
}
