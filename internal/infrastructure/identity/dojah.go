package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/domain/gateway"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
)

const (
	DefaultBaseURL  = "https://api.dojah.io"
	SignatureHeader = "X-Signature"
)

type Recorder interface {
	GatewayCall(gateway, operation string, started time.Time, err error)
}

// Client performs NIN lookups against a Dojah-compatible KYC API.
type Client struct {
	baseURL    string
	appID      string
	secretKey  string
	httpClient *http.Client
	recorder   Recorder
}

func NewClient(baseURL, appID, secretKey string, timeout time.Duration, recorder Recorder) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		appID:      appID,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: timeout},
		recorder:   recorder,
	}
}

type ninResponse struct {
	Error       string `json:"error"`
	ReferenceID string `json:"reference_id"`
	Entity      struct {
		NIN       string `json:"nin"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"entity"`
}

func (c *Client) LookupNIN(ctx context.Context, nin string) (res *gateway.IdentityResult, err error) {
	nin = strings.TrimSpace(nin)
	if len(nin) != 11 || strings.Trim(nin, "0123456789") != "" {
		return nil, apperror.Validation("NIN must be 11 digits")
	}

	started := time.Now()
	defer func() {
		if c.recorder != nil {
			c.recorder.GatewayCall("identity", "nin_lookup", started, err)
		}
	}()

	endpoint := c.baseURL + "/api/v1/kyc/nin?" + url.Values{"nin": {nin}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperror.Upstream(err, "failed to build identity lookup request")
	}
	req.Header.Set("AppId", c.appID)
	req.Header.Set("Authorization", c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperror.Upstream(err, "identity gateway unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperror.Upstream(err, "failed to read identity gateway response")
	}

	var parsed ninResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperror.Upstream(err, fmt.Sprintf("identity gateway returned status %d", resp.StatusCode))
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperror.Validation("NIN not found")
	case resp.StatusCode >= 300 || parsed.Error != "":
		return nil, apperror.Upstream(errors.New(parsed.Error), fmt.Sprintf("identity gateway returned status %d", resp.StatusCode))
	}

	ref := parsed.ReferenceID
	if ref == "" {
		ref = "nin-" + uuid.NewString()
	}
	return &gateway.IdentityResult{
		Reference: ref,
		NIN:       parsed.Entity.NIN,
		FirstName: parsed.Entity.FirstName,
		LastName:  parsed.Entity.LastName,
		Verified:  parsed.Entity.NIN == nin,
	}, nil
}

// Sign returns the hex HMAC-SHA256 of body, as sent in SignatureHeader.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
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
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}

type WebhookEvent struct {
	ReferenceID        string `json:"reference_id"`
	VerificationStatus string `json:"verification_status"`
	Message            string `json:"message"`
}

func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, apperror.Validation("malformed webhook payload")
	}
	if ev.ReferenceID == "" {
		return nil, apperror.Validation("webhook reference_id is missing")
	}
	return &ev, nil
}

// Approved reports the outcome. Unknown statuses are a validation error.
func (e *WebhookEvent) Approved() (bool, error) {
	switch strings.ToLower(e.VerificationStatus) {
	case "completed", "approved", "success":
		return true, nil
	case "failed", "rejected", "declined":
		return false, nil
	}
	return false, apperror.Validation("unknown verification status " + e.VerificationStatus)
}
