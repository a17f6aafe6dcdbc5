// Package notify is the client side of the external notification sink. The
// workflow only ever enqueues; storage and read/unread bookkeeping live in
// the sink service.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"certflow/pkg/domain"

	"github.com/google/uuid"
)

const (
	signatureHeader = "X-Signature"
	eventIDHeader   = "X-Event-Id"
	eventTypeHeader = "X-Event-Type"
)

type Client struct {
	BaseURL string
	Secret  string
	HTTP    *http.Client
}

func New(baseURL, secret string) *Client {
	return &Client{BaseURL: baseURL, Secret: secret, HTTP: &http.Client{}}
}

// Enqueue posts one notification to the sink, signed with HMAC-SHA256 over
// the raw body so the sink can authenticate the sender.
func (c *Client) Enqueue(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/notifications", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set(eventIDHeader, "evt_"+uuid.NewString())
	req.Header.Set(eventTypeHeader, string(n.Type))
	req.Header.Set(signatureHeader, Sign(c.Secret, body))

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification sink returned %d", resp.StatusCode)
	}
	return nil
}

// Sign computes the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a hex signature against the expected HMAC of body. The sink
// side uses this; it is here so both halves share one definition.
func Verify(secret string, body []byte, sigHex string) bool {
	provided, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hmac.Equal(mac.Sum(nil), provided)
}
