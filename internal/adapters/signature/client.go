// Package signature fetches join signatures from the signature service.
package signature

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// RoleAttendee is the role requested for every participant.
const RoleAttendee = 1

var ErrEmptySignature = errors.New("signature service returned no signature")

type Client struct {
	endpoint string
	http     *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{endpoint: endpoint, http: &http.Client{Timeout: timeout}}
}

type request struct {
	SessionName string `json:"sessionName"`
	Role        int    `json:"role"`
}

type response struct {
	Signature string `json:"signature"`
}

// Signature implements core.SignatureSource.
func (c *Client) Signature(ctx context.Context, topic string) (string, error) {
	body, err := json.Marshal(request{SessionName: topic, Role: RoleAttendee})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("signature request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("signature service: %s: %s", resp.Status, bytes.TrimSpace(msg))
	}
	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode signature reply: %w", err)
	}
	if out.Signature == "" {
		return "", ErrEmptySignature
	}
	log.Debug().Str("module", "adapters.signature").Str("topic", topic).Msg("signature issued")
	return out.Signature, nil
}
