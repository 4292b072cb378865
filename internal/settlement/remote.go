package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Azora-OS/azora-sub011/internal/model"
)

const remoteRequestTimeout = 30 * time.Second

// mintResponse is the remote mint service's reply envelope.
type mintResponse struct {
	Success bool   `json:"success"`
	TxHash  string `json:"txHash,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RemoteSettler settles rewards through the remote mint service over HTTP.
type RemoteSettler struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewRemoteSettler creates a settler for the given mint endpoint. token is
// sent as a bearer credential when non-empty.
func NewRemoteSettler(endpoint, token string) *RemoteSettler {
	return &RemoteSettler{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: remoteRequestTimeout},
	}
}

func (s *RemoteSettler) Name() string {
	return "remote-service"
}

// Settle posts the settlement request and returns the upstream transaction
// hash. Network errors map to ErrSettlementUnavailable (retryable); an
// upstream-reported failure maps to ErrSettlementFailed.
func (s *RemoteSettler) Settle(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode settlement request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build settlement request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: mint service unreachable: %v", model.ErrSettlementUnavailable, err)
	}
	defer resp.Body.Close()

	var out mintResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: malformed mint service response: %v", model.ErrSettlementFailed, err)
	}
	if resp.StatusCode != http.StatusOK || !out.Success {
		msg := out.Error
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("%w: mint service: %s", model.ErrSettlementFailed, msg)
	}
	if out.TxHash == "" {
		return "", fmt.Errorf("%w: mint service returned success without a transaction hash", model.ErrSettlementFailed)
	}
	return out.TxHash, nil
}
