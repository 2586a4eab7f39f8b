package anchor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fieldcert/fieldcert/internal/cert"
)

// LedgerClient is the external ledger backend consumed by the anchor service.
// Implemented by HTTPLedger (production) and test fakes.
type LedgerClient interface {
	// SubmitTransaction records the payload on the ledger and returns the
	// transaction reference.
	SubmitTransaction(ctx context.Context, payload []byte) (string, error)

	// BlockHeight returns the height of the block confirming the most recent
	// submission.
	BlockHeight(ctx context.Context) (int64, error)
}

// DefaultLedgerTimeout bounds each ledger call. A timeout is treated as a
// transport error and is safe to retry because the persist step is
// conditional.
const DefaultLedgerTimeout = 15 * time.Second

// HTTPLedger talks to a ledger gateway over HTTP.
//
// Endpoint, APIKey, and ContractRef must all be present; the service treats a
// partially configured ledger as unconfigured (see config.LedgerConfigured).
type HTTPLedger struct {
	Endpoint    string
	APIKey      string
	ContractRef string
	Client      *http.Client
}

// NewHTTPLedger creates an HTTPLedger with the default timeout.
func NewHTTPLedger(endpoint, apiKey, contractRef string) *HTTPLedger {
	return &HTTPLedger{
		Endpoint:    endpoint,
		APIKey:      apiKey,
		ContractRef: contractRef,
		Client:      &http.Client{Timeout: DefaultLedgerTimeout},
	}
}

type submitRequest struct {
	Contract string `json:"contract"`
	Payload  string `json:"payload"`
}

type submitResponse struct {
	TxRef string `json:"tx_ref"`
}

type heightResponse struct {
	Height int64 `json:"height"`
}

// SubmitTransaction posts the payload to the gateway's transaction endpoint.
// Any transport failure or non-2xx status surfaces as ANCHOR_TRANSPORT.
func (l *HTTPLedger) SubmitTransaction(ctx context.Context, payload []byte) (string, error) {
	body, err := json.Marshal(submitRequest{
		Contract: l.ContractRef,
		Payload:  string(payload),
	})
	if err != nil {
		return "", fmt.Errorf("submit transaction: %w", err)
	}

	var resp submitResponse
	if err := l.post(ctx, "/v1/transactions", body, &resp); err != nil {
		return "", err
	}
	if resp.TxRef == "" {
		return "", transportError("ledger returned empty transaction reference", nil)
	}
	return resp.TxRef, nil
}

// BlockHeight queries the gateway's chain-head endpoint.
func (l *HTTPLedger) BlockHeight(ctx context.Context) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.Endpoint+"/v1/height", nil)
	if err != nil {
		return 0, fmt.Errorf("block height: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+l.APIKey)

	httpResp, err := l.Client.Do(req)
	if err != nil {
		return 0, transportError("block height request failed", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return 0, transportError(fmt.Sprintf("block height returned %s", httpResp.Status), nil)
	}

	var resp heightResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return 0, transportError("block height response malformed", err)
	}
	return resp.Height, nil
}

func (l *HTTPLedger) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.Endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ledger post: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.APIKey)

	httpResp, err := l.Client.Do(req)
	if err != nil {
		return transportError("ledger request failed", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return transportError(fmt.Sprintf("ledger returned %s", httpResp.Status), nil)
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return transportError("ledger response malformed", err)
	}
	return nil
}

func transportError(msg string, cause error) *cert.Error {
	return &cert.Error{
		Code:    cert.ErrCodeAnchorTransport,
		Message: msg,
		Err:     cause,
	}
}
