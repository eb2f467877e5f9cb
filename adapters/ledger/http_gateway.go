// Package ledger adapts the decentralized ledger to the LedgerBlobStore
// port. The gateway speaks the ledger node's HTTP API; the core never sees
// chain-specific details.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ANAVHEOBA/dumzfun/ports"
)

const defaultTimeout = 5 * time.Second

// HTTPGateway implements LedgerBlobStore against a ledger gateway node.
// Writes confirm asynchronously; callers poll Status.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

// NewHTTPGateway points the adapter at a gateway node. A nil client gets a
// default with a bounded timeout so a stuck node cannot hang callers.
func NewHTTPGateway(baseURL string, client *http.Client) *HTTPGateway {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &HTTPGateway{baseURL: baseURL, client: client}
}

var _ ports.LedgerBlobStore = (*HTTPGateway)(nil)

type storeResponse struct {
	TxID string `json:"tx_id"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// Store submits the blob and returns its transaction id.
func (g *HTTPGateway) Store(ctx context.Context, blob []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/tx", bytes.NewReader(blob))
	if err != nil {
		return "", fmt.Errorf("ledger store: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ledger store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("ledger store: unexpected status %d", resp.StatusCode)
	}

	var out storeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ledger store: %w", err)
	}
	return out.TxID, nil
}

// Get fetches the blob for a transaction id.
func (g *HTTPGateway) Get(ctx context.Context, txID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/tx/"+txID+"/data", nil)
	if err != nil {
		return nil, fmt.Errorf("ledger get: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ledger get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("ledger get: %w", ports.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ledger get: unexpected status %d", resp.StatusCode)
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ledger get: %w", err)
	}
	return blob, nil
}

// Status polls the confirmation state of a transaction.
func (g *HTTPGateway) Status(ctx context.Context, txID string) (ports.TxStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/tx/"+txID+"/status", nil)
	if err != nil {
		return "", fmt.Errorf("ledger status: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ledger status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Not yet indexed by the gateway counts as pending.
		return ports.TxPending, nil
	}

	var out statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ledger status: %w", err)
	}
	if out.Status == string(ports.TxConfirmed) {
		return ports.TxConfirmed, nil
	}
	return ports.TxPending, nil
}
