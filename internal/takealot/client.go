// Package takealot is a minimal client for the Takealot seller API, covering
// the leadtime stock batch update used by the sync-stock action.
package takealot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the production seller API endpoint.
const DefaultBaseURL = "https://seller-api.takealot.com/v2"

// DefaultTimeout bounds a single batch call.
const DefaultTimeout = 10 * time.Second

// ErrNotConfigured is returned when API credentials are missing. The sync
// action is optional, so this is surfaced as a user message, not a crash.
var ErrNotConfigured = errors.New("takealot api credentials not configured")

// StockUpdate is one (offer, stock-on-hand) pair to push.
type StockUpdate struct {
	SKU string
	SoH int
}

// ItemResult is the per-SKU outcome of a batch push.
type ItemResult struct {
	SKU     string `json:"sku"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// BatchResult is the outcome of one batch push. Items always has one entry
// per submitted update; when the API reports only a batch-level outcome the
// entries replicate it.
type BatchResult struct {
	BatchID string       `json:"batch_id,omitempty"`
	Items   []ItemResult `json:"items"`
}

// Publisher is the outbound stock-on-hand contract.
type Publisher interface {
	PushStock(ctx context.Context, updates []StockUpdate) (BatchResult, error)

	// SupportsPartialBatch reports whether the vendor returns trustworthy
	// per-item outcomes. When false, callers should present the result as
	// all-or-nothing.
	SupportsPartialBatch() bool
}

// Client talks to the Takealot seller API.
type Client struct {
	baseURL      string
	apiKey       string
	warehouseID  string
	partialBatch bool
	http         *http.Client
}

// NewClient creates a Client. Empty baseURL falls back to DefaultBaseURL and
// a non-positive timeout to DefaultTimeout. partialBatch declares whether the
// account's API version returns per-item results; leave false until confirmed
// against the vendor.
func NewClient(baseURL, apiKey, warehouseID string, timeout time.Duration, partialBatch bool) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		warehouseID:  warehouseID,
		partialBatch: partialBatch,
		http:         &http.Client{Timeout: timeout},
	}
}

// SupportsPartialBatch implements Publisher.
func (c *Client) SupportsPartialBatch() bool { return c.partialBatch }

type leadtimeStock struct {
	MerchantWarehouseID string `json:"merchant_warehouse_id"`
	Quantity            int    `json:"quantity"`
}

type stockEntry struct {
	SKU           string          `json:"sku"`
	LeadtimeStock []leadtimeStock `json:"leadtime_stock"`
}

type batchRequest struct {
	Requests []stockEntry `json:"requests"`
}

type batchResponse struct {
	BatchID string       `json:"batch_id"`
	ID      string       `json:"id"`
	Results []ItemResult `json:"results"`
	Error   string       `json:"error"`
}

// PushStock issues one batch update for all SKUs. A transport or API-level
// failure errors out; otherwise the result carries one entry per update.
func (c *Client) PushStock(ctx context.Context, updates []StockUpdate) (BatchResult, error) {
	if c.apiKey == "" || c.warehouseID == "" {
		return BatchResult{}, ErrNotConfigured
	}

	payload := batchRequest{Requests: make([]stockEntry, 0, len(updates))}
	for _, u := range updates {
		payload.Requests = append(payload.Requests, stockEntry{
			SKU: u.SKU,
			LeadtimeStock: []leadtimeStock{
				{MerchantWarehouseID: c.warehouseID, Quantity: u.SoH},
			},
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return BatchResult{}, fmt.Errorf("encode batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/stock/create_batch", bytes.NewReader(body))
	if err != nil {
		return BatchResult{}, err
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return BatchResult{}, fmt.Errorf("takealot api request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := apiErrorDetail(respBody)
		return BatchResult{}, fmt.Errorf("takealot api error %d: %s", resp.StatusCode, detail)
	}

	var parsed batchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		// A 2xx with an unreadable body still means the batch was accepted.
		parsed = batchResponse{}
	}

	result := BatchResult{BatchID: parsed.BatchID}
	if result.BatchID == "" {
		result.BatchID = parsed.ID
	}

	if c.partialBatch && len(parsed.Results) > 0 {
		// One entry per submitted update, in submission order. SKUs the API
		// did not report on fall back to the batch-level outcome.
		bySKU := make(map[string]ItemResult, len(parsed.Results))
		for _, r := range parsed.Results {
			bySKU[r.SKU] = r
		}
		result.Items = make([]ItemResult, 0, len(updates))
		for _, u := range updates {
			if r, ok := bySKU[u.SKU]; ok {
				result.Items = append(result.Items, r)
			} else {
				result.Items = append(result.Items, ItemResult{SKU: u.SKU, Success: true})
			}
		}
	} else {
		// Batch-level outcome replicated to every item.
		result.Items = make([]ItemResult, 0, len(updates))
		for _, u := range updates {
			result.Items = append(result.Items, ItemResult{SKU: u.SKU, Success: true})
		}
	}

	return result, nil
}

// apiErrorDetail pulls a useful message out of an error response body.
func apiErrorDetail(body []byte) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return strings.TrimSpace(string(body))
}
