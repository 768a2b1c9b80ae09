package takealot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPushStock_NotConfigured(t *testing.T) {
	c := NewClient("", "", "", 0, false)
	_, err := c.PushStock(context.Background(), []StockUpdate{{SKU: "A", SoH: 1}})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestPushStock_PayloadAndAuth(t *testing.T) {
	var got batchRequest
	var gotAuth, gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"batch_id": "B42"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-key", "WH7", time.Second, false)
	result, err := c.PushStock(context.Background(), []StockUpdate{
		{SKU: "ABC123", SoH: 5},
		{SKU: "DEF456", SoH: 0},
	})
	if err != nil {
		t.Fatalf("PushStock() error = %v", err)
	}

	if gotPath != "/stock/create_batch" {
		t.Errorf("path = %q, want /stock/create_batch", gotPath)
	}
	if gotAuth != "Key secret-key" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Key secret-key")
	}

	if len(got.Requests) != 2 {
		t.Fatalf("payload has %d requests, want 2", len(got.Requests))
	}
	first := got.Requests[0]
	if first.SKU != "ABC123" {
		t.Errorf("requests[0].sku = %q", first.SKU)
	}
	if len(first.LeadtimeStock) != 1 ||
		first.LeadtimeStock[0].MerchantWarehouseID != "WH7" ||
		first.LeadtimeStock[0].Quantity != 5 {
		t.Errorf("requests[0].leadtime_stock = %+v", first.LeadtimeStock)
	}

	if result.BatchID != "B42" {
		t.Errorf("BatchID = %q, want B42", result.BatchID)
	}
}

func TestPushStock_BatchOutcomeReplicatedPerItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "B1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "WH1", time.Second, false)
	result, err := c.PushStock(context.Background(), []StockUpdate{
		{SKU: "A", SoH: 1},
		{SKU: "B", SoH: 2},
		{SKU: "C", SoH: 3},
	})
	if err != nil {
		t.Fatalf("PushStock() error = %v", err)
	}

	if c.SupportsPartialBatch() {
		t.Error("SupportsPartialBatch() = true, want false")
	}
	if len(result.Items) != 3 {
		t.Fatalf("got %d item results, want 3", len(result.Items))
	}
	for _, item := range result.Items {
		if !item.Success {
			t.Errorf("item %s not marked successful", item.SKU)
		}
	}
}

func TestPushStock_PerItemResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(batchResponse{
			BatchID: "B9",
			Results: []ItemResult{
				{SKU: "A", Success: true},
				{SKU: "B", Success: false, Message: "unknown offer"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "WH1", time.Second, true)
	result, err := c.PushStock(context.Background(), []StockUpdate{
		{SKU: "A", SoH: 1},
		{SKU: "B", SoH: 2},
	})
	if err != nil {
		t.Fatalf("PushStock() error = %v", err)
	}

	if !c.SupportsPartialBatch() {
		t.Error("SupportsPartialBatch() = false, want true")
	}
	if len(result.Items) != 2 {
		t.Fatalf("got %d item results, want 2", len(result.Items))
	}
	if result.Items[0].SKU != "A" || !result.Items[0].Success {
		t.Errorf("items[0] = %+v", result.Items[0])
	}
	if result.Items[1].Success || result.Items[1].Message != "unknown offer" {
		t.Errorf("items[1] = %+v", result.Items[1])
	}
}

func TestPushStock_PartialResultsPadded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(batchResponse{
			BatchID: "B3",
			Results: []ItemResult{
				{SKU: "B", Success: false, Message: "unknown offer"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "WH1", time.Second, true)
	result, err := c.PushStock(context.Background(), []StockUpdate{
		{SKU: "A", SoH: 1},
		{SKU: "B", SoH: 2},
		{SKU: "C", SoH: 3},
	})
	if err != nil {
		t.Fatalf("PushStock() error = %v", err)
	}

	// Always one entry per submitted update, in submission order, even when
	// the API reports on a subset.
	if len(result.Items) != 3 {
		t.Fatalf("got %d item results, want 3", len(result.Items))
	}
	if result.Items[0].SKU != "A" || !result.Items[0].Success {
		t.Errorf("items[0] = %+v, want batch-level success for A", result.Items[0])
	}
	if result.Items[1].SKU != "B" || result.Items[1].Success || result.Items[1].Message != "unknown offer" {
		t.Errorf("items[1] = %+v, want reported failure for B", result.Items[1])
	}
	if result.Items[2].SKU != "C" || !result.Items[2].Success {
		t.Errorf("items[2] = %+v, want batch-level success for C", result.Items[2])
	}
}

func TestPushStock_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid api key"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad", "WH1", time.Second, false)
	_, err := c.PushStock(context.Background(), []StockUpdate{{SKU: "A", SoH: 1}})
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if want := "invalid api key"; !strings.Contains(err.Error(), want) {
		t.Errorf("error %q does not contain %q", err.Error(), want)
	}
}
