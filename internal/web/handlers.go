package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kwei/leadsync/internal/logging"
	"github.com/kwei/leadsync/internal/order"
	"github.com/kwei/leadsync/internal/recon"
	"github.com/kwei/leadsync/internal/session"
	"github.com/kwei/leadsync/internal/takealot"
)

const targetDateLayout = "2006-01-02"

// uploadResponse is the result surface handed back after reconciliation.
type uploadResponse struct {
	Token      string                `json:"token"`
	Matched    []recon.MatchedItem   `json:"matched_items"`
	Unmatched  []recon.UnmatchedItem `json:"unmatched_items"`
	HasMatches bool                  `json:"has_matches"`
	TargetDate string                `json:"target_date,omitempty"`
	Warnings   []string              `json:"warnings,omitempty"`
}

// actionResponse is the outcome of a confirmation action.
type actionResponse struct {
	Success      bool                  `json:"success"`
	Message      string                `json:"message"`
	URL          string                `json:"url,omitempty"`
	Items        []takealot.ItemResult `json:"items,omitempty"`
	PartialBatch bool                  `json:"partial_batch,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpload parses a picking list, reconciles it against the catalog and
// parks the result under an opaque token for the confirmation actions.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if err := s.limiter.Acquire(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	defer s.limiter.Release()

	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	file, header, err := r.FormFile("csvfile")
	if err != nil {
		writeError(w, http.StatusBadRequest, "please upload a CSV file")
		return
	}
	defer file.Close()

	warnings := append([]string(nil), s.warnings...)

	// An invalid date is a warning, not an error: reconciliation proceeds
	// and the order defaults to today.
	targetDate := r.FormValue("target_date")
	if targetDate != "" {
		if _, err := time.Parse(targetDateLayout, targetDate); err != nil {
			warnings = append(warnings, "invalid target date, using today")
			targetDate = ""
		}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	rows, err := recon.ParseRows(data)
	if err != nil {
		if recon.IsMalformedInput(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error("parse failed", "file", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to parse file")
		return
	}

	res, err := recon.Reconcile(ctx, s.catalog, rows)
	if err != nil {
		logger.Error("reconciliation failed", "file", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "catalog lookup failed")
		return
	}
	res.TargetDate = targetDate
	res.Warnings = warnings

	token, err := s.sessions.Put(ctx, res)
	if err != nil {
		logger.Error("store reconciliation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store reconciliation")
		return
	}

	logger.Info("picking list reconciled",
		"file", header.Filename,
		"rows", len(rows),
		"matched", len(res.Matched),
		"unmatched", len(res.Unmatched),
	)

	writeJSON(w, http.StatusOK, uploadResponse{
		Token:      token,
		Matched:    res.Matched,
		Unmatched:  res.Unmatched,
		HasMatches: res.HasMatches(),
		TargetDate: targetDate,
		Warnings:   warnings,
	})
}

// handleGetReconciliation re-serves a parked reconciliation.
func (s *Server) handleGetReconciliation(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	res, err := s.sessions.Get(r.Context(), token)
	if err != nil {
		s.respondSessionError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Token:      token,
		Matched:    res.Matched,
		Unmatched:  res.Unmatched,
		HasMatches: res.HasMatches(),
		TargetDate: res.TargetDate,
		Warnings:   res.Warnings,
	})
}

// handleCreateOrder creates the sales order for a confirmed reconciliation.
// The reconciliation is kept in the store on failure so the user can retry
// without re-uploading.
func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	token := chi.URLParam(r, "token")

	res, err := s.sessions.Get(ctx, token)
	if err != nil {
		s.respondSessionError(w, r, err)
		return
	}
	if !res.HasMatches() {
		writeError(w, http.StatusBadRequest, "no matched items to order")
		return
	}

	ok, err := s.sessions.Claim(ctx, token, "create-order")
	if err != nil {
		logger.Error("claim failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start order creation")
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, "order creation already in progress")
		return
	}
	defer s.sessions.ReleaseClaim(ctx, token, "create-order")

	// A stored date is validated at upload, so a parse failure here means the
	// parked state was tampered with or corrupted; fall back to today rather
	// than failing the confirmation.
	targetDate, err := parseTargetDate(res.TargetDate)
	if err != nil {
		logger.Warn("stored target date unparseable, defaulting to today",
			"target_date", res.TargetDate, "error", err)
		targetDate = time.Time{}
	}

	receipt, err := s.orders.CreateOrder(ctx, res.Matched, targetDate)
	if err != nil {
		// Keep the reconciliation alive for a retry.
		if terr := s.sessions.Touch(ctx, token); terr != nil {
			logger.Warn("failed to refresh reconciliation ttl", "error", terr)
		}

		var lineErr *order.LineError
		switch {
		case errors.Is(err, order.ErrNoCustomer):
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("customer %q not found, create it before syncing orders", s.cfg.Sync.CustomerName))
		case errors.As(err, &lineErr):
			logger.Error("order line failed", "line", lineErr.Line, "sku", lineErr.SKU, "error", lineErr.Err)
			writeError(w, http.StatusInternalServerError,
				fmt.Sprintf("order creation failed at %s, nothing was created; fix the line and retry", lineErr.Error()))
		default:
			logger.Error("order creation failed", "error", err)
			writeError(w, http.StatusInternalServerError, "order creation failed, reconciliation kept for retry")
		}
		return
	}

	logger.Info("sales order created",
		"reference", receipt.Reference,
		"lines", receipt.Lines,
		"target_date", targetDate.Format(targetDateLayout),
	)

	writeJSON(w, http.StatusOK, actionResponse{
		Success: true,
		Message: fmt.Sprintf("Sales order %s created with %d line items.", receipt.Reference, receipt.Lines),
		URL:     receipt.URL,
	})
}

// syncStockRequest optionally overrides computed SoH values per part before
// the batch is pushed. Overrides clamp at zero.
type syncStockRequest struct {
	SoHOverrides map[string]int `json:"soh_overrides"`
}

// handleSyncStock pushes the reconciliation's calculated SoH values to the
// vendor as one batch update.
func (s *Server) handleSyncStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	token := chi.URLParam(r, "token")

	res, err := s.sessions.Get(ctx, token)
	if err != nil {
		s.respondSessionError(w, r, err)
		return
	}
	if !res.HasMatches() {
		writeError(w, http.StatusBadRequest, "no matched items to sync")
		return
	}

	var req syncStockRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	ok, err := s.sessions.Claim(ctx, token, "sync-stock")
	if err != nil {
		logger.Error("claim failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start stock sync")
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, "stock sync already in progress")
		return
	}
	defer s.sessions.ReleaseClaim(ctx, token, "sync-stock")

	updates := make([]takealot.StockUpdate, 0, len(res.Matched))
	for _, item := range res.Matched {
		soh := item.CalculatedSoH
		if override, ok := req.SoHOverrides[strconv.FormatInt(item.PartID, 10)]; ok {
			if override < 0 {
				override = 0
			}
			soh = override
		}
		updates = append(updates, takealot.StockUpdate{SKU: item.SKU, SoH: soh})
	}

	batch, err := s.publisher.PushStock(ctx, updates)
	if err != nil {
		if terr := s.sessions.Touch(ctx, token); terr != nil {
			logger.Warn("failed to refresh reconciliation ttl", "error", terr)
		}

		if errors.Is(err, takealot.ErrNotConfigured) {
			writeError(w, http.StatusBadRequest,
				"Takealot API credentials not configured, check TAKEALOT_API_KEY and TAKEALOT_WAREHOUSE_ID")
			return
		}
		logger.Error("stock sync failed", "error", err)
		writeError(w, http.StatusBadGateway, "stock sync failed, reconciliation kept for retry")
		return
	}

	failed := 0
	for _, item := range batch.Items {
		if !item.Success {
			failed++
		}
	}

	msg := fmt.Sprintf("Stock levels synced for %d items.", len(batch.Items))
	if failed > 0 {
		msg = fmt.Sprintf("Stock sync completed with %d of %d items failing.", failed, len(batch.Items))
	}
	if batch.BatchID != "" {
		msg += fmt.Sprintf(" (Batch ID: %s)", batch.BatchID)
	}

	logger.Info("stock sync completed", "items", len(batch.Items), "failed", failed, "batch_id", batch.BatchID)

	writeJSON(w, http.StatusOK, actionResponse{
		Success:      failed == 0,
		Message:      msg,
		Items:        batch.Items,
		PartialBatch: s.publisher.SupportsPartialBatch(),
	})
}

// respondSessionError maps session store failures to user messages.
func (s *Server) respondSessionError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no data to process, please upload a CSV first")
		return
	}
	logging.FromContext(r.Context()).Error("session load failed", "error", err)
	writeError(w, http.StatusInternalServerError, "failed to load reconciliation")
}

// parseTargetDate parses a YYYY-MM-DD date, returning the zero time for ""
// so the materializer defaults to today.
func parseTargetDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(targetDateLayout, s)
}
