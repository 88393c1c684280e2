package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/teejy22/liquidlab-revenue/internal/domain"
)

// LedgerService is the slice of the fee ledger the revenue handler needs.
type LedgerService interface {
	ListByPlatform(ctx context.Context, platformID string, f domain.FeeTxFilter) ([]domain.FeeTransaction, error)
	SetStatus(ctx context.Context, id int64, status domain.FeeTxStatus, force bool) error
}

// SummaryService reads derived revenue summaries.
type SummaryService interface {
	Latest(ctx context.Context, platformID string, period domain.Period) (domain.RevenueSummary, error)
	ListPlatformRevenues(ctx context.Context, minRevenue decimal.Decimal) ([]domain.PlatformRevenue, error)
}

// RevenueHandler serves ledger and summary read endpoints.
type RevenueHandler struct {
	ledger    LedgerService
	summaries SummaryService
	cache     domain.RevenueCache // optional leaderboard cache
	logger    *slog.Logger
}

// NewRevenueHandler creates a RevenueHandler. cache may be nil.
func NewRevenueHandler(ledger LedgerService, summaries SummaryService, cache domain.RevenueCache, logger *slog.Logger) *RevenueHandler {
	return &RevenueHandler{
		ledger:    ledger,
		summaries: summaries,
		cache:     cache,
		logger:    logger,
	}
}

// ListTransactions returns a platform's fee ledger rows, newest first.
// GET /api/platforms/{id}/transactions?status=&start=&end=&limit=&offset=
func (h *RevenueHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	platformID := pathParam(r, "id")
	if platformID == "" {
		writeError(w, http.StatusBadRequest, "missing platform id")
		return
	}

	limit, offset := parsePagination(r)
	filter := domain.FeeTxFilter{Limit: limit, Offset: offset}

	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.FeeTxStatus(s)
		if !domain.ValidFeeTxStatus(status) {
			writeError(w, http.StatusBadRequest, "unknown status "+s)
			return
		}
		filter.Status = status
	}

	start, err := parseTimeParam(r, "start")
	if err != nil {
		writeError(w, http.StatusBadRequest, "start must be RFC 3339")
		return
	}
	filter.StartDate = start

	end, err := parseTimeParam(r, "end")
	if err != nil {
		writeError(w, http.StatusBadRequest, "end must be RFC 3339")
		return
	}
	filter.EndDate = end

	txs, err := h.ledger.ListByPlatform(r.Context(), platformID, filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list transactions failed",
			slog.String("platform_id", platformID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txs,
		"limit":        limit,
		"offset":       offset,
	})
}

// GetRevenue returns the latest revenue summary for a platform and period.
// GET /api/platforms/{id}/revenue?period=daily
func (h *RevenueHandler) GetRevenue(w http.ResponseWriter, r *http.Request) {
	platformID := pathParam(r, "id")
	if platformID == "" {
		writeError(w, http.StatusBadRequest, "missing platform id")
		return
	}

	period := domain.Period(r.URL.Query().Get("period"))
	if period == "" {
		period = domain.PeriodAllTime
	}
	if !domain.ValidPeriod(period) {
		writeError(w, http.StatusBadRequest, "unknown period "+string(period))
		return
	}

	summary, err := h.summaries.Latest(r.Context(), platformID, period)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no revenue summary for platform")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get revenue failed",
			slog.String("platform_id", platformID),
			slog.String("period", string(period)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get revenue")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// Leaderboard returns all-time platform revenues sorted descending.
// Results for the unfiltered query are served from cache when available.
// GET /api/leaderboard?min_revenue=0
func (h *RevenueHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	minRevenue := decimal.Zero
	if v := r.URL.Query().Get("min_revenue"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			writeError(w, http.StatusBadRequest, "min_revenue must be a non-negative decimal")
			return
		}
		minRevenue = d
	}

	// Only the default query is cached; filtered views hit the store.
	cacheable := minRevenue.IsZero() && h.cache != nil

	if cacheable {
		if revenues, err := h.cache.Get(r.Context()); err == nil {
			writeJSON(w, http.StatusOK, map[string]any{
				"platforms": revenues,
				"total":     len(revenues),
			})
			return
		}
	}

	revenues, err := h.summaries.ListPlatformRevenues(r.Context(), minRevenue)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: leaderboard failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to compute leaderboard")
		return
	}

	if cacheable {
		if err := h.cache.Set(r.Context(), revenues); err != nil {
			h.logger.WarnContext(r.Context(), "handler: leaderboard cache write failed",
				slog.String("error", err.Error()),
			)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"platforms": revenues,
		"total":     len(revenues),
	})
}

type setTxStatusRequest struct {
	Status string `json:"status"`
	Force  bool   `json:"force"`
}

// SetTransactionStatus transitions a ledger row's status. Backwards
// transitions require force and the admin key.
// PATCH /api/transactions/{id}/status
func (h *RevenueHandler) SetTransactionStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(pathParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "transaction id must be an integer")
		return
	}

	var req setTxStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status := domain.FeeTxStatus(req.Status)
	if !domain.ValidFeeTxStatus(status) {
		writeError(w, http.StatusBadRequest, "unknown status "+req.Status)
		return
	}

	if err := h.ledger.SetStatus(r.Context(), id, status, req.Force); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "transaction not found")
		case errors.Is(err, domain.ErrInvalidStatus):
			writeError(w, http.StatusConflict, "backwards status transition requires force")
		default:
			h.logger.ErrorContext(r.Context(), "handler: set transaction status failed",
				slog.Int64("tx_id", id),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to update transaction")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     id,
		"status": status,
	})
}
