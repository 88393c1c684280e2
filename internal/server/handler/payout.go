package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/teejy22/liquidlab-revenue/internal/domain"
)

// PayoutService is the slice of the payout store the handler needs.
type PayoutService interface {
	GetByID(ctx context.Context, id string) (domain.PayoutRecord, error)
	ListByPlatform(ctx context.Context, platformID string, limit, offset int) ([]domain.PayoutRecord, error)
	SetStatus(ctx context.Context, id string, status domain.PayoutStatus, txHash, failureReason string) error
}

// PendingReader computes what a platform is currently owed.
type PendingReader interface {
	PendingAmount(ctx context.Context, platformID string) (domain.PendingPayout, error)
}

// PayoutRunner executes one payout preparation cycle.
type PayoutRunner interface {
	RunCycle(ctx context.Context) error
}

// PayoutHandler serves payout read endpoints plus the admin run trigger and
// status override.
type PayoutHandler struct {
	payouts PayoutService
	pending PendingReader
	runner  PayoutRunner
	logger  *slog.Logger
}

// NewPayoutHandler creates a PayoutHandler.
func NewPayoutHandler(payouts PayoutService, pending PendingReader, runner PayoutRunner, logger *slog.Logger) *PayoutHandler {
	return &PayoutHandler{
		payouts: payouts,
		pending: pending,
		runner:  runner,
		logger:  logger,
	}
}

// ListPayouts returns a platform's payout records, newest first.
// GET /api/platforms/{id}/payouts?limit=&offset=
func (h *PayoutHandler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	platformID := pathParam(r, "id")
	if platformID == "" {
		writeError(w, http.StatusBadRequest, "missing platform id")
		return
	}

	limit, offset := parsePagination(r)

	payouts, err := h.payouts.ListByPlatform(r.Context(), platformID, limit, offset)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list payouts failed",
			slog.String("platform_id", platformID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list payouts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"payouts": payouts,
		"limit":   limit,
		"offset":  offset,
	})
}

// PendingPayout returns what the platform is owed for the current settlement
// month.
// GET /api/platforms/{id}/payouts/pending
func (h *PayoutHandler) PendingPayout(w http.ResponseWriter, r *http.Request) {
	platformID := pathParam(r, "id")
	if platformID == "" {
		writeError(w, http.StatusBadRequest, "missing platform id")
		return
	}

	pending, err := h.pending.PendingAmount(r.Context(), platformID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: pending payout failed",
			slog.String("platform_id", platformID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to compute pending payout")
		return
	}

	writeJSON(w, http.StatusOK, pending)
}

// RunPayouts kicks off one payout preparation cycle in the background.
// POST /api/payouts/run
func (h *PayoutHandler) RunPayouts(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "handler: payout run requested")

	// Detach from the request context so the cycle survives the response.
	go func() {
		err := h.runner.RunCycle(context.Background())
		switch {
		case errors.Is(err, domain.ErrPayoutRunning):
			h.logger.Info("payout run skipped, cycle already in flight")
		case err != nil:
			h.logger.Error("payout run failed",
				slog.String("error", err.Error()),
			)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
	})
}

type setPayoutStatusRequest struct {
	Status        string `json:"status"`
	TxHash        string `json:"tx_hash"`
	FailureReason string `json:"failure_reason"`
}

// SetPayoutStatus overrides a payout record's status. This is the manual
// reconciliation path for out-of-band settlements.
// PATCH /api/payouts/{id}/status
func (h *PayoutHandler) SetPayoutStatus(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing payout id")
		return
	}

	var req setPayoutStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status := domain.PayoutStatus(req.Status)
	switch status {
	case domain.PayoutPending, domain.PayoutProcessing, domain.PayoutCompleted, domain.PayoutFailed:
	default:
		writeError(w, http.StatusBadRequest, "unknown status "+req.Status)
		return
	}

	if err := h.payouts.SetStatus(r.Context(), id, status, req.TxHash, req.FailureReason); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "payout not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: set payout status failed",
			slog.String("payout_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to update payout")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     id,
		"status": status,
	})
}
