package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/teejy22/liquidlab-revenue/internal/domain"
)

// PlatformService defines the methods that the platform handler requires. It
// is declared locally so the handler package does not depend on the concrete
// store implementation.
type PlatformService interface {
	Create(ctx context.Context, p domain.Platform) error
	GetByID(ctx context.Context, id string) (domain.Platform, error)
	ListActive(ctx context.Context) ([]domain.Platform, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// PlatformHandler serves the tenant registry endpoints.
type PlatformHandler struct {
	platforms PlatformService
	logger    *slog.Logger
}

// NewPlatformHandler creates a PlatformHandler with the given service and logger.
func NewPlatformHandler(platforms PlatformService, logger *slog.Logger) *PlatformHandler {
	return &PlatformHandler{
		platforms: platforms,
		logger:    logger,
	}
}

type createPlatformRequest struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	OwnerUserID   string `json:"owner_user_id"`
	WalletAddress string `json:"wallet_address"`
}

// CreatePlatform registers a new platform.
// POST /api/platforms
func (h *PlatformHandler) CreatePlatform(w http.ResponseWriter, r *http.Request) {
	var req createPlatformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.ID = strings.TrimSpace(req.ID)
	req.Name = strings.TrimSpace(req.Name)
	req.WalletAddress = strings.TrimSpace(req.WalletAddress)

	switch {
	case req.ID == "":
		writeError(w, http.StatusBadRequest, "id is required")
		return
	case req.Name == "":
		writeError(w, http.StatusBadRequest, "name is required")
		return
	case req.WalletAddress != "" && !common.IsHexAddress(req.WalletAddress):
		writeError(w, http.StatusBadRequest, "wallet_address is not a valid address")
		return
	}

	p := domain.Platform{
		ID:            req.ID,
		Name:          req.Name,
		OwnerUserID:   req.OwnerUserID,
		WalletAddress: req.WalletAddress,
		Active:        true,
	}

	if err := h.platforms.Create(r.Context(), p); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, "platform already exists")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: create platform failed",
			slog.String("platform_id", req.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create platform")
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

// ListPlatforms returns every active platform.
// GET /api/platforms
func (h *PlatformHandler) ListPlatforms(w http.ResponseWriter, r *http.Request) {
	platforms, err := h.platforms.ListActive(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list platforms failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list platforms")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"platforms": platforms,
		"total":     len(platforms),
	})
}

// GetPlatform returns a single platform by its ID.
// GET /api/platforms/{id}
func (h *PlatformHandler) GetPlatform(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing platform id")
		return
	}

	p, err := h.platforms.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "platform not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get platform failed",
			slog.String("platform_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get platform")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// SetActive toggles a platform's active flag. Deactivated platforms keep
// their ledger but are skipped by ingestion and payouts.
// PATCH /api/platforms/{id}/active
func (h *PlatformHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing platform id")
		return
	}

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.platforms.SetActive(r.Context(), id, req.Active); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "platform not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: set platform active failed",
			slog.String("platform_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to update platform")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     id,
		"active": req.Active,
	})
}
