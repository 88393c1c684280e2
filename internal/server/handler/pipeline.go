package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// JobTrigger runs a registered pipeline job by name.
type JobTrigger interface {
	Trigger(name string) error
}

// PipelineHandler serves pipeline trigger endpoints.
type PipelineHandler struct {
	trigger JobTrigger
	logger  *slog.Logger
}

// NewPipelineHandler creates a PipelineHandler backed by the scheduler.
func NewPipelineHandler(trigger JobTrigger, logger *slog.Logger) *PipelineHandler {
	return &PipelineHandler{trigger: trigger, logger: logger}
}

type triggerRequest struct {
	Job string `json:"job"`
}

// TriggerJob runs one pipeline job immediately. The job name defaults to
// "ingest"; overlapping ingestion runs are skipped by the cycle guard, not
// queued.
// POST /api/pipeline/trigger
func (h *PipelineHandler) TriggerJob(w http.ResponseWriter, r *http.Request) {
	req := triggerRequest{Job: "ingest"}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Job == "" {
			req.Job = "ingest"
		}
	}

	h.logger.InfoContext(r.Context(), "handler: pipeline trigger requested",
		slog.String("job", req.Job),
	)

	if err := h.trigger.Trigger(req.Job); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "completed",
		"job":          req.Job,
		"triggered_at": time.Now().UTC().Format(time.RFC3339),
	})
}
