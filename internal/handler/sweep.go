package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/larder/internal/push"
)

type SweepHandler struct {
	scheduler *push.Scheduler
	logger    *slog.Logger
}

func NewSweepHandler(s *push.Scheduler, logger *slog.Logger) *SweepHandler {
	return &SweepHandler{scheduler: s, logger: logger}
}

// Run handles POST /api/sweep/run
func (h *SweepHandler) Run(w http.ResponseWriter, r *http.Request) {
	report, err := h.scheduler.RunNow(r.Context())
	if errors.Is(err, push.ErrSweepRunning) {
		writeError(w, http.StatusConflict, "sweep already running")
		return
	}
	if err != nil {
		h.logger.Error("manual sweep", "error", err)
		writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Status handles GET /api/sweep/status
func (h *SweepHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.scheduler.Status())
}
