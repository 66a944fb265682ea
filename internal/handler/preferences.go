package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/store"
)

type PreferencesHandler struct {
	settings *store.SettingsStore
	logger   *slog.Logger
}

func NewPreferencesHandler(ss *store.SettingsStore, logger *slog.Logger) *PreferencesHandler {
	return &PreferencesHandler{settings: ss, logger: logger}
}

// Get handles GET /api/preferences
func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.settings.GetPreferences(r.Context())
	if err != nil {
		h.logger.Error("get preferences", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get preferences")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// preferencesRequest allows partial updates; omitted flags keep their value.
type preferencesRequest struct {
	NotifySevenDays *bool `json:"notify_seven_days"`
	NotifyThreeDays *bool `json:"notify_three_days"`
	NotifyOneDay    *bool `json:"notify_one_day"`
}

func (req preferencesRequest) apply(prefs model.NotificationPreferences) model.NotificationPreferences {
	if req.NotifySevenDays != nil {
		prefs.NotifySevenDays = *req.NotifySevenDays
	}
	if req.NotifyThreeDays != nil {
		prefs.NotifyThreeDays = *req.NotifyThreeDays
	}
	if req.NotifyOneDay != nil {
		prefs.NotifyOneDay = *req.NotifyOneDay
	}
	return prefs
}

// Update handles PUT /api/preferences
func (h *PreferencesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	current, err := h.settings.GetPreferences(r.Context())
	if err != nil {
		h.logger.Error("get preferences", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get preferences")
		return
	}

	prefs := req.apply(current)
	if err := h.settings.SavePreferences(r.Context(), prefs); err != nil {
		h.logger.Error("save preferences", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save preferences")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}
