package transcript

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// Handler serves the archiver's read API.
type Handler struct {
	store  *Store
	logger *slog.Logger
}

// NewHandler creates a Handler over the transcript store.
func NewHandler(store *Store) *Handler {
	return &Handler{
		store:  store,
		logger: slog.Default().With("component", "transcript-handler"),
	}
}

// Recent handles GET /api/v1/transcript/recent?limit=N.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > 500 {
			parsed = 500
		}
		limit = parsed
	}

	exchanges, err := h.store.RecentExchanges(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to load recent exchanges", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to load transcript")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"exchanges": exchanges,
		"count":     len(exchanges),
	})
}

// Activity handles GET /api/v1/transcript/activity: exchange volume over the
// last 24 hours.
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	cutoff := time.Now().Add(-24 * time.Hour)
	count, err := h.store.CountSince(r.Context(), cutoff)
	if err != nil {
		h.logger.Error("failed to count exchanges", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to load activity")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"since":     cutoff.UTC().Format(time.RFC3339),
		"exchanges": count,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
