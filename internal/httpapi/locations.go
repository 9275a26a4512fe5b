package httpapi

import (
	"net/http"
	"time"

	"location_viewer/core-go/internal/location"
)

type statusResponse struct {
	Status     string     `json:"status"`
	Error      *string    `json:"error,omitempty"`
	Count      int        `json:"count"`
	Generation uint64     `json:"generation"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	LoadedAt   *time.Time `json:"loaded_at,omitempty"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := h.viewer.Snapshot()

	resp := statusResponse{
		Status:     string(st.Status),
		Count:      len(st.Locations),
		Generation: st.Generation,
	}
	if st.Err != "" {
		msg := st.Err
		resp.Error = &msg
	}
	if !st.StartedAt.IsZero() {
		t := st.StartedAt
		resp.StartedAt = &t
	}
	if !st.LoadedAt.IsZero() {
		t := st.LoadedAt
		resp.LoadedAt = &t
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListLocations(w http.ResponseWriter, r *http.Request) {
	st := h.viewer.Snapshot()
	if !h.writeNotReady(w, st) {
		return
	}

	resp := st.Locations
	if resp == nil {
		resp = location.Set{}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// handleReload remounts the view: the state goes back to loading and the
// document is fetched again.
func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	gen := h.viewer.Start(h.mountCtx)
	h.log.Info().
		Str("request_id", requestID(r)).
		Uint64("generation", gen).
		Msg("reload requested")
	h.writeJSON(w, http.StatusAccepted, map[string]any{"status": "accepted", "generation": gen})
}
