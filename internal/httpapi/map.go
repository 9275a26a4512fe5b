package httpapi

import (
	"bytes"
	"net/http"

	"location_viewer/core-go/internal/viewer"
)

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	st := h.viewer.Snapshot()

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, st); err != nil {
		h.log.Error().Err(err).Uint64("generation", st.Generation).Msg("render page failed")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if st.Status == viewer.StatusLoading {
		w.Header().Set("Cache-Control", "no-store")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) handleGetView(w http.ResponseWriter, r *http.Request) {
	st := h.viewer.Snapshot()
	if !h.writeNotReady(w, st) {
		return
	}
	if st.Status == viewer.StatusEmpty || st.View == nil {
		h.writeError(w, http.StatusNotFound, "no_locations", "No locations found in the data file.", nil)
		return
	}
	h.writeJSON(w, http.StatusOK, st.View)
}

// writeNotReady answers for the loading and error states and reports whether
// the caller should continue.
func (h *Handler) writeNotReady(w http.ResponseWriter, st viewer.State) bool {
	switch st.Status {
	case viewer.StatusLoading:
		h.writeError(w, http.StatusServiceUnavailable, "loading", "Loading locations...", map[string]any{"generation": st.Generation})
		return false
	case viewer.StatusError:
		h.writeError(w, http.StatusBadGateway, "load_failed", st.Err, map[string]any{"generation": st.Generation})
		return false
	}
	return true
}
