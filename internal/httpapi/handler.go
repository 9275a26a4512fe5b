package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"location_viewer/core-go/internal/metrics"
	"location_viewer/core-go/internal/render"
	"location_viewer/core-go/internal/viewer"
)

// Viewer is the part of *viewer.Viewer the HTTP layer uses.
type Viewer interface {
	Snapshot() viewer.State
	Start(ctx context.Context) uint64
}

type Options struct {
	// MountContext bounds loads started by the reload endpoint. Request
	// contexts end with the response, so they cannot be used.
	MountContext context.Context
	DataDir      string
	CORSOrigins  []string
}

type Handler struct {
	log      zerolog.Logger
	viewer   Viewer
	renderer *render.Renderer
	metrics  *metrics.Metrics
	mountCtx context.Context
	dataDir  string
	cors     *cors.Cors
}

func NewHandler(log zerolog.Logger, v Viewer, r *render.Renderer, m *metrics.Metrics, opts Options) *Handler {
	mountCtx := opts.MountContext
	if mountCtx == nil {
		mountCtx = context.Background()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Handler{
		log:      log,
		viewer:   v,
		renderer: r,
		metrics:  m,
		mountCtx: mountCtx,
		dataDir:  opts.DataDir,
		cors: cors.New(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}),
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(h.accessLog)

	// Health
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	// Page
	r.Get("/", h.handlePage)
	if h.dataDir != "" {
		r.Handle("/data/*", http.StripPrefix("/data/", http.FileServer(http.Dir(h.dataDir))))
	}

	// API
	r.Route("/api", func(r chi.Router) {
		r.Use(h.cors.Handler)
		r.Route("/v1", func(r chi.Router) {
			r.Get("/status", h.handleStatus)
			r.Get("/locations", h.handleListLocations)
			r.Get("/view", h.handleGetView)
			r.Post("/reload", h.handleReload)
		})
	})

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		h.metrics.ObserveHTTPRequest(r.Method, route, status, time.Since(start))

		h.log.Info().
			Str("request_id", requestID(r)).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http_request")
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	resp := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if details != nil {
		resp["error"].(map[string]any)["details"] = details
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Ready means the current mount finished loading, whatever the outcome.
func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	st := h.viewer.Snapshot()
	if !st.Status.Terminal() {
		h.writeError(w, http.StatusServiceUnavailable, "not_ready", "locations are still loading", map[string]any{"generation": st.Generation})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ready": true, "status": st.Status})
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}
