package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"assetserve/internal/codec"
	"assetserve/internal/domain"
	"assetserve/internal/metrics"
)

// DefaultHistoryLimit is the number of records /history returns when no
// limit is given
const DefaultHistoryLimit = 50

// GraphSource computes the asset graph view
type GraphSource interface {
	Graph(ctx context.Context) (*domain.Graph, error)
}

// History reads back journaled requests
type History interface {
	Recent(ctx context.Context, limit int) ([]domain.RequestRecord, error)
}

// AdminHandler serves the inspection endpoints next to the dev server
type AdminHandler struct {
	graph   GraphSource
	events  http.Handler
	history History
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewAdminHandler creates the admin handler. events, history and m may be
// nil; their routes then answer 404.
func NewAdminHandler(graph GraphSource, events http.Handler, history History, m *metrics.Metrics, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		graph:   graph,
		events:  events,
		history: history,
		metrics: m,
		log:     logger.Named("admin"),
	}
}

// ErrorResponse is the JSON body of failed admin requests
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Router returns the admin routes
func (h *AdminHandler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(Recover(h.log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/graph", h.GetGraph)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.metrics.Registry, promhttp.HandlerOpts{}))
	}
	if h.events != nil {
		r.Method(http.MethodGet, "/events", h.events)
	}
	if h.history != nil {
		r.Get("/history", h.GetHistory)
	}
	return r
}

// GetGraph returns the assets reachable from the entry asset, as JSON or
// in the codec named by ?format=
func (h *AdminHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	exporter, err := codec.ForFormat(format)
	if err != nil {
		h.writeError(w, "Invalid format", err.Error(), http.StatusBadRequest)
		return
	}

	graph, err := h.graph.Graph(r.Context())
	if err != nil {
		h.log.Error("failed to get graph", zap.Error(err))
		h.writeError(w, "Failed to get graph", err.Error(), http.StatusInternalServerError)
		return
	}

	if format == "" {
		h.writeJSON(w, graph, http.StatusOK)
		return
	}
	w.Header().Set("Content-Type", exporter.ContentType())
	if err := exporter.Export(graph, w); err != nil {
		h.log.Warn("failed to export graph", zap.String("format", format), zap.Error(err))
	}
}

// GetHistory returns the most recent journaled requests
func (h *AdminHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(w, "Invalid limit", "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		h.log.Error("failed to read history", zap.Error(err))
		h.writeError(w, "Failed to read history", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, records, http.StatusOK)
}

func (h *AdminHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Warn("failed to encode JSON", zap.Error(err))
	}
}

func (h *AdminHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	h.writeJSON(w, ErrorResponse{
		Error:   error,
		Details: details,
	}, statusCode)
}
