package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nidhogg/embedding-service/internal/embedding"
	"github.com/nidhogg/embedding-service/internal/metrics"
	"go.uber.org/zap"
)

const (
	serviceName    = "embedding-service"
	serviceVersion = "2.0.0"

	maxBodyBytes = 8 << 20
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	provider     embedding.Provider
	providerName string
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

// NewHandler creates a new API handler. m may be nil.
func NewHandler(provider embedding.Provider, providerName string, m *metrics.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		provider:     provider,
		providerName: providerName,
		metrics:      m,
		logger:       logger,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", h.healthCheck)
	r.Get("/info", h.info)
	r.Post("/embed", h.embed)
	r.Post("/batch-embed", h.embed)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	return r
}

// accessLog logs every request and feeds the HTTP metrics.
func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			elapsed := time.Since(start)
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			h.metrics.RecordHTTPRequest(r.Method, route, status, elapsed)
			h.logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", elapsed),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"service":  serviceName,
		"model":    h.provider.Model(),
		"provider": h.providerName,
	})
}

func (h *Handler) info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service":   serviceName,
		"model":     h.provider.Model(),
		"provider":  h.providerName,
		"version":   serviceVersion,
		"dimension": h.provider.Dimension(),
		"endpoints": map[string]string{
			"health":      "GET /health - health check",
			"embed":       "POST /embed - generate embeddings",
			"batch-embed": "POST /batch-embed - alias of /embed",
			"info":        "GET /info - service information",
		},
	})
}

type embedResponse struct {
	Success    bool        `json:"success"`
	Embeddings [][]float64 `json:"embeddings"`
	Dimension  int         `json:"dimension"`
	Model      string      `json:"model"`
	Count      int         `json:"count"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (h *Handler) embed(w http.ResponseWriter, r *http.Request) {
	if err := h.provider.Ready(); err != nil {
		h.logger.Error("embed request rejected", zap.Error(err))
		h.writeError(w, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read request body: " + err.Error()})
		return
	}

	texts, err := embedding.NormalizeTexts(body)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("embedding texts", zap.Int("count", len(texts)))
	vectors, err := h.provider.Embed(r.Context(), texts)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.metrics.AddEmbeddedTexts(len(texts))

	writeJSON(w, http.StatusOK, embedResponse{
		Success:    true,
		Embeddings: vectors,
		Dimension:  h.provider.Dimension(),
		Model:      h.provider.Model(),
		Count:      len(texts),
	})
}

// writeError maps embedding errors onto status codes.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var upErr *embedding.UpstreamError
	switch {
	case errors.Is(err, embedding.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, embedding.ErrMissingCredential):
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	case errors.As(err, &upErr):
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: upErr.Error(), Details: upErr.Body})
	case errors.Is(err, embedding.ErrUpstreamTimeout):
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: embedding.ErrUpstreamTimeout.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
