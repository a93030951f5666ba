package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kirillkom/poa-analyzer/internal/config"
	"github.com/kirillkom/poa-analyzer/internal/core/ports"
	"github.com/kirillkom/poa-analyzer/internal/observability/metrics"
)

const (
	serviceName       = "poa-api"
	backpressureQueue = 2 * time.Second
	// multipartOverhead is allowed on top of the file ceiling for form fields
	// and part headers.
	multipartOverhead = 1 << 20
)

type Router struct {
	cfg      config.Config
	analyzer ports.POAAnalyzer
	ingest   ports.DocumentIngestor
	docs     ports.DocumentManager
	metrics  *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	analyzer ports.POAAnalyzer,
	ingest ports.DocumentIngestor,
	docs ports.DocumentManager,
) *Router {
	return &Router{
		cfg:      cfg,
		analyzer: analyzer,
		ingest:   ingest,
		docs:     docs,
	}
}

// WithMetrics enables request metrics and the /metrics endpoint.
func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/poa/classify", rt.classifyPOA)
	api.HandleFunc("POST /v1/poa/analyze", rt.analyzePOA)
	api.HandleFunc("POST /v1/documents", rt.uploadDocument)
	api.HandleFunc("GET /v1/documents", rt.listDocuments)
	api.HandleFunc("GET /v1/documents/export", rt.exportDocuments)
	api.HandleFunc("GET /v1/documents/{id}", rt.getDocument)
	api.HandleFunc("GET /v1/documents/{id}/file", rt.downloadDocument)
	api.HandleFunc("DELETE /v1/documents/{id}", rt.deleteDocument)
	api.HandleFunc("POST /v1/documents/{id}/analyze", rt.analyzeDocument)

	var limited http.Handler = api
	limited = backpressureWithReject(limited, rt.cfg.APIMaxInFlight, backpressureQueue, rt.recordRejected)
	limited = rateLimitMiddleware(limited, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, rt.recordRejected)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /openapi.json", rt.openAPIDocument)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}
	mux.Handle("/v1/", limited)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = corsMiddleware(newOriginPolicy(rt.cfg.AllowedOrigins), handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return recoverMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) recordRejected(reason string) {
	if rt.metrics != nil {
		rt.metrics.RecordRejected(serviceName, reason)
	}
}

func (rt *Router) recordUpload(endpoint string, size int64) {
	if rt.metrics != nil {
		rt.metrics.RecordUpload(serviceName, endpoint, size)
	}
}

func (rt *Router) maxUploadBytes() int64 {
	if rt.cfg.MaxUploadBytes > 0 {
		return rt.cfg.MaxUploadBytes
	}
	return 10 << 20
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	writeJSON(w, status, map[string]string{"error": errorMessage(err, status)})
}
