package httpadapter

import (
	"log/slog"
	"net/http"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
)

type classifyFailure struct {
	IsPOA   bool    `json:"isPOA"`
	POAType *string `json:"poaType"`
	Error   string  `json:"error"`
}

type analyzeResponse struct {
	Analysis *domain.Analysis `json:"analysis"`
}

type analyzeFailure struct {
	Error string `json:"error"`
	Raw   string `json:"raw,omitempty"`
}

func (rt *Router) classifyPOA(w http.ResponseWriter, r *http.Request) {
	form, err := readUploadForm(w, r, rt.maxUploadBytes())
	if err != nil {
		rt.writeClassifyError(w, r, err)
		return
	}
	rt.recordUpload("classify", form.file.Size)

	result, err := rt.analyzer.Classify(r.Context(), form.file)
	if err != nil {
		rt.writeClassifyError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) writeClassifyError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	logHandlerError(r, "classify_failed", status, err)
	if isExtractionFailure(err) {
		writeJSON(w, status, classifyFailure{Error: errorMessage(err, status)})
		return
	}
	writeJSON(w, status, analyzeFailure{Error: errorMessage(err, status), Raw: rawOf(err)})
}

func (rt *Router) analyzePOA(w http.ResponseWriter, r *http.Request) {
	form, err := readUploadForm(w, r, rt.maxUploadBytes())
	if err != nil {
		rt.writeAnalyzeError(w, r, err)
		return
	}
	rt.recordUpload("analyze", form.file.Size)

	analysis, err := rt.analyzer.Analyze(r.Context(), form.file, form.value("state", "jurisdiction"))
	if err != nil {
		rt.writeAnalyzeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analyzeResponse{Analysis: analysis})
}

func (rt *Router) writeAnalyzeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	logHandlerError(r, "analyze_failed", status, err)
	writeJSON(w, status, analyzeFailure{Error: errorMessage(err, status), Raw: rawOf(err)})
}

func rawOf(err error) string {
	raw, _ := domain.RawResponse(err)
	return raw
}

func logHandlerError(r *http.Request, event string, status int, err error) {
	attrs := []any{
		"request_id", requestIDFromContext(r.Context()),
		"status", status,
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		slog.Error(event, attrs...)
		return
	}
	slog.Warn(event, attrs...)
}
