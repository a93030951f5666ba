package httpadapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type documentList struct {
	Documents []domain.Document `json:"documents"`
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	form, err := readUploadForm(w, r, rt.maxUploadBytes())
	if err != nil {
		writeError(w, err)
		return
	}
	rt.recordUpload("documents", form.file.Size)

	doc, err := rt.ingest.Upload(r.Context(), form.value("section"), form.file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	filter, err := documentFilterFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	docs, err := rt.docs.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, documentList{Documents: docs})
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.docs.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) downloadDocument(w http.ResponseWriter, r *http.Request) {
	doc, body, err := rt.docs.OpenFile(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	defer body.Close()

	contentType := doc.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Name}))
	if doc.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(doc.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		slog.Warn("document_download_interrupted", "document_id", doc.ID, "error", err)
	}
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := rt.docs.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// analyzeDocument accepts the state either as JSON or as a form field.
func (rt *Router) analyzeDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		State        string `json:"state"`
		Jurisdiction string `json:"jurisdiction"`
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
			writeError(w, domain.WrapError(domain.ErrInvalidInput, "analyze document", fmt.Errorf("invalid json: %w", err)))
			return
		}
	} else {
		req.State = r.FormValue("state")
		req.Jurisdiction = r.FormValue("jurisdiction")
	}
	state := strings.TrimSpace(req.State)
	if state == "" {
		state = strings.TrimSpace(req.Jurisdiction)
	}

	analysis, err := rt.docs.AnalyzeStored(r.Context(), r.PathValue("id"), state)
	if err != nil {
		rt.writeAnalyzeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analyzeResponse{Analysis: analysis})
}

func (rt *Router) exportDocuments(w http.ResponseWriter, r *http.Request) {
	filter, err := documentFilterFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	name := "poa-documents"
	if filter.Section != "" {
		name += "-" + filter.Section
	}
	name += "-" + time.Now().UTC().Format("20060102") + ".xlsx"

	var buf bytes.Buffer
	if err := rt.docs.Export(r.Context(), &buf, filter); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func documentFilterFromQuery(r *http.Request) (domain.DocumentFilter, error) {
	query := r.URL.Query()
	filter := domain.DocumentFilter{Section: strings.TrimSpace(query.Get("section"))}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, domain.WrapError(domain.ErrInvalidInput, "document filter", fmt.Errorf("limit must be a non-negative integer"))
		}
		filter.Limit = limit
	}
	return filter, nil
}
