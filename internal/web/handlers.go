package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/JonMunkholm/smartclean/internal/core"
	"github.com/JonMunkholm/smartclean/internal/ingest"
	"github.com/JonMunkholm/smartclean/internal/service"
)

// multipartOverhead is allowed on top of the file size limit for form framing.
const multipartOverhead = 1 << 20

var (
	errNoFile        = errors.New("no file provided")
	errMissingID     = errors.New("session not found: missing session_id")
	errInvalidBody   = errors.New("invalid parameter: request body is not valid JSON")
	errReportFormat  = errors.New("unsupported export format")
	errInvalidNumber = errors.New("invalid parameter")
)

// handleIndex describes the service.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "SmartClean data-quality API",
		"endpoints": []string{
			"POST /api/upload",
			"POST /api/configure",
			"POST /api/clean?session_id=",
			"GET /api/report/{session_id}?format=json|text|markdown|html",
			"GET /api/preview/{session_id}?limit=&offset=",
			"GET /api/download/{session_id}/{csv|excel}",
		},
	})
}

// handleHealth reports liveness and job limiter state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"jobs":   s.service.LimiterStatus(),
	})
}

// handleUpload accepts a multipart "file" field, analyzes it and opens a session.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondServiceError(w, r, fmt.Errorf("%w: exceeds %d bytes", ingest.ErrFileTooLarge, maxSize))
			return
		}
		respondError(w, r, fmt.Errorf("%w: %v", errNoFile, err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	res, err := s.service.Upload(r.Context(), header.Filename, file)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleConfigure stores the cleaning configuration of a session.
func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	var req service.CleaningConfig
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", errInvalidBody, err), http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		respondError(w, r, errMissingID, http.StatusBadRequest)
		return
	}

	res, err := s.service.Configure(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":          "Cleaning configuration saved",
		"session_id":       res.SessionID,
		"auto_clean":       res.AutoClean,
		"operations_count": res.OperationsCount,
		"operations":       res.Operations,
	})
}

// handleClean runs the configured operations.
func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session_id")
	if id == "" {
		respondError(w, r, errMissingID, http.StatusBadRequest)
		return
	}

	res, err := s.service.Clean(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleReport renders the cleaning report as json (default), text, markdown or html.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.Report(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	switch format := strings.ToLower(r.URL.Query().Get("format")); format {
	case "", "json":
		writeJSON(w, http.StatusOK, report)
	case "text", "txt":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(core.RenderText(*report)))
	case "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(core.RenderMarkdown(*report)))
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := reportPage(*report).Render(r.Context(), w); err != nil {
			respondError(w, r, err, http.StatusInternalServerError)
		}
	default:
		respondError(w, r, fmt.Errorf("%w: report format %q", errReportFormat, format), http.StatusBadRequest)
	}
}

// handlePreview returns a page of the cleaned table.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	page, err := s.service.Preview(r.Context(), chi.URLParam(r, "sessionID"), offset, limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleDownload streams the cleaned table as csv or excel.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	out, err := s.service.Export(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "format"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
	_, _ = w.Write(out.Data)
}

// handleDiscard deletes a session.
func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Discard(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// intParam parses a non-negative integer query parameter.
func intParam(r *http.Request, name string, def int) (int, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return def, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w %s: %q is not a non-negative integer", errInvalidNumber, name, val)
	}
	return i, nil
}
