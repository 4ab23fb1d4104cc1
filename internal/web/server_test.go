package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/smartclean/internal/config"
	"github.com/JonMunkholm/smartclean/internal/core"
	"github.com/JonMunkholm/smartclean/internal/ingest"
	"github.com/JonMunkholm/smartclean/internal/metrics"
	"github.com/JonMunkholm/smartclean/internal/service"
	"github.com/JonMunkholm/smartclean/internal/session"
)

const sampleCSV = "Name,Score\nann,1\nbob,2\ncid,\ndee,4\neve,5\n"

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{RequestTimeout: 10 * time.Second},
		Upload:   config.UploadConfig{MaxFileSize: 1 << 20, PreviewRows: 100, MaxPreviewRows: 1000},
		Security: config.SecurityConfig{AllowedOrigins: []string{"*"}, EnableCSP: true},
		Metrics:  config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	m := metrics.New()
	svc := service.New(session.NewMemoryStore(time.Hour), service.NewJobLimiter(2, time.Second), m, service.Options{
		MaxFileSize:    cfg.Upload.MaxFileSize,
		PreviewRows:    cfg.Upload.PreviewRows,
		MaxPreviewRows: cfg.Upload.MaxPreviewRows,
	})
	s := NewServer(svc, cfg, m)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func uploadSample(t *testing.T, s *Server) string {
	t.Helper()
	rec := do(s, uploadRequest(t, "scores.csv", sampleCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res service.AnalysisResult
	decodeBody(t, rec, &res)
	return res.SessionID
}

func configure(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/configure", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return do(s, req)
}

func TestIndexAndHealth(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "SmartClean")

	rec = do(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health struct {
		Status string                `json:"status"`
		Jobs   service.LimiterStatus `json:"jobs"`
	}
	decodeBody(t, rec, &health)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, 2, health.Jobs.MaxConcurrent)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestUploadEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(s, uploadRequest(t, "scores.csv", sampleCSV))
	require.Equal(t, http.StatusOK, rec.Code)

	var res service.AnalysisResult
	decodeBody(t, rec, &res)
	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, 5, res.DatasetInfo.Rows)
	assert.Equal(t, []string{"Name", "Score"}, res.DatasetInfo.ColumnNames)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, "Score", res.Issues[0].Column)
}

func TestUploadEndpoint_Errors(t *testing.T) {
	s := newTestServer(t, testConfig())

	tests := []struct {
		name   string
		req    *http.Request
		status int
		code   string
	}{
		{"unsupported format", uploadRequest(t, "scores.pdf", sampleCSV), http.StatusBadRequest, "FILE002"},
		{"empty file", uploadRequest(t, "scores.csv", ""), http.StatusBadRequest, "FILE006"},
		{"not multipart", httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("x")), http.StatusBadRequest, "FILE005"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(s, tt.req)
			assert.Equal(t, tt.status, rec.Code)
			var resp ErrorResponse
			decodeBody(t, rec, &resp)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Action)
		})
	}
}

func TestWorkflowEndpoints(t *testing.T) {
	s := newTestServer(t, testConfig())
	id := uploadSample(t, s)

	rec := configure(t, s, `{"session_id":"`+id+`","auto_clean":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var cfgResp struct {
		OperationsCount int `json:"operations_count"`
	}
	decodeBody(t, rec, &cfgResp)
	assert.Equal(t, 2, cfgResp.OperationsCount)

	rec = do(s, httptest.NewRequest(http.MethodPost, "/api/clean?session_id="+id, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var cleaned service.CleaningResult
	decodeBody(t, rec, &cleaned)
	assert.Equal(t, 100.0, cleaned.QualityAfter.Completeness)
	assert.Equal(t, 2, cleaned.IssuesResolved)
	assert.Equal(t, 3.0, cleaned.CleanedData[2]["score"])

	t.Run("report json", func(t *testing.T) {
		rec := do(s, httptest.NewRequest(http.MethodGet, "/api/report/"+id, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var report map[string]any
		decodeBody(t, rec, &report)
		assert.Contains(t, report, "summary")
		assert.Contains(t, report, "quality_comparison")
	})

	t.Run("report text", func(t *testing.T) {
		rec := do(s, httptest.NewRequest(http.MethodGet, "/api/report/"+id+"?format=text", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "SMARTCLEAN - DATA CLEANING REPORT")
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	})

	t.Run("report markdown", func(t *testing.T) {
		rec := do(s, httptest.NewRequest(http.MethodGet, "/api/report/"+id+"?format=markdown", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.HasPrefix(rec.Body.String(), "# Data Cleaning Report"))
	})

	t.Run("report html", func(t *testing.T) {
		rec := do(s, httptest.NewRequest(http.MethodGet, "/api/report/"+id+"?format=html", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "<!DOCTYPE html>")
		assert.Contains(t, body, "<h1")
		assert.Contains(t, body, "<table>")
	})

	t.Run("report unknown format", func(t *testing.T) {
		rec := do(s, httptest.NewRequest(http.MethodGet, "/api/report/"+id+"?format=pdf", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("preview", func(t *testing.T) {
		rec := do(s, httptest.NewRequest(http.MethodGet, "/api/preview/"+id+"?limit=2&offset=1", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var page struct {
			Data      []map[string]any `json:"data"`
			TotalRows int              `json:"total_rows"`
		}
		decodeBody(t, rec, &page)
		assert.Len(t, page.Data, 2)
		assert.Equal(t, 5, page.TotalRows)
		assert.Equal(t, "bob", page.Data[0]["name"])
	})

	t.Run("preview bad limit", func(t *testing.T) {
		rec := do(s, httptest.NewRequest(http.MethodGet, "/api/preview/"+id+"?limit=-1", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("download csv", func(t *testing.T) {
		rec := do(s, httptest.NewRequest(http.MethodGet, "/api/download/"+id+"/csv", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="cleaned_data.csv"`)
		assert.Equal(t, "name,score\nann,1\nbob,2\ncid,3\ndee,4\neve,5\n", rec.Body.String())
	})

	t.Run("download excel", func(t *testing.T) {
		rec := do(s, httptest.NewRequest(http.MethodPost, "/api/download/"+id+"/excel", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "cleaned_data.xlsx")
		assert.NotZero(t, rec.Body.Len())
	})

	t.Run("download unknown format", func(t *testing.T) {
		rec := do(s, httptest.NewRequest(http.MethodGet, "/api/download/"+id+"/pdf", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		rec := do(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `smartclean_uploads_total{format="csv",status="ok"} 1`)
		assert.Contains(t, rec.Body.String(), `smartclean_cleaning_runs_total{applied_by="auto"} 1`)
	})

	t.Run("discard", func(t *testing.T) {
		rec := do(s, httptest.NewRequest(http.MethodDelete, "/api/session/"+id, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = do(s, httptest.NewRequest(http.MethodGet, "/api/report/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestConfigureEndpoint_Rejections(t *testing.T) {
	s := newTestServer(t, testConfig())
	id := uploadSample(t, s)

	t.Run("invalid operation", func(t *testing.T) {
		rec := configure(t, s, `{"session_id":"`+id+`","operations":[
			{"column":"Name","operation_type":"handle_outliers","parameters":{}},
			{"column":"Score","operation_type":"impute_missing","parameters":{"strategy":"median"}}
		]}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp ErrorResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, "CFG001", resp.Code)
		require.Len(t, resp.Details, 1)
		assert.Equal(t, "Name", resp.Details[0].Column)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := configure(t, s, `{"session_id":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing session id", func(t *testing.T) {
		rec := configure(t, s, `{"auto_clean":true}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown session", func(t *testing.T) {
		rec := configure(t, s, `{"session_id":"nope","auto_clean":true}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestPrerequisiteErrors(t *testing.T) {
	s := newTestServer(t, testConfig())
	id := uploadSample(t, s)

	rec := do(s, httptest.NewRequest(http.MethodPost, "/api/clean?session_id="+id, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "SES002", resp.Code)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/preview/"+id, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(s, httptest.NewRequest(http.MethodPost, "/api/clean", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/download/nope/csv", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2}
	s := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, do(s, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	}
	rec := do(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRespondError_HidesTechnicalDetail(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		wantCode string
		details  int
	}{
		{"wrapped sentinel", fmt.Errorf("read upload: %w", ingest.ErrFileTooLarge), http.StatusRequestEntityTooLarge, "FILE001", 0},
		{"unknown error", errors.New("pq: relation sessions does not exist"), http.StatusInternalServerError, "ERR000", 0},
		{"config rejection", &service.ConfigError{Rejected: []core.ValidationError{
			{Column: "x", Operation: core.OpHandleOutliers, Message: "column not found"},
		}}, http.StatusBadRequest, "CFG001", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondError(rec, httptest.NewRequest(http.MethodGet, "/api/x", nil), tt.err, tt.status)

			require.Equal(t, tt.status, rec.Code)
			var resp ErrorResponse
			decodeBody(t, rec, &resp)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, core.MapError(tt.err).Message, resp.Error)
			assert.Len(t, resp.Details, tt.details)
			assert.NotContains(t, rec.Body.String(), "read upload")
			assert.NotContains(t, rec.Body.String(), "pq:")
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrSessionNotFound, http.StatusNotFound},
		{service.ErrNotConfigured, http.StatusBadRequest},
		{service.ErrNotCleaned, http.StatusBadRequest},
		{service.ErrTooManyJobs, http.StatusServiceUnavailable},
		{errRateLimited, http.StatusTooManyRequests},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
