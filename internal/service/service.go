// Package service orchestrates the dataset workflow:
// upload → configure → clean → report / preview / download.
//
// Each step reads and writes one session through a session.Store. Steps that
// change a session run inside Store.Update, so concurrent configure and clean
// calls on the same session are serialized by the store.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/smartclean/internal/core"
	"github.com/JonMunkholm/smartclean/internal/ingest"
	"github.com/JonMunkholm/smartclean/internal/logging"
	"github.com/JonMunkholm/smartclean/internal/metrics"
	"github.com/JonMunkholm/smartclean/internal/session"
)

var (
	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = session.ErrNotFound
	// ErrNotConfigured is returned by Clean before Configure succeeded.
	ErrNotConfigured = errors.New("cleaning not configured")
	// ErrNotCleaned is returned by Report, Preview and Export before Clean ran.
	ErrNotCleaned = errors.New("cleaning has not run")
	// ErrUnsupportedFormat is returned for uploads that are neither CSV nor Excel.
	ErrUnsupportedFormat = ingest.ErrUnsupportedFormat
	// ErrUnsupportedExport is returned for unknown download formats.
	ErrUnsupportedExport = errors.New("unsupported export format")
)

// Defaults for Options fields left at zero.
const (
	DefaultMaxFileSize    = 100 << 20
	DefaultPreviewRows    = 100
	DefaultMaxPreviewRows = 1000

	// uploadPreviewRows is the number of rows echoed by Upload.
	uploadPreviewRows = 5
)

// Options tunes the service.
type Options struct {
	MaxFileSize    int64 // Upload size limit in bytes
	PreviewRows    int   // Rows returned by Clean and by Preview without a limit
	MaxPreviewRows int   // Upper bound on a Preview limit
	IngestWorkers  int   // Parallel column coercion during parsing
}

func (o Options) withDefaults() Options {
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}
	if o.PreviewRows <= 0 {
		o.PreviewRows = DefaultPreviewRows
	}
	if o.MaxPreviewRows <= 0 {
		o.MaxPreviewRows = DefaultMaxPreviewRows
	}
	return o
}

// Service provides the dataset workflow.
type Service struct {
	store   session.Store
	limiter *JobLimiter
	metrics *metrics.Metrics
	opts    Options
}

// New creates a Service. limiter and m may be nil.
func New(store session.Store, limiter *JobLimiter, m *metrics.Metrics, opts Options) *Service {
	return &Service{
		store:   store,
		limiter: limiter,
		metrics: m,
		opts:    opts.withDefaults(),
	}
}

// LimiterStatus reports the job limiter's state; zero when no limiter is set.
func (s *Service) LimiterStatus() LimiterStatus {
	if s.limiter == nil {
		return LimiterStatus{}
	}
	return s.limiter.Status()
}

func (s *Service) acquire(ctx context.Context) (func(), error) {
	if s.limiter == nil {
		return func() {}, nil
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	return s.limiter.Release, nil
}

// AnalysisResult is returned by Upload.
type AnalysisResult struct {
	SessionID   string           `json:"session_id"`
	DatasetInfo core.DatasetInfo `json:"dataset_info"`
	Issues      []core.Issue     `json:"issues"`
	PreviewData []map[string]any `json:"preview_data"`
}

// Upload parses a CSV or Excel file, analyzes it and opens a session for it.
func (s *Service) Upload(ctx context.Context, filename string, r io.Reader) (res *AnalysisResult, err error) {
	format, err := ingest.DetectFormat(filename)
	if err != nil {
		s.metrics.ObserveUpload("unknown", err, nil, core.QualityScore{})
		return nil, err
	}

	var (
		issues []core.Issue
		score  core.QualityScore
	)
	defer func() { s.metrics.ObserveUpload(string(format), err, issues, score) }()

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	data, err := ingest.ReadLimited(r, s.opts.MaxFileSize)
	if err != nil {
		return nil, err
	}
	tbl, err := ingest.Parse(ctx, format, data, ingest.Options{Workers: s.opts.IngestWorkers})
	if err != nil {
		return nil, err
	}

	score, issues = core.Analyze(tbl)
	info := core.Describe(tbl, filename, float64(len(data))/1024)

	sess := &session.Session{
		ID:            uuid.New().String(),
		Filename:      filename,
		Table:         tbl,
		Info:          info,
		Issues:        issues,
		QualityBefore: score,
	}
	if err = s.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	logging.WithSession(ctx, sess.ID).Info("dataset uploaded",
		"filename", filename,
		"rows", info.Rows,
		"columns", info.Columns,
		"issues", len(issues),
		"quality", score.Overall,
	)

	return &AnalysisResult{
		SessionID:   sess.ID,
		DatasetInfo: info,
		Issues:      issues,
		PreviewData: tbl.Head(0, uploadPreviewRows).Records(ingest.MissingPlaceholder),
	}, nil
}

// CleaningConfig is the body of a configure request.
type CleaningConfig struct {
	SessionID  string               `json:"session_id"`
	AutoClean  bool                 `json:"auto_clean"`
	Operations []core.OperationSpec `json:"operations"`
}

// ConfigureResult is returned by Configure.
type ConfigureResult struct {
	SessionID       string           `json:"session_id"`
	AutoClean       bool             `json:"auto_clean"`
	OperationsCount int              `json:"operations_count"`
	Operations      []core.Operation `json:"operations"`
}

// ConfigError reports a configuration that was rejected as a whole.
// Either Err (malformed parameters) or Rejected (validation) is set.
type ConfigError struct {
	Err      error
	Rejected []core.ValidationError
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	msgs := make([]string, len(e.Rejected))
	for i, r := range e.Rejected {
		msgs[i] = r.Error()
	}
	return strings.Join(msgs, "; ")
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Columns lists the columns of the rejected operations.
func (e *ConfigError) Columns() []string {
	cols := make([]string, len(e.Rejected))
	for i, r := range e.Rejected {
		cols[i] = r.Column
	}
	return cols
}

// Configure stores the operations a later Clean will apply. With AutoClean
// the auto-plan replaces any supplied operations. Every operation is
// validated; if any is rejected nothing is stored. A successful Configure
// discards earlier cleaning results.
func (s *Service) Configure(ctx context.Context, cfg CleaningConfig) (*ConfigureResult, error) {
	log := logging.WithSession(ctx, cfg.SessionID)

	var ops []core.Operation
	_, err := s.store.Update(ctx, cfg.SessionID, func(sess *session.Session) error {
		if cfg.AutoClean {
			ops = core.Plan(sess.Table, sess.Issues)
		} else {
			decoded, err := core.DecodeOperations(cfg.Operations)
			if err != nil {
				return &ConfigError{Err: err}
			}
			for i := range decoded {
				decoded[i].AppliedBy = core.ActorUser
			}
			ops = decoded
		}

		if rejected := core.ValidatePlan(ops, sess.Table); len(rejected) > 0 {
			return &ConfigError{Rejected: rejected}
		}

		sess.Config = &session.Config{AutoClean: cfg.AutoClean, Operations: ops}
		sess.Cleaned = nil
		sess.QualityAfter = nil
		sess.Operations = nil
		sess.Report = nil
		return nil
	})
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			log.Warn("configuration rejected", "error", err)
		}
		return nil, err
	}

	log.Info("cleaning configured", "auto_clean", cfg.AutoClean, "operations", len(ops))
	return &ConfigureResult{
		SessionID:       cfg.SessionID,
		AutoClean:       cfg.AutoClean,
		OperationsCount: len(ops),
		Operations:      ops,
	}, nil
}

// CleaningResult is returned by Clean.
type CleaningResult struct {
	SessionID         string                 `json:"session_id"`
	CleanedData       []map[string]any       `json:"cleaned_data"`
	QualityBefore     core.QualityScore      `json:"quality_before"`
	QualityAfter      core.QualityScore      `json:"quality_after"`
	OperationsApplied []core.OperationRecord `json:"operations_applied"`
	ProcessingTimeMs  float64                `json:"processing_time_ms"`
	IssuesResolved    int                    `json:"issues_resolved"`
}

// Clean applies the configured operations, re-scores the result and stores
// the cleaned table, operation log and report on the session.
func (s *Service) Clean(ctx context.Context, sessionID string) (*CleaningResult, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		actor   core.Actor
		elapsed time.Duration
	)
	sess, err := s.store.Update(ctx, sessionID, func(sess *session.Session) error {
		if sess.Config == nil {
			return ErrNotConfigured
		}
		actor = core.ActorUser
		if sess.Config.AutoClean {
			actor = core.ActorAuto
		}

		start := time.Now()
		cleaned, log := core.Apply(sess.Table, sess.Config.Operations, actor)
		after := core.Score(cleaned)
		elapsed = time.Since(start)

		report := core.BuildReport(log, sess.QualityBefore, after, float64(elapsed.Microseconds())/1000)
		sess.Cleaned = cleaned
		sess.QualityAfter = &after
		sess.Operations = log
		sess.Report = &report
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveCleaning(actor, elapsed, sess.Operations, *sess.QualityAfter)
	logging.WithSession(ctx, sessionID).Info("cleaning completed",
		"applied_by", actor,
		"operations", len(sess.Operations),
		"rows", sess.Cleaned.Rows(),
		"quality_before", sess.QualityBefore.Overall,
		"quality_after", sess.QualityAfter.Overall,
		"duration_ms", elapsed.Milliseconds(),
	)

	return &CleaningResult{
		SessionID:         sessionID,
		CleanedData:       sess.Cleaned.Head(0, s.opts.PreviewRows).Records(ingest.MissingPlaceholder),
		QualityBefore:     sess.QualityBefore,
		QualityAfter:      *sess.QualityAfter,
		OperationsApplied: sess.Operations,
		ProcessingTimeMs:  sess.Report.Summary.ProcessingTimeMs,
		IssuesResolved:    sess.Report.Summary.IssuesResolved,
	}, nil
}

// cleaned loads a session that has been cleaned.
func (s *Service) cleaned(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.IsCleaned() {
		return nil, ErrNotCleaned
	}
	return sess, nil
}

// Report returns the report of the last cleaning run.
func (s *Service) Report(ctx context.Context, sessionID string) (*core.Report, error) {
	sess, err := s.cleaned(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Report, nil
}

// Preview returns a page of the cleaned table. A non-positive limit uses the
// default page size; limits above the maximum are clamped.
func (s *Service) Preview(ctx context.Context, sessionID string, offset, limit int) (ingest.Page, error) {
	sess, err := s.cleaned(ctx, sessionID)
	if err != nil {
		return ingest.Page{}, err
	}
	if limit <= 0 {
		limit = s.opts.PreviewRows
	}
	limit = min(limit, s.opts.MaxPreviewRows)
	return ingest.Preview(sess.Cleaned, offset, limit), nil
}

// ExportResult is a serialized cleaned table.
type ExportResult struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Export serializes the cleaned table as csv or excel (xlsx).
func (s *Service) Export(ctx context.Context, sessionID, formatName string) (*ExportResult, error) {
	format, ok := ingest.ParseExportFormat(formatName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExport, formatName)
	}
	sess, err := s.cleaned(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := ingest.Write(&buf, format, sess.Cleaned); err != nil {
		return nil, fmt.Errorf("export %s: %w", format, err)
	}

	logging.WithSession(ctx, sessionID).Info("cleaned data exported", "format", format, "bytes", buf.Len())
	return &ExportResult{
		Data:        buf.Bytes(),
		ContentType: ingest.ContentType(format),
		Filename:    "cleaned_data." + string(format),
	}, nil
}

// Discard deletes a session.
func (s *Service) Discard(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
