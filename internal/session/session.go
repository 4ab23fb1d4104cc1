// Package session persists per-upload workflow state behind a small keyed
// Store interface. Backends: in-process memory, PostgreSQL (JSONB) and Redis.
//
// A Session is replaced as a whole on every write. Stores serialize Update
// calls for the same identifier, which is how concurrent configure/clean
// requests against one session are ordered.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/JonMunkholm/smartclean/internal/core"
)

// ErrNotFound is returned for unknown or expired session identifiers.
var ErrNotFound = errors.New("session not found")

// Config is the cleaning configuration of a session.
type Config struct {
	AutoClean  bool             `json:"auto_clean"`
	Operations []core.Operation `json:"operations"`
}

// Session is the state of one dataset as it moves through
// upload → configure → clean.
type Session struct {
	ID            string            `json:"id"`
	Filename      string            `json:"filename"`
	Table         *core.Table       `json:"table"`
	Info          core.DatasetInfo  `json:"dataset_info"`
	Issues        []core.Issue      `json:"issues"`
	QualityBefore core.QualityScore `json:"quality_before"`
	Config        *Config           `json:"config,omitempty"`

	// Set once cleaning has run.
	Cleaned      *core.Table            `json:"cleaned,omitempty"`
	QualityAfter *core.QualityScore     `json:"quality_after,omitempty"`
	Operations   []core.OperationRecord `json:"operations_applied,omitempty"`
	Report       *core.Report           `json:"report,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsCleaned reports whether cleaning results are present.
func (s *Session) IsCleaned() bool {
	return s.Cleaned != nil && s.Report != nil
}

// Store is a keyed session repository.
type Store interface {
	// Get returns the session or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)
	// Put creates or replaces a session.
	Put(ctx context.Context, s *Session) error
	// Update applies fn to the current session and stores the result atomically.
	// If fn returns an error nothing is written.
	Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error)
	// Delete removes a session. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}

func encode(s *Session) ([]byte, error) {
	return json.Marshal(s)
}

func decode(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
	_ Store = (*RedisStore)(nil)
)
