package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/wdcrawl/internal/model"
)

// Store errors.
var (
	// ErrNoRoot is returned when a store is created without a root directory.
	ErrNoRoot = errors.New("storage root directory cannot be empty")

	// ErrNoJobID is returned when a job directory is requested for an
	// empty identifier.
	ErrNoJobID = errors.New("job id cannot be empty")
)

// Store manages per-job output directories under a single root.
// Layout: <root>/<job-id>/{graph.nt, graph.ttl, job.json}.
type Store struct {
	root string
}

// NewStore creates a Store rooted at root, creating the directory if
// needed.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, ErrNoRoot
	}
	if err := os.MkdirAll(root, 0750); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// CreateJobDir creates the output directory for a job.
func (s *Store) CreateJobDir(jobID string) (*JobDir, error) {
	if jobID == "" {
		return nil, ErrNoJobID
	}
	path := filepath.Join(s.root, jobID)
	if err := os.MkdirAll(path, 0750); err != nil {
		return nil, fmt.Errorf("failed to create job directory: %w", err)
	}
	return &JobDir{path: path}, nil
}

// OpenJobDir opens an existing job directory at an arbitrary path, e.g.
// one recorded in crawl history.
func OpenJobDir(path string) (*JobDir, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open job directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("failed to open job directory: %s is not a directory", path)
	}
	return &JobDir{path: path}, nil
}

// JobDir is the output directory of one crawl job.
type JobDir struct {
	path string
}

// Path returns the directory path.
func (d *JobDir) Path() string {
	return d.path
}

// StreamPath returns the path of the append-only N-Triples stream.
func (d *JobDir) StreamPath() string {
	return filepath.Join(d.path, model.StreamFileName)
}

// TurtlePath returns the path of the converted Turtle artifact.
func (d *JobDir) TurtlePath() string {
	return filepath.Join(d.path, model.TurtleFileName)
}

// MetadataPath returns the path of the job metadata file.
func (d *JobDir) MetadataPath() string {
	return filepath.Join(d.path, model.MetadataFileName)
}

// WriteMetadata persists the job record as pretty-printed JSON. The
// record is rewritten whole on each call, so the on-disk copy always
// reflects the latest snapshot.
func (d *JobDir) WriteMetadata(rec *model.JobRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode job metadata: %w", err)
	}
	if err := os.WriteFile(d.MetadataPath(), append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write job metadata: %w", err)
	}
	return nil
}

// ReadMetadata loads the persisted job record.
func (d *JobDir) ReadMetadata() (*model.JobRecord, error) {
	data, err := os.ReadFile(d.MetadataPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read job metadata: %w", err)
	}
	var rec model.JobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode job metadata: %w", err)
	}
	return &rec, nil
}

// NewStreamWriter opens the N-Triples stream for appending, creating it
// if needed.
func (d *JobDir) NewStreamWriter() (*StreamWriter, error) {
	f, err := os.OpenFile(d.StreamPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open triple stream: %w", err)
	}
	return &StreamWriter{f: f}, nil
}

// StreamWriter appends response bodies to the N-Triples stream verbatim
// and keeps a running count of non-empty lines.
//
// The count equals the number of statement lines only as long as the
// upstream emits one statement per line, which the query service's
// N-Triples output does. The writer never parses what it appends; the
// stream is the crawl's source of truth and must preserve the upstream
// bytes exactly.
type StreamWriter struct {
	f     *os.File
	lines int
}

// Append writes body to the stream, ensuring it ends with a newline so
// the next batch starts on a fresh line. It returns the number of
// non-empty lines in this body.
func (w *StreamWriter) Append(body []byte) (int, error) {
	if len(body) == 0 {
		return 0, nil
	}
	if _, err := w.f.Write(body); err != nil {
		return 0, fmt.Errorf("failed to append to triple stream: %w", err)
	}
	if body[len(body)-1] != '\n' {
		if _, err := w.f.Write([]byte{'\n'}); err != nil {
			return 0, fmt.Errorf("failed to append to triple stream: %w", err)
		}
	}

	n := countNonEmptyLines(body)
	w.lines += n
	return n, nil
}

// Lines returns the total number of non-empty lines appended so far.
func (w *StreamWriter) Lines() int {
	return w.lines
}

// Sync flushes the stream to stable storage.
func (w *StreamWriter) Sync() error {
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("failed to sync triple stream: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (w *StreamWriter) Close() error {
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("failed to close triple stream: %w", err)
	}
	return nil
}

// countNonEmptyLines counts lines in body that contain non-whitespace.
func countNonEmptyLines(body []byte) int {
	n := 0
	for _, line := range strings.Split(string(body), "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
