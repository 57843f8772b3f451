// Package taskstore persists task records as one directory per task under a
// base path. Each directory holds the canonical task.json next to the source
// media, human-readable transcript and summary renderings, and the raw
// vendor exchange logs. The store doubles as the result cache: a lookup by
// content fingerprint and vendor pair replays a previously completed task.
package taskstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/taoxee/scribeflow/errors"
	"github.com/taoxee/scribeflow/logger"
	"github.com/taoxee/scribeflow/vendorlog"
)

const (
	recordFile     = "task.json"
	transcriptFile = "transcript.txt"
	summaryFile    = "summary.md"
	logsDir        = "logs"
)

// Store is a directory-per-task record store. One writer per task id is the
// caller's contract; the store serializes record writes against cross-task
// directory scans.
type Store struct {
	root string
	log  *logger.Logger
	mu   sync.RWMutex
}

// New creates the store rooted at basePath, creating it if needed.
func New(basePath string, log *logger.Logger) (*Store, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, errors.Internal(err)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Store{root: abs, log: log.WithComponent("taskstore")}, nil
}

// Root returns the absolute base path.
func (s *Store) Root() string { return s.root }

func (s *Store) taskDir(id string) string {
	return filepath.Join(s.root, filepath.Clean(id))
}

// Create persists a new record and its source media.
func (s *Store) Create(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir := s.taskDir(rec.ID)
	if _, err := os.Stat(dir); err == nil {
		return errors.InvalidInput("task already exists: " + rec.ID)
	}
	if err := os.MkdirAll(filepath.Join(dir, logsDir), 0o750); err != nil {
		return errors.Internal(err)
	}
	if len(rec.Media.Data) > 0 {
		source := filepath.Join(dir, "source."+rec.Media.Ext)
		if err := os.WriteFile(source, rec.Media.Data, 0o640); err != nil {
			return errors.Internal(err)
		}
	}
	return s.writeRecord(dir, rec)
}

// Update rewrites the record and renders whatever stage outputs it carries.
// A record already persisted in a terminal state is immutable.
func (s *Store) Update(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir := s.taskDir(rec.ID)
	existing, err := s.readRecord(dir)
	if err != nil {
		return err
	}
	if existing.Status.Terminal() {
		return errors.InvalidInput("task " + rec.ID + " is finalized")
	}

	if rec.Transcript != nil {
		if err := os.WriteFile(filepath.Join(dir, transcriptFile), []byte(rec.Transcript.Text()), 0o640); err != nil {
			return errors.Internal(err)
		}
	}
	if rec.Summary != nil {
		if err := os.WriteFile(filepath.Join(dir, summaryFile), []byte(rec.Summary.Markdown), 0o640); err != nil {
			return errors.Internal(err)
		}
	}
	return s.writeRecord(dir, rec)
}

// Get loads one record by task id.
func (s *Store) Get(id string) (*Record, error) {
	dir := s.taskDir(id)
	if _, err := os.Stat(filepath.Join(dir, recordFile)); os.IsNotExist(err) {
		return nil, errors.NotFound("task", id)
	}
	return s.readRecord(dir)
}

// WriteLog appends the recorded vendor exchange under logs/<stage>.log.
func (s *Store) WriteLog(id, stage string, rec *vendorlog.Recorder) error {
	if rec == nil || len(rec.Entries()) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	path := filepath.Join(s.taskDir(id), logsDir, stage+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return errors.Internal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(rec.String()); err != nil {
		return errors.Internal(err)
	}
	return nil
}

// Lookup scans persisted records for a completed task with the same content
// fingerprint and vendor pair. Unparsable records are skipped, not fatal:
// the cache is advisory and a corrupt entry only forfeits the hit.
func (s *Store) Lookup(fingerprint, asrVendor, llmVendor string) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		s.log.Warn("cache scan failed", logger.Fields(logger.FieldError, err.Error()))
		return nil, false
	}
	// Newest first, so a replayed upload hits its most recent run.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() > entries[j].Name() })

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		rec, err := s.readRecord(filepath.Join(s.root, e.Name()))
		if err != nil {
			s.log.Warn("skipping unreadable task record",
				logger.Fields(logger.FieldTaskID, e.Name(), logger.FieldError, err.Error(),
					"code", string(errors.ErrCodeCacheCorrupt)))
			continue
		}
		if rec.Status != StatusComplete {
			continue
		}
		if rec.Media.Fingerprint != fingerprint || rec.ASRVendor != asrVendor || rec.LLMVendor != llmVendor {
			continue
		}
		if rec.Transcript == nil || rec.Summary == nil {
			continue
		}
		return rec, true
	}
	return nil, false
}

func (s *Store) writeRecord(dir string, rec *Record) error {
	rec.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Internal(err)
	}
	tmp := filepath.Join(dir, recordFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return errors.Internal(err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, recordFile)); err != nil {
		return errors.Internal(err)
	}
	return nil
}

func (s *Store) readRecord(dir string) (*Record, error) {
	data, err := os.ReadFile(filepath.Join(dir, recordFile))
	if err != nil {
		return nil, errors.Internal(err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.CacheCorrupt(filepath.Base(dir), err)
	}
	return &rec, nil
}
