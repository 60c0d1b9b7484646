package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/alexisbeaulieu97/signalboard/internal/logger"
	"github.com/alexisbeaulieu97/signalboard/internal/signal"
	apperrors "github.com/alexisbeaulieu97/signalboard/pkg/errors"
)

const fileVersion = "1.0"

// Entry is the persisted record for one signal: its most recent result plus
// fetch bookkeeping.
type Entry struct {
	SignalID            string         `json:"signal_id"`
	Result              *signal.Result `json:"result,omitempty"`
	LastAttempt         time.Time      `json:"last_attempt_ts"`
	LastSuccess         time.Time      `json:"last_success_ts"`
	ConsecutiveFailures int            `json:"consecutive_failures"`
}

// storeFile is the on-disk JSON layout. Kept indented and versioned so the
// file stays hand-inspectable and hand-editable.
type storeFile struct {
	Version string           `json:"version"`
	Entries map[string]Entry `json:"entries"`
}

// Store holds the latest known result per signal id. Memory is authoritative;
// the file on disk is a best-effort snapshot. The refresh engine is the only
// writer.
type Store struct {
	path    string
	logger  *logger.Logger
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewStore creates a Store persisting to path. Call Load before first use.
func NewStore(path string, log *logger.Logger) *Store {
	return &Store{
		path:    path,
		logger:  log,
		entries: make(map[string]Entry),
	}
}

// Load reads the persisted file if present. A missing or corrupt file starts
// the store empty; the cache is an optimization, not a source of truth.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]Entry)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		s.logWarn("cache file unreadable, starting empty")
		return apperrors.NewPersistenceError("load", s.path, err)
	}

	var file storeFile
	if err := json.Unmarshal(data, &file); err != nil {
		s.logWarn("cache file corrupt, starting empty")
		return apperrors.NewPersistenceError("load", s.path, err)
	}

	for id, entry := range file.Entries {
		if entry.SignalID == "" {
			entry.SignalID = id
		}
		if entry.Result != nil && !entry.Result.Status.Valid() {
			// Hand-edited status values degrade to unknown instead of crashing readers.
			entry.Result.Status = signal.StatusUnknown
		}
		s.entries[id] = entry
	}

	return nil
}

// Flush writes the full in-memory state to disk atomically: temp file plus
// rename, so a concurrent reader sees either the old or the new content.
func (s *Store) Flush() error {
	s.mu.RLock()
	file := storeFile{
		Version: fileVersion,
		Entries: make(map[string]Entry, len(s.entries)),
	}
	for id, entry := range s.entries {
		file.Entries[id] = entry
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return apperrors.NewPersistenceError("flush", s.path, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.NewPersistenceError("flush", s.path, err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return apperrors.NewPersistenceError("flush", s.path, err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return apperrors.NewPersistenceError("flush", s.path, err)
	}

	return nil
}

// Get retrieves the entry for a signal id. Purely in-memory.
func (s *Store) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	return entry, ok
}

// GetAll returns a consistent snapshot of every entry.
func (s *Store) GetAll() map[string]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Entry, len(s.entries))
	for id, entry := range s.entries {
		out[id] = entry
	}
	return out
}

// GetSome returns entries for the requested ids only; missing ids are simply
// absent from the result. This is the subscription-filtered read path.
func (s *Store) GetSome(ids []string) map[string]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Entry, len(ids))
	for _, id := range ids {
		if entry, ok := s.entries[id]; ok {
			out[id] = entry
		}
	}
	return out
}

// Put records a fetch outcome for id. Concurrent puts for the same id resolve
// last-writer-by-attempt-timestamp: a stale attempt never overwrites a newer
// one, which keeps outcomes deterministic given attempt order.
func (s *Store) Put(id string, result signal.Result, attemptTS time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if ok && entry.LastAttempt.After(attemptTS) {
		return
	}
	if !ok {
		entry = Entry{SignalID: id}
	}

	entry.LastAttempt = attemptTS
	entry.Result = &result
	if result.Status != signal.StatusBad {
		entry.LastSuccess = attemptTS
		entry.ConsecutiveFailures = 0
	} else {
		entry.ConsecutiveFailures++
	}

	s.entries[id] = entry
}

// Prune drops entries whose ids are not in keep. Called after a registry
// reload to discard orphans; concurrent readers keep their snapshots.
func (s *Store) Prune(keep map[string]struct{}) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id := range s.entries {
		if _, ok := keep[id]; !ok {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of cached entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) logWarn(msg string) {
	if s.logger == nil {
		return
	}
	s.logger.WithFields(map[string]any{"path": s.path}).Warn(msg)
}
