package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gboutry/defining-acceptance/pkg/logging"
)

// BufferedSink appends events as JSONL records to one log file per
// category, for a later replay against the collector. No network activity
// happens here. Write failures are returned to the caller; a run that asked
// for buffering must not silently lose its records.
type BufferedSink struct {
	dir       string
	meta      Metadata
	lifecycle *categoryLifecycle

	mu    sync.Mutex
	files map[string]*os.File
	seq   map[string]int64
}

// NewBufferedSink creates the buffer directory and a sink writing beneath it
func NewBufferedSink(dir string, meta Metadata) (*BufferedSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating buffer directory %s: %w", dir, err)
	}

	logging.Debug("BufferedSink", "Buffering execution events under %s", dir)

	return &BufferedSink{
		dir:       dir,
		meta:      meta,
		lifecycle: newCategoryLifecycle(),
		files:     make(map[string]*os.File),
		seq:       make(map[string]int64),
	}, nil
}

// Emit implements Sink. Run-started records carry the collector metadata so
// the log replays without any environment present.
func (s *BufferedSink) Emit(event Event) error {
	if err := s.lifecycle.admit(event); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	category := event.Category()
	file, err := s.file(category)
	if err != nil {
		return err
	}

	s.seq[category]++
	rec := newRecord(s.seq[category], event)
	if rec.Type == EventTypeRunStarted {
		meta := s.meta
		rec.Meta = &meta
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record for category %s: %w", category, err)
	}
	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing buffer for category %s: %w", category, err)
	}

	return nil
}

// file returns the category's open log file, creating it on first use. The
// file is truncated at that point: a log holds exactly one run's timeline,
// and records from an earlier run must not leak into a replay.
func (s *BufferedSink) file(category string) (*os.File, error) {
	if f, ok := s.files[category]; ok {
		return f, nil
	}

	path := filepath.Join(s.dir, category+".jsonl")
	f, err := os.OpenFile(path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening buffer file %s: %w", path, err)
	}

	s.files[category] = f
	return f, nil
}

// Flush implements Sink by syncing every open buffer file to disk
func (s *BufferedSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for category, f := range s.files {
		if err := f.Sync(); err != nil {
			return fmt.Errorf("syncing buffer for category %s: %w", category, err)
		}
	}
	return nil
}

// Close closes all buffer files. The sink must not be used afterwards.
func (s *BufferedSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for category, f := range s.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing buffer for category %s: %w", category, err)
		}
	}
	s.files = make(map[string]*os.File)
	return firstErr
}

// Dir returns the directory the sink writes beneath
func (s *BufferedSink) Dir() string {
	return s.dir
}
