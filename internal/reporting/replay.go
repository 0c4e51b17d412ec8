package reporting

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gboutry/defining-acceptance/internal/observer"
	"github.com/gboutry/defining-acceptance/pkg/logging"
)

// CategoryReport sums one category's replay
type CategoryReport struct {
	Category    string
	ExecutionID int64
	Replayed    int
	Failed      int
	Malformed   int
	Reasons     []string
}

// ReplayReport sums a whole replay run
type ReplayReport struct {
	Categories []CategoryReport
}

// Failed reports whether any category failed to replay in full
func (r *ReplayReport) Failed() bool {
	for _, c := range r.Categories {
		if c.Failed > 0 {
			return true
		}
	}
	return false
}

// Totals returns the replayed and failed record counts across categories
func (r *ReplayReport) Totals() (replayed, failed int) {
	for _, c := range r.Categories {
		replayed += c.Replayed
		failed += c.Failed
	}
	return replayed, failed
}

// UploadConfigFromEnv builds the configuration for a replay upload. Unlike
// FromEnv, artefact metadata is optional here: a replay prefers the
// metadata embedded in each buffered log and falls back to the environment
// only when a log carries none.
func UploadConfigFromEnv(serverURL string) (*Config, error) {
	if serverURL == "" {
		serverURL = os.Getenv(EnvURL)
	}

	switch {
	case serverURL == "":
		return nil, fmt.Errorf("no collector URL: pass --to-url or set %s", EnvURL)
	case strings.HasPrefix(serverURL, "http://"), strings.HasPrefix(serverURL, "https://"):
	default:
		return nil, fmt.Errorf("replay upload needs an http:// or https:// collector URL, got %q", serverURL)
	}

	cfg := &Config{
		Mode:  ModeLive,
		URL:   serverURL,
		Token: os.Getenv(EnvAPIToken),
	}
	if meta, err := metadataFromEnv(); err == nil {
		cfg.Meta = *meta
	}
	return cfg, nil
}

// Replay replays every buffered category log under dir against the
// collector configured in cfg: one fresh remote execution per category,
// each category's written order preserved. Replaying the same directory
// twice creates a second set of executions. Logs are left in place so a
// failed upload can be retried.
func Replay(dir string, cfg *Config) (*ReplayReport, error) {
	if cfg.Mode != ModeLive {
		return nil, fmt.Errorf("replay requires a live collector configuration, got mode %s", cfg.Mode)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading buffer directory %s: %w", dir, err)
	}

	client := observer.NewClient(cfg.URL, cfg.Token)
	report := &ReplayReport{}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		category := strings.TrimSuffix(entry.Name(), ".jsonl")
		logging.Info("Replay", "Replaying category %s from %s", category, entry.Name())
		report.Categories = append(report.Categories,
			replayCategory(client, cfg.Meta, filepath.Join(dir, entry.Name()), category))
	}

	if len(report.Categories) == 0 {
		return nil, fmt.Errorf("no buffered category logs found in %s", dir)
	}

	return report, nil
}

// replayCategory pushes one category log through a fresh live sink. A log
// missing its terminal record is closed remotely as ended prematurely.
func replayCategory(client *observer.Client, fallback Metadata, path, category string) CategoryReport {
	report := CategoryReport{Category: category}

	records, meta, malformed, err := readRecords(path)
	report.Malformed = malformed
	if err != nil {
		report.Failed++
		report.Reasons = append(report.Reasons, err.Error())
		return report
	}
	if len(records) == 0 {
		report.Reasons = append(report.Reasons, "no replayable records")
		return report
	}

	if meta == nil {
		if (fallback == Metadata{}) {
			report.Failed = len(records)
			report.Reasons = append(report.Reasons, "no collector metadata in log or environment")
			return report
		}
		meta = &fallback
	}

	sink := NewLiveSink(client, *meta)

	// The log's own records name the category; the filename only orders
	// discovery.
	runCategory := records[0].Category
	ended := false
	for _, rec := range records {
		if err := sink.Emit(rec.Event()); err != nil {
			report.Failed++
			report.Reasons = append(report.Reasons, fmt.Sprintf("seq %d: %v", rec.Seq, err))
			continue
		}
		if rec.Type == EventTypeRunEnded && rec.Category == runCategory {
			ended = true
		}
	}

	if !ended {
		logging.Warn("Replay", "Log for category %s has no terminal record, closing as %s", category, observer.ExecutionEndedPrematurely)
		if err := sink.Emit(NewRunEnded(runCategory, OutcomeEndedPrematurely)); err != nil {
			report.Failed++
			report.Reasons = append(report.Reasons, fmt.Sprintf("synthetic close: %v", err))
		}
	}

	for _, stats := range sink.Stats() {
		if stats.Created {
			report.ExecutionID = stats.ExecutionID
		}
		report.Replayed += stats.Delivered
		report.Failed += stats.Failed
		report.Reasons = append(report.Reasons, stats.Reasons...)
	}
	return report
}

// readRecords decodes a category log. Malformed lines are skipped and
// counted. The first embedded metadata found is returned for the create
// call.
func readRecords(path string) ([]Record, *Metadata, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("opening buffer file %s: %w", path, err)
	}
	defer f.Close()

	var (
		records   []Record
		meta      *Metadata
		malformed int
	)

	scanner := bufio.NewScanner(f)
	// Step output rides in records, so lines can exceed the default limit
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			malformed++
			logging.Warn("Replay", "Skipping malformed record in %s: %v", path, err)
			continue
		}
		if rec.Event() == nil {
			malformed++
			logging.Warn("Replay", "Skipping record with unknown type %q in %s", rec.Type, path)
			continue
		}

		if meta == nil && rec.Meta != nil {
			meta = rec.Meta
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, malformed, fmt.Errorf("reading buffer file %s: %w", path, err)
	}

	return records, meta, malformed, nil
}
