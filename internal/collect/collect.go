package collect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gboutry/defining-acceptance/internal/clients"
	"github.com/gboutry/defining-acceptance/internal/testbed"
	"github.com/gboutry/defining-acceptance/pkg/logging"
)

const (
	aptUpdateTimeout   = 5 * time.Minute
	aptInstallTimeout  = 20 * time.Minute
	sosReportTimeout   = time.Hour
	listArchiveTimeout = time.Minute
	listModelsTimeout  = 2 * time.Minute
	statusJSONTimeout  = 4 * time.Minute
	statusTimeout      = 5 * time.Minute
	debugLogTimeout    = 15 * time.Minute
	showUnitTimeout    = 3 * time.Minute
)

var safeName = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitize turns a hostname, model or unit name into a path segment
func sanitize(value string) string {
	cleaned := safeName.ReplaceAllString(value, "_")
	cleaned = strings.Trim(cleaned, "_")
	if cleaned == "" {
		return "unknown"
	}
	return cleaned
}

// remote is the slice of the SSH client the collector needs
type remote interface {
	Run(ctx context.Context, host string, argv []string, timeout time.Duration) (clients.CommandResult, error)
	Download(ctx context.Context, host, remotePath, localPath string) error
}

// Failure records one machine's collection going wrong
type Failure struct {
	Stage    string
	Hostname string
	Reason   string
}

// String implements fmt.Stringer
func (f Failure) String() string {
	return f.Stage + ":" + f.Hostname + ":" + f.Reason
}

// Report summarizes a collection run
type Report struct {
	ArtifactsDir string
	Machines     int
	Failures     []Failure
}

// Failed reports whether any machine's collection went wrong
func (r *Report) Failed() bool {
	return len(r.Failures) > 0
}

// Collector gathers sos reports from every testbed machine and Juju
// diagnostics from the primary one into an artifact tree.
type Collector struct {
	runner       remote
	artifactsDir string
	workers      int
}

// New creates a collector writing under artifactsDir. A non-positive
// workers value sizes the sos pool to the machine count.
func New(runner *clients.SSHRunner, artifactsDir string, workers int) *Collector {
	return &Collector{runner: runner, artifactsDir: artifactsDir, workers: workers}
}

// Run collects from every machine in the testbed. Individual machine
// failures land in the report rather than aborting the sweep; the returned
// error covers only problems with the artifact tree itself.
func (c *Collector) Run(ctx context.Context, cfg *testbed.Config) (*Report, error) {
	if err := os.MkdirAll(c.artifactsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifacts directory %s: %w", c.artifactsDir, err)
	}

	report := &Report{ArtifactsDir: c.artifactsDir, Machines: len(cfg.Machines)}

	workers := c.workers
	if workers <= 0 {
		workers = len(cfg.Machines)
	}
	if workers < 1 {
		workers = 1
	}

	logging.Info("Collect", "Collecting sos reports from %d machines with %d workers", len(cfg.Machines), workers)

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		jobs = make(chan testbed.Machine)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for machine := range jobs {
				if err := c.collectSOS(ctx, machine); err != nil {
					logging.Error("Collect", err, "sos collection failed on %s", machine.Hostname)
					mu.Lock()
					report.Failures = append(report.Failures, Failure{Stage: "sos", Hostname: machine.Hostname, Reason: err.Error()})
					mu.Unlock()
					continue
				}
				logging.Info("Collect", "sos: %s done", machine.Hostname)
			}
		}()
	}
	for _, machine := range cfg.Machines {
		jobs <- machine
	}
	close(jobs)
	wg.Wait()

	primary := cfg.PrimaryMachine()
	logging.Info("Collect", "Collecting Juju diagnostics on %s", primary.Hostname)
	if err := c.collectJuju(ctx, primary); err != nil {
		logging.Error("Collect", err, "juju collection failed on %s", primary.Hostname)
		report.Failures = append(report.Failures, Failure{Stage: "juju", Hostname: primary.Hostname, Reason: err.Error()})
	}

	if report.Failed() {
		logging.Warn("Collect", "Collection completed with %d failures", len(report.Failures))
		for _, failure := range report.Failures {
			logging.Warn("Collect", "%s", failure)
		}
	} else {
		logging.Info("Collect", "Collection completed successfully: %s", c.artifactsDir)
	}
	return report, nil
}

// writeResult stores a command's streams as <name>.stdout.log and
// <name>.stderr.log under dir.
func writeResult(dir, name string, result clients.CommandResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".stdout.log"), []byte(result.Stdout), 0o644); err != nil {
		return fmt.Errorf("writing %s stdout: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".stderr.log"), []byte(result.Stderr), 0o644); err != nil {
		return fmt.Errorf("writing %s stderr: %w", name, err)
	}
	return nil
}

func (c *Collector) collectSOS(ctx context.Context, machine testbed.Machine) error {
	hostDir := filepath.Join(c.artifactsDir, "sos", sanitize(machine.Hostname))

	update, err := c.runner.Run(ctx, machine.IP,
		[]string{"sudo", "DEBIAN_FRONTEND=noninteractive", "apt-get", "update", "-y"}, aptUpdateTimeout)
	if err != nil {
		return fmt.Errorf("updating apt index: %w", err)
	}
	if err := writeResult(hostDir, "apt-update", update); err != nil {
		return err
	}
	if !update.Succeeded() {
		return errors.New("failed to update apt index")
	}

	install, err := c.runner.Run(ctx, machine.IP,
		[]string{"sudo", "DEBIAN_FRONTEND=noninteractive", "apt-get", "install", "-y", "sosreport"}, aptInstallTimeout)
	if err != nil {
		return fmt.Errorf("installing sosreport: %w", err)
	}
	if err := writeResult(hostDir, "install-sosreport", install); err != nil {
		return err
	}
	if !install.Succeeded() {
		return errors.New("failed to install sosreport")
	}

	sos, err := c.runner.Run(ctx, machine.IP,
		[]string{"sudo", "sos", "report", "--batch", "--all-logs", "--name", sanitize(machine.Hostname)}, sosReportTimeout)
	if err != nil {
		return fmt.Errorf("running sos report: %w", err)
	}
	if err := writeResult(hostDir, "sos-report", sos); err != nil {
		return err
	}
	if !sos.Succeeded() {
		return errors.New("failed to run sos report")
	}

	// The glob has to expand on the remote side, so it goes through sh
	archive, err := c.runner.Run(ctx, machine.IP,
		[]string{"sudo", "sh", "-c", "ls -1t /tmp/sosreport-*.tar* 2>/dev/null"}, listArchiveTimeout)
	if err != nil {
		return fmt.Errorf("locating sos archive: %w", err)
	}
	if err := writeResult(hostDir, "sos-archive-path", archive); err != nil {
		return err
	}
	archives := strings.TrimSpace(archive.Stdout)
	if !archive.Succeeded() || archives == "" {
		return errors.New("could not locate sos archive")
	}

	for _, remotePath := range strings.Split(archives, "\n") {
		remotePath = strings.TrimSpace(remotePath)
		if remotePath == "" {
			continue
		}
		localPath := filepath.Join(hostDir, filepath.Base(remotePath))
		if err := c.runner.Download(ctx, machine.IP, remotePath, localPath); err != nil {
			return fmt.Errorf("downloading %s: %w", remotePath, err)
		}
		logging.Debug("Collect", "Downloaded %s from %s", remotePath, machine.Hostname)
	}
	return nil
}

func (c *Collector) collectJuju(ctx context.Context, machine testbed.Machine) error {
	hostDir := filepath.Join(c.artifactsDir, "juju", sanitize(machine.Hostname))

	models, err := c.listModels(ctx, machine)
	if err != nil {
		return fmt.Errorf("listing models: %w", err)
	}
	if len(models) == 0 {
		return errors.New("no juju models discovered")
	}

	for _, model := range models {
		modelDir := filepath.Join(hostDir, sanitize(model))

		status, err := c.runner.Run(ctx, machine.IP,
			[]string{"juju", "status", "-m", model}, statusTimeout)
		if err != nil {
			return fmt.Errorf("model %s: fetching status: %w", model, err)
		}
		if err := writeResult(modelDir, "status", status); err != nil {
			return err
		}

		debugLog, err := c.runner.Run(ctx, machine.IP,
			[]string{"juju", "debug-log", "-m", model, "--replay", "--no-tail", "--lines", "5000"}, debugLogTimeout)
		if err != nil {
			return fmt.Errorf("model %s: fetching debug log: %w", model, err)
		}
		if err := writeResult(modelDir, "debug-log", debugLog); err != nil {
			return err
		}

		units, err := c.listUnits(ctx, machine, model)
		if err != nil {
			return fmt.Errorf("model %s: listing units: %w", model, err)
		}
		for _, unit := range units {
			showUnit, err := c.runner.Run(ctx, machine.IP,
				[]string{"juju", "show-unit", "-m", model, unit}, showUnitTimeout)
			if err != nil {
				return fmt.Errorf("unit %s: fetching details: %w", unit, err)
			}
			if err := writeResult(modelDir, "show-unit-"+sanitize(unit), showUnit); err != nil {
				return err
			}
		}
	}

	logging.Info("Collect", "juju: %s -> models=%d", machine.Hostname, len(models))
	return nil
}

// listModels returns the models visible on the machine, sorted and
// deduplicated. A failing or unparsable juju answer yields none.
func (c *Collector) listModels(ctx context.Context, machine testbed.Machine) ([]string, error) {
	result, err := c.runner.Run(ctx, machine.IP,
		[]string{"juju", "models", "--format", "json"}, listModelsTimeout)
	if err != nil {
		return nil, err
	}
	if !result.Succeeded() {
		return nil, nil
	}
	return parseModels([]byte(result.Stdout)), nil
}

func (c *Collector) listUnits(ctx context.Context, machine testbed.Machine, model string) ([]string, error) {
	result, err := c.runner.Run(ctx, machine.IP,
		[]string{"juju", "status", "-m", model, "--format", "json"}, statusJSONTimeout)
	if err != nil {
		return nil, err
	}
	if !result.Succeeded() {
		return nil, nil
	}
	return parseUnits([]byte(result.Stdout)), nil
}

func parseModels(payload []byte) []string {
	var parsed struct {
		Models []struct {
			ShortName string `json:"short-name"`
			Name      string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var models []string
	for _, model := range parsed.Models {
		name := model.ShortName
		if name == "" {
			name = model.Name
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		models = append(models, name)
	}
	sort.Strings(models)
	return models
}

func parseUnits(payload []byte) []string {
	var parsed struct {
		Applications map[string]struct {
			Units map[string]json.RawMessage `json:"units"`
		} `json:"applications"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var units []string
	for _, app := range parsed.Applications {
		for unit := range app.Units {
			if unit == "" || seen[unit] {
				continue
			}
			seen[unit] = true
			units = append(units, unit)
		}
	}
	sort.Strings(units)
	return units
}
