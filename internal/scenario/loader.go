package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gboutry/defining-acceptance/pkg/logging"
)

// For mocking in tests
var (
	osReadDir  = os.ReadDir
	osReadFile = os.ReadFile
)

// DefaultDir is where LoadDir looks when no scenario directory is given on
// the command line.
const DefaultDir = "scenarios"

type scenarioFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// LoadDir reads every *.yaml file in dir, in lexical filename order, and
// returns the scenarios in discovery order: file order first, in-file order
// second. Duplicate scenario names across the whole corpus are a
// configuration error.
func LoadDir(dir string) ([]Scenario, error) {
	entries, err := osReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading scenario directory %s: %w", dir, err)
	}

	var scenarios []Scenario
	seen := make(map[string]string)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		data, err := osReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading scenario file %s: %w", path, err)
		}

		var doc scenarioFile
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing scenario file %s: %w", path, err)
		}

		for i := range doc.Scenarios {
			sc := doc.Scenarios[i]
			if err := sc.validate(); err != nil {
				return nil, fmt.Errorf("invalid scenario file %s: %w", path, err)
			}
			if prev, dup := seen[sc.Name]; dup {
				return nil, fmt.Errorf("duplicate scenario name %q in %s (first defined in %s)", sc.Name, path, prev)
			}
			seen[sc.Name] = path
			scenarios = append(scenarios, sc)
		}

		logging.Debug("ScenarioLoader", "Loaded %d scenarios from %s", len(doc.Scenarios), path)
	}

	if len(scenarios) == 0 {
		return nil, fmt.Errorf("no scenarios found in %s", dir)
	}

	logging.Info("ScenarioLoader", "Discovered %d scenarios across %d categories", len(scenarios), len(GroupByCategory(scenarios)))
	return scenarios, nil
}
