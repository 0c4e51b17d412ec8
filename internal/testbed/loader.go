package testbed

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osReadFile = os.ReadFile

// DefaultPath is where Load looks when no testbed file is given on the
// command line.
const DefaultPath = "testbed.yaml"

// Load reads and validates a testbed YAML file.
func Load(path string) (*Config, error) {
	data, err := osReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading testbed file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing testbed file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid testbed file %s: %w", path, err)
	}

	return &cfg, nil
}

// MockConfig returns the built-in single-node testbed used when running
// without real infrastructure (--mock or MOCK_MODE=1).
func MockConfig() *Config {
	return &Config{
		Machines: []Machine{
			{
				Hostname:         "bm0",
				IP:               "192.168.1.100",
				Roles:            []string{"control", "compute", "storage"},
				OSDDevices:       []string{"/dev/disks-by-id/sdb-id"},
				ExternalNetworks: &ExternalNetworks{External: "enp6s0"},
			},
		},
		Deployment: &Deployment{
			Provider: "manual",
			Topology: "single-node",
			Channel:  "2024.1/edge",
		},
	}
}
