package scenario

import (
	"fmt"
	"strings"
	"time"
)

// Suite categories, in fixed execution order.
const (
	CategoryProvisioning = "provisioning"
	CategoryOperations   = "operations"
	CategoryPerformance  = "performance"
	CategoryReliability  = "reliability"
	CategorySecurity     = "security"
)

// DefaultStepTimeout applies when a step does not declare its own timeout.
const DefaultStepTimeout = 5 * time.Minute

// Categories returns every known category in execution order. The returned
// slice is a copy.
func Categories() []string {
	return []string{
		CategoryProvisioning,
		CategoryOperations,
		CategoryPerformance,
		CategoryReliability,
		CategorySecurity,
	}
}

// IsCategory reports whether name is a known suite category.
func IsCategory(name string) bool {
	switch name {
	case CategoryProvisioning, CategoryOperations, CategoryPerformance,
		CategoryReliability, CategorySecurity:
		return true
	}
	return false
}

// Scenario is one acceptance scenario: a named, ordered sequence of steps
// plus the capability tags that gate its eligibility. Scenarios are immutable
// once loaded.
type Scenario struct {
	Name        string   `yaml:"name"`
	Category    string   `yaml:"category"`
	Description string   `yaml:"description,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
	Steps       []Step   `yaml:"steps"`
}

// Step is one command run on the testbed's primary machine. Timeout is a Go
// duration string ("90s", "30m"); empty means DefaultStepTimeout.
type Step struct {
	Name    string   `yaml:"name"`
	Command []string `yaml:"command"`
	Timeout string   `yaml:"timeout,omitempty"`
}

// CommandTimeout returns the parsed step timeout. Call only after validation;
// an unparseable value falls back to the default.
func (s Step) CommandTimeout() time.Duration {
	if s.Timeout == "" {
		return DefaultStepTimeout
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return DefaultStepTimeout
	}
	return d
}

func (s *Scenario) validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("scenario name must be a non-empty string")
	}
	if !IsCategory(s.Category) {
		return fmt.Errorf("scenario %q has unknown category %q", s.Name, s.Category)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %q must declare at least one step", s.Name)
	}
	for _, tag := range s.Tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("scenario %q tags must be a list of non-empty strings", s.Name)
		}
	}
	for i, step := range s.Steps {
		if strings.TrimSpace(step.Name) == "" {
			return fmt.Errorf("scenario %q step %d must have a name", s.Name, i)
		}
		if len(step.Command) == 0 {
			return fmt.Errorf("scenario %q step %q must declare a command", s.Name, step.Name)
		}
		if step.Timeout != "" {
			if _, err := time.ParseDuration(step.Timeout); err != nil {
				return fmt.Errorf("scenario %q step %q has invalid timeout %q: %w", s.Name, step.Name, step.Timeout, err)
			}
		}
	}
	return nil
}

// GroupByCategory buckets scenarios per category, preserving discovery order
// within each bucket.
func GroupByCategory(scenarios []Scenario) map[string][]Scenario {
	grouped := make(map[string][]Scenario)
	for _, sc := range scenarios {
		grouped[sc.Category] = append(grouped[sc.Category], sc)
	}
	return grouped
}
