package capability

import (
	"fmt"

	"github.com/gboutry/defining-acceptance/internal/scenario"
	"github.com/gboutry/defining-acceptance/internal/testbed"
)

// Verdict is the outcome of resolving one scenario against the testbed.
// When Eligible is false, Reason names the first capability the testbed
// failed to satisfy.
type Verdict struct {
	Eligible bool
	Reason   string
}

// Resolution pairs a scenario with its verdict.
type Resolution struct {
	Scenario scenario.Scenario
	Verdict  Verdict
}

// Resolver evaluates scenario capability tags against a registry. Resolution
// is pure: no I/O, no mutation, identical inputs give identical verdicts.
type Resolver struct {
	registry *Registry
}

// NewResolver checks that every tag declared by the scenarios has a
// registered predicate. An unknown tag is a configuration error raised
// here, before any scenario runs.
func NewResolver(registry *Registry, scenarios []scenario.Scenario) (*Resolver, error) {
	for _, sc := range scenarios {
		for _, tag := range sc.Tags {
			if _, ok := registry.Lookup(tag); !ok {
				return nil, fmt.Errorf("scenario %q uses unregistered capability tag %q", sc.Name, tag)
			}
		}
	}
	return &Resolver{registry: registry}, nil
}

// Resolve evaluates the conjunction of sc's tag predicates against env. A
// scenario with no tags is always eligible. Tags narrow eligibility, never
// widen it.
func (r *Resolver) Resolve(sc scenario.Scenario, env testbed.Descriptor) Verdict {
	for _, tag := range sc.Tags {
		predicate, ok := r.registry.Lookup(tag)
		if !ok {
			return Verdict{Reason: fmt.Sprintf("capability %q is not registered", tag)}
		}
		if !predicate(env) {
			return Verdict{Reason: fmt.Sprintf("testbed does not satisfy capability %q", tag)}
		}
	}
	return Verdict{Eligible: true}
}

// ResolveAll resolves every scenario in discovery order.
func (r *Resolver) ResolveAll(scenarios []scenario.Scenario, env testbed.Descriptor) []Resolution {
	resolutions := make([]Resolution, 0, len(scenarios))
	for _, sc := range scenarios {
		resolutions = append(resolutions, Resolution{
			Scenario: sc,
			Verdict:  r.Resolve(sc, env),
		})
	}
	return resolutions
}
