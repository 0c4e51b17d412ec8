// Package capability decides which scenarios a testbed can run.
//
// Scenarios declare capability tags, and a testbed descriptor states what
// the environment actually offers. The resolver matches the two and
// produces one verdict per scenario, so a run never attempts work the
// testbed cannot support and a skipped scenario can always say why.
//
// # Core Concepts
//
// Capability: a named property of the testbed, such as a topology
// (single-node, three-node), a provisioning provider (maas), or an
// enabled feature (secrets, caas, loadbalancer).
//
// Predicate: the check behind a capability name. Predicates inspect the
// testbed descriptor only; they never touch the environment.
//
// Resolution: the verdict for one scenario, eligible or skipped with the
// first unsatisfied capability named in the reason.
//
// # Usage
//
//	registry := capability.DefaultRegistry()
//	resolver, err := capability.NewResolver(registry, scenarios)
//	if err != nil {
//		return err // a scenario references an unregistered tag
//	}
//	resolutions := resolver.ResolveAll(scenarios, cfg.Describe())
//
// Unknown tags are a configuration error surfaced at resolver
// construction, not at run time, so a typo in a scenario file fails fast
// instead of silently skipping.
package capability
