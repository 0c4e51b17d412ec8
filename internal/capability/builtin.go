package capability

import (
	"github.com/gboutry/defining-acceptance/internal/testbed"
)

// Built-in capability tags. Scenario files reference these by name.
const (
	TagSingleNode           = "single-node"
	TagMultiNode            = "multi-node"
	TagMAAS                 = "maas"
	TagExternalOrchestrator = "external-orchestrator"
	TagProxy                = "proxy"
	TagThreeNode            = "three-node"
	TagProvisioning         = "provisioning"
	TagSecrets              = "secrets"
	TagCAAS                 = "caas"
	TagLoadBalancer         = "loadbalancer"
)

// FeaturePredicate returns a predicate satisfied when the named feature is
// enabled on the testbed. Feature-gated tags (secrets, caas, loadbalancer)
// are all built from this.
func FeaturePredicate(feature string) Predicate {
	return func(env testbed.Descriptor) bool {
		return env.HasFeature(feature)
	}
}

// DefaultRegistry returns a registry preloaded with the built-in predicates.
// Topology tags compare the declared topology string; they do not infer it
// from the machine count. The three-node tag is the one that counts
// machines.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.predicates[TagSingleNode] = func(env testbed.Descriptor) bool {
		return env.Topology == "single-node"
	}
	r.predicates[TagMultiNode] = func(env testbed.Descriptor) bool {
		return env.Topology == "multi-node"
	}
	r.predicates[TagMAAS] = func(env testbed.Descriptor) bool {
		return env.Provider == "maas"
	}
	r.predicates[TagExternalOrchestrator] = func(env testbed.Descriptor) bool {
		return env.ExternalOrchestrator
	}
	r.predicates[TagProxy] = func(env testbed.Descriptor) bool {
		return env.ProxyEnabled
	}
	r.predicates[TagThreeNode] = func(env testbed.Descriptor) bool {
		return len(env.Machines) >= 3
	}
	r.predicates[TagProvisioning] = func(env testbed.Descriptor) bool {
		return !env.AlreadyProvisioned
	}
	r.predicates[TagSecrets] = FeaturePredicate(TagSecrets)
	r.predicates[TagCAAS] = FeaturePredicate(TagCAAS)
	r.predicates[TagLoadBalancer] = FeaturePredicate(TagLoadBalancer)

	return r
}
