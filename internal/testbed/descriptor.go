package testbed

// Descriptor is the read-only snapshot of testbed facts that capability
// predicates evaluate against. It is built once from a validated Config and
// never mutates during a run; eligibility decisions are pure functions of
// this snapshot.
type Descriptor struct {
	Provider             string
	Topology             string
	Machines             []MachineInfo
	EnabledFeatures      map[string]bool
	AlreadyProvisioned   bool
	ExternalOrchestrator bool
	ProxyEnabled         bool
}

// MachineInfo is the per-machine slice of the snapshot: the role set and
// storage device list predicates may inspect.
type MachineInfo struct {
	Hostname string
	Roles    []string
	Devices  []string
}

// HasFeature reports whether the named feature is present in the snapshot.
func (d Descriptor) HasFeature(name string) bool {
	return d.EnabledFeatures[name]
}

// Describe derives the capability snapshot from the config. Missing optional
// sections degrade to zero values (empty provider, proxy disabled, and so
// on) rather than errors; Validate has already rejected malformed input.
func (c *Config) Describe() Descriptor {
	desc := Descriptor{
		EnabledFeatures: make(map[string]bool, len(c.Features)),
	}

	if c.Deployment != nil {
		desc.Provider = c.Deployment.Provider
		desc.Topology = c.Deployment.Topology
		desc.AlreadyProvisioned = c.Deployment.Provisioned
	}

	desc.ExternalOrchestrator = c.HasExternalJuju()
	desc.ProxyEnabled = c.HasProxy()

	for _, feature := range c.Features {
		desc.EnabledFeatures[feature] = true
	}

	desc.Machines = make([]MachineInfo, 0, len(c.Machines))
	for _, machine := range c.Machines {
		info := MachineInfo{
			Hostname: machine.Hostname,
			Roles:    append([]string(nil), machine.Roles...),
			Devices:  append([]string(nil), machine.OSDDevices...),
		}
		desc.Machines = append(desc.Machines, info)
	}

	return desc
}
