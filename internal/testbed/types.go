package testbed

import (
	"fmt"
	"strings"
)

// Config is the parsed testbed description: the machines that make up the
// deployment plus the optional deployment, orchestrator, network, MAAS and
// SSH sections.
type Config struct {
	Machines   []Machine   `yaml:"machines"`
	Deployment *Deployment `yaml:"deployment,omitempty"`
	Juju       *Juju       `yaml:"juju,omitempty"`
	Network    *Network    `yaml:"network,omitempty"`
	Features   []string    `yaml:"features,omitempty"`
	MAAS       *MAAS       `yaml:"maas,omitempty"`
	SSH        *SSH        `yaml:"ssh,omitempty"`
}

// Machine describes a single testbed host.
type Machine struct {
	Hostname         string            `yaml:"hostname"`
	IP               string            `yaml:"ip"`
	FQDN             string            `yaml:"fqdn,omitempty"`
	Roles            []string          `yaml:"roles"`
	OSDDevices       []string          `yaml:"osd_devices,omitempty"`
	ExternalNetworks *ExternalNetworks `yaml:"external_networks,omitempty"`
}

// ExternalNetworks names the NIC carrying external traffic on a machine.
type ExternalNetworks struct {
	External string `yaml:"external"`
}

// Deployment describes how the cloud is (or will be) deployed.
type Deployment struct {
	Provider    string `yaml:"provider"`
	Topology    string `yaml:"topology"`
	Channel     string `yaml:"channel"`
	Manifest    string `yaml:"manifest,omitempty"`
	Provisioned bool   `yaml:"provisioned,omitempty"`
}

// Juju describes the orchestrator configuration.
type Juju struct {
	External   bool            `yaml:"external,omitempty"`
	Controller *JujuController `yaml:"controller,omitempty"`
}

// JujuController holds credentials for an externally managed controller.
type JujuController struct {
	Name     string `yaml:"name"`
	Endpoint string `yaml:"endpoint"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// Network groups proxy settings and external (provider) networks.
type Network struct {
	Proxy    *Proxy                     `yaml:"proxy,omitempty"`
	External map[string]ExternalNetwork `yaml:"external,omitempty"`
}

// Proxy holds egress proxy settings for restricted environments.
type Proxy struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	HTTP    string `yaml:"http,omitempty"`
	HTTPS   string `yaml:"https,omitempty"`
	NoProxy string `yaml:"no_proxy,omitempty"`
}

// ExternalNetwork describes one provider network segment.
type ExternalNetwork struct {
	CIDR    string `yaml:"cidr"`
	Gateway string `yaml:"gateway"`
}

// MAAS holds the connection details for a MAAS-backed testbed.
type MAAS struct {
	Endpoint      string             `yaml:"endpoint"`
	APIKey        string             `yaml:"api_key"`
	NetworkSpaces *MAASNetworkSpaces `yaml:"network_spaces,omitempty"`
}

// MAASNetworkSpaces maps logical networks to MAAS spaces.
type MAASNetworkSpaces struct {
	Management string `yaml:"management,omitempty"`
	Storage    string `yaml:"storage,omitempty"`
	Internal   string `yaml:"internal,omitempty"`
}

// SSH holds credentials for reaching testbed machines.
type SSH struct {
	User       string `yaml:"user"`
	PrivateKey string `yaml:"private_key,omitempty"`
	PublicKey  string `yaml:"public_key,omitempty"`
}

// Validate checks the config for structural problems. Errors name the
// offending field so a bad testbed file is diagnosable without a debugger.
func (c *Config) Validate() error {
	if len(c.Machines) == 0 {
		return fmt.Errorf("testbed must contain a non-empty machines list")
	}
	for i := range c.Machines {
		if err := c.Machines[i].validate(); err != nil {
			return err
		}
	}
	if c.Deployment != nil {
		if err := c.Deployment.validate(); err != nil {
			return err
		}
	}
	if c.Juju != nil && c.Juju.Controller != nil {
		if err := c.Juju.Controller.validate(); err != nil {
			return err
		}
	}
	if c.Network != nil {
		for physnet, net := range c.Network.External {
			if strings.TrimSpace(net.CIDR) == "" {
				return fmt.Errorf("network.external.%s.cidr must be a non-empty string", physnet)
			}
			if strings.TrimSpace(net.Gateway) == "" {
				return fmt.Errorf("network.external.%s.gateway must be a non-empty string", physnet)
			}
		}
	}
	for _, feature := range c.Features {
		if strings.TrimSpace(feature) == "" {
			return fmt.Errorf("each feature entry must be a non-empty string")
		}
	}
	if c.MAAS != nil {
		if strings.TrimSpace(c.MAAS.Endpoint) == "" {
			return fmt.Errorf("maas.endpoint must be a non-empty string")
		}
		if strings.TrimSpace(c.MAAS.APIKey) == "" {
			return fmt.Errorf("maas.api_key must be a non-empty string")
		}
	}
	if c.SSH != nil && strings.TrimSpace(c.SSH.User) == "" {
		return fmt.Errorf("ssh.user must be a non-empty string")
	}
	return nil
}

func (m *Machine) validate() error {
	if strings.TrimSpace(m.Hostname) == "" {
		return fmt.Errorf("machine hostname must be a non-empty string")
	}
	if strings.TrimSpace(m.IP) == "" {
		return fmt.Errorf("machine %q must include a non-empty ip", m.Hostname)
	}
	for _, role := range m.Roles {
		if strings.TrimSpace(role) == "" {
			return fmt.Errorf("machine %q roles must be a list of non-empty strings", m.Hostname)
		}
	}
	if m.ExternalNetworks != nil && strings.TrimSpace(m.ExternalNetworks.External) == "" {
		return fmt.Errorf("machine %q external_networks.external must be a non-empty string", m.Hostname)
	}
	return nil
}

func (d *Deployment) validate() error {
	if strings.TrimSpace(d.Provider) == "" {
		return fmt.Errorf("deployment.provider must be a non-empty string")
	}
	if strings.TrimSpace(d.Topology) == "" {
		return fmt.Errorf("deployment.topology must be a non-empty string")
	}
	if strings.TrimSpace(d.Channel) == "" {
		return fmt.Errorf("deployment.channel must be a non-empty string")
	}
	return nil
}

func (j *JujuController) validate() error {
	if strings.TrimSpace(j.Name) == "" {
		return fmt.Errorf("juju.controller.name must be a non-empty string")
	}
	if strings.TrimSpace(j.Endpoint) == "" {
		return fmt.Errorf("juju.controller.endpoint must be a non-empty string")
	}
	if strings.TrimSpace(j.User) == "" {
		return fmt.Errorf("juju.controller.user must be a non-empty string")
	}
	return nil
}

// PrimaryMachine returns the first machine carrying the control role, or the
// first machine when no machine declares it.
func (c *Config) PrimaryMachine() Machine {
	for _, machine := range c.Machines {
		for _, role := range machine.Roles {
			if role == "control" {
				return machine
			}
		}
	}
	return c.Machines[0]
}

// HasRole reports whether the machine carries the given role.
func (m Machine) HasRole(role string) bool {
	for _, r := range m.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasFeature reports whether the named feature is enabled on the testbed.
func (c *Config) HasFeature(name string) bool {
	for _, feature := range c.Features {
		if feature == name {
			return true
		}
	}
	return false
}

// HasProxy reports whether an egress proxy is configured and enabled.
func (c *Config) HasProxy() bool {
	return c.Network != nil && c.Network.Proxy != nil && c.Network.Proxy.Enabled
}

// HasExternalJuju reports whether the orchestrator runs outside the testbed.
func (c *Config) HasExternalJuju() bool {
	return c.Juju != nil && c.Juju.External
}

// IsProvisioned reports whether the cloud is already deployed.
func (c *Config) IsProvisioned() bool {
	return c.Deployment != nil && c.Deployment.Provisioned
}

// IsMAAS reports whether the testbed is provisioned through MAAS.
func (c *Config) IsMAAS() bool {
	return c.Deployment != nil && c.Deployment.Provider == "maas"
}
