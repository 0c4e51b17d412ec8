package testbed

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTestbedYAML = `
machines:
  - hostname: ctrl0
    ip: 10.0.0.10
    roles: [control, compute]
    osd_devices:
      - /dev/disk/by-id/wwn-0x5000c500a1b2c3d4
  - hostname: node1
    ip: 10.0.0.11
    roles: [compute, storage]
deployment:
  provider: maas
  topology: multi-node
  channel: 2024.1/edge
network:
  proxy:
    enabled: true
    http: http://squid.internal:3128
features:
  - secrets
  - vault
ssh:
  user: ubuntu
  private_key: /home/ubuntu/.ssh/id_ed25519
`

func TestLoad(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "testbed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTestbedYAML), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Len(t, cfg.Machines, 2)
	assert.Equal(t, "ctrl0", cfg.Machines[0].Hostname)
	assert.Equal(t, []string{"control", "compute"}, cfg.Machines[0].Roles)
	assert.Equal(t, "maas", cfg.Deployment.Provider)
	assert.Equal(t, "multi-node", cfg.Deployment.Topology)
	assert.True(t, cfg.HasProxy())
	assert.True(t, cfg.HasFeature("vault"))
	assert.Equal(t, "ubuntu", cfg.SSH.User)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reading testbed file")
}

func TestLoadMalformedYAML(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "testbed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("machines: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parsing testbed file")
}

func TestLoadInvalidConfig(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "testbed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("machines: []\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid testbed file")
	assert.Contains(t, err.Error(), "machines")
}

func TestLoadUsesReadFileVar(t *testing.T) {
	originalReadFile := osReadFile
	defer func() { osReadFile = originalReadFile }()

	osReadFile = func(path string) ([]byte, error) {
		return nil, fmt.Errorf("boom")
	}

	_, err := Load("anywhere.yaml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestMockConfig(t *testing.T) {
	cfg := MockConfig()

	require.NoError(t, cfg.Validate())
	require.Len(t, cfg.Machines, 1)
	assert.Equal(t, "bm0", cfg.Machines[0].Hostname)
	assert.True(t, cfg.Machines[0].HasRole("control"))
	assert.Equal(t, "manual", cfg.Deployment.Provider)
	assert.Equal(t, "single-node", cfg.Deployment.Topology)
	assert.False(t, cfg.IsProvisioned())

	desc := cfg.Describe()
	assert.Equal(t, "single-node", desc.Topology)
	assert.Len(t, desc.Machines, 1)
}
