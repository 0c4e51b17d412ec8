package cmd

import (
	"strings"
	"testing"

	"github.com/gboutry/defining-acceptance/internal/runner"
	"github.com/gboutry/defining-acceptance/internal/scenario"
	"github.com/gboutry/defining-acceptance/internal/testbed"
)

func TestRunCommandFlags(t *testing.T) {
	tests := []struct {
		flag       string
		defaultVal string
	}{
		{"testbed-file", "testbed.yaml"},
		{"scenario-dir", "scenarios"},
		{"mock", "false"},
		{"ssh-private-key-file", ""},
	}

	for _, tt := range tests {
		flag := runCmd.Flags().Lookup(tt.flag)
		if flag == nil {
			t.Errorf("Expected flag %s to be registered", tt.flag)
			continue
		}
		if flag.DefValue != tt.defaultVal {
			t.Errorf("Expected flag %s default %q, got %q", tt.flag, tt.defaultVal, flag.DefValue)
		}
	}

	if runCmd.Flags().Lookup("category") == nil {
		t.Error("Expected flag category to be registered")
	}
}

func TestFilterCategories(t *testing.T) {
	scenarios := []scenario.Scenario{
		{Name: "a", Category: "provisioning"},
		{Name: "b", Category: "security"},
		{Name: "c", Category: "provisioning"},
	}

	// No filter keeps everything
	kept, err := filterCategories(scenarios, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(kept) != 3 {
		t.Errorf("Expected 3 scenarios without filter, got %d", len(kept))
	}

	// Filtering keeps only the requested category
	kept, err = filterCategories(scenarios, []string{"provisioning"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(kept) != 2 {
		t.Errorf("Expected 2 provisioning scenarios, got %d", len(kept))
	}
	for _, sc := range kept {
		if sc.Category != "provisioning" {
			t.Errorf("Expected only provisioning scenarios, got %s", sc.Category)
		}
	}
}

func TestFilterCategoriesRejectsUnknown(t *testing.T) {
	_, err := filterCategories(nil, []string{"chaos"})
	if err == nil {
		t.Fatal("Expected error for unknown category")
	}
	if !strings.Contains(err.Error(), `unknown category "chaos"`) {
		t.Errorf("Expected unknown category error, got: %v", err)
	}
}

func TestMockModeFromEnv(t *testing.T) {
	originalMock := runMock
	defer func() { runMock = originalMock }()

	runMock = false
	t.Setenv("MOCK_MODE", "")
	if mockMode() {
		t.Error("Expected mock mode off without flag or env")
	}

	t.Setenv("MOCK_MODE", "1")
	if !mockMode() {
		t.Error("Expected MOCK_MODE=1 to enable mock mode")
	}

	t.Setenv("MOCK_MODE", "")
	runMock = true
	if !mockMode() {
		t.Error("Expected --mock flag to enable mock mode")
	}
}

func TestBuildExecutorMock(t *testing.T) {
	originalMock := runMock
	defer func() { runMock = originalMock }()
	runMock = true

	executor, err := buildExecutor(testbed.MockConfig())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := executor.(*runner.MockExecutor); !ok {
		t.Errorf("Expected a MockExecutor, got %T", executor)
	}
}

func TestBuildExecutorRequiresSSHSection(t *testing.T) {
	originalMock := runMock
	defer func() { runMock = originalMock }()
	runMock = false
	t.Setenv("MOCK_MODE", "")

	cfg := &testbed.Config{Machines: []testbed.Machine{{Hostname: "solo", IP: "10.0.0.11"}}}
	_, err := buildExecutor(cfg)
	if err == nil {
		t.Fatal("Expected error without ssh section")
	}
	if !strings.Contains(err.Error(), "ssh section") {
		t.Errorf("Expected ssh section error, got: %v", err)
	}
}

func TestBuildExecutorRequiresPrivateKey(t *testing.T) {
	originalMock := runMock
	originalKey := runSSHPrivateKey
	defer func() {
		runMock = originalMock
		runSSHPrivateKey = originalKey
	}()
	runMock = false
	runSSHPrivateKey = ""
	t.Setenv("MOCK_MODE", "")

	cfg := &testbed.Config{
		Machines: []testbed.Machine{{Hostname: "solo", IP: "10.0.0.11"}},
		SSH:      &testbed.SSH{User: "ubuntu"},
	}
	_, err := buildExecutor(cfg)
	if err == nil {
		t.Fatal("Expected error without a private key")
	}
	if !strings.Contains(err.Error(), "private key") {
		t.Errorf("Expected private key error, got: %v", err)
	}
}
