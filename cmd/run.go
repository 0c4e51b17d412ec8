package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gboutry/defining-acceptance/internal/capability"
	"github.com/gboutry/defining-acceptance/internal/clients"
	"github.com/gboutry/defining-acceptance/internal/color"
	"github.com/gboutry/defining-acceptance/internal/reporting"
	"github.com/gboutry/defining-acceptance/internal/runner"
	"github.com/gboutry/defining-acceptance/internal/scenario"
	"github.com/gboutry/defining-acceptance/internal/testbed"
)

var (
	runTestbedFile   string
	runScenarioDir   string
	runCategories    []string
	runMock          bool
	runSSHPrivateKey string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute acceptance scenarios against the testbed",
	Long: `Execute the acceptance scenario corpus against the deployed testbed.

Scenarios are loaded from the scenario directory, matched against the
testbed's capabilities, and grouped by category (provisioning, operations,
performance, reliability, security). Categories run concurrently; within a
category scenarios run in discovery order. A scenario whose capability
tags the testbed cannot satisfy is reported as skipped with the reason.

Results stream to the collector selected by TO_URL:
  unset          discarded after validation
  file://<dir>   buffered as per-category JSONL logs for later upload
  http(s)://     posted live to a Test Observer instance

Example usage:
  acceptance run                                 # testbed.yaml + ./scenarios
  acceptance run --category provisioning        # one category only
  acceptance run --mock                          # no real infrastructure
  acceptance run --testbed-file lab/testbed.yaml --ssh-private-key-file ~/.ssh/lab`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runTestbedFile, "testbed-file", testbed.DefaultPath, "Path to the testbed description")
	runCmd.Flags().StringVar(&runScenarioDir, "scenario-dir", scenario.DefaultDir, "Directory holding scenario YAML files")
	runCmd.Flags().StringSliceVar(&runCategories, "category", nil, "Only run the given categories (repeatable)")
	runCmd.Flags().BoolVar(&runMock, "mock", false, "Run against a mock testbed without touching infrastructure")
	runCmd.Flags().StringVar(&runSSHPrivateKey, "ssh-private-key-file", "", "SSH private key overriding the testbed's ssh.private_key")
}

// signalContext cancels the returned context on SIGINT or SIGTERM so a run
// can close its reporting timelines before exiting.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, ending run prematurely...")
		cancel()
	}()
	return ctx, cancel
}

func mockMode() bool {
	return runMock || os.Getenv("MOCK_MODE") == "1"
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	cfg, err := loadRunTestbed()
	if err != nil {
		return err
	}

	scenarios, err := scenario.LoadDir(runScenarioDir)
	if err != nil {
		return err
	}
	scenarios, err = filterCategories(scenarios, runCategories)
	if err != nil {
		return err
	}
	if len(scenarios) == 0 {
		fmt.Printf("No scenarios in categories %v\n", runCategories)
		return nil
	}

	resolver, err := capability.NewResolver(capability.DefaultRegistry(), scenarios)
	if err != nil {
		return err
	}
	resolutions := resolver.ResolveAll(scenarios, cfg.Describe())

	reportingCfg, err := reporting.FromEnv()
	if err != nil {
		return fmt.Errorf("reading reporting configuration: %w", err)
	}
	sink, err := reporting.NewSink(reportingCfg)
	if err != nil {
		return err
	}

	executor, err := buildExecutor(cfg)
	if err != nil {
		return err
	}

	summary, err := runner.New(executor, sink).Run(ctx, resolutions)
	if err != nil {
		return err
	}

	printSummary(summary)
	if summary.Failed() {
		os.Exit(1)
	}
	return nil
}

func loadRunTestbed() (*testbed.Config, error) {
	if mockMode() {
		return testbed.MockConfig(), nil
	}
	return testbed.Load(runTestbedFile)
}

// filterCategories keeps only scenarios in the requested categories. An
// unknown category name is an error rather than an empty run.
func filterCategories(scenarios []scenario.Scenario, categories []string) ([]scenario.Scenario, error) {
	if len(categories) == 0 {
		return scenarios, nil
	}

	wanted := make(map[string]bool, len(categories))
	for _, category := range categories {
		if !scenario.IsCategory(category) {
			return nil, fmt.Errorf("unknown category %q, must be one of %v", category, scenario.Categories())
		}
		wanted[category] = true
	}

	var kept []scenario.Scenario
	for _, sc := range scenarios {
		if wanted[sc.Category] {
			kept = append(kept, sc)
		}
	}
	return kept, nil
}

func buildExecutor(cfg *testbed.Config) (runner.Executor, error) {
	if mockMode() {
		return &runner.MockExecutor{}, nil
	}

	if cfg.SSH == nil || cfg.SSH.User == "" {
		return nil, fmt.Errorf("testbed ssh section with a user is required to run scenarios")
	}
	keyPath := runSSHPrivateKey
	if keyPath == "" {
		keyPath = cfg.SSH.PrivateKey
	}
	if keyPath == "" {
		return nil, fmt.Errorf("an SSH private key is required: set testbed ssh.private_key or pass --ssh-private-key-file")
	}

	sshRunner, err := clients.NewSSHRunner(cfg.SSH.User, keyPath)
	if err != nil {
		return nil, err
	}
	return runner.NewSSHExecutor(sshRunner, cfg.PrimaryMachine().IP), nil
}

func printSummary(summary *runner.Summary) {
	fmt.Println()
	fmt.Println(color.HeaderStyle.Render("Acceptance run " + summary.RunID))
	for _, cat := range summary.Categories {
		marker := color.Passed("passed")
		switch cat.Overall {
		case reporting.OutcomeFailed:
			marker = color.Failed("failed")
		case reporting.OutcomeEndedPrematurely:
			marker = color.Failed("ended prematurely")
		}
		fmt.Printf("  %-13s %s  %d passed, %d failed, %d skipped, %d errors in %s\n",
			cat.Category, marker, cat.Passed, cat.Failed, cat.Skipped, cat.Errors,
			cat.Duration.Round(time.Second))
	}
	fmt.Printf("Total duration: %s\n", summary.Duration.Round(time.Second))
}
