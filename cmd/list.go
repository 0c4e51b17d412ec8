package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gboutry/defining-acceptance/internal/capability"
	"github.com/gboutry/defining-acceptance/internal/color"
	"github.com/gboutry/defining-acceptance/internal/scenario"
	"github.com/gboutry/defining-acceptance/internal/testbed"
)

var (
	listTestbedFile string
	listScenarioDir string
	listMock        bool
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List scenarios with their eligibility against the testbed",
	Long: `List the scenario corpus and, for each scenario, whether the loaded
testbed satisfies its capability tags. Ineligible scenarios show the first
unsatisfied capability, exactly as the run would report their skip.`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listTestbedFile, "testbed-file", testbed.DefaultPath, "Path to the testbed description")
	listCmd.Flags().StringVar(&listScenarioDir, "scenario-dir", scenario.DefaultDir, "Directory holding scenario YAML files")
	listCmd.Flags().BoolVar(&listMock, "mock", false, "Resolve against the mock testbed")
}

func runList(cmd *cobra.Command, args []string) error {
	var (
		cfg *testbed.Config
		err error
	)
	if listMock {
		cfg = testbed.MockConfig()
	} else {
		cfg, err = testbed.Load(listTestbedFile)
		if err != nil {
			return err
		}
	}

	scenarios, err := scenario.LoadDir(listScenarioDir)
	if err != nil {
		return err
	}

	resolver, err := capability.NewResolver(capability.DefaultRegistry(), scenarios)
	if err != nil {
		return err
	}
	resolutions := resolver.ResolveAll(scenarios, cfg.Describe())
	fmt.Print(renderScenarioTable(resolutions))
	return nil
}

// renderScenarioTable lays the resolutions out grouped by category. Only the
// status column is styled so the plain columns keep their alignment.
func renderScenarioTable(resolutions []capability.Resolution) string {
	nameWidth := len("SCENARIO")
	for _, res := range resolutions {
		if len(res.Scenario.Name) > nameWidth {
			nameWidth = len(res.Scenario.Name)
		}
	}

	byCategory := make(map[string][]capability.Resolution)
	for _, res := range resolutions {
		byCategory[res.Scenario.Category] = append(byCategory[res.Scenario.Category], res)
	}

	out := color.HeaderStyle.Render(fmt.Sprintf("%-13s %-*s %-5s %s", "CATEGORY", nameWidth, "SCENARIO", "STEPS", "STATUS")) + "\n"
	eligibleCount := 0
	for _, category := range scenario.Categories() {
		for _, res := range byCategory[category] {
			status := color.Passed("eligible")
			if res.Verdict.Eligible {
				eligibleCount++
			} else {
				status = color.Skipped("skipped") + " " + color.MutedStyle.Render(res.Verdict.Reason)
			}
			out += fmt.Sprintf("%-13s %-*s %5d %s\n", category, nameWidth, res.Scenario.Name, len(res.Scenario.Steps), status)
		}
	}
	out += fmt.Sprintf("\n%d scenarios, %d eligible\n", len(resolutions), eligibleCount)
	return out
}
