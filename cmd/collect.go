package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gboutry/defining-acceptance/internal/clients"
	"github.com/gboutry/defining-acceptance/internal/collect"
	"github.com/gboutry/defining-acceptance/internal/color"
	"github.com/gboutry/defining-acceptance/internal/testbed"
)

var (
	collectTestbedFile  string
	collectArtifactsDir string
	collectWorkers      int
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect debug artifacts from every testbed machine",
	Long: `Collect deployment diagnostics from the testbed: an sos report from
every machine in parallel, plus Juju status, debug logs and unit details
from the primary machine, one directory per model.

Artifacts land under <artifacts-dir>/sos/<host>/ and
<artifacts-dir>/juju/<host>/<model>/. A machine that cannot be collected
is recorded and reported; the sweep continues over the others.`,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().StringVar(&collectTestbedFile, "testbed-file", "", "Path to the testbed description (required)")
	collectCmd.Flags().StringVar(&collectArtifactsDir, "artifacts-dir", "", "Destination directory (default: $ARTIFACTS_DIR or ./artifacts)")
	collectCmd.Flags().IntVar(&collectWorkers, "workers", 0, "Parallel sos workers (default: number of testbed machines)")
	_ = collectCmd.MarkFlagRequired("testbed-file")
}

// resolveArtifactsDir applies the flag, then $ARTIFACTS_DIR, then the
// default destination.
func resolveArtifactsDir(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv("ARTIFACTS_DIR"); env != "" {
		return env
	}
	return "artifacts"
}

func runCollect(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	cfg, err := testbed.Load(collectTestbedFile)
	if err != nil {
		return err
	}
	if cfg.SSH == nil || cfg.SSH.User == "" || cfg.SSH.PrivateKey == "" {
		return fmt.Errorf("testbed ssh.user and ssh.private_key are required to collect artifacts")
	}

	artifactsDir := resolveArtifactsDir(collectArtifactsDir)

	sshRunner, err := clients.NewSSHRunner(cfg.SSH.User, cfg.SSH.PrivateKey)
	if err != nil {
		return err
	}

	report, err := collect.New(sshRunner, artifactsDir, collectWorkers).Run(ctx, cfg)
	if err != nil {
		return err
	}

	if report.Failed() {
		fmt.Printf("%s collection from %d machines finished with %d failures:\n",
			color.Failed("FAILED"), report.Machines, len(report.Failures))
		for _, failure := range report.Failures {
			fmt.Printf("  %s\n", failure)
		}
		os.Exit(1)
	}

	fmt.Printf("%s artifacts from %d machines written to %s\n",
		color.Passed("OK"), report.Machines, report.ArtifactsDir)
	return nil
}
