package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gboutry/defining-acceptance/internal/color"
	"github.com/gboutry/defining-acceptance/internal/reporting"
)

var uploadToURL string

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload <directory>",
	Short: "Replay buffered category logs to a results collector",
	Long: `Replay the per-category JSONL logs a buffered run left behind, posting
each category to the collector as if the run had reported live.

Each category log becomes its own remote execution; replaying the same
directory twice creates a second set of executions. The logs are left in
place so a failed upload can be retried.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().StringVar(&uploadToURL, "to-url", "", "Collector URL (default: $"+reporting.EnvURL+")")
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg, err := reporting.UploadConfigFromEnv(uploadToURL)
	if err != nil {
		return err
	}

	report, err := reporting.Replay(args[0], cfg)
	if err != nil {
		return err
	}

	printReplayReport(report)
	if report.Failed() {
		os.Exit(1)
	}
	return nil
}

func printReplayReport(report *reporting.ReplayReport) {
	for _, cat := range report.Categories {
		switch {
		case cat.Failed > 0:
			fmt.Printf("%-13s %s  %d of %d records failed\n",
				cat.Category, color.Failed("failed"), cat.Failed, cat.Replayed+cat.Failed)
			for _, reason := range cat.Reasons {
				fmt.Printf("              %s\n", color.MutedStyle.Render(reason))
			}
		case cat.Malformed > 0:
			fmt.Printf("%-13s %s  %d records replayed, %d malformed lines skipped\n",
				cat.Category, color.Skipped("partial"), cat.Replayed, cat.Malformed)
		default:
			fmt.Printf("%-13s %s  %d records replayed\n", cat.Category, color.Passed("uploaded"), cat.Replayed)
		}
	}

	replayed, failed := report.Totals()
	fmt.Printf("\n%d records replayed, %d failed\n", replayed, failed)
}
