package cmd

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/gboutry/defining-acceptance/internal/color"
	"github.com/gboutry/defining-acceptance/pkg/logging"
)

var logLevelFlag string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "acceptance",
	Short: "Run OpenStack acceptance scenarios against a testbed",
	Long: `acceptance drives an OpenStack Sunbeam deployment through its
acceptance scenarios. Scenarios are selected by what the testbed can
actually do, executed per category, and reported to a results collector
either live or through a buffered log uploaded later.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. invalid arguments, failed scenarios)
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(logLevelFlag)
		if err != nil {
			return err
		}
		logging.InitForCLI(level, os.Stderr)
		color.Initialize(lipgloss.HasDarkBackground())
		return nil
	},
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v // Set cobra's version field as well
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Set up version template
	rootCmd.SetVersionTemplate(`{{printf "acceptance version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())

	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "Log level (debug, info, warn, error)")
}
