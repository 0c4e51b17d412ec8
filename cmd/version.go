package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of acceptance",
		Long:  `All software has versions. This is acceptance's.`,
		Run: func(cmd *cobra.Command, args []string) {
			// rootCmd.Version is set from main.go via SetVersion
			fmt.Printf("acceptance version %s\n", rootCmd.Version)
		},
	}
}
