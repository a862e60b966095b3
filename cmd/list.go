package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gooze.dev/pkg/textfuzz/internal/domain"
)

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the mutators a run draws from",
		Long:  "List the built-in mutators followed by the substitution tables given with --table or the config file.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return workflow.List(cmd.Context(), domain.ListArgs{
				Tables: parsePaths(viper.GetStringSlice(tablesConfigKey)),
			})
		},
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
}
