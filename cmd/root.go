// Package cmd provides the root command and CLI setup for textfuzz.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"gooze.dev/pkg/textfuzz/internal/adapter"
	"gooze.dev/pkg/textfuzz/internal/controller"
	"gooze.dev/pkg/textfuzz/internal/domain"
	m "gooze.dev/pkg/textfuzz/internal/model"
)

var reportStore adapter.ReportStore
var seedSource adapter.SeedSource
var tableLoader adapter.TableLoader
var workflow domain.Workflow
var ui controller.UI

// reportsOutputDirFlag is a root-level flag shared by commands that read/write reports.
var reportsOutputDirFlag string

// verboseFlag switches logging to debug level.
var verboseFlag bool

// logFileFlag overrides the log file location.
var logFileFlag string

// tablePaths is a root-level flag with extra substitution tables.
var tablePaths []string

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	reportStore = adapter.NewReportStore()
	seedSource = adapter.NewLocalSeedSource()
	tableLoader = adapter.NewLocalTableLoader()
	workflow = domain.NewWorkflow(reportStore, seedSource, tableLoader, ui)
}

const rootLongDescription = `textfuzz mutates seed strings one character at a time (leet speak,
case flips, homoglyphs, special characters) and feeds every variant to a
test. Variants the test rejects are collected as candidates, which makes it
easy to find inputs that slip past a validation routine or blocklist.`

const runLongDescription = `Fuzz the given seed strings against a test.

The test is either an external command (--command) or a pattern blocklist
(--blocklist). A command fails when it exits non-zero; with --boolean a
command printing "true" also counts. The input replaces a "{}" argument or is
appended to the command line, and is also written to stdin.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "textfuzz",
		Short: "Mutation-based fuzzer for text inputs",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(logFileFlag, viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}
}

// newRootCmd returns a root command with its persistent flags configured.
func newRootCmd() *cobra.Command {
	cmd := baseRootCmd()
	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&reportsOutputDirFlag, outputFlagName, "o",
			viper.GetString(outputFlagName),
			"output directory for fuzzing reports",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)

	cmd.PersistentFlags().StringVar(&logFileFlag, logFileFlagName, "", "log file (default from config)")

	cmd.PersistentFlags().StringArrayVar(&tablePaths, tableFlagName, viper.GetStringSlice(tablesConfigKey), "JSONC substitution table to add as a mutator (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(tableFlagName), tablesConfigKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		stop()
		os.Exit(1)
	}
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
