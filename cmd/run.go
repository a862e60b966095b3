package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gooze.dev/pkg/textfuzz/internal/adapter"
	"gooze.dev/pkg/textfuzz/internal/domain"
	m "gooze.dev/pkg/textfuzz/internal/model"
)

var errNoTester = errors.New("either --command or --blocklist is required")
var errTwoTesters = errors.New("--command and --blocklist are mutually exclusive")

var (
	runSeedsFileFlag     string
	runTrialsFlag        int
	runDepthFlag         int
	runChanceFlag        float64
	runSpecialChanceFlag float64
	runErrorLimitFlag    int
	runBooleanFlag       bool
	runParallelFlag      int
	runRandSeedFlag      int64
	runMaxCandidatesFlag int
	runCommandFlag       string
	runBlocklistFlag     string
	runInvertFlag        bool
	runIgnoreCaseFlag    bool
	runTimeoutFlag       string
)

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [seeds...]",
		Short: "Fuzz seed strings against a test",
		Long:  runLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			errorLimit := viper.GetInt(errorLimitConfigKey)
			if errorLimit < 1 {
				return fmt.Errorf("%w: --%s must be at least 1, got %d", domain.ErrInvalidConfig, errorLimitFlagName, errorLimit)
			}

			tester, err := buildTester()
			if err != nil {
				return err
			}

			return workflow.Fuzz(cmd.Context(), domain.FuzzArgs{
				Seeds:      args,
				SeedsFile:  m.Path(viper.GetString(seedsFileFlagName)),
				Tables:     parsePaths(viper.GetStringSlice(tablesConfigKey)),
				Tester:     tester,
				Config:     runConfigFromViper(),
				ErrorLimit: errorLimit,
				RandSeed:   viper.GetInt64(randSeedConfigKey),
				Reports:    m.Path(viper.GetString(outputFlagName)),
				JournalDir: filepath.Join(os.TempDir(), configBaseName),
			})
		},
	}

	configureRunFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func configureRunFlags(cmd *cobra.Command) {
	defaults := m.DefaultRunConfig()
	flags := cmd.Flags()

	flags.StringVar(&runSeedsFileFlag, seedsFileFlagName, "", "file with one seed per line")
	bindFlagToConfig(flags.Lookup(seedsFileFlagName), seedsFileFlagName)

	flags.IntVarP(&runTrialsFlag, trialsFlagName, "t", defaults.Trials, "number of independent trials")
	bindFlagToConfig(flags.Lookup(trialsFlagName), trialsConfigKey)

	flags.IntVarP(&runDepthFlag, depthFlagName, "d", defaults.MutationDepth, "number of generations per trial")
	bindFlagToConfig(flags.Lookup(depthFlagName), depthConfigKey)

	flags.Float64VarP(&runChanceFlag, chanceFlagName, "c", defaults.MutationChance, "probability of mutating a string per generation")
	bindFlagToConfig(flags.Lookup(chanceFlagName), chanceConfigKey)

	flags.Float64Var(&runSpecialChanceFlag, specialChanceFlagName, defaults.SpecialChance, "probability of keeping the special character mutator once drawn")
	bindFlagToConfig(flags.Lookup(specialChanceFlagName), specialChanceConfigKey)

	flags.IntVar(&runErrorLimitFlag, errorLimitFlagName, m.DefaultErrorLimit, "positions a substitution mutator tries before giving up")
	bindFlagToConfig(flags.Lookup(errorLimitFlagName), errorLimitConfigKey)

	flags.BoolVar(&runBooleanFlag, booleanFlagName, defaults.BooleanMode, "count a truthy test result as a hit")
	bindFlagToConfig(flags.Lookup(booleanFlagName), booleanConfigKey)

	flags.IntVarP(&runParallelFlag, parallelFlagName, "p", defaults.Parallel, "number of trials run concurrently")
	bindFlagToConfig(flags.Lookup(parallelFlagName), parallelConfigKey)

	flags.Int64Var(&runRandSeedFlag, randSeedFlagName, 0, "random seed for a reproducible run (0 uses the clock)")
	bindFlagToConfig(flags.Lookup(randSeedFlagName), randSeedConfigKey)

	flags.IntVar(&runMaxCandidatesFlag, maxCandidatesFlagName, defaults.MaxCandidates, "maximum number of candidates kept (0 is unbounded)")
	bindFlagToConfig(flags.Lookup(maxCandidatesFlagName), maxCandidatesConfigKey)

	flags.StringVar(&runCommandFlag, commandFlagName, "", "command to test each input with, \"{}\" is replaced by the input")
	bindFlagToConfig(flags.Lookup(commandFlagName), commandConfigKey)

	flags.StringVar(&runBlocklistFlag, blocklistFlagName, "", "file with one regular expression per line to test inputs against")
	bindFlagToConfig(flags.Lookup(blocklistFlagName), blocklistConfigKey)

	flags.BoolVar(&runInvertFlag, invertFlagName, false, "treat inputs that pass the blocklist as hits")
	bindFlagToConfig(flags.Lookup(invertFlagName), invertConfigKey)

	flags.BoolVar(&runIgnoreCaseFlag, ignoreCaseFlagName, false, "match blocklist patterns case-insensitively")
	bindFlagToConfig(flags.Lookup(ignoreCaseFlagName), ignoreCaseConfigKey)

	flags.StringVar(&runTimeoutFlag, timeoutFlagName, defaultTimeout.String(), "timeout for a single command invocation")
	bindFlagToConfig(flags.Lookup(timeoutFlagName), timeoutConfigKey)
}

func runConfigFromViper() m.RunConfig {
	return m.RunConfig{
		Trials:         viper.GetInt(trialsConfigKey),
		MutationDepth:  viper.GetInt(depthConfigKey),
		MutationChance: viper.GetFloat64(chanceConfigKey),
		SpecialChance:  viper.GetFloat64(specialChanceConfigKey),
		BooleanMode:    viper.GetBool(booleanConfigKey),
		Parallel:       viper.GetInt(parallelConfigKey),
		MaxCandidates:  viper.GetInt(maxCandidatesConfigKey),
	}
}

func buildTester() (domain.Tester, error) {
	command := viper.GetString(commandConfigKey)
	blocklist := viper.GetString(blocklistConfigKey)

	switch {
	case command != "" && blocklist != "":
		return nil, errTwoTesters
	case command != "":
		tester, err := adapter.NewCommandTester(command, viper.GetDuration(timeoutConfigKey))
		if err != nil {
			return nil, err
		}

		return tester, nil
	case blocklist != "":
		tester, err := adapter.LoadBlocklist(
			m.Path(blocklist),
			viper.GetBool(ignoreCaseConfigKey),
			viper.GetBool(invertConfigKey),
		)
		if err != nil {
			return nil, err
		}

		return tester, nil
	}

	return nil, errNoTester
}
