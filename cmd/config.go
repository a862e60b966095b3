package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	m "gooze.dev/pkg/textfuzz/internal/model"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "textfuzz"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	outputFlagName        = "output"
	verboseFlagName       = "verbose"
	logFileFlagName       = "log-file"
	tableFlagName         = "table"
	seedsFileFlagName     = "seeds-file"
	trialsFlagName        = "trials"
	depthFlagName         = "depth"
	chanceFlagName        = "chance"
	specialChanceFlagName = "special-chance"
	errorLimitFlagName    = "error-limit"
	booleanFlagName       = "boolean"
	parallelFlagName      = "parallel"
	randSeedFlagName      = "seed"
	maxCandidatesFlagName = "max-candidates"
	commandFlagName       = "command"
	blocklistFlagName     = "blocklist"
	invertFlagName        = "invert"
	ignoreCaseFlagName    = "ignore-case"
	timeoutFlagName       = "timeout"

	tablesConfigKey        = "mutators.tables"
	trialsConfigKey        = "run.trials"
	depthConfigKey         = "run.mutation_depth"
	chanceConfigKey        = "run.mutation_chance"
	specialChanceConfigKey = "run.special_chance"
	errorLimitConfigKey    = "run.error_limit"
	booleanConfigKey       = "run.boolean"
	parallelConfigKey      = "run.parallel"
	randSeedConfigKey      = "run.seed"
	maxCandidatesConfigKey = "run.max_candidates"
	commandConfigKey       = "tester.command"
	blocklistConfigKey     = "tester.blocklist"
	invertConfigKey        = "tester.invert"
	ignoreCaseConfigKey    = "tester.ignore_case"
	timeoutConfigKey       = "tester.timeout"

	defaultReportsDir = ".textfuzz-reports"
	defaultTimeout    = 30 * time.Second

	envPrefix = "TEXTFUZZ"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".textfuzz.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(outputFlagName, defaultReportsDir)
	viper.SetDefault(tablesConfigKey, []string{})

	defaults := m.DefaultRunConfig()
	viper.SetDefault(trialsConfigKey, defaults.Trials)
	viper.SetDefault(depthConfigKey, defaults.MutationDepth)
	viper.SetDefault(chanceConfigKey, defaults.MutationChance)
	viper.SetDefault(specialChanceConfigKey, defaults.SpecialChance)
	viper.SetDefault(errorLimitConfigKey, m.DefaultErrorLimit)
	viper.SetDefault(booleanConfigKey, defaults.BooleanMode)
	viper.SetDefault(parallelConfigKey, defaults.Parallel)
	viper.SetDefault(randSeedConfigKey, int64(0))
	viper.SetDefault(maxCandidatesConfigKey, defaults.MaxCandidates)

	viper.SetDefault(commandConfigKey, "")
	viper.SetDefault(blocklistConfigKey, "")
	viper.SetDefault(invertConfigKey, false)
	viper.SetDefault(ignoreCaseConfigKey, false)
	viper.SetDefault(timeoutConfigKey, defaultTimeout)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return
		}

		fmt.Fprintf(os.Stderr, "textfuzz: ignoring %s: %v\n", configFileName, err)
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
