package main

import (
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oxhq/clicov/analyzer"
)

var rootCmd = &cobra.Command{
	Use:           "clicov",
	Short:         "Static test-coverage analysis for CLI surfaces",
	Long:          "clicov parses a CLI's source and its test suite, cross-references the\ncommand tree against statically discovered invocations, and reports which\ncommands, flags and options the tests never exercise. No code is executed.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("cli-path", "", "path to the CLI entry-point source file")
	pf.String("test-dir", "", "directory containing the test suite")
	pf.StringSlice("include-patterns", nil, "test file name patterns (suffix or glob)")
	pf.StringSlice("exclude-patterns", nil, "path components or globs to skip")
	pf.String("format", "text", "output format: text or json")
	pf.BoolP("verbose", "v", false, "enable debug logging")

	pf.Duration("cache-ttl", 5*time.Minute, "parse cache entry lifetime")
	pf.Int("cache-max-entries", 256, "parse cache entry limit")
	pf.Bool("no-cache", false, "disable the parse cache")
	pf.Int64("max-file-size", 5*1024*1024, "per-file size ceiling in bytes")
	pf.StringSlice("runner-names", nil, "callee names treated as CLI invocations in tests")
	pf.Bool("fail-fast", false, "abort on the first test-file parse error instead of warning")
	pf.Int("workers", 0, "test file parse workers (0 = one per CPU)")
	pf.String("db", "", "run-history database DSN (sqlite path or libsql URL); empty disables history")

	viper.SetEnvPrefix("CLICOV")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindPFlags(pf)
}

// newLogger builds the process logger; debug level when --verbose.
func newLogger() *log.Logger {
	logger := log.New(os.Stderr)
	if viper.GetBool("verbose") {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// analyzerConfig assembles one run's configuration from flags, CLICOV_* env
// vars and any loaded .env file, in viper's usual precedence.
func analyzerConfig(logger *log.Logger) analyzer.Config {
	return analyzer.Config{
		CLIPath:         viper.GetString("cli-path"),
		TestDir:         viper.GetString("test-dir"),
		IncludePatterns: viper.GetStringSlice("include-patterns"),
		ExcludePatterns: viper.GetStringSlice("exclude-patterns"),
		MaxFileSize:     viper.GetInt64("max-file-size"),
		CacheTTL:        viper.GetDuration("cache-ttl"),
		CacheMaxEntries: viper.GetInt("cache-max-entries"),
		CacheDisabled:   viper.GetBool("no-cache"),
		RunnerNames:     viper.GetStringSlice("runner-names"),
		FailFast:        viper.GetBool("fail-fast"),
		Workers:         viper.GetInt("workers"),
		Logger:          logger,
	}
}
